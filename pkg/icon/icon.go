// Package icon loads window icons from image files.
package icon

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rexliu/nanoframe/pkg/native"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("icon has no pixels")

// Load decodes the image at path into an RGBA icon. The format is sniffed
// from the content, not the extension.
func Load(path string) (native.Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return native.Icon{}, err
	}
	defer f.Close()
	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return native.Icon{}, fmt.Errorf("decode %s: %w", path, err)
	}
	icon, err := FromImage(img)
	if err != nil {
		return native.Icon{}, fmt.Errorf("%s icon %s: %w", format, path, err)
	}
	return icon, nil
}

// FromImage converts any image into tightly packed, non-premultiplied RGBA,
// which is what native icon APIs take.
func FromImage(img image.Image) (native.Icon, error) {
	b := img.Bounds()
	if b.Empty() {
		return native.Icon{}, ErrEmptyImage
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return native.Icon{Width: b.Dx(), Height: b.Dy(), RGBA: nrgba.Pix}, nil
}
