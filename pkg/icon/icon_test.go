package icon

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, name string, encode func(f *os.File, img image.Image) error) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadPNG(t *testing.T) {
	path := writeImage(t, "icon.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	icon, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, icon.Width)
	assert.Equal(t, 2, icon.Height)
	require.Len(t, icon.RGBA, 4*2*4)
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0xff}, icon.RGBA[:4])
}

func TestLoadBMPWithMisleadingExtension(t *testing.T) {
	path := writeImage(t, "icon.png", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) })
	icon, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, icon.Width)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}

func TestFromImageSubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	sub := src.SubImage(image.Rect(2, 2, 5, 4))
	icon, err := FromImage(sub)
	require.NoError(t, err)
	assert.Equal(t, 3, icon.Width)
	assert.Equal(t, 2, icon.Height)
	assert.Len(t, icon.RGBA, 3*2*4)

	_, err = FromImage(image.NewRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestFromImageKeepsStraightAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0xff, G: 0x80, B: 0x00, A: 0x80})

	icon, err := FromImage(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x80, 0x00, 0x80}, icon.RGBA)

	// A premultiplied source is converted back to straight alpha.
	pre := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pre.Set(0, 0, color.NRGBA{R: 0xff, G: 0x00, B: 0x00, A: 0x80})
	icon, err = FromImage(pre)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00, 0x00, 0x80}, icon.RGBA)
}
