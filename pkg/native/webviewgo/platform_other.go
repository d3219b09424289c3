//go:build cgo && !linux

package webviewgo

import (
	"unsafe"

	"github.com/rexliu/nanoframe/pkg/native"
)

// hostPlatform on Cocoa and Win32 has no close or visibility hook through the
// binding, so one window owns the loop and its Run returning is the close.
// Windows cannot be hidden, which keeps them visible for their whole life.
type hostPlatform struct{}

func (hostPlatform) multiWindow() bool                          { return false }
func (hostPlatform) watchClose(unsafe.Pointer, native.Handle)   {}
func (hostPlatform) unwatchClose(unsafe.Pointer, native.Handle) {}

func (hostPlatform) setVisible(_ unsafe.Pointer, visible bool) error {
	if visible {
		return nil
	}
	return native.ErrUnsupported
}

func (hostPlatform) visible(unsafe.Pointer) (bool, error) { return true, nil }
