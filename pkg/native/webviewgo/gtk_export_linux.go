//go:build cgo && linux

package webviewgo

import "C"

import "github.com/rexliu/nanoframe/pkg/native"

//export goNanoframeDelete
func goNanoframeDelete(id C.ulong) {
	deliverClose(native.Handle(id))
}
