// Package native defines the window/webview toolkit the host drives from its
// GUI goroutine. Handles returned by a Toolkit are confined to the goroutine
// that called Run.
package native

import (
	"context"
	"errors"
	"image"

	"github.com/rexliu/nanoframe/pkg/core"
)

var (
	// ErrUnsupported is returned for operations a backend cannot express.
	ErrUnsupported = errors.New("operation not supported by backend")
	// ErrDestroyed is returned when a handle is used after Destroy.
	ErrDestroyed = errors.New("handle destroyed")
	// ErrPositionUnavailable is returned when the platform does not report a window position.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Handle is the toolkit's own identifier for a window.
type Handle uint64

// Icon is a decoded image ready to hand to a window. RGBA holds straight
// (non-premultiplied) alpha, four bytes per pixel.
type Icon struct {
	Width  int
	Height int
	RGBA   []byte
}

// WebviewConfig configures the page hosted in a window.
type WebviewConfig struct {
	URL      string
	HTML     string
	Preload  string
	Devtools bool
	// OnMessage receives page-to-host messages on the loop goroutine.
	OnMessage func(message string)
}

// Event is delivered to the Run handler on the loop goroutine.
type Event interface {
	isEvent()
}

// Tick is delivered once per loop iteration.
type Tick struct{}

func (Tick) isEvent() {}

// CloseRequested reports that the user asked to close a window.
type CloseRequested struct {
	Window Handle
}

func (CloseRequested) isEvent() {}

// Toolkit creates native handles and runs the event loop.
type Toolkit interface {
	NewWindow(opts core.WindowOptions, icon *Icon) (Window, error)
	NewWebview(w Window, cfg WebviewConfig) (Webview, error)
	// Run blocks until handler returns core.Exit or ctx ends.
	Run(ctx context.Context, handler func(Event) core.ControlFlow) error
}

// Window is a top-level native window.
type Window interface {
	ID() Handle
	SetVisible(visible bool) error
	IsVisible() (bool, error)
	SetTitle(title string) error
	InnerSize() (core.Size, error)
	SetInnerSize(size core.Size) error
	OuterSize() (core.Size, error)
	OuterPosition() (core.Position, error)
	SetOuterPosition(pos core.Position) error
	SetMinInnerSize(size *core.Size) error
	SetMaxInnerSize(size *core.Size) error
	SetMaximized(maximized bool) error
	IsMaximized() (bool, error)
	SetMinimized(minimized bool) error
	SetFocus() error
	SetFullscreen(fullscreen bool) error
	IsFullscreen() (bool, error)
	SetDecorations(decorations bool) error
	SetResizable(resizable bool) error
	SetAlwaysOnTop(onTop bool) error
	SetIcon(icon Icon) error
	RequestUserAttention(kind core.AttentionType) error
	// CurrentMonitor reports false when the window is not on a known display.
	CurrentMonitor() (core.Monitor, bool)
	Capture() (image.Image, error)
	Destroy() error
}

// Webview is the page attached to a Window.
type Webview interface {
	Eval(script string) error
	OpenDevtools() error
	Destroy() error
}
