// Package webviewgo implements native.Toolkit on top of github.com/webview/webview_go.
// The binding couples one window to one webview and exposes no getters, so the
// toolkit tracks window state itself and reports native.ErrUnsupported for
// anything the binding cannot express. Platform hooks fill the gaps the binding
// leaves: per-window close detection and visibility.
package webviewgo

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/native"
)

const ipcBinding = "__nanoframeIPC"

// ipcShim gives pages a window.ipc.postMessage entry point.
const ipcShim = `window.ipc = Object.freeze({
  postMessage: function (m) { return window.` + ipcBinding + `(typeof m === 'string' ? m : JSON.stringify(m)); }
});`

// sizeHint mirrors the binding's size hints.
type sizeHint int

const (
	hintNone sizeHint = iota
	hintMin
	hintMax
	hintFixed
)

// engine is one webview_go instance.
type engine interface {
	Run()
	Terminate()
	Dispatch(f func())
	Destroy()
	Window() unsafe.Pointer
	SetTitle(title string)
	SetSize(width, height int, hint sizeHint)
	Navigate(url string)
	SetHtml(html string)
	Init(js string)
	Eval(js string)
	Bind(name string, f interface{}) error
}

// platform reaches the native window behind an engine.
type platform interface {
	// multiWindow reports whether closes arrive through watchClose, which
	// lets several windows share one loop.
	multiWindow() bool
	watchClose(win unsafe.Pointer, id native.Handle)
	unwatchClose(win unsafe.Pointer, id native.Handle)
	setVisible(win unsafe.Pointer, visible bool) error
	visible(win unsafe.Pointer) (bool, error)
}

// active is the toolkit whose Run is in progress; native close callbacks
// carry only a handle.
var active atomic.Pointer[Toolkit]

// deliverClose reports a user close of window id. It runs on the loop thread.
func deliverClose(id native.Handle) {
	if t := active.Load(); t != nil {
		t.closeRequested(id)
	}
}

// Toolkit drives webview_go windows. All methods except Run must be called
// from inside the Run handler.
type Toolkit struct {
	interval  time.Duration
	newEngine func(devtools bool) (engine, error)
	plat      platform

	nextID    native.Handle
	windows   []*window
	graveyard []*window
	looping   bool
	onClose   func(native.Handle)

	// mu guards the window blocked in Run and whether it was told to stop.
	mu         sync.Mutex
	primary    *window
	terminated bool

	stepQueued atomic.Bool
}

func newToolkit(interval time.Duration, newEngine func(devtools bool) (engine, error), plat platform) *Toolkit {
	if interval <= 0 {
		interval = 8 * time.Millisecond
	}
	return &Toolkit{interval: interval, newEngine: newEngine, plat: plat}
}

// NewWindow records the window configuration; the native window is realized
// together with its webview.
func (t *Toolkit) NewWindow(opts core.WindowOptions, icon *native.Icon) (native.Window, error) {
	t.nextID++
	w := &window{
		toolkit: t,
		id:      t.nextID,
		opts:    opts,
		size:    opts.Size,
		minSize: opts.MinSize,
		maxSize: opts.MaxSize,
	}
	return w, nil
}

// NewWebview implements native.Toolkit.
func (t *Toolkit) NewWebview(win native.Window, cfg native.WebviewConfig) (native.Webview, error) {
	w, ok := win.(*window)
	if !ok || w.toolkit != t {
		return nil, fmt.Errorf("webviewgo: foreign window %T", win)
	}
	if w.destroyed {
		return nil, native.ErrDestroyed
	}
	if w.wv != nil {
		return nil, fmt.Errorf("webviewgo: window %d already hosts a webview", w.id)
	}
	if !t.plat.multiWindow() && t.firstLive() != nil {
		return nil, fmt.Errorf("webviewgo: only one window at a time on this platform: %w", native.ErrUnsupported)
	}
	wv, err := t.newEngine(cfg.Devtools)
	if err != nil {
		return nil, fmt.Errorf("webviewgo: create webview: %w", err)
	}
	if !w.opts.Visible {
		if err := t.plat.setVisible(wv.Window(), false); err != nil {
			wv.Destroy()
			return nil, fmt.Errorf("webviewgo: start hidden: %w", err)
		}
	}
	w.wv = wv
	wv.SetTitle(w.opts.Title)
	w.applySize()
	if cfg.OnMessage != nil {
		onMessage := cfg.OnMessage
		if err := wv.Bind(ipcBinding, func(msg string) { onMessage(msg) }); err != nil {
			wv.Destroy()
			w.wv = nil
			return nil, fmt.Errorf("webviewgo: bind ipc: %w", err)
		}
		wv.Init(ipcShim)
	}
	if cfg.Preload != "" {
		wv.Init(cfg.Preload)
	}
	switch {
	case cfg.URL != "":
		wv.Navigate(cfg.URL)
	case cfg.HTML != "":
		wv.SetHtml(cfg.HTML)
	default:
		wv.Navigate("about:blank")
	}
	t.plat.watchClose(wv.Window(), w.id)
	t.windows = append(t.windows, w)
	return &page{window: w}, nil
}

// Run implements native.Toolkit. The first live window owns the platform
// loop. Closes are reported per window by the platform; where it cannot,
// a loop that ends without Terminate means its window was closed by the user.
func (t *Toolkit) Run(ctx context.Context, handler func(native.Event) core.ControlFlow) error {
	var exit atomic.Bool
	step := func(ev native.Event) {
		if exit.Load() {
			return
		}
		if _, ok := ev.(native.Tick); ok {
			t.reap()
		}
		if handler(ev) == core.Exit {
			exit.Store(true)
			t.terminate()
		}
	}
	t.onClose = func(id native.Handle) { step(native.CloseRequested{Window: id}) }
	t.looping = true
	active.Store(t)

	stop := make(chan struct{})
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		t.pump(ctx, stop, step)
	}()
	defer func() {
		close(stop)
		<-pumped
		active.CompareAndSwap(t, nil)
		t.onClose = nil
		t.looping = false
		t.reap()
	}()

	for !exit.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		primary := t.firstLive()
		if primary == nil {
			step(native.Tick{})
			time.Sleep(t.interval)
			continue
		}
		t.mu.Lock()
		if err := ctx.Err(); err != nil {
			t.mu.Unlock()
			return err
		}
		t.primary = primary
		t.terminated = false
		t.mu.Unlock()
		t.stepQueued.Store(false)

		primary.wv.Run()

		t.mu.Lock()
		t.primary = nil
		terminated := t.terminated
		t.mu.Unlock()
		switch {
		case primary.pendingDestroy:
			primary.release()
		case !terminated && !t.plat.multiWindow():
			primary.userClosed = true
			step(native.CloseRequested{Window: primary.id})
		}
	}
	return nil
}

// closeRequested forwards a platform close to the running handler.
func (t *Toolkit) closeRequested(id native.Handle) {
	if t.onClose != nil {
		t.onClose(id)
	}
}

// pump schedules loop steps on the running window while one exists. It holds
// mu across Dispatch so the window cannot be released underneath it.
func (t *Toolkit) pump(ctx context.Context, stop <-chan struct{}, step func(native.Event)) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			t.mu.Lock()
			if t.primary != nil {
				t.primary.wv.Dispatch(t.terminate)
			}
			t.mu.Unlock()
			return
		case <-ticker.C:
		}
		t.mu.Lock()
		if t.primary != nil && t.stepQueued.CompareAndSwap(false, true) {
			t.primary.wv.Dispatch(func() {
				t.stepQueued.Store(false)
				step(native.Tick{})
			})
		}
		t.mu.Unlock()
	}
}

func (t *Toolkit) terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.terminated = true
	if t.primary != nil {
		t.primary.wv.Terminate()
	}
}

// reap releases windows destroyed while the loop was running. It runs
// between events, never inside a native callback of the dying window.
func (t *Toolkit) reap() {
	dead := t.graveyard
	t.graveyard = nil
	for _, w := range dead {
		w.release()
	}
}

func (t *Toolkit) firstLive() *window {
	for _, w := range t.windows {
		if w.wv != nil && !w.destroyed && !w.userClosed {
			return w
		}
	}
	return nil
}

func (t *Toolkit) isPrimary(w *window) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primary == w
}

func (t *Toolkit) forget(w *window) {
	for i, other := range t.windows {
		if other == w {
			t.windows = append(t.windows[:i], t.windows[i+1:]...)
			return
		}
	}
}

type window struct {
	toolkit *Toolkit
	id      native.Handle
	opts    core.WindowOptions
	wv      engine

	size    core.Size
	minSize *core.Size
	maxSize *core.Size

	destroyed      bool
	userClosed     bool
	pendingDestroy bool
}

func (w *window) ID() native.Handle { return w.id }

func (w *window) live() error {
	if w.destroyed || w.wv == nil {
		return native.ErrDestroyed
	}
	return nil
}

func (w *window) applySize() {
	if w.minSize != nil {
		w.wv.SetSize(w.minSize.Width, w.minSize.Height, hintMin)
	}
	if w.maxSize != nil {
		w.wv.SetSize(w.maxSize.Width, w.maxSize.Height, hintMax)
	}
	hint := hintNone
	if !w.opts.Resizable {
		hint = hintFixed
	}
	w.wv.SetSize(w.size.Width, w.size.Height, hint)
}

func (w *window) SetVisible(visible bool) error {
	if err := w.live(); err != nil {
		return err
	}
	if err := w.toolkit.plat.setVisible(w.wv.Window(), visible); err != nil {
		return err
	}
	w.opts.Visible = visible
	return nil
}

func (w *window) IsVisible() (bool, error) {
	if err := w.live(); err != nil {
		return false, err
	}
	return w.toolkit.plat.visible(w.wv.Window())
}

func (w *window) SetTitle(title string) error {
	if err := w.live(); err != nil {
		return err
	}
	w.wv.SetTitle(title)
	return nil
}

func (w *window) InnerSize() (core.Size, error) {
	if err := w.live(); err != nil {
		return core.Size{}, err
	}
	return w.size, nil
}

func (w *window) SetInnerSize(size core.Size) error {
	if err := w.live(); err != nil {
		return err
	}
	w.size = core.ClampSize(size, w.minSize, w.maxSize)
	w.applySize()
	return nil
}

func (w *window) OuterSize() (core.Size, error) {
	return w.InnerSize()
}

func (w *window) OuterPosition() (core.Position, error) {
	if err := w.live(); err != nil {
		return core.Position{}, err
	}
	return core.Position{}, native.ErrPositionUnavailable
}

func (w *window) SetOuterPosition(core.Position) error { return w.unsupported() }

func (w *window) SetMinInnerSize(size *core.Size) error {
	if err := w.live(); err != nil {
		return err
	}
	w.minSize = size
	w.size = core.ClampSize(w.size, w.minSize, w.maxSize)
	w.applySize()
	return nil
}

func (w *window) SetMaxInnerSize(size *core.Size) error {
	if err := w.live(); err != nil {
		return err
	}
	w.maxSize = size
	w.size = core.ClampSize(w.size, w.minSize, w.maxSize)
	w.applySize()
	return nil
}

func (w *window) SetResizable(resizable bool) error {
	if err := w.live(); err != nil {
		return err
	}
	w.opts.Resizable = resizable
	w.applySize()
	return nil
}

func (w *window) SetMaximized(bool) error       { return w.unsupported() }
func (w *window) IsMaximized() (bool, error)    { return false, w.unsupported() }
func (w *window) SetMinimized(bool) error       { return w.unsupported() }
func (w *window) SetFocus() error               { return w.unsupported() }
func (w *window) SetFullscreen(bool) error      { return w.unsupported() }
func (w *window) IsFullscreen() (bool, error)   { return false, w.unsupported() }
func (w *window) SetDecorations(bool) error     { return w.unsupported() }
func (w *window) SetAlwaysOnTop(bool) error     { return w.unsupported() }
func (w *window) SetIcon(native.Icon) error     { return w.unsupported() }
func (w *window) Capture() (image.Image, error) { return nil, w.unsupported() }

func (w *window) RequestUserAttention(core.AttentionType) error { return w.unsupported() }

func (w *window) CurrentMonitor() (core.Monitor, bool) { return core.Monitor{}, false }

func (w *window) unsupported() error {
	if err := w.live(); err != nil {
		return err
	}
	return native.ErrUnsupported
}

// Destroy tears the window down. The window running the platform loop is
// released once its loop has returned; others wait for the next step.
func (w *window) Destroy() error {
	if w.destroyed {
		return native.ErrDestroyed
	}
	w.destroyed = true
	t := w.toolkit
	if w.wv == nil {
		t.forget(w)
		return nil
	}
	t.plat.unwatchClose(w.wv.Window(), w.id)
	_ = t.plat.setVisible(w.wv.Window(), false)
	switch {
	case t.isPrimary(w):
		w.pendingDestroy = true
		t.terminate()
	case t.looping:
		t.graveyard = append(t.graveyard, w)
	default:
		w.release()
	}
	return nil
}

func (w *window) release() {
	if w.wv != nil {
		w.wv.Destroy()
		w.wv = nil
	}
	w.toolkit.forget(w)
}

type page struct {
	window *window
}

func (p *page) Eval(script string) error {
	if err := p.window.live(); err != nil {
		return err
	}
	p.window.wv.Eval(script)
	return nil
}

func (p *page) OpenDevtools() error { return p.window.unsupported() }

// Destroy is a no-op; the webview lives and dies with its window.
func (p *page) Destroy() error { return nil }
