package native

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/rexliu/nanoframe/pkg/core"
)

// titleBarHeight is added to the inner height of decorated headless windows.
const titleBarHeight = 28

// HeadlessConfig configures the in-memory toolkit.
type HeadlessConfig struct {
	PollInterval time.Duration
	// Monitor is the simulated display. Nil means 1920x1080 at the origin.
	Monitor *core.Monitor
	// NoMonitor makes CurrentMonitor report no display.
	NoMonitor bool
	// HidePositions makes OuterPosition fail with ErrPositionUnavailable.
	HidePositions bool
	// EvalHook, when set, decides whether a script evaluation fails.
	EvalHook func(script string) error
}

// WindowState is a snapshot of a headless window.
type WindowState struct {
	Title       string
	Bounds      core.Bounds
	MinSize     *core.Size
	MaxSize     *core.Size
	Visible     bool
	Minimized   bool
	Maximized   bool
	Fullscreen  bool
	Decorations bool
	Resizable   bool
	AlwaysOnTop bool
	Focused     bool
	Icon        *Icon
	Attention   core.AttentionType
	URL         string
	HTML        string
	Preload     string
	Devtools    bool
	Scripts     []string
	Destroyed   bool
}

// Headless is a Toolkit that keeps every window in memory. It backs builds
// without cgo and the tests.
type Headless struct {
	cfg     HeadlessConfig
	monitor core.Monitor

	mu        sync.Mutex
	windows   map[Handle]*headlessWindow
	nextID    Handle
	pending   []func(handler func(Event) core.ControlFlow) core.ControlFlow
	createErr error
	wake      chan struct{}
}

// NewHeadless returns an in-memory toolkit.
func NewHeadless(cfg HeadlessConfig) *Headless {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 8 * time.Millisecond
	}
	monitor := core.Monitor{Name: "headless-0", Size: core.Size{Width: 1920, Height: 1080}}
	if cfg.Monitor != nil {
		monitor = *cfg.Monitor
	}
	return &Headless{
		cfg:     cfg,
		monitor: monitor,
		windows: make(map[Handle]*headlessWindow),
		wake:    make(chan struct{}, 1),
	}
}

// FailNextWindow makes the next NewWindow call return err.
func (h *Headless) FailNextWindow(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.createErr = err
}

// RequestClose simulates the user closing a window. Safe from any goroutine.
func (h *Headless) RequestClose(id Handle) {
	h.inject(func(handler func(Event) core.ControlFlow) core.ControlFlow {
		return handler(CloseRequested{Window: id})
	})
}

// DeliverIPC simulates the page posting message to the host. Safe from any goroutine.
func (h *Headless) DeliverIPC(id Handle, message string) {
	h.inject(func(func(Event) core.ControlFlow) core.ControlFlow {
		h.mu.Lock()
		w, ok := h.windows[id]
		var onMessage func(string)
		if ok && w.webview != nil && !w.webview.destroyed {
			onMessage = w.webview.cfg.OnMessage
		}
		h.mu.Unlock()
		if onMessage != nil {
			onMessage(message)
		}
		return core.Poll
	})
}

// State returns a copy of the window's current state.
func (h *Headless) State(id Handle) (WindowState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return WindowState{}, false
	}
	st := w.state
	st.Scripts = append([]string(nil), w.state.Scripts...)
	return st, true
}

// Live counts windows that have not been destroyed.
func (h *Headless) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.windows)
}

// NewWindow implements Toolkit.
func (h *Headless) NewWindow(opts core.WindowOptions, icon *Icon) (Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.createErr; err != nil {
		h.createErr = nil
		return nil, err
	}
	h.nextID++
	size := core.ClampSize(opts.Size, opts.MinSize, opts.MaxSize)
	pos := core.Position{X: 100, Y: 100}
	if opts.Position != nil {
		pos = *opts.Position
	}
	w := &headlessWindow{
		owner: h,
		id:    h.nextID,
		state: WindowState{
			Title:       opts.Title,
			Bounds:      core.Bounds{Position: pos, Size: size},
			MinSize:     opts.MinSize,
			MaxSize:     opts.MaxSize,
			Visible:     opts.Visible,
			Fullscreen:  opts.Fullscreen,
			Decorations: opts.Decorations,
			Resizable:   opts.Resizable,
			AlwaysOnTop: opts.AlwaysOnTop,
			Icon:        icon,
		},
	}
	h.windows[w.id] = w
	return w, nil
}

// NewWebview implements Toolkit.
func (h *Headless) NewWebview(win Window, cfg WebviewConfig) (Webview, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hw, ok := win.(*headlessWindow)
	if !ok || hw.owner != h {
		return nil, fmt.Errorf("headless: foreign window %T", win)
	}
	if hw.state.Destroyed {
		return nil, ErrDestroyed
	}
	if hw.webview != nil {
		return nil, fmt.Errorf("headless: window %d already hosts a webview", hw.id)
	}
	wv := &headlessWebview{window: hw, cfg: cfg}
	hw.webview = wv
	hw.state.URL = cfg.URL
	hw.state.HTML = cfg.HTML
	hw.state.Preload = cfg.Preload
	hw.state.Devtools = cfg.Devtools
	return wv, nil
}

// Run implements Toolkit. Injected events are delivered before each Tick.
func (h *Headless) Run(ctx context.Context, handler func(Event) core.ControlFlow) error {
	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()
	for {
		for _, fn := range h.takePending() {
			if fn(handler) == core.Exit {
				return nil
			}
		}
		if handler(Tick{}) == core.Exit {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-h.wake:
		}
	}
}

func (h *Headless) inject(fn func(handler func(Event) core.ControlFlow) core.ControlFlow) {
	h.mu.Lock()
	h.pending = append(h.pending, fn)
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Headless) takePending() []func(handler func(Event) core.ControlFlow) core.ControlFlow {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.pending
	h.pending = nil
	return out
}

type headlessWindow struct {
	owner   *Headless
	id      Handle
	state   WindowState
	webview *headlessWebview
}

// with runs fn under the toolkit lock unless the window is gone.
func (w *headlessWindow) with(fn func(st *WindowState) error) error {
	w.owner.mu.Lock()
	defer w.owner.mu.Unlock()
	if w.state.Destroyed {
		return ErrDestroyed
	}
	return fn(&w.state)
}

func (w *headlessWindow) ID() Handle { return w.id }

func (w *headlessWindow) SetVisible(visible bool) error {
	return w.with(func(st *WindowState) error {
		st.Visible = visible
		return nil
	})
}

func (w *headlessWindow) IsVisible() (visible bool, err error) {
	err = w.with(func(st *WindowState) error {
		visible = st.Visible
		return nil
	})
	return visible, err
}

func (w *headlessWindow) SetTitle(title string) error {
	return w.with(func(st *WindowState) error {
		st.Title = title
		return nil
	})
}

func (w *headlessWindow) InnerSize() (size core.Size, err error) {
	err = w.with(func(st *WindowState) error {
		size = st.Bounds.Size
		return nil
	})
	return size, err
}

func (w *headlessWindow) SetInnerSize(size core.Size) error {
	return w.with(func(st *WindowState) error {
		st.Bounds.Size = core.ClampSize(size, st.MinSize, st.MaxSize)
		return nil
	})
}

func (w *headlessWindow) OuterSize() (size core.Size, err error) {
	err = w.with(func(st *WindowState) error {
		size = st.Bounds.Size
		if st.Decorations && !st.Fullscreen {
			size.Height += titleBarHeight
		}
		return nil
	})
	return size, err
}

func (w *headlessWindow) OuterPosition() (pos core.Position, err error) {
	err = w.with(func(st *WindowState) error {
		if w.owner.cfg.HidePositions {
			return ErrPositionUnavailable
		}
		pos = st.Bounds.Position
		return nil
	})
	return pos, err
}

func (w *headlessWindow) SetOuterPosition(pos core.Position) error {
	return w.with(func(st *WindowState) error {
		st.Bounds.Position = pos
		return nil
	})
}

func (w *headlessWindow) SetMinInnerSize(size *core.Size) error {
	return w.with(func(st *WindowState) error {
		st.MinSize = copySize(size)
		st.Bounds.Size = core.ClampSize(st.Bounds.Size, st.MinSize, st.MaxSize)
		return nil
	})
}

func (w *headlessWindow) SetMaxInnerSize(size *core.Size) error {
	return w.with(func(st *WindowState) error {
		st.MaxSize = copySize(size)
		st.Bounds.Size = core.ClampSize(st.Bounds.Size, st.MinSize, st.MaxSize)
		return nil
	})
}

func (w *headlessWindow) SetMaximized(maximized bool) error {
	return w.with(func(st *WindowState) error {
		st.Maximized = maximized
		return nil
	})
}

func (w *headlessWindow) IsMaximized() (maximized bool, err error) {
	err = w.with(func(st *WindowState) error {
		maximized = st.Maximized
		return nil
	})
	return maximized, err
}

func (w *headlessWindow) SetMinimized(minimized bool) error {
	return w.with(func(st *WindowState) error {
		st.Minimized = minimized
		return nil
	})
}

func (w *headlessWindow) SetFocus() error {
	w.owner.mu.Lock()
	defer w.owner.mu.Unlock()
	if w.state.Destroyed {
		return ErrDestroyed
	}
	for _, other := range w.owner.windows {
		other.state.Focused = false
	}
	w.state.Focused = true
	return nil
}

func (w *headlessWindow) SetFullscreen(fullscreen bool) error {
	return w.with(func(st *WindowState) error {
		st.Fullscreen = fullscreen
		return nil
	})
}

func (w *headlessWindow) IsFullscreen() (fullscreen bool, err error) {
	err = w.with(func(st *WindowState) error {
		fullscreen = st.Fullscreen
		return nil
	})
	return fullscreen, err
}

func (w *headlessWindow) SetDecorations(decorations bool) error {
	return w.with(func(st *WindowState) error {
		st.Decorations = decorations
		return nil
	})
}

func (w *headlessWindow) SetResizable(resizable bool) error {
	return w.with(func(st *WindowState) error {
		st.Resizable = resizable
		return nil
	})
}

func (w *headlessWindow) SetAlwaysOnTop(onTop bool) error {
	return w.with(func(st *WindowState) error {
		st.AlwaysOnTop = onTop
		return nil
	})
}

func (w *headlessWindow) SetIcon(icon Icon) error {
	return w.with(func(st *WindowState) error {
		st.Icon = &icon
		return nil
	})
}

func (w *headlessWindow) RequestUserAttention(kind core.AttentionType) error {
	return w.with(func(st *WindowState) error {
		st.Attention = kind
		return nil
	})
}

func (w *headlessWindow) CurrentMonitor() (core.Monitor, bool) {
	if w.owner.cfg.NoMonitor {
		return core.Monitor{}, false
	}
	return w.owner.monitor, true
}

// Capture renders the window as a flat fill of its inner size.
func (w *headlessWindow) Capture() (img image.Image, err error) {
	err = w.with(func(st *WindowState) error {
		if !st.Visible || st.Minimized {
			return fmt.Errorf("headless: window %d is not on screen", w.id)
		}
		rgba := image.NewRGBA(image.Rect(0, 0, st.Bounds.Width, st.Bounds.Height))
		draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}}, image.Point{}, draw.Src)
		img = rgba
		return nil
	})
	return img, err
}

// Destroy marks the window dead and forgets it, so State no longer finds it.
func (w *headlessWindow) Destroy() error {
	return w.with(func(st *WindowState) error {
		st.Destroyed = true
		st.Visible = false
		delete(w.owner.windows, w.id)
		return nil
	})
}

type headlessWebview struct {
	window    *headlessWindow
	cfg       WebviewConfig
	destroyed bool
}

func (v *headlessWebview) Eval(script string) error {
	owner := v.window.owner
	owner.mu.Lock()
	if v.destroyed {
		owner.mu.Unlock()
		return ErrDestroyed
	}
	hook := owner.cfg.EvalHook
	owner.mu.Unlock()
	if hook != nil {
		if err := hook(script); err != nil {
			return err
		}
	}
	owner.mu.Lock()
	defer owner.mu.Unlock()
	v.window.state.Scripts = append(v.window.state.Scripts, script)
	return nil
}

func (v *headlessWebview) OpenDevtools() error {
	owner := v.window.owner
	owner.mu.Lock()
	defer owner.mu.Unlock()
	if v.destroyed {
		return ErrDestroyed
	}
	v.window.state.Devtools = true
	return nil
}

func (v *headlessWebview) Destroy() error {
	owner := v.window.owner
	owner.mu.Lock()
	defer owner.mu.Unlock()
	v.destroyed = true
	return nil
}

func copySize(s *core.Size) *core.Size {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
