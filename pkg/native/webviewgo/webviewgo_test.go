package webviewgo

import (
	"context"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/native"
)

// fakeLoop stands in for the platform main loop every engine shares.
type fakeLoop struct {
	mu    sync.Mutex
	queue []func()
	quit  bool
	wake  chan struct{}
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{wake: make(chan struct{}, 1)}
}

func (l *fakeLoop) post(f func()) {
	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.mu.Unlock()
	l.signal()
}

func (l *fakeLoop) stop() {
	l.mu.Lock()
	l.quit = true
	l.mu.Unlock()
	l.signal()
}

func (l *fakeLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *fakeLoop) run() {
	for {
		l.mu.Lock()
		if l.quit {
			l.quit = false
			l.mu.Unlock()
			return
		}
		queue := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, f := range queue {
			f()
		}
		if len(queue) == 0 {
			<-l.wake
		}
	}
}

type fakeEngine struct {
	loop     *fakeLoop
	devtools bool

	mu           sync.Mutex
	title        string
	html         string
	url          string
	inits        []string
	bound        map[string]interface{}
	destroyed    int
	lateDispatch int
}

func (e *fakeEngine) Run()       { e.loop.run() }
func (e *fakeEngine) Terminate() { e.loop.stop() }

func (e *fakeEngine) Dispatch(f func()) {
	e.mu.Lock()
	if e.destroyed > 0 {
		e.lateDispatch++
	}
	e.mu.Unlock()
	e.loop.post(f)
}

func (e *fakeEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed++
}

func (e *fakeEngine) Window() unsafe.Pointer     { return unsafe.Pointer(e) }
func (e *fakeEngine) SetTitle(title string)      { e.title = title }
func (e *fakeEngine) SetSize(int, int, sizeHint) {}
func (e *fakeEngine) Navigate(url string)        { e.url = url }
func (e *fakeEngine) SetHtml(html string)        { e.html = html }
func (e *fakeEngine) Init(js string)             { e.inits = append(e.inits, js) }
func (e *fakeEngine) Eval(string)                {}

func (e *fakeEngine) Bind(name string, f interface{}) error {
	if e.bound == nil {
		e.bound = make(map[string]interface{})
	}
	e.bound[name] = f
	return nil
}

func (e *fakeEngine) stats() (destroyed, late int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed, e.lateDispatch
}

// fakePlatform is only touched from the loop goroutine.
type fakePlatform struct {
	multi   bool
	watched map[unsafe.Pointer]native.Handle
	hidden  map[unsafe.Pointer]bool
}

func (p *fakePlatform) multiWindow() bool { return p.multi }

func (p *fakePlatform) watchClose(win unsafe.Pointer, id native.Handle) { p.watched[win] = id }

func (p *fakePlatform) unwatchClose(win unsafe.Pointer, _ native.Handle) { delete(p.watched, win) }

func (p *fakePlatform) setVisible(win unsafe.Pointer, visible bool) error {
	if !p.multi {
		if visible {
			return nil
		}
		return native.ErrUnsupported
	}
	p.hidden[win] = !visible
	return nil
}

func (p *fakePlatform) visible(win unsafe.Pointer) (bool, error) {
	return !p.hidden[win], nil
}

type fixture struct {
	loop    *fakeLoop
	plat    *fakePlatform
	engines []*fakeEngine
	tk      *Toolkit
}

func newFixture(multi bool) *fixture {
	f := &fixture{
		loop: newFakeLoop(),
		plat: &fakePlatform{
			multi:   multi,
			watched: make(map[unsafe.Pointer]native.Handle),
			hidden:  make(map[unsafe.Pointer]bool),
		},
	}
	f.tk = newToolkit(time.Millisecond, func(devtools bool) (engine, error) {
		e := &fakeEngine{loop: f.loop, devtools: devtools}
		f.engines = append(f.engines, e)
		return e, nil
	}, f.plat)
	return f
}

func (f *fixture) open(t *testing.T, opts core.WindowOptions, cfg native.WebviewConfig) (native.Window, native.Webview) {
	t.Helper()
	win, err := f.tk.NewWindow(opts, nil)
	require.NoError(t, err)
	wv, err := f.tk.NewWebview(win, cfg)
	require.NoError(t, err)
	return win, wv
}

func runCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUserClosesSecondWindowThenFirst(t *testing.T) {
	f := newFixture(true)
	var a, b native.Window
	var closes []native.Handle
	closedA := false

	err := f.tk.Run(runCtx(t), func(ev native.Event) core.ControlFlow {
		switch ev := ev.(type) {
		case native.Tick:
			switch {
			case a == nil:
				a, _ = f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})
				b, _ = f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})
				// The first window owns the loop; the user closes the other one.
				f.loop.post(func() { deliverClose(b.ID()) })
			case len(closes) == 1 && !closedA:
				destroyed, _ := f.engines[1].stats()
				assert.Equal(t, 1, destroyed, "closed window is released on the next tick")
				closedA = true
				f.loop.post(func() { deliverClose(a.ID()) })
			}
		case native.CloseRequested:
			closes = append(closes, ev.Window)
			if ev.Window == b.ID() {
				require.NoError(t, b.Destroy())
				return core.Poll
			}
			require.NoError(t, a.Destroy())
			return core.Exit
		}
		return core.Poll
	})

	require.NoError(t, err)
	assert.Equal(t, []native.Handle{b.ID(), a.ID()}, closes)
	require.Len(t, f.engines, 2)
	for _, e := range f.engines {
		destroyed, late := e.stats()
		assert.Equal(t, 1, destroyed)
		assert.Zero(t, late)
	}
	assert.Empty(t, f.plat.watched)
	assert.Empty(t, f.tk.windows)
	assert.ErrorIs(t, a.Destroy(), native.ErrDestroyed)
}

func TestCloseForUnknownHandleIsForwarded(t *testing.T) {
	f := newFixture(true)
	var a native.Window
	var closes []native.Handle

	err := f.tk.Run(runCtx(t), func(ev native.Event) core.ControlFlow {
		switch ev := ev.(type) {
		case native.Tick:
			if a == nil {
				a, _ = f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})
				f.loop.post(func() { deliverClose(99) })
			}
		case native.CloseRequested:
			closes = append(closes, ev.Window)
			if ev.Window == a.ID() {
				require.NoError(t, a.Destroy())
				return core.Exit
			}
			f.loop.post(func() { deliverClose(a.ID()) })
		}
		return core.Poll
	})

	require.NoError(t, err)
	assert.Equal(t, []native.Handle{99, a.ID()}, closes)
}

func TestSingleWindowLoopEndingIsAClose(t *testing.T) {
	f := newFixture(false)
	var a native.Window
	var closes []native.Handle

	err := f.tk.Run(runCtx(t), func(ev native.Event) core.ControlFlow {
		switch ev := ev.(type) {
		case native.Tick:
			if a == nil {
				a, _ = f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})
				// Closing the only window ends the platform loop on its own.
				f.loop.post(f.loop.stop)
			}
		case native.CloseRequested:
			closes = append(closes, ev.Window)
			require.NoError(t, a.Destroy())
			return core.Exit
		}
		return core.Poll
	})

	require.NoError(t, err)
	assert.Equal(t, []native.Handle{a.ID()}, closes)
	destroyed, late := f.engines[0].stats()
	assert.Equal(t, 1, destroyed)
	assert.Zero(t, late)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(true)
	ctx, cancel := context.WithCancel(runCtx(t))
	defer cancel()
	var a native.Window
	ticks := 0

	err := f.tk.Run(ctx, func(ev native.Event) core.ControlFlow {
		if _, ok := ev.(native.Tick); ok {
			if a == nil {
				a, _ = f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})
			}
			ticks++
			if ticks == 5 {
				cancel()
			}
		}
		return core.Poll
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, a.Destroy())
	destroyed, late := f.engines[0].stats()
	assert.Equal(t, 1, destroyed)
	assert.Zero(t, late)
}

func TestHiddenWindowVisibility(t *testing.T) {
	f := newFixture(true)
	opts := core.DefaultWindowOptions()
	opts.Visible = false
	win, _ := f.open(t, opts, native.WebviewConfig{})

	visible, err := win.IsVisible()
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, win.SetVisible(true))
	visible, err = win.IsVisible()
	require.NoError(t, err)
	assert.True(t, visible)

	require.NoError(t, win.SetVisible(false))
	visible, _ = win.IsVisible()
	assert.False(t, visible)

	require.NoError(t, win.Destroy())
	assert.Empty(t, f.plat.watched)
	destroyed, _ := f.engines[0].stats()
	assert.Equal(t, 1, destroyed)
	_, err = win.IsVisible()
	assert.ErrorIs(t, err, native.ErrDestroyed)
}

func TestSingleWindowPlatformLimits(t *testing.T) {
	f := newFixture(false)
	first, _ := f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})

	second, err := f.tk.NewWindow(core.DefaultWindowOptions(), nil)
	require.NoError(t, err)
	_, err = f.tk.NewWebview(second, native.WebviewConfig{})
	assert.ErrorIs(t, err, native.ErrUnsupported)
	assert.Len(t, f.engines, 1)

	assert.ErrorIs(t, first.SetVisible(false), native.ErrUnsupported)
	visible, err := first.IsVisible()
	require.NoError(t, err)
	assert.True(t, visible)
	require.NoError(t, first.Destroy())

	opts := core.DefaultWindowOptions()
	opts.Visible = false
	hidden, err := f.tk.NewWindow(opts, nil)
	require.NoError(t, err)
	_, err = f.tk.NewWebview(hidden, native.WebviewConfig{})
	assert.ErrorIs(t, err, native.ErrUnsupported)
	require.Len(t, f.engines, 2)
	destroyed, _ := f.engines[1].stats()
	assert.Equal(t, 1, destroyed)
}

func TestWebviewContentAndMessages(t *testing.T) {
	f := newFixture(true)
	var got []string
	opts := core.DefaultWindowOptions()
	opts.Title = "Docs"
	_, wv := f.open(t, opts, native.WebviewConfig{
		HTML:      "<p>hi</p>",
		Preload:   "window.boot = 1",
		Devtools:  true,
		OnMessage: func(msg string) { got = append(got, msg) },
	})

	e := f.engines[0]
	assert.True(t, e.devtools)
	assert.Equal(t, "Docs", e.title)
	assert.Equal(t, "<p>hi</p>", e.html)
	assert.Equal(t, []string{ipcShim, "window.boot = 1"}, e.inits)

	post, ok := e.bound[ipcBinding].(func(string))
	require.True(t, ok)
	post(`{"n":1}`)
	assert.Equal(t, []string{`{"n":1}`}, got)

	require.NoError(t, wv.Eval("1"))
	assert.ErrorIs(t, wv.OpenDevtools(), native.ErrUnsupported)

	_, blank := f.open(t, core.DefaultWindowOptions(), native.WebviewConfig{})
	require.NotNil(t, blank)
	assert.Equal(t, "about:blank", f.engines[1].url)
}
