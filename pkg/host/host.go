// Package host runs the GUI side of nanoframe: it owns every window/webview
// pair, answers RPC requests between loop iterations and turns native close
// requests into notifications.
package host

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/icon"
	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/native"
	"github.com/rexliu/nanoframe/pkg/storage/sqlite"
	"github.com/rexliu/nanoframe/pkg/system"
)

// Inbox yields queued requests without blocking.
type Inbox interface {
	TryPop() (ipc.Request, bool)
}

// Outbox accepts responses and notifications without blocking.
type Outbox interface {
	Send(resp ipc.Response)
}

// Options wires a Host to its collaborators.
type Options struct {
	Toolkit native.Toolkit
	System  system.Services
	Inbox   Inbox
	Outbox  Outbox
	Logger  *slog.Logger
	// Journal is optional.
	Journal *sqlite.Journal
	// AppName is the default for app.getPath.
	AppName string
	// LoadIcon defaults to icon.Load.
	LoadIcon func(path string) (native.Icon, error)
}

// Host is the GUI-side state machine. Everything except New and Run is
// called on the loop goroutine.
type Host struct {
	toolkit  native.Toolkit
	system   system.Services
	inbox    Inbox
	outbox   Outbox
	logger   *slog.Logger
	journal  *sqlite.Journal
	appName  string
	loadIcon func(path string) (native.Icon, error)

	registry *Registry
	handlers map[Method]HandlerFunc
	flow     core.ControlFlow
}

// New validates the method catalog and returns a host ready to Run.
func New(opts Options) (*Host, error) {
	if opts.Toolkit == nil || opts.System == nil || opts.Inbox == nil || opts.Outbox == nil {
		return nil, errors.New("host: toolkit, system, inbox and outbox are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AppName == "" {
		opts.AppName = system.DefaultAppName
	}
	if opts.LoadIcon == nil {
		opts.LoadIcon = icon.Load
	}
	h := &Host{
		toolkit:  opts.Toolkit,
		system:   opts.System,
		inbox:    opts.Inbox,
		outbox:   opts.Outbox,
		logger:   opts.Logger.With("component", "host"),
		journal:  opts.Journal,
		appName:  opts.AppName,
		loadIcon: opts.LoadIcon,
		registry: NewRegistry(),
	}
	h.handlers = h.routes()
	if err := checkCatalog(Catalog, h.handlers); err != nil {
		return nil, err
	}
	return h, nil
}

// Run drives the toolkit loop until the last window closes or ctx ends.
func (h *Host) Run(ctx context.Context) error {
	h.logger.Info("event loop starting")
	err := h.toolkit.Run(ctx, h.handleEvent)
	h.logger.Info("event loop stopped", "windows", h.registry.Len())
	// Interrupted runs leave windows behind; tear them down without notifying.
	for _, id := range h.registry.IDs() {
		h.closeWindow(id, "shutdown")
	}
	return err
}

// handleEvent is the per-iteration callback; it returns the loop decision.
func (h *Host) handleEvent(ev native.Event) core.ControlFlow {
	switch e := ev.(type) {
	case native.CloseRequested:
		h.onCloseRequested(e.Window)
	case native.Tick:
		h.drain()
	}
	return h.flow
}

// drain answers every request queued right now.
func (h *Host) drain() {
	for {
		req, ok := h.inbox.TryPop()
		if !ok {
			return
		}
		h.dispatch(req)
	}
}

func (h *Host) onCloseRequested(handle native.Handle) {
	id, ok := h.registry.Resolve(handle)
	if !ok {
		h.logger.Debug("close request for unknown window", "handle", uint64(handle))
		return
	}
	if h.closeWindow(id, "native") {
		h.outbox.Send(closedNotification(id))
	}
}

// closeWindow removes the pair, tears the handles down and flips the loop to
// Exit once nothing is left.
func (h *Host) closeWindow(id core.WindowID, cause string) bool {
	e, ok := h.registry.Remove(id)
	if !ok {
		return false
	}
	if err := e.window.SetVisible(false); err != nil && !errors.Is(err, native.ErrUnsupported) {
		h.logger.Debug("hide before close failed", "window_id", id.String(), "error", err)
	}
	if err := e.webview.Destroy(); err != nil {
		h.logger.Warn("destroy webview failed", "window_id", id.String(), "error", err)
	}
	if err := e.window.Destroy(); err != nil {
		h.logger.Warn("destroy window failed", "window_id", id.String(), "error", err)
	}
	h.journal.RecordLifecycle(sqlite.LifecycleRecord{WindowID: id.String(), Event: "closed", Cause: cause})
	h.logger.Info("window closed", "window_id", id.String(), "cause", cause, "remaining", h.registry.Len())
	if h.registry.Len() == 0 {
		h.flow = h.flow.Then(core.Exit)
	}
	return true
}

func closedNotification(id core.WindowID) ipc.Response {
	return ipc.Notify(NotifyWindowClosed, map[string]string{"windowId": id.String()})
}
