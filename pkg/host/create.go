package host

import (
	"context"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/native"
	"github.com/rexliu/nanoframe/pkg/storage/sqlite"
)

type createResult struct {
	WindowID core.WindowID `json:"windowId"`
}

// handleCreateWindow builds a window and its webview and registers the pair.
// Nothing is registered unless both handles were built.
func (h *Host) handleCreateWindow(ctx context.Context, p *createParams) (any, *ipc.Error) {
	opts, err := p.options()
	if err != nil {
		return nil, invalidParams(err)
	}
	id := core.NewWindowID()
	stateFrom(ctx).windowID = id
	log := h.logger.With("window_id", id.String(), "trace_id", TraceID(ctx))

	var ic *native.Icon
	if opts.IconPath != "" {
		loaded, err := h.loadIcon(opts.IconPath)
		if err != nil {
			log.Warn("ignoring window icon", "path", opts.IconPath, "error", err)
		} else {
			ic = &loaded
		}
	}

	win, err := h.toolkit.NewWindow(opts, ic)
	if err != nil {
		return nil, createFailed(err)
	}
	wv, err := h.toolkit.NewWebview(win, native.WebviewConfig{
		URL:       opts.URL,
		HTML:      opts.HTML,
		Preload:   opts.Preload,
		Devtools:  opts.Devtools,
		OnMessage: h.pageMessages(id),
	})
	if err != nil {
		if derr := win.Destroy(); derr != nil {
			log.Warn("destroy partial window failed", "error", derr)
		}
		return nil, createFailed(err)
	}
	if err := h.registry.Insert(id, win, wv); err != nil {
		_ = wv.Destroy()
		_ = win.Destroy()
		return nil, createFailed(err)
	}

	if opts.Center {
		if _, err := center(win); err != nil {
			log.Debug("center on create failed", "error", err)
		}
	}
	h.journal.RecordLifecycle(sqlite.LifecycleRecord{WindowID: id.String(), Event: "created", Cause: "createWindow"})
	log.Info("window created", "title", opts.Title, "windows", h.registry.Len())
	return createResult{WindowID: id}, nil
}

// pageMessages forwards page-to-host messages as webview.ipc notifications.
func (h *Host) pageMessages(id core.WindowID) func(string) {
	return func(message string) {
		h.outbox.Send(ipc.Notify(NotifyWebviewIPC, map[string]string{
			"windowId": id.String(),
			"message":  message,
		}))
	}
}

func createFailed(err error) *ipc.Error {
	return ipc.Errorf(ipc.CodeCreateFailed, "Failed to create window: "+err.Error(), nil)
}
