package host

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/native"
)

func (h *Host) handlePing(context.Context, json.RawMessage) (any, *ipc.Error) {
	return "pong", nil
}

// ok turns a plain setter error into the standard true/-32099 answer.
func ok(op string, err error) (any, *ipc.Error) {
	if err != nil {
		return nil, nativeErr(op, err)
	}
	return true, nil
}

func (h *Host) handleShow(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("show", e.window.SetVisible(true))
}

func (h *Host) handleHide(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("hide", e.window.SetVisible(false))
}

// handleClose answers true and then reports the window as closed.
func (h *Host) handleClose(ctx context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	if h.closeWindow(e.id, "rpc") {
		thenNotify(ctx, closedNotification(e.id))
	}
	return true, nil
}

func (h *Host) handleMaximize(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("maximize", e.window.SetMaximized(true))
}

func (h *Host) handleUnmaximize(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("unmaximize", e.window.SetMaximized(false))
}

func (h *Host) handleMinimize(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("minimize", e.window.SetMinimized(true))
}

func (h *Host) handleUnminimize(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("unminimize", e.window.SetMinimized(false))
}

// handleRestore leaves both the minimized and the maximized state.
func (h *Host) handleRestore(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	if err := e.window.SetMinimized(false); err != nil {
		return nil, nativeErr("restore", err)
	}
	return ok("restore", e.window.SetMaximized(false))
}

func (h *Host) handleFocus(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("focus", e.window.SetFocus())
}

func (h *Host) handleCenter(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	centered, err := center(e.window)
	if err != nil {
		return nil, nativeErr("center", err)
	}
	return centered, nil
}

// center moves w to the middle of its monitor. It reports false when the
// window is not on a known monitor.
func center(w native.Window) (bool, error) {
	monitor, found := w.CurrentMonitor()
	if !found {
		return false, nil
	}
	outer, err := w.OuterSize()
	if err != nil {
		return false, err
	}
	if err := w.SetOuterPosition(core.CenterIn(monitor, outer)); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Host) handleSetTitle(_ context.Context, e *entry, p *titleParams) (any, *ipc.Error) {
	return ok("setTitle", e.window.SetTitle(*p.Title))
}

func (h *Host) handleSetSize(_ context.Context, e *entry, p *sizeParams) (any, *ipc.Error) {
	return ok("setSize", e.window.SetInnerSize(p.size()))
}

func (h *Host) handleGetSize(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	size, err := e.window.InnerSize()
	if err != nil {
		return nil, nativeErr("getSize", err)
	}
	return size, nil
}

func (h *Host) handleSetPosition(_ context.Context, e *entry, p *positionParams) (any, *ipc.Error) {
	return ok("setPosition", e.window.SetOuterPosition(p.position()))
}

func (h *Host) handleGetPosition(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	pos, rpcErr := outerPosition(e.window)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return pos, nil
}

func outerPosition(w native.Window) (core.Position, *ipc.Error) {
	pos, err := w.OuterPosition()
	switch {
	case errors.Is(err, native.ErrPositionUnavailable):
		return pos, ipc.Errorf(ipc.CodePositionUnavailable, "Position unavailable", nil)
	case err != nil:
		return pos, nativeErr("getPosition", err)
	}
	return pos, nil
}

func (h *Host) handleSetBounds(_ context.Context, e *entry, p *boundsParams) (any, *ipc.Error) {
	if err := e.window.SetOuterPosition(core.Position{X: *p.X, Y: *p.Y}); err != nil {
		return nil, nativeErr("setBounds", err)
	}
	return ok("setBounds", e.window.SetInnerSize(core.Size{Width: *p.Width, Height: *p.Height}))
}

func (h *Host) handleGetBounds(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	pos, rpcErr := outerPosition(e.window)
	if rpcErr != nil {
		return nil, rpcErr
	}
	size, err := e.window.InnerSize()
	if err != nil {
		return nil, nativeErr("getBounds", err)
	}
	return core.Bounds{Position: pos, Size: size}, nil
}

func (h *Host) handleSetMinSize(_ context.Context, e *entry, p *limitParams) (any, *ipc.Error) {
	return ok("setMinSize", e.window.SetMinInnerSize(p.limit()))
}

func (h *Host) handleSetMaxSize(_ context.Context, e *entry, p *limitParams) (any, *ipc.Error) {
	return ok("setMaxSize", e.window.SetMaxInnerSize(p.limit()))
}

func (h *Host) handleSetAlwaysOnTop(_ context.Context, e *entry, p *flagParams) (any, *ipc.Error) {
	return ok("setAlwaysOnTop", e.window.SetAlwaysOnTop(*p.Value))
}

func (h *Host) handleSetResizable(_ context.Context, e *entry, p *flagParams) (any, *ipc.Error) {
	return ok("setResizable", e.window.SetResizable(*p.Value))
}

func (h *Host) handleSetFullscreen(_ context.Context, e *entry, p *flagParams) (any, *ipc.Error) {
	return ok("setFullscreen", e.window.SetFullscreen(*p.Value))
}

func (h *Host) handleSetDecorations(_ context.Context, e *entry, p *flagParams) (any, *ipc.Error) {
	return ok("setDecorations", e.window.SetDecorations(*p.Value))
}

func (h *Host) handleIsVisible(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return query("isVisible", e.window.IsVisible)
}

func (h *Host) handleIsMaximized(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return query("isMaximized", e.window.IsMaximized)
}

func (h *Host) handleIsFullscreen(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return query("isFullscreen", e.window.IsFullscreen)
}

func query(op string, get func() (bool, error)) (any, *ipc.Error) {
	v, err := get()
	if err != nil {
		return nil, nativeErr(op, err)
	}
	return v, nil
}

func (h *Host) handleSetIcon(_ context.Context, e *entry, p *iconParams) (any, *ipc.Error) {
	ic, err := h.loadIcon(p.path())
	if err != nil {
		return nil, ipc.Errorf(ipc.CodeIconFailed, err.Error(), nil)
	}
	if err := e.window.SetIcon(ic); err != nil {
		return nil, ipc.Errorf(ipc.CodeIconFailed, err.Error(), nil)
	}
	return true, nil
}

func (h *Host) handleRequestUserAttention(_ context.Context, e *entry, p *attentionParams) (any, *ipc.Error) {
	kind, _ := p.kind()
	return ok("requestUserAttention", e.window.RequestUserAttention(kind))
}

type screenshot struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

func (h *Host) handleScreenshot(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	img, err := e.window.Capture()
	if err != nil {
		return nil, ipc.Errorf(ipc.CodeCaptureFailed, "Capture failed: "+err.Error(), nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, ipc.Errorf(ipc.CodeCaptureFailed, "Capture failed: "+err.Error(), nil)
	}
	b := img.Bounds()
	return screenshot{
		Format: "png",
		Width:  b.Dx(),
		Height: b.Dy(),
		Data:   base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
