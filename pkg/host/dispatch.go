package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/native"
	"github.com/rexliu/nanoframe/pkg/storage/sqlite"
)

// HandlerFunc answers one request. A nil *ipc.Error means success.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *ipc.Error)

var errWindowNotFound = ipc.Errorf(ipc.CodeWindowNotFound, "Window not found", nil)

type callKey struct{}

// callState travels with a request through its handler.
type callState struct {
	traceID  string
	windowID core.WindowID
	// after holds notifications that must follow the response.
	after []ipc.Response
}

func stateFrom(ctx context.Context) *callState {
	if st, ok := ctx.Value(callKey{}).(*callState); ok {
		return st
	}
	return &callState{}
}

// TraceID returns the id assigned to the request being handled.
func TraceID(ctx context.Context) string {
	return stateFrom(ctx).traceID
}

// thenNotify queues resp to be sent right after the current response.
func thenNotify(ctx context.Context, resp ipc.Response) {
	st := stateFrom(ctx)
	st.after = append(st.after, resp)
}

func (h *Host) dispatch(req ipc.Request) {
	started := time.Now()
	st := &callState{traceID: uuid.NewString()}
	ctx := context.WithValue(context.Background(), callKey{}, st)

	result, rpcErr := h.invoke(ctx, req)
	if rpcErr != nil {
		h.outbox.Send(ipc.Failure(req.ID, rpcErr))
	} else {
		h.outbox.Send(ipc.Result(req.ID, result))
	}
	for _, n := range st.after {
		h.outbox.Send(n)
	}

	elapsed := time.Since(started)
	attrs := []any{"trace_id", st.traceID, "method", req.Method, "id", req.ID.String(), "elapsed", elapsed}
	if st.windowID != "" {
		attrs = append(attrs, "window_id", st.windowID.String())
	}
	rec := sqlite.CallRecord{
		TraceID:   st.traceID,
		Method:    req.Method,
		RequestID: req.ID.String(),
		WindowID:  st.windowID.String(),
		Params:    req.Params,
		StartedAt: started,
		Duration:  elapsed,
	}
	if rpcErr != nil {
		rec.ErrorCode = rpcErr.Code
		rec.ErrorMessage = rpcErr.Message
		h.logger.Debug("request failed", append(attrs, "code", rpcErr.Code, "error", rpcErr.Message)...)
	} else {
		h.logger.Debug("request handled", attrs...)
	}
	h.journal.RecordCall(rec)
}

// invoke routes req to its handler and turns a handler panic into an error
// response so the peer still gets an answer.
func (h *Host) invoke(ctx context.Context, req ipc.Request) (result any, rpcErr *ipc.Error) {
	handler, ok := h.handlers[Method(req.Method)]
	if !ok {
		return nil, ipc.Errorf(ipc.CodeMethodNotFound, "Method not found", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("handler panicked", "method", req.Method, "trace_id", TraceID(ctx), "panic", r)
			result, rpcErr = nil, ipc.Errorf(ipc.CodeOperationFailed, fmt.Sprintf("internal error: %v", r), nil)
		}
	}()
	return handler(ctx, req.Params)
}

// onWindow decodes window-targeted params, resolves the window and runs fn.
func onWindow[P any, PP interface {
	*P
	targeted
}](h *Host, fn func(ctx context.Context, e *entry, p PP) (any, *ipc.Error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
		p, rpcErr := decode[P](raw)
		if rpcErr != nil {
			return nil, rpcErr
		}
		pp := PP(&p)
		id := pp.target()
		stateFrom(ctx).windowID = id
		e, ok := h.registry.Get(id)
		if !ok {
			return nil, errWindowNotFound
		}
		return fn(ctx, e, pp)
	}
}

// withParams decodes params that are not tied to a window.
func withParams[P any](fn func(ctx context.Context, p *P) (any, *ipc.Error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
		p, rpcErr := decode[P](raw)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return fn(ctx, &p)
	}
}

// nativeErr maps a toolkit failure onto the generic operation code.
func nativeErr(op string, err error) *ipc.Error {
	if errors.Is(err, native.ErrUnsupported) {
		return ipc.Errorf(ipc.CodeOperationFailed, op+": unsupported by this backend", nil)
	}
	return ipc.Errorf(ipc.CodeOperationFailed, op+": "+err.Error(), nil)
}

// routes binds every catalog method to its handler.
func (h *Host) routes() map[Method]HandlerFunc {
	return map[Method]HandlerFunc{
		MethodPing:         h.handlePing,
		MethodCreateWindow: withParams(h.handleCreateWindow),

		MethodWindowShow:                 onWindow(h, h.handleShow),
		MethodWindowHide:                 onWindow(h, h.handleHide),
		MethodWindowClose:                onWindow(h, h.handleClose),
		MethodWindowMaximize:             onWindow(h, h.handleMaximize),
		MethodWindowMinimize:             onWindow(h, h.handleMinimize),
		MethodWindowUnminimize:           onWindow(h, h.handleUnminimize),
		MethodWindowUnmaximize:           onWindow(h, h.handleUnmaximize),
		MethodWindowRestore:              onWindow(h, h.handleRestore),
		MethodWindowFocus:                onWindow(h, h.handleFocus),
		MethodWindowCenter:               onWindow(h, h.handleCenter),
		MethodWindowSetTitle:             onWindow(h, h.handleSetTitle),
		MethodWindowSetSize:              onWindow(h, h.handleSetSize),
		MethodWindowGetSize:              onWindow(h, h.handleGetSize),
		MethodWindowSetPosition:          onWindow(h, h.handleSetPosition),
		MethodWindowGetPosition:          onWindow(h, h.handleGetPosition),
		MethodWindowSetBounds:            onWindow(h, h.handleSetBounds),
		MethodWindowGetBounds:            onWindow(h, h.handleGetBounds),
		MethodWindowSetMinSize:           onWindow(h, h.handleSetMinSize),
		MethodWindowSetMaxSize:           onWindow(h, h.handleSetMaxSize),
		MethodWindowSetAlwaysOnTop:       onWindow(h, h.handleSetAlwaysOnTop),
		MethodWindowSetResizable:         onWindow(h, h.handleSetResizable),
		MethodWindowIsVisible:            onWindow(h, h.handleIsVisible),
		MethodWindowIsMaximized:          onWindow(h, h.handleIsMaximized),
		MethodWindowIsFullscreen:         onWindow(h, h.handleIsFullscreen),
		MethodWindowSetFullscreen:        onWindow(h, h.handleSetFullscreen),
		MethodWindowSetDecorations:       onWindow(h, h.handleSetDecorations),
		MethodWindowSetIcon:              onWindow(h, h.handleSetIcon),
		MethodWindowRequestUserAttention: onWindow(h, h.handleRequestUserAttention),
		MethodWindowScreenshot:           onWindow(h, h.handleScreenshot),

		MethodWebviewEval:         onWindow(h, h.handleEval),
		MethodWebviewOpenDevtools: onWindow(h, h.handleOpenDevtools),
		MethodWebviewPostMessage:  onWindow(h, h.handlePostMessage),

		MethodDialogOpen: withParams(h.handleDialogOpen),
		MethodDialogSave: withParams(h.handleDialogSave),
		MethodAppGetPath: withParams(h.handleAppGetPath),

		MethodShellOpenExternal:  withParams(h.handleOpenExternal),
		MethodClipboardWriteText: withParams(h.handleClipboardWrite),
		MethodClipboardReadText:  h.handleClipboardRead,
	}
}
