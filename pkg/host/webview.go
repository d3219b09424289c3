package host

import (
	"context"
	"fmt"

	"github.com/rexliu/nanoframe/pkg/ipc"
)

func (h *Host) handleEval(_ context.Context, e *entry, p *evalParams) (any, *ipc.Error) {
	if err := e.webview.Eval(*p.Code); err != nil {
		return nil, ipc.Errorf(ipc.CodeScriptFailed, err.Error(), nil)
	}
	return true, nil
}

func (h *Host) handleOpenDevtools(_ context.Context, e *entry, _ *windowRef) (any, *ipc.Error) {
	return ok("openDevtools", e.webview.OpenDevtools())
}

// handlePostMessage delivers payload to the page as a window "message" event.
func (h *Host) handlePostMessage(_ context.Context, e *entry, p *postMessageParams) (any, *ipc.Error) {
	if err := e.webview.Eval(messageScript(p.Payload)); err != nil {
		return nil, ipc.Errorf(ipc.CodeScriptFailed, err.Error(), nil)
	}
	return true, nil
}

func messageScript(payload []byte) string {
	return fmt.Sprintf("window.dispatchEvent(new MessageEvent('message', { data: %s }));", payload)
}
