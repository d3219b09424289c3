package host

import (
	"context"
	"encoding/json"

	"github.com/rexliu/nanoframe/pkg/ipc"
)

type pathsResult struct {
	Paths []string `json:"paths"`
}

type pathResult struct {
	Path *string `json:"path"`
}

type textResult struct {
	Text string `json:"text"`
}

// handleDialogOpen blocks the loop until the user answers.
func (h *Host) handleDialogOpen(_ context.Context, p *openDialogParams) (any, *ipc.Error) {
	paths, err := h.system.OpenDialog(p.options())
	if err != nil {
		return nil, ipc.Errorf(ipc.CodeDialogFailed, err.Error(), nil)
	}
	if paths == nil {
		paths = []string{}
	}
	return pathsResult{Paths: paths}, nil
}

// handleDialogSave blocks the loop until the user answers.
func (h *Host) handleDialogSave(_ context.Context, p *saveDialogParams) (any, *ipc.Error) {
	path, chosen, err := h.system.SaveDialog(p.options())
	if err != nil {
		return nil, ipc.Errorf(ipc.CodeDialogFailed, err.Error(), nil)
	}
	if !chosen {
		return pathResult{}, nil
	}
	return pathResult{Path: &path}, nil
}

func (h *Host) handleAppGetPath(_ context.Context, p *getPathParams) (any, *ipc.Error) {
	appName := p.app()
	if appName == "" {
		appName = h.appName
	}
	path, found := h.system.AppPath(*p.Name, appName)
	if !found {
		return pathResult{}, nil
	}
	return pathResult{Path: &path}, nil
}

func (h *Host) handleOpenExternal(_ context.Context, p *openExternalParams) (any, *ipc.Error) {
	if err := h.system.OpenExternal(*p.Target); err != nil {
		return nil, ipc.Errorf(ipc.CodeShellFailed, err.Error(), nil)
	}
	return true, nil
}

func (h *Host) handleClipboardWrite(_ context.Context, p *clipboardWriteParams) (any, *ipc.Error) {
	if err := h.system.WriteClipboard(*p.Text); err != nil {
		return nil, ipc.Errorf(ipc.CodeClipboardWrite, err.Error(), nil)
	}
	return true, nil
}

func (h *Host) handleClipboardRead(context.Context, json.RawMessage) (any, *ipc.Error) {
	text, err := h.system.ReadClipboard()
	if err != nil {
		return nil, ipc.Errorf(ipc.CodeClipboardRead, err.Error(), nil)
	}
	return textResult{Text: text}, nil
}
