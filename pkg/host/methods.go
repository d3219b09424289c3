package host

import (
	"fmt"
	"sort"
)

// Method is an RPC method name the host answers.
type Method string

const (
	MethodPing         Method = "ping"
	MethodCreateWindow Method = "createWindow"

	MethodWindowShow                 Method = "window.show"
	MethodWindowHide                 Method = "window.hide"
	MethodWindowClose                Method = "window.close"
	MethodWindowMaximize             Method = "window.maximize"
	MethodWindowMinimize             Method = "window.minimize"
	MethodWindowUnminimize           Method = "window.unminimize"
	MethodWindowUnmaximize           Method = "window.unmaximize"
	MethodWindowRestore              Method = "window.restore"
	MethodWindowFocus                Method = "window.focus"
	MethodWindowCenter               Method = "window.center"
	MethodWindowSetTitle             Method = "window.setTitle"
	MethodWindowSetSize              Method = "window.setSize"
	MethodWindowGetSize              Method = "window.getSize"
	MethodWindowSetPosition          Method = "window.setPosition"
	MethodWindowGetPosition          Method = "window.getPosition"
	MethodWindowSetBounds            Method = "window.setBounds"
	MethodWindowGetBounds            Method = "window.getBounds"
	MethodWindowSetMinSize           Method = "window.setMinSize"
	MethodWindowSetMaxSize           Method = "window.setMaxSize"
	MethodWindowSetAlwaysOnTop       Method = "window.setAlwaysOnTop"
	MethodWindowSetResizable         Method = "window.setResizable"
	MethodWindowIsVisible            Method = "window.isVisible"
	MethodWindowIsMaximized          Method = "window.isMaximized"
	MethodWindowIsFullscreen         Method = "window.isFullscreen"
	MethodWindowSetFullscreen        Method = "window.setFullscreen"
	MethodWindowSetDecorations       Method = "window.setDecorations"
	MethodWindowSetIcon              Method = "window.setIcon"
	MethodWindowRequestUserAttention Method = "window.requestUserAttention"
	MethodWindowScreenshot           Method = "window.screenshot"

	MethodWebviewEval         Method = "webview.eval"
	MethodWebviewOpenDevtools Method = "webview.openDevtools"
	MethodWebviewPostMessage  Method = "webview.postMessage"

	MethodDialogOpen Method = "dialog.open"
	MethodDialogSave Method = "dialog.save"
	MethodAppGetPath Method = "app.getPath"

	MethodShellOpenExternal  Method = "shell.openExternal"
	MethodClipboardWriteText Method = "clipboard.writeText"
	MethodClipboardReadText  Method = "clipboard.readText"
)

// Notifications the host emits without a request.
const (
	NotifyWindowClosed = "window.closed"
	NotifyWebviewIPC   = "webview.ipc"
)

// Catalog lists every method the host answers. Anything else is -32601.
var Catalog = []Method{
	MethodPing,
	MethodCreateWindow,
	MethodWindowShow,
	MethodWindowHide,
	MethodWindowClose,
	MethodWindowMaximize,
	MethodWindowMinimize,
	MethodWindowUnminimize,
	MethodWindowUnmaximize,
	MethodWindowRestore,
	MethodWindowFocus,
	MethodWindowCenter,
	MethodWindowSetTitle,
	MethodWindowSetSize,
	MethodWindowGetSize,
	MethodWindowSetPosition,
	MethodWindowGetPosition,
	MethodWindowSetBounds,
	MethodWindowGetBounds,
	MethodWindowSetMinSize,
	MethodWindowSetMaxSize,
	MethodWindowSetAlwaysOnTop,
	MethodWindowSetResizable,
	MethodWindowIsVisible,
	MethodWindowIsMaximized,
	MethodWindowIsFullscreen,
	MethodWindowSetFullscreen,
	MethodWindowSetDecorations,
	MethodWindowSetIcon,
	MethodWindowRequestUserAttention,
	MethodWindowScreenshot,
	MethodWebviewEval,
	MethodWebviewOpenDevtools,
	MethodWebviewPostMessage,
	MethodDialogOpen,
	MethodDialogSave,
	MethodAppGetPath,
	MethodShellOpenExternal,
	MethodClipboardWriteText,
	MethodClipboardReadText,
}

// checkCatalog fails unless handlers and catalog name exactly the same methods.
func checkCatalog(catalog []Method, handlers map[Method]HandlerFunc) error {
	seen := make(map[Method]bool, len(catalog))
	var missing []string
	for _, m := range catalog {
		if seen[m] {
			return fmt.Errorf("method %s listed twice", m)
		}
		seen[m] = true
		if handlers[m] == nil {
			missing = append(missing, string(m))
		}
	}
	var extra []string
	for m := range handlers {
		if !seen[m] {
			extra = append(extra, string(m))
		}
	}
	sort.Strings(extra)
	switch {
	case len(missing) > 0:
		return fmt.Errorf("methods without handler: %v", missing)
	case len(extra) > 0:
		return fmt.Errorf("handlers outside catalog: %v", extra)
	}
	return nil
}
