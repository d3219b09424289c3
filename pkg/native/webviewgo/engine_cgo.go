//go:build cgo

package webviewgo

import (
	"errors"
	"time"

	webview "github.com/webview/webview_go"
)

// webviewEngine adapts webview.WebView to engine.
type webviewEngine struct {
	webview.WebView
}

func (e webviewEngine) SetSize(width, height int, hint sizeHint) {
	e.WebView.SetSize(width, height, webview.Hint(hint))
}

// New returns a toolkit polling at interval.
func New(interval time.Duration) *Toolkit {
	return newToolkit(interval, func(devtools bool) (engine, error) {
		wv := webview.New(devtools)
		if wv == nil {
			return nil, errors.New("webview_create returned nil")
		}
		return webviewEngine{wv}, nil
	}, hostPlatform{})
}
