//go:build cgo && !headless

package main

import (
	"github.com/rexliu/nanoframe/pkg/config"
	"github.com/rexliu/nanoframe/pkg/native"
	"github.com/rexliu/nanoframe/pkg/native/webviewgo"
)

const backendName = "webview"

func newToolkit(cfg *config.HostConfig) native.Toolkit {
	return webviewgo.New(cfg.PollInterval())
}
