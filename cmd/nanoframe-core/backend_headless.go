//go:build !cgo || headless

package main

import (
	"github.com/rexliu/nanoframe/pkg/config"
	"github.com/rexliu/nanoframe/pkg/native"
)

const backendName = "headless"

func newToolkit(cfg *config.HostConfig) native.Toolkit {
	return native.NewHeadless(native.HeadlessConfig{PollInterval: cfg.PollInterval()})
}
