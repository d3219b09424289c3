package core

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// WindowID identifies a window/webview pair for the lifetime of the process.
type WindowID string

func (id WindowID) String() string {
	return string(id)
}

// NewWindowID returns a fresh id. Ids are monotonic within a millisecond, so
// two calls never collide even when the clock does not advance.
func NewWindowID() WindowID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return WindowID(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}
