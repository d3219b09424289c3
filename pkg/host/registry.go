package host

import (
	"fmt"
	"sort"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/native"
)

// entry pairs a window with the webview it hosts.
type entry struct {
	id      core.WindowID
	window  native.Window
	webview native.Webview
}

// Registry maps window ids to their native handles. It is owned by the loop
// goroutine and has no locking.
type Registry struct {
	entries  map[core.WindowID]*entry
	byHandle map[native.Handle]core.WindowID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[core.WindowID]*entry),
		byHandle: make(map[native.Handle]core.WindowID),
	}
}

// Insert adds both handles under id, or neither.
func (r *Registry) Insert(id core.WindowID, w native.Window, wv native.Webview) error {
	if w == nil || wv == nil {
		return fmt.Errorf("window %s: incomplete pair", id)
	}
	if _, dup := r.entries[id]; dup {
		return fmt.Errorf("window %s already registered", id)
	}
	if other, dup := r.byHandle[w.ID()]; dup {
		return fmt.Errorf("native window %d already registered as %s", w.ID(), other)
	}
	r.entries[id] = &entry{id: id, window: w, webview: wv}
	r.byHandle[w.ID()] = id
	return nil
}

// Get looks up an entry by id.
func (r *Registry) Get(id core.WindowID) (*entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Resolve maps a native handle back to its window id.
func (r *Registry) Resolve(h native.Handle) (core.WindowID, bool) {
	id, ok := r.byHandle[h]
	return id, ok
}

// Remove takes both handles out under id.
func (r *Registry) Remove(id core.WindowID) (*entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	delete(r.byHandle, e.window.ID())
	return e, true
}

// Len reports the number of live pairs.
func (r *Registry) Len() int {
	return len(r.entries)
}

// IDs returns the registered ids in creation order.
func (r *Registry) IDs() []core.WindowID {
	ids := make([]core.WindowID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
