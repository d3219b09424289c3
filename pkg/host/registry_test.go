package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/nanoframe/pkg/core"
	"github.com/rexliu/nanoframe/pkg/native"
)

func newPair(t *testing.T, tk *native.Headless) (native.Window, native.Webview) {
	t.Helper()
	w, err := tk.NewWindow(core.DefaultWindowOptions(), nil)
	require.NoError(t, err)
	wv, err := tk.NewWebview(w, native.WebviewConfig{})
	require.NoError(t, err)
	return w, wv
}

func TestRegistryInsertResolveRemove(t *testing.T) {
	tk := native.NewHeadless(native.HeadlessConfig{})
	r := NewRegistry()

	w1, wv1 := newPair(t, tk)
	w2, wv2 := newPair(t, tk)
	id1, id2 := core.NewWindowID(), core.NewWindowID()
	require.NoError(t, r.Insert(id1, w1, wv1))
	require.NoError(t, r.Insert(id2, w2, wv2))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []core.WindowID{id1, id2}, r.IDs())

	got, ok := r.Resolve(w2.ID())
	require.True(t, ok)
	assert.Equal(t, id2, got)

	e, ok := r.Remove(id1)
	require.True(t, ok)
	assert.Equal(t, w1, e.window)
	assert.Equal(t, wv1, e.webview)
	_, ok = r.Get(id1)
	assert.False(t, ok)
	_, ok = r.Resolve(w1.ID())
	assert.False(t, ok)
	_, ok = r.Remove(id1)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsDuplicatesAndHalfPairs(t *testing.T) {
	tk := native.NewHeadless(native.HeadlessConfig{})
	r := NewRegistry()
	w, wv := newPair(t, tk)
	id := core.NewWindowID()

	require.Error(t, r.Insert(id, w, nil))
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Insert(id, w, wv))
	require.Error(t, r.Insert(id, w, wv))
	require.Error(t, r.Insert(core.NewWindowID(), w, wv))
	assert.Equal(t, 1, r.Len())
}
