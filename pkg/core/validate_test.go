package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWindowOptions(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, ValidateWindowOptions(DefaultWindowOptions()))
	})

	t.Run("url and html together", func(t *testing.T) {
		opts := DefaultWindowOptions()
		opts.URL = "https://example.com"
		opts.HTML = "<p>hi</p>"
		assert.ErrorIs(t, ValidateWindowOptions(opts), ErrConflictingContent)
	})

	t.Run("relative url", func(t *testing.T) {
		opts := DefaultWindowOptions()
		opts.URL = "index.html"
		assert.ErrorIs(t, ValidateWindowOptions(opts), ErrInvalidURL)
	})

	t.Run("zero size", func(t *testing.T) {
		opts := DefaultWindowOptions()
		opts.Size = Size{Width: 0, Height: 10}
		assert.ErrorIs(t, ValidateWindowOptions(opts), ErrInvalidSize)
	})

	t.Run("min above max", func(t *testing.T) {
		opts := DefaultWindowOptions()
		opts.MinSize = &Size{Width: 500, Height: 500}
		opts.MaxSize = &Size{Width: 400, Height: 800}
		assert.ErrorIs(t, ValidateWindowOptions(opts), ErrInvalidSize)
	})
}

func TestClampSize(t *testing.T) {
	lower := &Size{Width: 200, Height: 150}
	upper := &Size{Width: 1000, Height: 900}

	assert.Equal(t, Size{Width: 200, Height: 150}, ClampSize(Size{Width: 10, Height: 10}, lower, upper))
	assert.Equal(t, Size{Width: 1000, Height: 900}, ClampSize(Size{Width: 4000, Height: 4000}, lower, upper))
	assert.Equal(t, Size{Width: 640, Height: 480}, ClampSize(Size{Width: 640, Height: 480}, lower, upper))
	assert.Equal(t, Size{Width: 1, Height: 1}, ClampSize(Size{}, nil, nil))
}

func TestCenterIn(t *testing.T) {
	m := Monitor{Position: Position{X: 100, Y: 0}, Size: Size{Width: 1920, Height: 1080}}
	assert.Equal(t, Position{X: 660, Y: 240}, CenterIn(m, Size{Width: 800, Height: 600}))
}

func TestControlFlowIsMonotonic(t *testing.T) {
	assert.Equal(t, Poll, Poll.Then(Poll))
	assert.Equal(t, Exit, Poll.Then(Exit))
	assert.Equal(t, Exit, Exit.Then(Poll))
}

func TestNewWindowIDUnique(t *testing.T) {
	seen := make(map[WindowID]struct{}, 1000)
	var prev WindowID
	for i := 0; i < 1000; i++ {
		id := NewWindowID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
		assert.Greater(t, string(id), string(prev))
		prev = id
	}
}
