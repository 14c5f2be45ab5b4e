package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggle_AddsAndRemoves(t *testing.T) {
	set := NewExpanded()

	opened := Toggle("a", set)
	assert.True(t, opened.Has("a"))
	assert.False(t, set.Has("a"), "input set must not be mutated")

	closed := Toggle("a", opened)
	assert.False(t, closed.Has("a"))
	assert.True(t, opened.Has("a"))
}

func TestToggle_NilSet(t *testing.T) {
	got := Toggle("x", nil)
	assert.Equal(t, []string{"x"}, got.IDs())
}

func TestToggle_KeepsOtherMembers(t *testing.T) {
	set := NewExpanded("a", "b")
	got := Toggle("c", set)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got.IDs())

	got = Toggle("a", got)
	assert.ElementsMatch(t, []string{"b", "c"}, got.IDs())
}
