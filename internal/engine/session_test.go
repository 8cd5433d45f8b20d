package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessions(t *testing.T) {
	s := NewSessions()

	assert.False(t, s.Online("a"))
	assert.Zero(t, s.Count())

	s.Register("a")
	s.Register("b")
	assert.True(t, s.Online("a"))
	assert.Equal(t, 2, s.Count())

	s.Unregister("a")
	assert.False(t, s.Online("a"))
	assert.True(t, s.Online("b"))

	// Unregistering an unknown player is a no-op.
	s.Unregister("ghost")
	assert.Equal(t, 1, s.Count())
}
