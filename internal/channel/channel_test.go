package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffered_TrySendDropsWhenFull(t *testing.T) {
	c := New[int](2)

	assert.True(t, c.TrySend(1))
	assert.True(t, c.TrySend(2))
	assert.False(t, c.TrySend(3))
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 1, <-c.Receive())
	assert.True(t, c.TrySend(4))
}

func TestBuffered_Close(t *testing.T) {
	c := New[string](1)
	c.Send("frame")
	c.Close()
	c.Close()

	assert.False(t, c.TrySend("late"))
	c.Send("ignored")

	v, ok := <-c.Receive()
	require.True(t, ok)
	assert.Equal(t, "frame", v)

	_, ok = <-c.Receive()
	assert.False(t, ok)
}

func TestNew_MinimumSize(t *testing.T) {
	c := New[int](0)
	assert.True(t, c.TrySend(1))
	assert.False(t, c.TrySend(2))
}
