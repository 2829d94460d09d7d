package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierFIFO(t *testing.T) {
	f := NewFrontier("a")
	require.True(t, f.Push("b"))
	require.True(t, f.Push("c"))

	var order []string
	for f.Len() > 0 {
		u, ok := f.Pop()
		require.True(t, ok)
		order = append(order, u)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)

	_, ok := f.Pop()
	assert.False(t, ok)
}

func TestFrontierRejectsQueuedAndVisited(t *testing.T) {
	f := NewFrontier("a")
	assert.False(t, f.Push("a"), "already queued")

	u, _ := f.Pop()
	require.True(t, f.MarkVisited(u))
	assert.False(t, f.MarkVisited(u))
	assert.False(t, f.Push("a"), "already visited")
	assert.True(t, f.Visited("a"))
	assert.Equal(t, 1, f.VisitedCount())
	assert.Equal(t, 0, f.Len())
}

func TestFrontierRequeueAfterPop(t *testing.T) {
	f := NewFrontier("a")
	_, _ = f.Pop()
	assert.True(t, f.Push("a"), "popped but not visited can be queued again")
}
