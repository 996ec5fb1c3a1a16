package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBetter_RowMajorTieBreak(t *testing.T) {
	require.True(t, Better(MergeCand{5, 5, 3}, MergeCand{0, 0, 2}))
	require.True(t, Better(MergeCand{1, 9, 3}, MergeCand{2, 0, 3}))
	require.True(t, Better(MergeCand{1, 2, 3}, MergeCand{1, 4, 3}))
	require.False(t, Better(MergeCand{1, 2, 3}, MergeCand{1, 2, 3}))
}

func TestTopCandidates(t *testing.T) {
	pc := NewPairCounts(8)
	pc.Add(3, 4, 2)
	pc.Add(1, 1, 7)
	pc.Add(2, 0, 7)
	pc.Add(0, 5, 1)
	pc.Add(6, 6, 4)

	got := TopCandidates(pc, 3)
	require.Equal(t, []MergeCand{
		{Left: 1, Right: 1, Count: 7},
		{Left: 2, Right: 0, Count: 7},
		{Left: 6, Right: 6, Count: 4},
	}, got)

	require.Len(t, TopCandidates(pc, 10), 5)
	require.Empty(t, TopCandidates(pc, 0))
}

func TestCandidateHeap_PopWorstFirst(t *testing.T) {
	h := NewCandidateHeap(2)
	h.Offer(MergeCand{0, 0, 1})
	h.Offer(MergeCand{0, 1, 9})
	h.Offer(MergeCand{0, 2, 5})
	require.Equal(t, 2, h.Len())

	c, ok := h.Pop()
	require.True(t, ok)
	require.Equal(t, 5, c.Count)

	c, ok = h.Pop()
	require.True(t, ok)
	require.Equal(t, 9, c.Count)

	_, ok = h.Pop()
	require.False(t, ok)
}
