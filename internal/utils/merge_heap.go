package utils

// MergeCand is one candidate pair for the next merge.
type MergeCand struct {
	Left  int
	Right int
	Count int // higher wins
}

// Better reports whether a ranks ahead of b: higher count first, then lowest left id, then lowest
// right id. That is the first maximal cell of the count matrix in row-major order.
func Better(a, b MergeCand) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	if a.Left != b.Left {
		return a.Left < b.Left
	}
	return a.Right < b.Right
}

// CandidateHeap keeps the k best candidates seen so far. The root is the worst of the kept ones so
// a better candidate can replace it in O(log k).
type CandidateHeap struct {
	items []MergeCand
	limit int
}

// NewCandidateHeap returns a heap that retains at most limit candidates.
func NewCandidateHeap(limit int) *CandidateHeap {
	if limit < 0 {
		limit = 0
	}
	return &CandidateHeap{
		items: make([]MergeCand, 0, limit),
		limit: limit,
	}
}

func (h *CandidateHeap) Len() int {
	return len(h.items)
}

// less orders the heap so the root is the candidate that would be evicted first
func (h *CandidateHeap) less(a, b MergeCand) bool {
	return Better(b, a)
}

// Offer adds c if the heap has room or c beats the current worst.
func (h *CandidateHeap) Offer(c MergeCand) {
	if h.limit == 0 {
		return
	}
	if len(h.items) < h.limit {
		h.items = append(h.items, c)
		h.up(len(h.items) - 1)
		return
	}
	if Better(c, h.items[0]) {
		h.items[0] = c
		h.down(0)
	}
}

// Pop removes and returns the worst kept candidate.
func (h *CandidateHeap) Pop() (MergeCand, bool) {
	if len(h.items) == 0 {
		return MergeCand{}, false
	}

	n := len(h.items) - 1
	h.items[0], h.items[n] = h.items[n], h.items[0]

	result := h.items[n]
	h.items = h.items[:n]

	if len(h.items) > 0 {
		h.down(0)
	}

	return result, true
}

// Drain empties the heap and returns its candidates best first.
func (h *CandidateHeap) Drain() []MergeCand {
	out := make([]MergeCand, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = h.Pop()
	}
	return out
}

func (h *CandidateHeap) up(i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *CandidateHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		right := 2*i + 2
		smallest := i

		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// TopCandidates returns up to k pairs with non-zero counts, best first.
func TopCandidates(counts *PairCounts, k int) []MergeCand {
	h := NewCandidateHeap(k)
	counts.Each(func(a, b, c int) {
		h.Offer(MergeCand{Left: a, Right: b, Count: c})
	})
	return h.Drain()
}
