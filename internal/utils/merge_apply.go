package utils

// Sampler is the source of uniform draws in [0, 1) for probabilistic merging. *rand.Rand satisfies it.
type Sampler interface {
	Float64() float64
}

// ApplyMerge rewrites stream by collapsing occurrences of (left, right) into merged. The scan goes left
// to right and never overlaps: after a collapse it resumes two positions later, so "A A A" with
// (A, A) becomes "AA A".
//
// With p >= 1 every occurrence collapses and rng is never consulted. Otherwise rng must be non-nil
// and each occurrence collapses iff a fresh draw is < p.
//
// The rewrite happens in place: stream is consumed and the caller must use the returned slice.
func ApplyMerge(left, right, merged int, stream []int, p float64, rng Sampler) []int {
	n := len(stream)
	always := p >= 1.0

	dst := 0
	i := 0
	for i < n-1 {
		if stream[i] == left && stream[i+1] == right && (always || rng.Float64() < p) {
			stream[dst] = merged
			i += 2
		} else {
			stream[dst] = stream[i]
			i++
		}
		dst++
	}

	// last element was not consumed by a collapse
	if i == n-1 {
		stream[dst] = stream[i]
		dst++
	}

	return stream[:dst]
}
