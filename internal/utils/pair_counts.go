package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	// ids below denseLimit are counted in a flat square array, everything else goes to the map
	denseLimit = 512

	// streams shorter than this are counted on a single goroutine
	parallelThreshold = 1 << 16
)

// PairCounts holds the number of times each adjacent (left, right) id pair occurs in a stream.
// It uses the same hybrid layout as a pair lookup table:
//   - flat dense array for pairs where both ids are < denseSize (O(1) access)
//   - map fallback keyed by packPair(a, b) for everything else
//
// A PairCounts is rebuilt for every merge step and never updated incrementally.
type PairCounts struct {
	dense     []int
	denseSize int
	fallback  map[uint64]int
}

// NewPairCounts creates an all-zero count matrix for an alphabet of numSymbols ids.
func NewPairCounts(numSymbols int) *PairCounts {
	size := denseLimit
	if numSymbols < size {
		size = numSymbols
	}
	if size < 0 {
		size = 0
	}

	return &PairCounts{
		dense:     make([]int, size*size),
		denseSize: size,
		fallback:  make(map[uint64]int),
	}
}

func packPair(a, b int) uint64 {
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func unpackPair(key uint64) (int, int) {
	return int(key >> 32), int(key & 0xFFFFFFFF)
}

// Add increments the count of (a, b) by n.
func (pc *PairCounts) Add(a, b, n int) {
	if a < pc.denseSize && b < pc.denseSize {
		pc.dense[a*pc.denseSize+b] += n
		return
	}
	pc.fallback[packPair(a, b)] += n
}

// Get returns the count of (a, b), zero when the pair never occurred.
func (pc *PairCounts) Get(a, b int) int {
	if a < 0 || b < 0 {
		return 0
	}
	if a < pc.denseSize && b < pc.denseSize {
		return pc.dense[a*pc.denseSize+b]
	}
	return pc.fallback[packPair(a, b)]
}

// Exclude zeroes the row and the column of id so no pair containing it can be selected.
func (pc *PairCounts) Exclude(id int) {
	if id < 0 {
		return
	}
	if id < pc.denseSize {
		for j := 0; j < pc.denseSize; j++ {
			pc.dense[id*pc.denseSize+j] = 0
			pc.dense[j*pc.denseSize+id] = 0
		}
	}
	for key := range pc.fallback {
		if a, b := unpackPair(key); a == id || b == id {
			delete(pc.fallback, key)
		}
	}
}

// Each calls fn for every pair with a non-zero count. Iteration order is unspecified.
func (pc *PairCounts) Each(fn func(a, b, count int)) {
	for i, c := range pc.dense {
		if c != 0 {
			fn(i/pc.denseSize, i%pc.denseSize, c)
		}
	}
	for key, c := range pc.fallback {
		if c != 0 {
			a, b := unpackPair(key)
			fn(a, b, c)
		}
	}
}

// Total is the sum of all counts, which equals len(stream)-1 for a freshly counted stream.
func (pc *PairCounts) Total() int {
	total := 0
	pc.Each(func(_, _, c int) { total += c })
	return total
}

func (pc *PairCounts) addAll(other *PairCounts) {
	for i, c := range other.dense {
		pc.dense[i] += c
	}
	for key, c := range other.fallback {
		pc.fallback[key] += c
	}
}

func (pc *PairCounts) countRange(stream []int, from, to int) {
	for i := from; i < to; i++ {
		pc.Add(stream[i], stream[i+1], 1)
	}
}

// CountPairs counts every adjacent pair of stream from scratch. Pair positions are split across up to
// workers goroutines and the partial counts summed; the result does not depend on the split.
func CountPairs(ctx context.Context, stream []int, numSymbols, workers int) (*PairCounts, error) {
	out := NewPairCounts(numSymbols)
	positions := len(stream) - 1
	if positions <= 0 {
		return out, nil
	}

	if workers <= 1 || positions < parallelThreshold {
		out.countRange(stream, 0, positions)
		return out, ctx.Err()
	}

	if workers > positions {
		workers = positions
	}
	partials := make([]*PairCounts, workers)
	g, gctx := errgroup.WithContext(ctx)
	span := (positions + workers - 1) / workers
	for w := 0; w < workers; w++ {
		from := w * span
		to := from + span
		if to > positions {
			to = positions
		}
		if from >= to {
			continue
		}

		w := w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := NewPairCounts(numSymbols)
			local.countRange(stream, from, to)
			partials[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range partials {
		if p != nil {
			out.addAll(p)
		}
	}
	return out, nil
}
