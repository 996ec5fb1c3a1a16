package trainer

import (
	"errors"

	"github.com/tinybpe/internal/utils"
)

// ErrNoMergeAvailable means no eligible pair occurs in the stream. It ends training normally and is
// never returned by Fit.
var ErrNoMergeAvailable = errors.New("no merge available")

// Selector picks the next merge from a pair count matrix.
type Selector struct {
	// ExcludeSpaces keeps every pair that involves SpaceID out of the running.
	ExcludeSpaces bool
	// SpaceID is the id of the space symbol, or -1 when the alphabet has none.
	SpaceID int
}

// Select returns the pair with the highest count, breaking ties by the lowest left id and then the
// lowest right id. counts is modified when spaces are excluded.
func (s Selector) Select(counts *utils.PairCounts) (utils.MergeCand, error) {
	if s.ExcludeSpaces && s.SpaceID >= 0 {
		counts.Exclude(s.SpaceID)
	}

	var best utils.MergeCand
	counts.Each(func(a, b, c int) {
		cand := utils.MergeCand{Left: a, Right: b, Count: c}
		if utils.Better(cand, best) {
			best = cand
		}
	})

	if best.Count == 0 {
		return utils.MergeCand{}, ErrNoMergeAvailable
	}
	return best, nil
}
