// Package trainer learns an ordered list of merge rules from a corpus.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/tinybpe/internal/normalize"
	"github.com/tinybpe/internal/tokenizer/core"
	"github.com/tinybpe/internal/utils"
)

// State is a phase of the training loop.
type State int

const (
	Seeding State = iota
	Counting
	Selecting
	Merging
	Done
)

func (s State) String() string {
	switch s {
	case Seeding:
		return "seeding"
	case Counting:
		return "counting"
	case Selecting:
		return "selecting"
	case Merging:
		return "merging"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// number of runner-up pairs logged per step at verbosity 2
const diagnosticCandidates = 5

// Options configures a training run.
type Options struct {
	// NumMerges caps the number of merge steps. Training may stop earlier when no pair repeats.
	NumMerges int
	// ExcludeSpaces keeps the space symbol out of every merge rule.
	ExcludeSpaces bool
	// Verbosity 1 logs each merge, 2 adds stream lengths, timings and runner-up pairs. It never changes
	// what is learned.
	Verbosity int
	// Workers bounds the goroutines used to count pairs. Zero means GOMAXPROCS.
	Workers int
	// Logger receives diagnostics. Nil disables them.
	Logger *log.Logger
	// Normalizer is applied to the corpus before seeding and is kept for tokenization. Defaults to
	// normalize.Text.
	Normalizer normalize.Func
	// Seed feeds the trained tokenizer's random source for probabilistic merging. Zero means
	// core.DefaultSeed.
	Seed int64
}

// Step records one accepted merge.
type Step struct {
	Rule      core.MergeRule
	Count     int
	LenBefore int
	LenAfter  int
	// NewSymbol is false when the merged text already had an id.
	NewSymbol bool
}

// Report summarizes a training run.
type Report struct {
	InitialLen int
	FinalLen   int
	Steps      []Step
	// StoppedEarly is set when training ended because no pair was left to merge.
	StoppedEarly bool
}

// Trainer runs the state machine Seeding -> (Counting -> Selecting -> Merging)* -> Done. A Trainer owns
// its symbol table and is used for a single run.
type Trainer struct {
	opts     Options
	selector Selector

	state  State
	table  *core.SymbolTable
	stream []int
	merges []core.MergeRule
	counts *utils.PairCounts
	next   utils.MergeCand
	report Report
}

// New returns a trainer in the Seeding state.
func New(opts Options) *Trainer {
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.Text
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == 0 {
		opts.Seed = core.DefaultSeed
	}

	return &Trainer{
		opts:  opts,
		state: Seeding,
		table: core.NewSymbolTable(),
	}
}

// State returns the current phase.
func (tr *Trainer) State() State {
	return tr.state
}

func (tr *Trainer) logf(level int, format string, args ...any) {
	if tr.opts.Logger != nil && tr.opts.Verbosity >= level {
		tr.opts.Logger.Printf(format, args...)
	}
}

// Run trains on text and returns the resulting tokenizer. Reaching NumMerges or running out of pairs
// both end training without error; only a cancelled ctx or invalid options fail it.
func (tr *Trainer) Run(ctx context.Context, text string) (*core.Tokenizer, *Report, error) {
	if tr.state != Seeding {
		return nil, nil, fmt.Errorf("trainer already used, state is %s", tr.state)
	}
	if tr.opts.NumMerges < 0 {
		return nil, nil, fmt.Errorf("number of merges must not be negative, got %d", tr.opts.NumMerges)
	}

	var (
		t0, t1, t2 time.Time
	)

	for tr.state != Done {
		switch tr.state {
		case Seeding:
			if err := tr.seed(text); err != nil {
				return nil, nil, err
			}
			tr.logf(1, "%d", len(tr.stream))
			tr.state = Counting
			if tr.opts.NumMerges == 0 {
				tr.state = Done
			}

		case Counting:
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			t0 = time.Now()
			counts, err := utils.CountPairs(ctx, tr.stream, tr.table.NumTokens(), tr.opts.Workers)
			if err != nil {
				return nil, nil, err
			}
			tr.counts = counts
			t1 = time.Now()
			tr.state = Selecting

		case Selecting:
			best, err := tr.selector.Select(tr.counts)
			if errors.Is(err, ErrNoMergeAvailable) {
				tr.report.StoppedEarly = true
				tr.state = Done
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			if tr.opts.Verbosity > 1 && tr.opts.Logger != nil {
				for _, c := range utils.TopCandidates(tr.counts, diagnosticCandidates) {
					tr.logf(2, "  candidate %q + %q (%d)", tr.text(c.Left), tr.text(c.Right), c.Count)
				}
			}
			tr.counts = nil
			tr.next = best
			t2 = time.Now()
			tr.state = Merging

		case Merging:
			tr.merge()
			t3 := time.Now()
			last := tr.report.Steps[len(tr.report.Steps)-1]
			tr.logf(1, "%d %q + %q -> %q (%d)", len(tr.merges)-1,
				tr.text(last.Rule.Left), tr.text(last.Rule.Right), tr.text(last.Rule.Merged), last.Count)
			tr.logf(2, "new length: %d", len(tr.stream))
			tr.logf(2, "count took %.2fs", t1.Sub(t0).Seconds())
			tr.logf(2, "best took %.2fs", t2.Sub(t1).Seconds())
			tr.logf(2, "merge took %.2fs", t3.Sub(t2).Seconds())

			tr.state = Counting
			if len(tr.merges) >= tr.opts.NumMerges {
				tr.state = Done
			}
		}
	}

	tr.report.FinalLen = len(tr.stream)
	tr.logf(1, "VOCAB COMPLETED!")

	tok, err := core.NewTokenizer(tr.table, tr.merges,
		core.WithNormalizer(tr.opts.Normalizer),
		core.WithSeed(tr.opts.Seed),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error while building tokenizer: %w", err)
	}

	report := tr.report
	return tok, &report, nil
}

func (tr *Trainer) seed(text string) error {
	normalized := tr.opts.Normalizer(text)
	tr.table.SeedFromText(normalized)

	stream, err := tr.table.Encode(normalized)
	if err != nil {
		return fmt.Errorf("error while building initial stream: %w", err)
	}
	tr.stream = stream
	tr.report.InitialLen = len(stream)

	tr.selector = Selector{ExcludeSpaces: tr.opts.ExcludeSpaces, SpaceID: -1}
	if id, err := tr.table.IDOf(" "); err == nil {
		tr.selector.SpaceID = id
	}
	return nil
}

// merge registers the selected pair, records the rule and rewrites the stream
func (tr *Trainer) merge() {
	c := tr.next
	before := tr.table.NumTokens()
	merged := tr.table.Register(tr.text(c.Left) + tr.text(c.Right))

	rule := core.MergeRule{Left: c.Left, Right: c.Right, Merged: merged}
	tr.merges = append(tr.merges, rule)

	lenBefore := len(tr.stream)
	tr.stream = utils.ApplyMerge(rule.Left, rule.Right, rule.Merged, tr.stream, 1.0, nil)

	tr.report.Steps = append(tr.report.Steps, Step{
		Rule:      rule,
		Count:     c.Count,
		LenBefore: lenBefore,
		LenAfter:  len(tr.stream),
		NewSymbol: tr.table.NumTokens() > before,
	})
}

// text of an id that is known to be in the table
func (tr *Trainer) text(id int) string {
	s, err := tr.table.TextOf(id)
	if err != nil {
		panic(err)
	}
	return s
}

// Fit trains a vocabulary on text with opts.
func Fit(ctx context.Context, text string, opts Options) (*core.Tokenizer, *Report, error) {
	return New(opts).Run(ctx, text)
}
