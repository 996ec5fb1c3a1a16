package core

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/tinybpe/internal/normalize"
	"github.com/tinybpe/internal/utils"
)

// Tokenizer holds a trained vocabulary: the symbol table and the ordered merge rules. It is never
// mutated after construction and is safe for concurrent use.
// Invariants we maintain:
//   - every id in merges is < table.NumTokens().
//   - text(Merged) == text(Left) + text(Right) for every rule.
//   - spaceSafe is true iff no rule has an operand whose text contains a space.
type Tokenizer struct {
	table  *SymbolTable
	merges []MergeRule

	normalize normalize.Func
	spaceSafe bool

	// only used for merge probabilities below 1
	rngMu sync.Mutex
	rng   *rand.Rand
}

type options struct {
	normalize normalize.Func
	seed      int64
}

// Option configures a Tokenizer.
type Option func(*options)

// WithNormalizer sets the function applied to text before it is mapped to symbols. It must be the same
// one the vocabulary was trained with. Defaults to normalize.Text.
func WithNormalizer(fn normalize.Func) Option {
	return func(o *options) {
		if fn != nil {
			o.normalize = fn
		}
	}
}

// DefaultSeed seeds the random source when no seed is given.
const DefaultSeed int64 = 1

// WithSeed seeds the random source used for probabilistic merging.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// NewTokenizer takes ownership of table and merges and checks the rules against the table.
func NewTokenizer(table *SymbolTable, merges []MergeRule, opts ...Option) (*Tokenizer, error) {
	o := options{normalize: normalize.Text, seed: DefaultSeed}
	for _, opt := range opts {
		opt(&o)
	}

	spaceSafe := true
	for i, m := range merges {
		left, err := table.TextOf(m.Left)
		if err != nil {
			return nil, fmt.Errorf("merge %d: left operand: %w", i, err)
		}
		right, err := table.TextOf(m.Right)
		if err != nil {
			return nil, fmt.Errorf("merge %d: right operand: %w", i, err)
		}
		merged, err := table.TextOf(m.Merged)
		if err != nil {
			return nil, fmt.Errorf("merge %d: merged symbol: %w", i, err)
		}
		if merged != left+right {
			return nil, fmt.Errorf("merge %d: %q + %q does not produce %q", i, left, right, merged)
		}
		if strings.Contains(left, " ") || strings.Contains(right, " ") {
			spaceSafe = false
		}
	}

	return &Tokenizer{
		table:     table,
		merges:    merges,
		normalize: o.normalize,
		spaceSafe: spaceSafe,
		rng:       rand.New(rand.NewSource(o.seed)),
	}, nil
}

// NumTokens is the vocabulary size.
func (t *Tokenizer) NumTokens() int {
	return t.table.NumTokens()
}

// Merges returns a copy of the learned rules in order.
func (t *Tokenizer) Merges() []MergeRule {
	return append([]MergeRule(nil), t.merges...)
}

// TextOf returns the text of id.
func (t *Tokenizer) TextOf(id int) (string, error) {
	return t.table.TextOf(id)
}

// IDOf returns the id of text.
func (t *Tokenizer) IDOf(text string) (int, error) {
	return t.table.IDOf(text)
}

// Normalize applies the tokenizer's normalizer to raw.
func (t *Tokenizer) Normalize(raw string) string {
	return t.normalize(raw)
}

// SpaceSafe reports whether no merge rule crosses a space. When true, tokenizing text in pieces that
// each end in a space gives the same ids as tokenizing it whole.
func (t *Tokenizer) SpaceSafe() bool {
	return t.spaceSafe
}

// Tokenize normalizes text, maps every character to its symbol and replays the merges in learned order.
// With mergeProbability >= 1 the result is a pure function of the vocabulary and text. Below 1 each
// eligible occurrence is merged at random using the tokenizer's seeded source.
func (t *Tokenizer) Tokenize(text string, mergeProbability float64) ([]int, error) {
	return t.TokenizeNormalized(t.normalize(text), mergeProbability)
}

// TokenizeNormalized is Tokenize for text that has already been normalized.
func (t *Tokenizer) TokenizeNormalized(text string, mergeProbability float64) ([]int, error) {
	stream, err := t.table.Encode(text)
	if err != nil {
		return nil, err
	}

	if mergeProbability >= 1.0 {
		for _, m := range t.merges {
			stream = utils.ApplyMerge(m.Left, m.Right, m.Merged, stream, 1.0, nil)
		}
		return stream, nil
	}

	// hold the lock for the whole replay so one seed gives one sequence of draws per call
	t.rngMu.Lock()
	defer t.rngMu.Unlock()
	for _, m := range t.merges {
		stream = utils.ApplyMerge(m.Left, m.Right, m.Merged, stream, mergeProbability, t.rng)
	}
	return stream, nil
}

// StringTokenize is Tokenize followed by mapping each id back to its text.
func (t *Tokenizer) StringTokenize(text string, mergeProbability float64) ([]string, error) {
	ids, err := t.Tokenize(text, mergeProbability)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = t.table.idToText[id]
	}
	return out, nil
}

// Format renders the tokens of text separated by '|', with a trailing '|'.
func (t *Tokenizer) Format(text string, mergeProbability float64) (string, error) {
	pieces, err := t.StringTokenize(text, mergeProbability)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p)
		b.WriteByte('|')
	}
	return b.String(), nil
}
