// Package bpetok learns a character-pair-encoding vocabulary from a corpus and tokenizes text with it.
package bpetok

import (
	"context"
	"log"

	"github.com/tinybpe/internal/normalize"
	"github.com/tinybpe/internal/tokenizer/core"
	"github.com/tinybpe/internal/tokenizer/streaming"
	"github.com/tinybpe/internal/tokenizer/trainer"
)

// Encoder interface
type Encoder interface {
	/*
		Feed consumes the next chunk of raw bytes from the input stream. It may emit zero or more
		completed token IDs. The returned slice belongs to the caller. Text that fails to encode is
		dropped, so feeding can continue after an error.
	*/
	Feed(chunk []byte) ([]int, error)

	/*
		Flush tells the encoder that the stream is complete. It returns any remaining token IDs that were buffered
		because more input could still have changed them. After flush, the encoder is reset to a clean state
		and can be reused for a new stream.
	*/
	Flush() ([]int, error)
}

// Decoder interface, no need for flush because no internal buffer is kept
type Decoder interface {
	// Feed turns token IDs back into the normalized text they cover.
	Feed(tokens []int) string
}

var (
	// ErrUnknownSymbol is returned when text contains a character the vocabulary was not trained on.
	ErrUnknownSymbol = core.ErrUnknownSymbol
	// ErrMalformedSnapshot is returned when a snapshot cannot be turned back into a vocabulary.
	ErrMalformedSnapshot = core.ErrMalformedSnapshot
)

// Snapshot is the transportable form of a Vocab.
type Snapshot = core.Snapshot

// MergeRule is one learned merge: adjacent (Left, Right) becomes Merged.
type MergeRule = core.MergeRule

// NormalizeFunc maps raw text onto the alphabet a vocabulary is trained on.
type NormalizeFunc = normalize.Func

// Normalize is the default normalizer: uppercase, everything outside A-Z, 0-9, apostrophe and space
// becomes a space, space runs collapse.
func Normalize(raw string) string {
	return normalize.Text(raw)
}

// Vocab is a trained vocabulary. It is immutable and safe for concurrent use.
type Vocab struct {
	tok *core.Tokenizer
}

type settings struct {
	excludeSpaces bool
	seed          int64
	workers       int
	logger        *log.Logger
	normalizer    normalize.Func
}

func defaultSettings() settings {
	return settings{
		excludeSpaces: true,
		seed:          core.DefaultSeed,
		normalizer:    normalize.Text,
	}
}

// Option tunes training and loading.
type Option func(*settings)

// WithExcludeSpaces controls whether merges may involve the space symbol. Defaults to true.
func WithExcludeSpaces(exclude bool) Option {
	return func(s *settings) { s.excludeSpaces = exclude }
}

// WithSeed seeds the random source used when merge probability is below 1.
func WithSeed(seed int64) Option {
	return func(s *settings) { s.seed = seed }
}

// WithWorkers bounds the goroutines used to count pairs while training. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithLogger receives training diagnostics. Without it training is silent whatever the verbosity.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithNormalizer replaces the default normalizer. Training and tokenizing must use the same one.
func WithNormalizer(fn NormalizeFunc) Option {
	return func(s *settings) {
		if fn != nil {
			s.normalizer = fn
		}
	}
}

func apply(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// FitVocab learns up to numMerges merge rules from initialText. Verbosity 0, 1 or 2 only changes what
// is logged.
func FitVocab(initialText string, numMerges, verbosity int, opts ...Option) (*Vocab, error) {
	return FitVocabContext(context.Background(), initialText, numMerges, verbosity, opts...)
}

// FitVocabContext is FitVocab with cancellation between merge steps.
func FitVocabContext(ctx context.Context, initialText string, numMerges, verbosity int, opts ...Option) (*Vocab, error) {
	s := apply(opts)
	tok, _, err := trainer.Fit(ctx, initialText, trainer.Options{
		NumMerges:     numMerges,
		ExcludeSpaces: s.excludeSpaces,
		Verbosity:     verbosity,
		Workers:       s.workers,
		Logger:        s.logger,
		Normalizer:    s.normalizer,
		Seed:          s.seed,
	})
	if err != nil {
		return nil, err
	}
	return &Vocab{tok: tok}, nil
}

// Tokenize returns the symbol ids of text. mergeProbability 1 applies every merge; lower values merge
// each eligible occurrence at random.
func (v *Vocab) Tokenize(text string, mergeProbability float64) ([]int, error) {
	return v.tok.Tokenize(text, mergeProbability)
}

// StringTokenize returns the symbol texts of text.
func (v *Vocab) StringTokenize(text string, mergeProbability float64) ([]string, error) {
	return v.tok.StringTokenize(text, mergeProbability)
}

// Format returns the tokens of text joined by '|'.
func (v *Vocab) Format(text string, mergeProbability float64) (string, error) {
	return v.tok.Format(text, mergeProbability)
}

// Decode concatenates the texts of ids. It panics on ids outside the vocabulary.
func (v *Vocab) Decode(ids []int) string {
	return v.tok.Decode(ids)
}

// NumTokens is the vocabulary size.
func (v *Vocab) NumTokens() int {
	return v.tok.NumTokens()
}

// Merges returns the learned rules in order.
func (v *Vocab) Merges() []MergeRule {
	return v.tok.Merges()
}

// Serialize returns the vocabulary's snapshot.
func (v *Vocab) Serialize() *Snapshot {
	return v.tok.Serialize()
}

// Deserialize rebuilds a vocabulary from a snapshot. Only WithNormalizer and WithSeed apply.
func Deserialize(s *Snapshot, opts ...Option) (*Vocab, error) {
	set := apply(opts)
	tok, err := core.Deserialize(s, core.WithNormalizer(set.normalizer), core.WithSeed(set.seed))
	if err != nil {
		return nil, err
	}
	return &Vocab{tok: tok}, nil
}

// Save writes the snapshot to path, as YAML for .yaml/.yml and JSON otherwise.
func (v *Vocab) Save(path string) error {
	return v.tok.SaveToFile(path)
}

// Load reads a snapshot written by Save. Only WithNormalizer and WithSeed apply.
func Load(path string, opts ...Option) (*Vocab, error) {
	set := apply(opts)
	tok, err := core.LoadTokenizerFromFile(path, core.WithNormalizer(set.normalizer), core.WithSeed(set.seed))
	if err != nil {
		return nil, err
	}
	return &Vocab{tok: tok}, nil
}

type encoder struct {
	st *streaming.EncoderState
}

func (e encoder) Feed(chunk []byte) ([]int, error) { return e.st.Push(chunk) }
func (e encoder) Flush() ([]int, error)            { return e.st.Flush() }

// NewEncoder returns a streaming encoder with merge probability 1.
func (v *Vocab) NewEncoder() Encoder {
	return encoder{st: streaming.NewEncoderState(v.tok, 1.0)}
}

type decoder struct {
	tok *core.Tokenizer
}

func (d decoder) Feed(tokens []int) string { return d.tok.Decode(tokens) }

// NewDecoder returns a decoder for the vocabulary.
func (v *Vocab) NewDecoder() Decoder {
	return decoder{tok: v.tok}
}
