package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is the flat, transportable form of a vocabulary. The layout is
//
//	num_to_tok: id -> text
//	tok_to_num: text -> id
//	merges:     ordered [left, right, merged] triples
//	num_tokens: vocabulary size
//
// JSON object keys are always strings on the wire; the typed num_to_tok map turns them back into ids.
type Snapshot struct {
	NumToTok  map[int]string `json:"num_to_tok" yaml:"num_to_tok"`
	TokToNum  map[string]int `json:"tok_to_num" yaml:"tok_to_num"`
	Merges    []MergeRule    `json:"merges" yaml:"merges"`
	NumTokens int            `json:"num_tokens" yaml:"num_tokens"`
}

// snapshotWire is used for decoding so missing fields can be told apart from empty ones
type snapshotWire struct {
	NumToTok  map[int]string `json:"num_to_tok" yaml:"num_to_tok"`
	TokToNum  map[string]int `json:"tok_to_num" yaml:"tok_to_num"`
	Merges    *[]MergeRule   `json:"merges" yaml:"merges"`
	NumTokens *int           `json:"num_tokens" yaml:"num_tokens"`
}

func (w *snapshotWire) snapshot() (*Snapshot, error) {
	switch {
	case w.NumToTok == nil:
		return nil, fmt.Errorf("%w: missing num_to_tok", ErrMalformedSnapshot)
	case w.TokToNum == nil:
		return nil, fmt.Errorf("%w: missing tok_to_num", ErrMalformedSnapshot)
	case w.Merges == nil:
		return nil, fmt.Errorf("%w: missing merges", ErrMalformedSnapshot)
	case w.NumTokens == nil:
		return nil, fmt.Errorf("%w: missing num_tokens", ErrMalformedSnapshot)
	}

	return &Snapshot{
		NumToTok:  w.NumToTok,
		TokToNum:  w.TokToNum,
		Merges:    *w.Merges,
		NumTokens: *w.NumTokens,
	}, nil
}

// Serialize returns a snapshot that shares nothing with the tokenizer.
func (t *Tokenizer) Serialize() *Snapshot {
	n := t.table.NumTokens()
	s := &Snapshot{
		NumToTok:  make(map[int]string, n),
		TokToNum:  make(map[string]int, n),
		Merges:    make([]MergeRule, len(t.merges)),
		NumTokens: n,
	}
	for id, text := range t.table.idToText {
		s.NumToTok[id] = text
		s.TokToNum[text] = id
	}
	copy(s.Merges, t.merges)
	return s
}

// Deserialize rebuilds a tokenizer from s. It fails on the first inconsistency and never returns a
// partially built tokenizer.
func Deserialize(s *Snapshot, opts ...Option) (*Tokenizer, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}
	if s.NumToTok == nil || s.TokToNum == nil {
		return nil, fmt.Errorf("%w: missing symbol maps", ErrMalformedSnapshot)
	}
	if s.NumTokens < 0 {
		return nil, fmt.Errorf("%w: negative num_tokens %d", ErrMalformedSnapshot, s.NumTokens)
	}
	if len(s.NumToTok) != s.NumTokens || len(s.TokToNum) != s.NumTokens {
		return nil, fmt.Errorf("%w: num_tokens is %d but num_to_tok has %d entries and tok_to_num has %d",
			ErrMalformedSnapshot, s.NumTokens, len(s.NumToTok), len(s.TokToNum))
	}

	table := NewSymbolTable()
	for id := 0; id < s.NumTokens; id++ {
		text, ok := s.NumToTok[id]
		if !ok {
			return nil, fmt.Errorf("%w: ids not dense, missing %d", ErrMalformedSnapshot, id)
		}
		if text == "" {
			return nil, fmt.Errorf("%w: empty text for id %d", ErrMalformedSnapshot, id)
		}
		if back, ok := s.TokToNum[text]; !ok || back != id {
			return nil, fmt.Errorf("%w: num_to_tok[%d] = %q but tok_to_num disagrees", ErrMalformedSnapshot, id, text)
		}
		if got := table.Register(text); got != id {
			return nil, fmt.Errorf("%w: duplicate text %q for ids %d and %d", ErrMalformedSnapshot, text, got, id)
		}
	}

	merges := make([]MergeRule, len(s.Merges))
	copy(merges, s.Merges)

	tok, err := NewTokenizer(table, merges, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return tok, nil
}

// EncodeJSON writes s as indented JSON.
func (s *Snapshot) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("error while encoding snapshot: %w", err)
	}
	return nil
}

// EncodeYAML writes s as YAML.
func (s *Snapshot) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("error while encoding snapshot: %w", err)
	}
	return enc.Close()
}

// DecodeJSON reads a snapshot, rejecting unknown and missing fields.
func DecodeJSON(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var w snapshotWire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: error while unmarshalling json: %w", ErrMalformedSnapshot, err)
	}
	return w.snapshot()
}

// DecodeYAML reads a snapshot, rejecting unknown and missing fields.
func DecodeYAML(r io.Reader) (*Snapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var w snapshotWire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: error while unmarshalling yaml: %w", ErrMalformedSnapshot, err)
	}
	return w.snapshot()
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// SaveToFile writes the tokenizer's snapshot to path, as YAML for .yaml/.yml and JSON otherwise.
func (t *Tokenizer) SaveToFile(path string) error {
	var buf bytes.Buffer
	s := t.Serialize()

	var err error
	if isYAML(path) {
		err = s.EncodeYAML(&buf)
	} else {
		err = s.EncodeJSON(&buf)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("error while writing snapshot %s: %w", path, err)
	}
	return nil
}

// LoadTokenizerFromFile reads a snapshot written by SaveToFile (or by any producer of the same layout)
// and rebuilds the tokenizer.
func LoadTokenizerFromFile(path string, opts ...Option) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error while reading snapshot file: %w", err)
	}

	var s *Snapshot
	if isYAML(path) {
		s, err = DecodeYAML(bytes.NewReader(data))
	} else {
		s, err = DecodeJSON(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return Deserialize(s, opts...)
}
