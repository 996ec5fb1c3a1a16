package core

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// SymbolTable is the bidirectional mapping between symbol text and dense ids.
// Invariants:
//   - idToText[id] is the text of symbol id, for every id in [0, NumTokens()).
//   - textToID[idToText[id]] == id, so each text has exactly one id.
//   - ids are only ever appended; nothing is removed.
//
// A SymbolTable is owned by one training run. Once handed to a Tokenizer it is only read.
type SymbolTable struct {
	idToText []string
	textToID map[string]int
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		textToID: make(map[string]int),
	}
}

// Seed registers each single-character string. Characters already present keep their id.
func (st *SymbolTable) Seed(chars []string) error {
	for _, c := range chars {
		if utf8.RuneCountInString(c) != 1 {
			return fmt.Errorf("seed symbol %q is not a single character", c)
		}
	}
	for _, c := range chars {
		st.Register(c)
	}
	return nil
}

// SeedFromText seeds the table with the distinct characters of text in ascending code point order,
// so the same corpus always yields the same ids.
func (st *SymbolTable) SeedFromText(text string) {
	seen := make(map[rune]struct{})
	for _, r := range text {
		seen[r] = struct{}{}
	}

	chars := make([]string, 0, len(seen))
	for r := range seen {
		chars = append(chars, string(r))
	}
	sort.Strings(chars)

	for _, c := range chars {
		st.Register(c)
	}
}

// Register returns the id of text, allocating the next id if text is new.
func (st *SymbolTable) Register(text string) int {
	if id, ok := st.textToID[text]; ok {
		return id
	}

	id := len(st.idToText)
	st.idToText = append(st.idToText, text)
	st.textToID[text] = id
	return id
}

// TextOf returns the text of id.
func (st *SymbolTable) TextOf(id int) (string, error) {
	if id < 0 || id >= len(st.idToText) {
		return "", fmt.Errorf("%w: id %d", ErrUnknownSymbol, id)
	}
	return st.idToText[id], nil
}

// IDOf returns the id of text.
func (st *SymbolTable) IDOf(text string) (int, error) {
	id, ok := st.textToID[text]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, text)
	}
	return id, nil
}

// Contains reports whether text has an id.
func (st *SymbolTable) Contains(text string) bool {
	_, ok := st.textToID[text]
	return ok
}

// NumTokens is the number of registered symbols, which is also the next id to be allocated.
func (st *SymbolTable) NumTokens() int {
	return len(st.idToText)
}

// Encode maps each character of text to its id.
func (st *SymbolTable) Encode(text string) ([]int, error) {
	out := make([]int, 0, len(text))
	pos := 0
	for _, r := range text {
		id, ok := st.textToID[string(r)]
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownSymbol, r, pos)
		}
		out = append(out, id)
		pos++
	}
	return out, nil
}
