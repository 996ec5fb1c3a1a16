// Package streaming tokenizes text that arrives in chunks.
package streaming

import (
	"strings"
	"unicode/utf8"

	"github.com/tinybpe/internal/tokenizer/core"
)

// EncoderState implements a streaming encoder by buffering normalized input and flushing any prefix
// that ends in a space. When no merge rule crosses a space (core.Tokenizer.SpaceSafe), such a prefix
// tokenizes the same on its own as it does inside the full text, so it can be committed early.
// Vocabularies whose rules do cross spaces are buffered until Flush.
//
// Chunks are normalized one at a time, so the normalizer must work rune by rune apart from collapsing
// space runs, which is carried across chunk boundaries. Output then matches Tokenize on the whole input
// for merge probability 1.
type EncoderState struct {
	tok              *core.Tokenizer
	mergeProbability float64

	// whether the normalizer collapses space runs
	collapse bool
	// last normalized rune seen (committed or pending) was a space
	endsWithSpace bool

	// trailing bytes of an incomplete UTF-8 sequence
	carry []byte
	// normalized text not yet tokenized
	pending strings.Builder
	outBuf  []int
}

// NewEncoderState returns a new instance of the encoder state.
func NewEncoderState(t *core.Tokenizer, mergeProbability float64) *EncoderState {
	return &EncoderState{
		tok:              t,
		mergeProbability: mergeProbability,
		collapse:         t.Normalize("  ") == " ",
	}
}

// Push consumes the next chunk of raw bytes and emits any finalized tokens.
func (st *EncoderState) Push(chunk []byte) ([]int, error) {
	st.outBuf = st.outBuf[:0]
	if len(chunk) == 0 {
		return nil, nil
	}

	raw := append(st.carry, chunk...)
	cut := completePrefix(raw)
	st.carry = append([]byte(nil), raw[cut:]...)
	st.appendNormalized(st.tok.Normalize(string(raw[:cut])))

	if err := st.emitCommitted(); err != nil {
		return nil, err
	}

	if len(st.outBuf) == 0 {
		return nil, nil
	}
	return append([]int(nil), st.outBuf...), nil
}

// Flush tokenizes whatever remains buffered and resets the state for a new stream.
func (st *EncoderState) Flush() ([]int, error) {
	st.outBuf = st.outBuf[:0]
	if len(st.carry) > 0 {
		st.appendNormalized(st.tok.Normalize(string(st.carry)))
		st.carry = st.carry[:0]
	}

	rest := st.pending.String()
	st.pending.Reset()
	st.endsWithSpace = false
	if rest != "" {
		tokens, err := st.tok.TokenizeNormalized(rest, st.mergeProbability)
		if err != nil {
			return nil, err
		}
		st.outBuf = append(st.outBuf, tokens...)
	}

	if len(st.outBuf) == 0 {
		return nil, nil
	}
	return append([]int(nil), st.outBuf...), nil
}

// appendNormalized joins s onto the pending text, collapsing a space run that straddles the boundary
func (st *EncoderState) appendNormalized(s string) {
	if s == "" {
		return
	}
	if st.collapse && st.endsWithSpace && strings.HasPrefix(s, " ") {
		s = s[1:]
		if s == "" {
			return
		}
	}
	st.pending.WriteString(s)
	st.endsWithSpace = strings.HasSuffix(s, " ")
}

func (st *EncoderState) emitCommitted() error {
	if !st.tok.SpaceSafe() {
		return nil
	}

	buf := st.pending.String()
	emitLimit := strings.LastIndexByte(buf, ' ') + 1
	if emitLimit <= 0 {
		return nil
	}

	// the committed prefix leaves pending even when it fails to tokenize
	st.pending.Reset()
	st.pending.WriteString(buf[emitLimit:])

	tokens, err := st.tok.TokenizeNormalized(buf[:emitLimit], st.mergeProbability)
	if err != nil {
		return err
	}
	st.outBuf = append(st.outBuf, tokens...)
	return nil
}

// completePrefix returns the length of the longest prefix of b that does not end inside a UTF-8 sequence
func completePrefix(b []byte) int {
	for k := 1; k <= utf8.UTFMax && k <= len(b); k++ {
		start := len(b) - k
		if utf8.RuneStart(b[start]) {
			if utf8.FullRune(b[start:]) {
				return len(b)
			}
			return start
		}
	}
	return len(b)
}
