package core

import "strings"

// Decode a given sequence of tokens back to the normalized text they cover
func (t *Tokenizer) Decode(tokens []int) string {
	if len(tokens) == 0 {
		return ""
	}

	total := 0
	for _, id := range tokens {
		if id < 0 || id >= t.table.NumTokens() {
			panic("token id out of range while decoding")
		}

		total += len(t.table.idToText[id])
	}

	var b strings.Builder
	b.Grow(total)
	for _, id := range tokens {
		b.WriteString(t.table.idToText[id])
	}

	return b.String()
}
