package core

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	tok := buildTestTokenizer(t)
	inputs := []string{"abc abc", "aaab", "c b a", ""}

	check := func(t *testing.T, back *Tokenizer) {
		t.Helper()
		require.Equal(t, tok.NumTokens(), back.NumTokens())
		require.Equal(t, tok.Merges(), back.Merges())
		for _, in := range inputs {
			want, err := tok.Tokenize(in, 1.0)
			require.NoError(t, err)
			got, err := back.Tokenize(in, 1.0)
			require.NoError(t, err)
			require.Equal(t, want, got, "input %q", in)
		}
	}

	t.Run("in_memory", func(t *testing.T) {
		back, err := Deserialize(tok.Serialize())
		require.NoError(t, err)
		check(t, back)
	})

	for _, name := range []string{"vocab.json", "vocab.yaml", "vocab.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, tok.SaveToFile(path))

			back, err := LoadTokenizerFromFile(path)
			require.NoError(t, err)
			check(t, back)
		})
	}
}

func TestSnapshot_JSONLayout(t *testing.T) {
	tok := buildTestTokenizer(t)

	var buf bytes.Buffer
	require.NoError(t, tok.Serialize().EncodeJSON(&buf))
	out := buf.String()

	require.Contains(t, out, `"num_to_tok"`)
	require.Contains(t, out, `"4": "AB"`)
	require.Contains(t, out, `"AB": 4`)
	require.Contains(t, out, `"num_tokens": 7`)
	require.Contains(t, strings.Join(strings.Fields(out), ""), `"merges":[[1,2,4],[4,3,5],[1,1,6]]`)
}

func TestSnapshot_LooselyTypedKeys(t *testing.T) {
	// written by a producer that stores ids as string keys and merges as nested lists
	raw := `{
		"num_to_tok": {"0": " ", "1": "A", "2": "B", "3": "AB"},
		"tok_to_num": {" ": 0, "A": 1, "B": 2, "AB": 3},
		"merges": [[1, 2, 3]],
		"num_tokens": 4
	}`

	s, err := DecodeJSON(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "AB", s.NumToTok[3])

	tok, err := Deserialize(s)
	require.NoError(t, err)
	got, err := tok.StringTokenize("ab ab", 1.0)
	require.NoError(t, err)
	require.Equal(t, []string{"AB", " ", "AB"}, got)
}

func TestSnapshot_DecodeRejectsMissingAndUnknownFields(t *testing.T) {
	cases := map[string]string{
		"missing_num_to_tok": `{"tok_to_num": {}, "merges": [], "num_tokens": 0}`,
		"missing_tok_to_num": `{"num_to_tok": {}, "merges": [], "num_tokens": 0}`,
		"missing_merges":     `{"num_to_tok": {}, "tok_to_num": {}, "num_tokens": 0}`,
		"missing_num_tokens": `{"num_to_tok": {}, "tok_to_num": {}, "merges": []}`,
		"unknown_field":      `{"num_to_tok": {}, "tok_to_num": {}, "merges": [], "num_tokens": 0, "version": 2}`,
		"short_triple":       `{"num_to_tok": {}, "tok_to_num": {}, "merges": [[1, 2]], "num_tokens": 0}`,
		"not_json":           `num_tokens = 3`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(raw))
			require.ErrorIs(t, err, ErrMalformedSnapshot)
		})
	}

	_, err := DecodeYAML(strings.NewReader("num_to_tok: {}\ntok_to_num: {}\nnum_tokens: 0\n"))
	require.ErrorIs(t, err, ErrMalformedSnapshot)

	empty, err := DecodeJSON(strings.NewReader(`{"num_to_tok": {}, "tok_to_num": {}, "merges": [], "num_tokens": 0}`))
	require.NoError(t, err)
	tok, err := Deserialize(empty)
	require.NoError(t, err)
	require.Zero(t, tok.NumTokens())
}

func TestDeserialize_Inconsistent(t *testing.T) {
	valid := func() *Snapshot {
		return &Snapshot{
			NumToTok:  map[int]string{0: "A", 1: "B", 2: "AB"},
			TokToNum:  map[string]int{"A": 0, "B": 1, "AB": 2},
			Merges:    []MergeRule{{0, 1, 2}},
			NumTokens: 3,
		}
	}

	_, err := Deserialize(valid())
	require.NoError(t, err)

	cases := map[string]func(s *Snapshot){
		"nil_map":            func(s *Snapshot) { s.TokToNum = nil },
		"count_mismatch":     func(s *Snapshot) { s.NumTokens = 4 },
		"negative_count":     func(s *Snapshot) { s.NumTokens = -1 },
		"not_dense":          func(s *Snapshot) { delete(s.NumToTok, 1); s.NumToTok[5] = "B" },
		"maps_disagree":      func(s *Snapshot) { s.TokToNum["A"] = 1; s.TokToNum["B"] = 0 },
		"empty_text":         func(s *Snapshot) { s.NumToTok[1] = ""; delete(s.TokToNum, "B"); s.TokToNum[""] = 1 },
		"merge_unknown_id":   func(s *Snapshot) { s.Merges = []MergeRule{{0, 9, 2}} },
		"merge_wrong_result": func(s *Snapshot) { s.Merges = []MergeRule{{1, 0, 2}} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(s)
			tok, err := Deserialize(s)
			require.ErrorIs(t, err, ErrMalformedSnapshot)
			require.Nil(t, tok)
		})
	}

	_, err = Deserialize(nil)
	require.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestSerialize_IsACopy(t *testing.T) {
	tok := buildTestTokenizer(t)
	s := tok.Serialize()
	s.NumToTok[0] = "X"
	s.Merges[0].Merged = 0

	again := tok.Serialize()
	require.Equal(t, " ", again.NumToTok[0])
	require.Equal(t, 4, again.Merges[0].Merged)
}

func TestLoadTokenizerFromFile_Missing(t *testing.T) {
	_, err := LoadTokenizerFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
