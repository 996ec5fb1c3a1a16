package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinybpe/bpetok"
)

func newCorpusServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("It was the best of times,\nit was the worst of times."))
	})
	mux.HandleFunc("/b.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("The age of wisdom; the age of foolishness!"))
	})
	mux.HandleFunc("/empty.txt", func(http.ResponseWriter, *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchText(t *testing.T) {
	srv := newCorpusServer(t)
	ctx := context.Background()

	text, err := fetchText(ctx, srv.Client(), srv.URL+"/a.txt")
	require.NoError(t, err)
	require.Contains(t, text, "best of times")

	_, err = fetchText(ctx, srv.Client(), srv.URL+"/missing.txt")
	require.ErrorContains(t, err, "unexpected status")

	_, err = fetchText(ctx, srv.Client(), srv.URL+"/empty.txt")
	require.ErrorIs(t, err, errEmptyBody)
}

func TestPrepareCorpus(t *testing.T) {
	got := prepareCorpus(map[string]string{
		"b.txt": "  the age;  of\nwisdom ",
		"a.txt": "It was...",
		"c.txt": "--",
	})
	require.Equal(t, "IT WAS THE AGE OF WISDOM", got)
}

func TestBuildCorpus(t *testing.T) {
	srv := newCorpusServer(t)
	dir := t.TempDir()
	vocabPath := filepath.Join(dir, "vocab.yaml")

	urls := map[string]string{
		"a.txt": srv.URL + "/a.txt",
		"b.txt": srv.URL + "/b.txt",
	}
	vocab, err := buildCorpus(context.Background(), srv.Client(), urls, filepath.Join(dir, "corpus"), vocabPath, 10)
	require.NoError(t, err)
	require.Len(t, vocab.Merges(), 10)

	raw, err := os.ReadFile(filepath.Join(dir, "corpus", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "It was the best of times,\nit was the worst of times.", string(raw))

	norm, err := os.ReadFile(filepath.Join(dir, "corpus", "normalized.txt"))
	require.NoError(t, err)
	require.Equal(t, "IT WAS THE BEST OF TIMES IT WAS THE WORST OF TIMES THE AGE OF WISDOM THE AGE OF FOOLISHNESS", string(norm))

	loaded, err := bpetok.Load(vocabPath)
	require.NoError(t, err)
	require.Equal(t, vocab.Merges(), loaded.Merges())

	ids, err := loaded.Tokenize("the worst of times", 1.0)
	require.NoError(t, err)
	require.Equal(t, "THE WORST OF TIMES", loaded.Decode(ids))
}

func TestBuildCorpus_FetchError(t *testing.T) {
	srv := newCorpusServer(t)
	dir := t.TempDir()

	_, err := buildCorpus(context.Background(), srv.Client(), map[string]string{"x.txt": srv.URL + "/missing.txt"},
		dir, filepath.Join(dir, "vocab.json"), 5)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "vocab.json"))
	require.True(t, os.IsNotExist(statErr))
}
