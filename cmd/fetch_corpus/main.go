// fetch_corpus downloads public-domain training texts, normalizes them and trains a starter
// vocabulary that cmd/test_vocab_load can check.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tinybpe/bpetok"
)

// public-domain texts from Project Gutenberg
var sources = map[string]string{
	"tale_of_two_cities.txt":  "https://www.gutenberg.org/cache/epub/98/pg98.txt",
	"pride_and_prejudice.txt": "https://www.gutenberg.org/cache/epub/1342/pg1342.txt",
}

var errEmptyBody = errors.New("empty response body")

// fetchText downloads url and returns its body
func fetchText(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("error while building request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error while fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error while fetching %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error while reading %s: %w", url, err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("error while reading %s: %w", url, errEmptyBody)
	}
	return string(body), nil
}

// prepareCorpus normalizes each text and joins them in name order, one space apart
func prepareCorpus(texts map[string]string) string {
	names := make([]string, 0, len(texts))
	for name := range texts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if norm := strings.TrimSpace(bpetok.Normalize(texts[name])); norm != "" {
			parts = append(parts, norm)
		}
	}
	return strings.Join(parts, " ")
}

// buildCorpus fetches every source, writes the raw and normalized files under dir, then trains a
// vocabulary with numMerges merges and saves it to vocabPath.
func buildCorpus(ctx context.Context, client *http.Client, urls map[string]string, dir, vocabPath string, numMerges int) (*bpetok.Vocab, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error while creating %s: %w", dir, err)
	}

	texts := make(map[string]string, len(urls))
	for name, url := range urls {
		log.Printf("downloading %s", name)
		text, err := fetchText(ctx, client, url)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			return nil, fmt.Errorf("error while writing %s: %w", name, err)
		}
		texts[name] = text
	}

	corpus := prepareCorpus(texts)
	normPath := filepath.Join(dir, "normalized.txt")
	if err := os.WriteFile(normPath, []byte(corpus), 0o644); err != nil {
		return nil, fmt.Errorf("error while writing %s: %w", normPath, err)
	}
	log.Printf("normalized corpus: %d bytes", len(corpus))

	start := time.Now()
	vocab, err := bpetok.FitVocabContext(ctx, corpus, numMerges, 0)
	if err != nil {
		return nil, fmt.Errorf("error while training vocabulary: %w", err)
	}
	log.Printf("trained %d tokens in %s", vocab.NumTokens(), time.Since(start).Round(time.Millisecond))

	if err := vocab.Save(vocabPath); err != nil {
		return nil, err
	}
	return vocab, nil
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("fetch_corpus: ")

	dir := flag.String("dir", filepath.Join("testdata", "corpus"), "directory for downloaded texts")
	out := flag.String("out", filepath.Join("testdata", "vocab.json"), "where to save the trained vocabulary")
	merges := flag.Int("merges", 200, "merges to learn for the starter vocabulary")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall download and training timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if _, err := buildCorpus(ctx, http.DefaultClient, sources, *dir, *out, *merges); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("done. check it with: go run ./cmd/test_vocab_load %s", *out)
}
