package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/tinybpe/bpetok"
)

func main() {
	path := filepath.Join("testdata", "vocab.json")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	v, err := bpetok.Load(path)
	if err != nil {
		log.Fatalf("failed to load vocabulary: %v", err)
	}

	// Load already checks the maps; this replays every merged symbol's text end to end
	for i, m := range v.Merges() {
		text := v.Decode([]int{m.Merged})
		ids, err := v.Tokenize(text, 1.0)
		if err != nil {
			log.Fatalf("merge %d (%q): %v", i, text, err)
		}
		if got := v.Decode(ids); got != text {
			log.Fatalf("merge %d: %q came back as %q", i, text, got)
		}
	}

	log.Printf("vocab loaded successfully: %d tokens (0..%d), %d merges, ids are dense",
		v.NumTokens(), v.NumTokens()-1, len(v.Merges()))
}
