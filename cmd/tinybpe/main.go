// tinybpe trains a character-pair-encoding vocabulary and tokenizes text with it.
//
//	tinybpe fit -corpus corpus.txt [-merges n] [-config tinybpe.yaml] [-out vocab.json]
//	tinybpe tokenize -vocab vocab.json [-p probability] [-format ids|strings|pipe] [text ...]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tinybpe/bpetok"
	"github.com/tinybpe/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  tinybpe fit -corpus file [flags]\n")
	fmt.Fprintf(os.Stderr, "  tinybpe tokenize -vocab file [flags] [text ...]\n")
	fmt.Fprintf(os.Stderr, "run 'tinybpe <command> -h' for the flags of a command\n")
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("tinybpe: ")

	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "fit":
		err = runFit(os.Args[2:])
	case "tokenize":
		err = runTokenize(os.Args[2:], os.Stdin, os.Stdout)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads path if given, otherwise returns the defaults
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

// setFlags returns the names of the flags given on the command line
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func runFit(args []string) error {
	fs := flag.NewFlagSet("fit", flag.ExitOnError)
	corpusPath := fs.String("corpus", "", "train on the text in `file`")
	configPath := fs.String("config", "", "read settings from YAML `file`")
	merges := fs.Int("merges", 0, "learn at most `n` merges (default from config)")
	exclude := fs.Bool("exclude-spaces", true, "never merge the space symbol")
	verbosity := fs.Int("v", 0, "diagnostic `level` 0, 1 or 2")
	workers := fs.Int("workers", 0, "goroutines for pair counting, 0 means GOMAXPROCS")
	out := fs.String("out", "vocab.json", "write the vocabulary to `file` (.json, .yaml)")
	fs.Parse(args)

	if *corpusPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if set["merges"] {
		cfg.Training.NumMerges = *merges
	}
	if set["exclude-spaces"] {
		cfg.Training.ExcludeSpaces = *exclude
	}
	if set["v"] {
		cfg.Training.Verbosity = *verbosity
	}
	if set["workers"] {
		cfg.Training.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(*corpusPath)
	if err != nil {
		return fmt.Errorf("error while reading corpus: %w", err)
	}

	start := time.Now()
	v, err := bpetok.FitVocab(string(data), cfg.Training.NumMerges, cfg.Training.Verbosity,
		bpetok.WithExcludeSpaces(cfg.Training.ExcludeSpaces),
		bpetok.WithWorkers(cfg.Training.Workers),
		bpetok.WithSeed(cfg.Tokenize.Seed),
		bpetok.WithLogger(log.New(os.Stderr, "", 0)),
	)
	if err != nil {
		return err
	}

	if err := v.Save(*out); err != nil {
		return err
	}
	log.Printf("learned %d merges, %d tokens in %v -> %s", len(v.Merges()), v.NumTokens(),
		time.Since(start).Round(time.Millisecond), *out)
	return nil
}

func runTokenize(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("tokenize", flag.ExitOnError)
	vocabPath := fs.String("vocab", "vocab.json", "read the vocabulary from `file`")
	configPath := fs.String("config", "", "read settings from YAML `file`")
	prob := fs.Float64("p", 1.0, "merge `probability` in (0, 1]")
	seed := fs.Int64("seed", 1, "random seed used when -p is below 1")
	format := fs.String("format", "pipe", "output `format`: ids, strings or pipe")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if set["p"] {
		cfg.Tokenize.MergeProbability = *prob
	}
	if set["seed"] {
		cfg.Tokenize.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	v, err := bpetok.Load(*vocabPath, bpetok.WithSeed(cfg.Tokenize.Seed))
	if err != nil {
		return err
	}

	text := strings.Join(fs.Args(), " ")
	if fs.NArg() == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("error while reading stdin: %w", err)
		}
		text = string(data)
	}

	p := cfg.Tokenize.MergeProbability
	switch *format {
	case "ids":
		ids, err := v.Tokenize(text, p)
		if err != nil {
			return err
		}
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = fmt.Sprint(id)
		}
		fmt.Fprintln(stdout, strings.Join(strs, " "))
	case "strings":
		pieces, err := v.StringTokenize(text, p)
		if err != nil {
			return err
		}
		for _, piece := range pieces {
			fmt.Fprintf(stdout, "%q\n", piece)
		}
	case "pipe":
		s, err := v.Format(text, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, s)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	return nil
}
