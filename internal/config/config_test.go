package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tinybpe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.Training.ExcludeSpaces)
	require.Equal(t, 1.0, cfg.Tokenize.MergeProbability)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
training:
  num_merges: 250
  verbosity: 2
tokenize:
  merge_probability: 0.8
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Training.NumMerges)
	require.Equal(t, 2, cfg.Training.Verbosity)
	require.True(t, cfg.Training.ExcludeSpaces, "unset keys keep defaults")
	require.Equal(t, 0.8, cfg.Tokenize.MergeProbability)
	require.Equal(t, int64(1), cfg.Tokenize.Seed)
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown_key":      "training:\n  merges: 3\n",
		"negative_merges":  "training:\n  num_merges: -1\n",
		"bad_verbosity":    "training:\n  verbosity: 3\n",
		"negative_workers": "training:\n  workers: -2\n",
		"zero_probability": "tokenize:\n  merge_probability: 0\n",
		"big_probability":  "tokenize:\n  merge_probability: 1.5\n",
		"not_yaml":         "training: [",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Training.NumMerges = -1
	cfg.Training.Verbosity = 9

	err := cfg.Validate()
	require.ErrorContains(t, err, "num_merges")
	require.ErrorContains(t, err, "verbosity")
}
