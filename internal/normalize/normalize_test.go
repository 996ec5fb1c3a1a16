package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"already_clean", "AB AB AB", "AB AB AB"},
		{"uppercases", "hello world", "HELLO WORLD"},
		{"keeps_apostrophe_and_digits", "don't panic 42", "DON'T PANIC 42"},
		{"punctuation_to_space", "hi, there!", "HI THERE "},
		{"collapses_runs", "a   b\t\tc\n", "A B C "},
		{"keeps_leading_space", "  lead", " LEAD"},
		{"full_case_mapping", "straße", "STRASSE"},
		{"non_latin", "héllo мир", "H LLO "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Text(tc.in))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	for _, s := range []string{"Hello, World!", "  x  y  ", "it's 3 o'clock"} {
		once := Text(s)
		require.Equal(t, once, Text(once))
	}
}

func TestIdentity(t *testing.T) {
	require.Equal(t, "a, B!", Identity("a, B!"))
}
