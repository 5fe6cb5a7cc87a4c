package store

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"Wasswa Déo", "wasswa deo"},
		{"NAKATO-Sarah", "nakato sarah"},
		{"  Okello   James ", "okello james"},
		{"mukasa", "mukasa"},
		{"", ""},
	}

	for _, tc := range cases {
		got := NormalizeName(tc.input)
		if got != tc.expected {
			t.Errorf("NormalizeName(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalizeName_MatchesAcrossFormats(t *testing.T) {
	// The same person exported two ways must normalize identically.
	if NormalizeName("Jan-Novák") != NormalizeName("jan novak") {
		t.Error("expected dash and diacritic variants to normalize to the same key")
	}
}
