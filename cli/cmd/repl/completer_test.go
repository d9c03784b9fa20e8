package repl

import "testing"

func TestWordBounds(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "foo", 3, "foo", 0, 3},
		{"at_start", "foo", 0, "foo", 0, 3},
		{"mid_word", "foobar", 3, "foobar", 0, 6},
		{"after_space", "echo hi", 7, "hi", 5, 7},
		{"after_pipe", "seq 3 | fir", 11, "fir", 8, 11},
		{"after_operator", "1 + ec", 6, "ec", 4, 6},
		{"after_comparison", "$x > len", 8, "len", 5, 8},
		{"empty_at_boundary", "echo ", 5, "", 5, 5},
		{"after_dollar", "$x", 2, "x", 1, 2},
		{"inside_subexpr", "(fir", 4, "fir", 1, 4},
		{"cursor_clamped", "ab", 5, "ab", 0, 2},
		// Hyphens are part of identifiers, not word boundaries.
		{"hyphenated", "load-env", 8, "load-env", 0, 8},
		{"hyphenated_partial", "echo | load-e", 13, "load-e", 7, 13},
		// Colon starts a control command; the word excludes it.
		{"control_command", ":he", 3, "he", 1, 3},
		// Dotted cell paths complete as one word.
		{"dotted_path", "user.name", 9, "user.name", 0, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestIsWordBoundary(t *testing.T) {
	for _, r := range " \t()[]{}|;,:+*/%<>=!$" {
		if !isWordBoundary(r) {
			t.Errorf("isWordBoundary(%q) = false, want true", r)
		}
	}

	for _, r := range "abc09-_." {
		if isWordBoundary(r) {
			t.Errorf("isWordBoundary(%q) = true, want false", r)
		}
	}
}
