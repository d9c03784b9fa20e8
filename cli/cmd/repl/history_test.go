package repl

import (
	"path/filepath"
	"testing"
)

func historyPath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), baseHistory)
}

func TestHistory_WriteAndLoad(t *testing.T) {
	path := historyPath(t)

	h := NewHistory(path)
	for _, entry := range []string{"let x = 1", "echo $x", "seq 3 | first 2"} {
		if _, err := h.Write(entry); err != nil {
			t.Fatalf("Write(%q) error: %v", entry, err)
		}
	}

	// A fresh instance reads the same entries back.
	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if reloaded.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reloaded.Len())
	}

	if line, err := reloaded.GetLine(1); err != nil || line != "echo $x" {
		t.Errorf("GetLine(1) = %q, %v; want echo $x", line, err)
	}
}

func TestHistory_DuplicateMovesToEnd(t *testing.T) {
	path := historyPath(t)

	h := NewHistory(path)
	for _, entry := range []string{"first", "second", "first"} {
		if _, err := h.Write(entry); err != nil {
			t.Fatalf("Write(%q) error: %v", entry, err)
		}
	}

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}

	if line, _ := h.GetLine(0); line != "second" {
		t.Errorf("GetLine(0) = %q, want second", line)
	}

	if line, _ := h.GetLine(1); line != "first" {
		t.Errorf("GetLine(1) = %q, want first", line)
	}

	// The rewrite persisted the deduplicated order.
	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if reloaded.Len() != 2 {
		t.Errorf("reloaded Len() = %d, want 2", reloaded.Len())
	}
}

func TestHistory_SkipsBlankAndRepeatedEntries(t *testing.T) {
	h := NewHistory(historyPath(t))

	if n, err := h.Write("   "); n != 0 || err != nil {
		t.Errorf("Write(blank) = %d, %v; want 0, nil", n, err)
	}

	for range 3 {
		if _, err := h.Write("echo hi"); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestHistory_GetLineOutOfBounds(t *testing.T) {
	h := NewHistory(historyPath(t))

	if _, err := h.GetLine(0); err != ErrOutOfBounds {
		t.Errorf("GetLine(0) error = %v, want %v", err, ErrOutOfBounds)
	}

	if _, err := h.GetLine(-1); err != ErrOutOfBounds {
		t.Errorf("GetLine(-1) error = %v, want %v", err, ErrOutOfBounds)
	}
}

func TestHistory_LoadMissingFile(t *testing.T) {
	h := NewHistory(historyPath(t))

	if err := h.Load(); err != nil {
		t.Errorf("Load() on a missing file = %v, want nil", err)
	}

	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}
