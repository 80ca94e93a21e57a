package chunking

import (
	"strings"
	"testing"
)

func TestSplitProducesOverlappingWindows(t *testing.T) {
	s := NewSplitter(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"

	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	if chunks[0] != "abcdefghij" {
		t.Fatalf("unexpected first chunk %q", chunks[0])
	}
	// Step is size-overlap, so the second window starts at rune 6.
	if !strings.HasPrefix(chunks[1], "ghij") {
		t.Fatalf("expected overlap carryover, got %q", chunks[1])
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestSplitTrimsWhitespaceOnlyChunks(t *testing.T) {
	s := NewSplitter(5, 0)
	chunks := s.Split("abcde     fghij")
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("whitespace-only chunk leaked: %q", chunks)
		}
	}
}

func TestNewSplitterNormalizesBadOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("overlap must be clamped below chunk size, got %d/%d", s.Overlap, s.ChunkSize)
	}
}
