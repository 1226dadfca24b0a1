package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromStringBasicCursor(t *testing.T) {
	r := FromString("t.cpp", "ab", true)
	if r.At() != 'a' {
		t.Fatalf("At() = %q, want 'a'", r.At())
	}
	r.Advance()
	if r.At() != 'b' {
		t.Fatalf("At() after Advance = %q, want 'b'", r.At())
	}
	r.Advance()
	if !r.Eof() {
		t.Errorf("expected Eof() after consuming both bytes")
	}
}

func TestLineColumnTracking(t *testing.T) {
	r := FromString("t.cpp", "ab\ncd", true)
	r.Skip(3) // a, b, \n
	if r.Line() != 2 || r.Column() != 1 {
		t.Errorf("position after the first newline = %d:%d, want 2:1", r.Line(), r.Column())
	}
}

func TestTakeNewlineCollapsesCRLF(t *testing.T) {
	r := FromString("t.cpp", "a\r\nb", true)
	r.Advance() // 'a'
	if !r.TakeNewline() {
		t.Fatalf("TakeNewline() should consume \\r\\n")
	}
	if r.Line() != 2 || r.Column() != 1 {
		t.Errorf("position after \\r\\n = %d:%d, want 2:1", r.Line(), r.Column())
	}
	if r.At() != 'b' {
		t.Errorf("At() after TakeNewline = %q, want 'b'", r.At())
	}
}

func TestTakeNewlineBareCR(t *testing.T) {
	r := FromString("t.cpp", "a\rb", true)
	r.Advance()
	if !r.TakeNewline() {
		t.Fatalf("TakeNewline() should consume a bare \\r")
	}
	if r.At() != 'b' {
		t.Errorf("At() after bare-\\r TakeNewline = %q, want 'b'", r.At())
	}
}

func TestTakeNewlineReportsFalseWhenNotAtNewline(t *testing.T) {
	r := FromString("t.cpp", "ab", true)
	if r.TakeNewline() {
		t.Errorf("TakeNewline() should report false when not positioned on a newline")
	}
}

func TestBacktrackUndoesAdvance(t *testing.T) {
	r := FromString("t.cpp", "abc", true)
	r.Skip(3)
	if r.Column() != 4 {
		t.Fatalf("Column() after Skip(3) = %d, want 4", r.Column())
	}
	r.Backtrack(2)
	if r.Column() != 2 || r.Tell() != 1 {
		t.Errorf("after Backtrack(2): column=%d tell=%d, want column=2 tell=1", r.Column(), r.Tell())
	}
	if r.At() != 'b' {
		t.Errorf("At() after Backtrack = %q, want 'b'", r.At())
	}
}

func TestSpliceLinesRemovesLineContinuation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lf splice", "ab\\\ncd", "abcd"},
		{"crlf splice", "ab\\\r\ncd", "abcd"},
		{"cr splice", "ab\\\rcd", "abcd"},
		{"no backslash is untouched", "abcd", "abcd"},
		{"trailing lone backslash is kept", "ab\\", "ab\\"},
		{"multiple splices", "a\\\nb\\\nc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString("t.cpp", tt.input, true)
			got := string(r.Slice(0, len(tt.want)+10))
			if got != tt.want {
				t.Errorf("spliced buffer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenBufferedFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cpp")
	if err := os.WriteFile(path, []byte("int x;"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, ok := Open(path)
	if !ok {
		t.Fatalf("Open(%q) failed", path)
	}
	defer r.Close()
	if r.Filename() != path {
		t.Errorf("Filename() = %q, want %q", r.Filename(), path)
	}
	if r.At() != 'i' {
		t.Errorf("At() = %q, want 'i'", r.At())
	}
}

func TestOpenMissingFileFails(t *testing.T) {
	if _, ok := Open("/does/not/exist.cpp"); ok {
		t.Errorf("Open of a nonexistent file should report ok=false, not panic")
	}
}

func TestValidateRejectsBackwardMove(t *testing.T) {
	r := FromString("t.cpp", "abc", true)
	r.Skip(2)
	if err := r.Validate(1, 1); err == nil {
		t.Errorf("expected an error: 1:1 is behind the reader's current 1:3 position")
	}
	if err := r.Validate(1, 3); err != nil {
		t.Errorf("Validate at the current position should not error, got %v", err)
	}
}
