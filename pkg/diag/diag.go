// Package diag implements the lexer core's diagnostic sink: a
// consumed interface (spec §6) exposing Error/Warning, counters, and a
// fatal-error latch, modeled on xplshn-gbc/pkg/util's source-line-plus-
// caret diagnostic printer but, per §7's propagation policy, never
// calling os.Exit — the host decides whether accumulated errors are
// fatal, the lexer core itself always recovers locally.
package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fundies/JustDefineIt/pkg/token"
)

// Severity distinguishes a Warning from an Error diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one recorded error or warning.
type Diagnostic struct {
	Severity Severity
	Pos      token.Position
	Message  string
}

// SourceFileRecord registers a file's content so diagnostics can render
// a source line and caret, mirroring xplshn-gbc/pkg/util's
// SourceFileRecord/SetSourceFiles/findFileAndLine trio.
type SourceFileRecord struct {
	Name  string
	Lines []string
}

// Sink accumulates diagnostics during lexing/preprocessing. It never
// aborts the process: every reporting method returns normally and the
// lexer core keeps running, per spec §7 ("all errors are recovered
// locally"). A fatal latch is exposed for hosts that want to stop early
// on their own terms (e.g. after N errors).
type Sink struct {
	out          io.Writer
	files        map[string]*SourceFileRecord
	diagnostics  []Diagnostic
	errorCount   int
	warningCount int
	fatalLatch   bool
	maxErrors    int // 0 means unbounded
}

// NewSink creates a diagnostic sink writing human-readable messages to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{out: w, files: make(map[string]*SourceFileRecord)}
}

// SetMaxErrors arms the fatal latch once the error count reaches n (0
// disables the latch).
func (s *Sink) SetMaxErrors(n int) { s.maxErrors = n }

// RegisterSource makes a file's content available for caret rendering.
func (s *Sink) RegisterSource(name, content string) {
	s.files[name] = &SourceFileRecord{Name: name, Lines: strings.Split(content, "\n")}
}

func (s *Sink) record(sev Severity, pos token.Position, message string) {
	d := Diagnostic{Severity: sev, Pos: pos, Message: message}
	s.diagnostics = append(s.diagnostics, d)
	if sev == SeverityError {
		s.errorCount++
		if s.maxErrors > 0 && s.errorCount >= s.maxErrors {
			s.fatalLatch = true
		}
	} else {
		s.warningCount++
	}
	if s.out != nil {
		fmt.Fprintf(s.out, "%s: %s: %s\n", pos, sev, message)
		s.printCaret(pos)
	}
}

func (s *Sink) printCaret(pos token.Position) {
	rec, ok := s.files[pos.File]
	if !ok || pos.Line < 1 || pos.Line > len(rec.Lines) {
		return
	}
	line := rec.Lines[pos.Line-1]
	fmt.Fprintf(s.out, "    %s\n", line)
	col := pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}
	fmt.Fprintf(s.out, "    %s^\n", strings.Repeat(" ", col-1))
}

// Error reports an error-severity diagnostic. Per spec §7, it never
// throws or halts lexing.
func (s *Sink) Error(pos token.Position, format string, args ...any) {
	s.record(SeverityError, pos, fmt.Sprintf(format, args...))
}

// Warning reports a warning-severity diagnostic.
func (s *Sink) Warning(pos token.Position, format string, args ...any) {
	s.record(SeverityWarning, pos, fmt.Sprintf(format, args...))
}

// Fatal reports whether the host-configured fatal latch has tripped.
// Components that honor fatal errors (per §5's cooperative-cancellation
// model) may consult this to return a best-effort token early.
func (s *Sink) Fatal() bool { return s.fatalLatch }

// ErrorCount and WarningCount expose the running totals (§7: "the host
// decides whether accumulated error count is fatal").
func (s *Sink) ErrorCount() int   { return s.errorCount }
func (s *Sink) WarningCount() int { return s.warningCount }

// Diagnostics returns all recorded diagnostics in emission order.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// SortedByPosition returns a copy of the diagnostics ordered by file
// then position, useful for deterministic test assertions.
func (s *Sink) SortedByPosition() []Diagnostic {
	out := s.Diagnostics()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos.File != out[j].Pos.File {
			return out[i].Pos.File < out[j].Pos.File
		}
		return out[i].Pos.Less(out[j].Pos)
	})
	return out
}
