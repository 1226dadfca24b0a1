// Package preprocess wires the Source Reader, Raw Tokenizer, Macro
// Table, Director, and Lexer Façade into the single entry point the CLI
// driver (cmd/jdipp) and any other host call: hand it a filename and an
// Options value, get back the fully preprocessed token stream plus a
// diagnostic sink.
//
// Grounded on the teacher's pkg/cpp/preprocess.go's Preprocessor/
// PreprocessFile/PreprocessorOptions shape (options struct carrying
// defines/undefines/include paths, a constructor that seeds the macro
// table from command-line defines before the first token is read), but
// rebuilt on top of pkg/pplexer.Lexer's GetToken loop instead of
// preprocess.go's own string-in/string-out preprocessContent driver.
package preprocess

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fundies/JustDefineIt/pkg/builtin"
	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/directive"
	"github.com/fundies/JustDefineIt/pkg/macro"
	"github.com/fundies/JustDefineIt/pkg/pplexer"
	"github.com/fundies/JustDefineIt/pkg/source"
	"github.com/fundies/JustDefineIt/pkg/token"
)

// Options mirrors the command-line surface spec §4.G describes:
// -I/--include user search directories, --isystem system search
// directories, -D/--define and -U/--undefine macro seeding applied
// before the first token is read (spec §4.D's "command-line macro
// seeding"), and an optional --config path layering extra keywords/
// kludge entries/search directories onto the Built-in Context.
type Options struct {
	IncludePaths []string
	SystemPaths  []string
	Defines      []string // "NAME" or "NAME=VALUE"
	Undefines    []string
	ConfigPath   string
}

// Result is everything a host needs after a run: the token stream (with
// every keyword/declarator already classified by the Built-in Context)
// and the diagnostic sink that accumulated along the way, plus the
// macro table's final state (for --dump-macros and similar tooling).
type Result struct {
	Tokens      []token.Token
	Diagnostics *diag.Sink
	Macros      *macro.Table
}

// Run preprocesses filename per opts, writing human-readable diagnostics
// to diagOut as they occur (pass io.Discard to suppress).
func Run(filename string, opts Options, diagOut io.Writer) (*Result, error) {
	sink := diag.NewSink(diagOut)

	builtins, err := newBuiltinContext(opts)
	if err != nil {
		return nil, err
	}

	resolver := directive.NewIncludeResolver()
	for _, p := range opts.IncludePaths {
		resolver.AddUserPath(p)
	}
	for _, p := range opts.SystemPaths {
		resolver.AddSystemPath(p)
	}
	// The translation unit is the resolver's bottom frame, so quoted
	// includes it names are searched in its own directory first.
	top := filename
	if abs, err := filepath.Abs(filename); err == nil {
		top = abs
	}
	_ = resolver.PushFile(top, -1) // an empty stack reports no cycle or overflow

	macros := macro.NewTable()
	for _, d := range opts.Defines {
		macros.DefineSimple(d, sink)
	}
	for _, u := range opts.Undefines {
		macros.Erase(u)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", filename, err)
	}
	sink.RegisterSource(filename, string(content))

	reader, ok := source.Open(filename)
	if !ok {
		return nil, fmt.Errorf("opening %q", filename)
	}

	lx := pplexer.New(sink, macros, builtins, resolver)
	lx.PushSource(reader)

	var tokens []token.Token
	for {
		tok := lx.GetToken()
		if tok.Kind == token.EndOfCode {
			break
		}
		tokens = append(tokens, tok)
		if sink.Fatal() {
			break
		}
	}
	if err := lx.Finish(); err != nil {
		sink.Error(token.Position{File: filename}, "%s", err.Error())
	}

	return &Result{Tokens: tokens, Diagnostics: sink, Macros: macros}, nil
}

func newBuiltinContext(opts Options) (*builtin.Context, error) {
	var b *builtin.Context
	var err error
	if opts.ConfigPath != "" {
		b, err = builtin.LoadBuiltinContext(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		b = builtin.NewBuiltinContext()
	}
	for _, p := range opts.IncludePaths {
		b.AddSearchDir(p, false)
	}
	for _, p := range opts.SystemPaths {
		b.AddSearchDir(p, true)
	}
	return b, nil
}

// Render reconstructs a readable approximation of the preprocessed
// source from tokens, one output line per distinct input line number,
// tokens separated by a single space — the -E/--preprocess text-output
// mode (spec §4.G), grounded on pkg/cpp/lexer.go's TokensToString.
func Render(tokens []token.Token) string {
	var b strings.Builder
	lastLine := -1
	for i, t := range tokens {
		if t.Pos.Line != lastLine {
			if i > 0 {
				b.WriteByte('\n')
			}
			lastLine = t.Pos.Line
		} else if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Lexeme)
	}
	b.WriteByte('\n')
	return b.String()
}
