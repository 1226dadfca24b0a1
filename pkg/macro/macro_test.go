package macro

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/rawlex"
	"github.com/fundies/JustDefineIt/pkg/token"
)

// expandString is the test harness grounded on expand_test.go's
// ExpandString: tokenize src with the raw tokenizer, run it through a
// freshly-seeded Table's Expand, and render the resulting lexemes
// space-joined for an easy table comparison.
func expandString(t *testing.T, table *Table, src string) string {
	t.Helper()
	sink := diag.NewSink(nil)
	all := rawlex.Tokenize("test.cpp", src, sink)
	var in []token.Token
	for _, tk := range all {
		if tk.Kind == token.EndOfCode || tk.Kind == token.Newline {
			continue
		}
		in = append(in, tk)
	}
	out, err := table.Expand(in, nil, sink, nil)
	if err != nil {
		t.Fatalf("Expand(%q): unexpected error: %v", src, err)
	}
	return lexemeString(out)
}

func lexemeString(toks []token.Token) string {
	s := ""
	for i, tk := range toks {
		if i > 0 {
			s += " "
		}
		s += tk.Lexeme
	}
	return s
}

func TestExpandObjectMacro(t *testing.T) {
	tests := []struct {
		name     string
		defines  map[string]string
		input    string
		expected string
	}{
		{"simple substitution", map[string]string{"FOO": "42"}, "FOO", "42"},
		{"multi-token replacement", map[string]string{"PAIR": "1 , 2"}, "PAIR", "1 , 2"},
		{"undefined name passes through", nil, "BAR", "BAR"},
		{"nested object macro", map[string]string{"A": "B", "B": "1"}, "A", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable()
			sink := diag.NewSink(nil)
			for name, val := range tt.defines {
				table.DefineSimple(name+"="+val, sink)
			}
			got := expandString(t, table, tt.input)
			if got != tt.expected {
				t.Errorf("expand(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExpandFunctionMacro(t *testing.T) {
	table := NewTable()
	table.DefineFunction("ADD", []string{"a", "b"}, false,
		tokensOf(t, "a + b"), token.Position{})

	got := expandString(t, table, "ADD(1, 2)")
	want := "1 + 2"
	if got != want {
		t.Errorf("expand(ADD(1, 2)) = %q, want %q", got, want)
	}
}

func TestExpandFunctionMacroNotCalledPassesThrough(t *testing.T) {
	table := NewTable()
	table.DefineFunction("ADD", []string{"a", "b"}, false, tokensOf(t, "a + b"), token.Position{})
	got := expandString(t, table, "ADD")
	if got != "ADD" {
		t.Errorf("expand(ADD) without a call = %q, want %q", got, "ADD")
	}
}

func TestExpandVariadicMacro(t *testing.T) {
	table := NewTable()
	table.DefineFunction("LOG", []string{"fmt"}, true, tokensOf(t, "fmt , __VA_ARGS__"), token.Position{})
	got := expandString(t, table, `LOG("x", 1, 2)`)
	want := `"x" , 1 , 2`
	if got != want {
		t.Errorf("expand(LOG(...)) = %q, want %q", got, want)
	}
}

func TestExpandStringizeOperator(t *testing.T) {
	table := NewTable()
	table.DefineFunction("STR", []string{"x"}, false, tokensOf(t, "# x"), token.Position{})
	got := expandString(t, table, "STR(hello)")
	want := `"hello"`
	if got != want {
		t.Errorf("expand(STR(hello)) = %q, want %q", got, want)
	}
}

func TestExpandTokenPasteOperator(t *testing.T) {
	table := NewTable()
	table.DefineFunction("CAT", []string{"a", "b"}, false, tokensOf(t, "a ## b"), token.Position{})
	got := expandString(t, table, "CAT(foo, bar)")
	want := "foobar"
	if got != want {
		t.Errorf("expand(CAT(foo, bar)) = %q, want %q", got, want)
	}
}

func TestExpandRecursionGuard(t *testing.T) {
	table := NewTable()
	// "#define FOO FOO" must not loop forever: the hideset stops it from
	// re-entering its own expansion.
	table.DefineObject("FOO", tokensOf(t, "FOO"), token.Position{})
	got := expandString(t, table, "FOO")
	if got != "FOO" {
		t.Errorf("self-referential macro expand(FOO) = %q, want %q", got, "FOO")
	}
}

func TestExpandIndirectRecursionGuard(t *testing.T) {
	table := NewTable()
	table.DefineObject("A", tokensOf(t, "B"), token.Position{})
	table.DefineObject("B", tokensOf(t, "A"), token.Position{})
	got := expandString(t, table, "A")
	if got != "A" && got != "B" {
		t.Errorf("mutually recursive expand(A) = %q, want A or B (the hideset-stopped form)", got)
	}
}

// TestExpandRescansAcrossDeferredCallBoundary pins down ISO 6.10.3.4's
// cross-boundary rescanning: "#define A B" / "#define B() 42" / "A()"
// must expand to "42" even though A's own rescan only ever sees its
// replacement list ["B"] — the "(" that makes B a call lives past the
// end of that list and is only reachable through the more fetcher.
func TestExpandRescansAcrossDeferredCallBoundary(t *testing.T) {
	table := NewTable()
	sink := diag.NewSink(nil)
	table.DefineObject("A", tokensOf(t, "B"), token.Position{})
	table.DefineFunction("B", nil, false, tokensOf(t, "42"), token.Position{})

	rest := tokensOf(t, "()")
	i := 0
	more := func() (token.Token, bool) {
		if i >= len(rest) {
			return token.Token{}, false
		}
		tk := rest[i]
		i++
		return tk, true
	}

	out, err := table.Expand(tokensOf(t, "A"), nil, sink, more)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lexemeString(out); got != "42" {
		t.Errorf("expand(A()) via deferred rescanning = %q, want %q", got, "42")
	}
}

func TestBuiltinMacros(t *testing.T) {
	table := NewTable()
	sink := diag.NewSink(nil)
	toks := []token.Token{{Kind: token.Identifier, Lexeme: "__LINE__", Pos: token.Position{File: "f.cpp", Line: 7}}}
	out, err := table.Expand(toks, nil, sink, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Lexeme != "7" {
		t.Errorf("__LINE__ expansion = %v, want a single token \"7\"", out)
	}
}

func TestCounterMacroIncrementsAcrossUses(t *testing.T) {
	table := NewTable()
	sink := diag.NewSink(nil)
	tok := []token.Token{{Kind: token.Identifier, Lexeme: "__COUNTER__"}}
	first, _ := table.Expand(tok, nil, sink, nil)
	second, _ := table.Expand(tok, nil, sink, nil)
	if cmp.Diff(first[0].Lexeme, "0") != "" || cmp.Diff(second[0].Lexeme, "1") != "" {
		t.Errorf("__COUNTER__ sequence = %q, %q, want \"0\", \"1\"", first[0].Lexeme, second[0].Lexeme)
	}
}

func TestDefineSimpleBareNameDefaultsToOne(t *testing.T) {
	table := NewTable()
	sink := diag.NewSink(nil)
	table.DefineSimple("DEBUG", sink)
	got := expandString(t, table, "DEBUG")
	if got != "1" {
		t.Errorf("DefineSimple(\"DEBUG\") expand = %q, want \"1\"", got)
	}
}

func TestNamesReturnsSortedDefinedMacros(t *testing.T) {
	table := &Table{macros: make(map[string]*Macro)}
	table.DefineObject("ZEBRA", nil, token.Position{})
	table.DefineObject("ALPHA", nil, token.Position{})
	got := table.Names()
	want := []string{"ALPHA", "ZEBRA"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func tokensOf(t *testing.T, src string) []token.Token {
	t.Helper()
	sink := diag.NewSink(nil)
	all := rawlex.Tokenize("test.cpp", src, sink)
	var out []token.Token
	for _, tk := range all {
		if tk.Kind == token.EndOfCode || tk.Kind == token.Newline {
			continue
		}
		out = append(out, tk)
	}
	return out
}
