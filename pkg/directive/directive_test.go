package directive

import (
	"testing"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/rawlex"
	"github.com/fundies/JustDefineIt/pkg/token"
)

func line(t *testing.T, src string) []token.Token {
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

func TestParseDirectiveFromTokens(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind Kind
		wantName string
	}{
		{"if", "if FOO", DirIf, ""},
		{"ifdef", "ifdef FOO", DirIfdef, ""},
		{"ifndef", "ifndef FOO", DirIfndef, ""},
		{"elif", "elif BAR", DirElif, ""},
		{"elifdef", "elifdef BAR", DirElifdef, ""},
		{"elifndef", "elifndef BAR", DirElifndef, ""},
		{"else", "else", DirElse, ""},
		{"endif", "endif", DirEndif, ""},
		{"include", `include "a.h"`, DirInclude, ""},
		{"include_next", `include_next "a.h"`, DirIncludeNext, ""},
		{"import", `import "a.h"`, DirImport, ""},
		{"define object", "define FOO 42", DirDefine, "FOO"},
		{"undef", "undef FOO", DirUndef, "FOO"},
		{"line", "line 10", DirLine, ""},
		{"error", "error message", DirError, ""},
		{"warning", "warning message", DirWarning, ""},
		{"pragma", "pragma once", DirPragma, ""},
		{"using", "using NAMESPACE", DirUsing, ""},
		{"unrecognized name", "bogus text", DirUnknown, "bogus"},
		{"gcc line marker", `1 "foo.h" 1`, DirLineMarker, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDirectiveFromTokens(line(t, tt.src), token.Position{})
			if err != nil {
				t.Fatalf("ParseDirectiveFromTokens(%q): unexpected error: %v", tt.src, err)
			}
			if d.Type != tt.wantKind {
				t.Errorf("ParseDirectiveFromTokens(%q).Type = %s, want %s", tt.src, d.Type, tt.wantKind)
			}
			if d.Name != tt.wantName {
				t.Errorf("ParseDirectiveFromTokens(%q).Name = %q, want %q", tt.src, d.Name, tt.wantName)
			}
		})
	}
}

func TestParseDirectiveEmptyIsNoOp(t *testing.T) {
	d, err := ParseDirectiveFromTokens(nil, token.Position{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Type != DirEmpty {
		t.Errorf("got %s, want DirEmpty", d.Type)
	}
}

func TestParseDirectiveNumericHeadIsLineMarker(t *testing.T) {
	d, err := ParseDirectiveFromTokens(line(t, "42"), token.Position{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Type != DirLineMarker {
		t.Errorf("got %s, want DirLineMarker for a bare numeric directive head", d.Type)
	}
}

func TestParseDirectiveNonIdentifierHeadIsError(t *testing.T) {
	_, err := ParseDirectiveFromTokens(line(t, `"quoted"`), token.Position{})
	if err == nil {
		t.Errorf("expected an error for a directive line not starting with an identifier or a numeric line marker")
	}
}
