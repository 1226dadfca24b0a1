package constexpr

import (
	"testing"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/rawlex"
	"github.com/fundies/JustDefineIt/pkg/token"
)

func toks(t *testing.T, src string) []token.Token {
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

func TestEvalArithmeticPrecedence(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"addition", "1 + 1", true},
		{"mult before add", "2 + 3 * 2 == 8", true},
		{"parens override", "(2 + 3) * 2 == 10", true},
		{"zero is false", "0", false},
		{"logical and short circuits", "0 && (1 / 0)", false},
		{"logical or short circuits", "1 || (1 / 0)", true},
		{"bitwise or", "1 | 2", true},
		{"bitwise and", "3 & 1", true},
		{"shift left", "1 << 4 == 16", true},
		{"shift right", "16 >> 4 == 1", true},
		{"ternary true branch", "1 ? 5 : 0", true},
		{"ternary false branch", "0 ? 5 : 0", false},
		{"unary not", "!0", true},
		{"unary minus", "-1 < 0", true},
		{"relational chain", "1 < 2 && 2 < 3", true},
		{"hex literal", "0x10 == 16", true},
		{"octal literal", "010 == 8", true},
		{"binary literal", "0b101 == 5", true},
		{"undefined identifier is zero", "UNDEFINED_NAME == 0", true},
		{"char literal value", "'A' == 65", true},
		{"char literal escape", "'\\n' == 10", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(toks(t, tt.src))
			if err != nil {
				t.Fatalf("Eval(%q): unexpected error: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalDivisionByZeroIsError(t *testing.T) {
	_, err := Eval(toks(t, "1 / 0"))
	if err == nil {
		t.Errorf("expected an error for division by zero")
	}
}

func TestEvalModuloByZeroIsError(t *testing.T) {
	_, err := Eval(toks(t, "1 % 0"))
	if err == nil {
		t.Errorf("expected an error for modulo by zero")
	}
}

func TestEvalEmptyExpressionIsError(t *testing.T) {
	_, err := Eval(nil)
	if err == nil {
		t.Errorf("expected an error for an empty #if expression")
	}
}

func TestEvalMalformedExpressionIsError(t *testing.T) {
	_, err := Eval(toks(t, "1 +"))
	if err == nil {
		t.Errorf("expected an error for a malformed expression")
	}
}

func TestEvalUnterminatedParenIsError(t *testing.T) {
	_, err := Eval(toks(t, "(1 + 2"))
	if err == nil {
		t.Errorf("expected an error for an unterminated parenthesis")
	}
}
