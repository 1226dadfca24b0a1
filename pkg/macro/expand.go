package macro

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/rawlex"
	"github.com/fundies/JustDefineIt/pkg/token"
)

// HideSet is the "blue paint" recursion guard threaded through one
// expansion call: the set of macro names currently being substituted,
// so a macro can never re-trigger its own expansion (spec §3, §4.C).
// Keyed by xxhash.Sum64String of the macro name rather than the name
// itself: this set is re-copied on every nested expansion
// (HideSet.with), and a name can recur dozens of times across a deeply
// nested expansion of a large macro forest, so a cheap fixed-width key
// beats rehashing a variable-length string on every membership test.
// Ownership of the long-lived Entered-Macro Set lives in the Lexer
// Façade (pkg/pplexer), not here; Expand only merges into a copy of
// whatever HideSet its caller passes down.
type HideSet map[uint64]bool

// HashName computes the HideSet key for a macro name, exported so
// pkg/pplexer can maintain its own Entered-Macro Set using the same key
// space (e.g. to remove an entry once a Buffer Frame is drained).
func HashName(name string) uint64 { return xxhash.Sum64String(name) }

func (h HideSet) has(name string) bool { return h[HashName(name)] }

func (h HideSet) with(name string) HideSet {
	out := make(HideSet, len(h)+1)
	for k := range h {
		out[k] = true
	}
	out[HashName(name)] = true
	return out
}

// fetcher supplies tokens one at a time beyond the end of a caller-
// provided slice, for function-like macro invocations whose argument
// list is not fully contained in the tokens Expand was first given
// (e.g. the call spans past the end of the current line). A nil
// fetcher means "no more tokens available"; Expand then treats an
// unmatched macro name as a plain identifier, per the ISO rule that an
// unterminated function-like invocation is not replaced.
type fetcher func() (token.Token, bool)

type cursor struct {
	tokens []token.Token
	pos    int
	more   fetcher
}

func (c *cursor) peek() (token.Token, bool) {
	if c.pos < len(c.tokens) {
		return c.tokens[c.pos], true
	}
	if c.more != nil {
		if tk, ok := c.more(); ok {
			c.tokens = append(c.tokens, tk)
			return tk, true
		}
	}
	return token.Token{}, false
}

func (c *cursor) next() (token.Token, bool) {
	tk, ok := c.peek()
	if ok {
		c.pos++
	}
	return tk, ok
}

// Expand runs the rescan-and-replace algorithm over tokens, substituting
// every macro invocation not already in hideset. more is consulted only
// when a function-like macro name's matching "(...)" is not fully
// present in tokens; pass nil when the caller has no further tokens to
// offer (e.g. expanding an already-closed argument or replacement list).
func (t *Table) Expand(tokens []token.Token, hideset HideSet, sink *diag.Sink, more fetcher) ([]token.Token, error) {
	c := &cursor{tokens: tokens, more: more}
	var out []token.Token

	// Only tokens already held by the cursor are scanned; more is reached
	// solely through peek/parseArguments while looking for a call's "(...)".
	for c.pos < len(c.tokens) {
		tk, _ := c.next()
		if tk.Kind != token.Identifier || hideset.has(tk.Lexeme) {
			out = append(out, tk)
			continue
		}
		mac := t.Lookup(tk.Lexeme)
		if mac == nil {
			out = append(out, tk)
			continue
		}

		switch mac.Kind {
		case KindBuiltin:
			out = append(out, mac.BuiltinFunc(tk.Pos)...)

		case KindObject:
			body, err := t.substitute(mac, nil, hideset, sink)
			if err != nil {
				return nil, err
			}
			rescanned, err := t.Expand(body, hideset.with(mac.Name), sink, more)
			if err != nil {
				return nil, err
			}
			out = append(out, rescanned...)

		case KindFunction:
			next, has := c.peek()
			if !has || next.Kind != token.Punctuator || next.Lexeme != "(" {
				// Not followed by a call: the name is an ordinary
				// identifier, per ISO 6.10.3.
				out = append(out, tk)
				continue
			}
			c.next() // consume '('
			args, err := parseArguments(c)
			if err != nil {
				return nil, err
			}
			if err := validateArgCount(mac, args); err != nil {
				sink.Error(tk.Pos, "%s", err.Error())
				out = append(out, tk)
				continue
			}
			body, err := t.substitute(mac, args, hideset, sink)
			if err != nil {
				return nil, err
			}
			rescanned, err := t.Expand(body, hideset.with(mac.Name), sink, more)
			if err != nil {
				return nil, err
			}
			out = append(out, rescanned...)
		}
	}
	return out, nil
}

// parseArguments reads a function-like macro call's actual arguments
// starting just after the opening '(' (already consumed by the caller),
// splitting on top-level commas and tracking paren depth so an argument
// may itself contain commas inside nested parens. Grounded on
// pkg/cpp/expand.go's parseArguments.
func parseArguments(c *cursor) ([][]token.Token, error) {
	var args [][]token.Token
	var cur []token.Token
	depth := 0

	for {
		tk, ok := c.next()
		if !ok {
			return nil, fmt.Errorf("unterminated macro argument list")
		}
		if tk.Kind == token.Punctuator {
			switch tk.Lexeme {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					args = append(args, cur)
					return args, nil
				}
				depth--
			case ",":
				if depth == 0 {
					args = append(args, cur)
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, tk)
	}
}

// validateArgCount enforces fixed-arity macros get exactly len(Params)
// arguments and variadic macros get at least len(Params), with the
// single exception of a macro with zero formal parameters called with
// one empty argument list (the common "()" invocation of a zero-arg
// macro), mirroring pkg/cpp/expand.go's validateArgCount.
func validateArgCount(mac *Macro, args [][]token.Token) error {
	if len(mac.Params) == 0 && !mac.IsVariadic {
		if len(args) == 1 && len(args[0]) == 0 {
			return nil
		}
		if len(args) != 0 {
			return fmt.Errorf("macro %q passed %d arguments, expected none", mac.Name, len(args))
		}
		return nil
	}
	if mac.IsVariadic {
		if len(args) < len(mac.Params) {
			return fmt.Errorf("macro %q requires at least %d arguments", mac.Name, len(mac.Params))
		}
		return nil
	}
	if len(args) != len(mac.Params) {
		return fmt.Errorf("macro %q passed %d arguments, expected %d", mac.Name, len(args), len(mac.Params))
	}
	return nil
}

// substitute builds a macro's replacement list with parameters bound to
// args, applying "#" stringize and "##" paste before any further
// rescanning. A parameter token is replaced by its fully macro-expanded
// actual (via Table.paramExpander) unless it is the operand of "#" or is
// adjacent to "##", in which case the raw, unexpanded actual is used —
// the standard rule, grounded on pkg/cpp/expand.go's expandFunctionMacro.
func (t *Table) substitute(mac *Macro, args [][]token.Token, hideset HideSet, sink *diag.Sink) ([]token.Token, error) {
	body := mac.Replacement
	var out []token.Token

	argFor := func(name string) ([]token.Token, bool) {
		idx := mac.ParamIndex(name)
		if idx < 0 {
			return nil, false
		}
		if mac.IsVariadic && idx == len(mac.Params) {
			var va []token.Token
			for i := len(mac.Params); i < len(args); i++ {
				if i > len(mac.Params) {
					va = append(va, token.Token{Kind: token.Punctuator, Lexeme: ","})
				}
				va = append(va, args[i]...)
			}
			return va, true
		}
		if idx >= len(args) {
			return nil, true
		}
		return args[idx], true
	}

	for i := 0; i < len(body); i++ {
		tok := body[i]

		if tok.Kind == token.Hash && mac.Kind == KindFunction {
			if i+1 < len(body) && body[i+1].Kind == token.Identifier {
				if raw, ok := argFor(body[i+1].Lexeme); ok {
					out = append(out, stringify(raw, tok.Pos))
					i++
					continue
				}
			}
			out = append(out, tok)
			continue
		}

		if tok.Kind == token.Identifier {
			raw, isParam := argFor(tok.Lexeme)
			if !isParam {
				out = append(out, tok)
				continue
			}
			adjacentPaste := (i+1 < len(body) && body[i+1].Kind == token.HashHash) ||
				(i > 0 && body[i-1].Kind == token.HashHash)
			if adjacentPaste || t.paramExpander == nil {
				out = append(out, raw...)
				continue
			}
			expanded, err := t.paramExpander(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}

		out = append(out, tok)
	}

	return applyPastes(out, sink)
}

// applyPastes resolves every "##" operator left in tokens after
// parameter substitution, concatenating the lexemes either side and
// re-tokenizing the result, per ISO 6.10.3.3. Grounded on
// pkg/cpp/expand.go's handleTokenPasting.
func applyPastes(tokens []token.Token, sink *diag.Sink) ([]token.Token, error) {
	var out []token.Token
	for i := 0; i < len(tokens); i++ {
		if tokens[i].Kind == token.HashHash {
			if len(out) == 0 {
				return nil, fmt.Errorf("'##' cannot appear at the start of a macro expansion")
			}
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("'##' cannot appear at the end of a macro expansion")
			}
			lhs := out[len(out)-1]
			rhs := tokens[i+1]
			pasted, err := paste(lhs, rhs, sink)
			if err != nil {
				return nil, err
			}
			out[len(out)-1] = pasted
			i++
			continue
		}
		out = append(out, tokens[i])
	}
	return out, nil
}

func paste(lhs, rhs token.Token, sink *diag.Sink) (token.Token, error) {
	combined := lhs.Lexeme + rhs.Lexeme
	toks := rawlex.Tokenize(lhs.Pos.File, combined, sink)
	var real []token.Token
	for _, tk := range toks {
		if tk.Kind == token.EndOfCode {
			continue
		}
		real = append(real, tk)
	}
	if len(real) != 1 {
		return token.Token{}, fmt.Errorf("pasting %q and %q does not form a valid preprocessing token", lhs.Lexeme, rhs.Lexeme)
	}
	result := real[0]
	result.Pos = lhs.Pos
	return result, nil
}

// stringify implements the "#" operator: render an argument's original
// spelling as a single string literal, collapsing internal whitespace
// runs to one space and escaping '\\' and '"' inside any string or
// character literal tokens, per ISO 6.10.3.2. Grounded on
// pkg/cpp/expand.go's stringify.
func stringify(tokens []token.Token, pos token.Position) token.Token {
	var b strings.Builder
	b.WriteByte('"')
	for i, tk := range tokens {
		if i > 0 {
			prev := tokens[i-1]
			if tk.Pos.File != prev.Pos.File || tk.Pos.Offset != prev.Pos.Offset+len(prev.Lexeme) {
				b.WriteByte(' ')
			}
		}
		if tk.Kind == token.String || tk.Kind == token.Char {
			for _, r := range tk.Lexeme {
				if r == '\\' || r == '"' {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
		} else {
			b.WriteString(tk.Lexeme)
		}
	}
	b.WriteByte('"')
	return token.Token{Kind: token.String, Pos: pos, Lexeme: b.String()}
}
