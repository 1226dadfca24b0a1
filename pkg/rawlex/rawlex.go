// Package rawlex implements the Raw Tokenizer (spec §4.B): a pure
// function over a source.Reader that emits exactly one preprocessing
// token per call, with no macro or directive awareness. Grounded on
// original_source/src/System/lex_cpp.cpp's read_token/tokenize free
// functions for the precise C++ preprocessing-token grammar (number
// suffix rules, string-prefix detection, raw strings, punctuator table),
// restructured in the style of the teacher's pkg/cpp/lexer.go — a
// struct holding scan position plus small per-construct scanXxx
// methods — generalized from the teacher's simplified "preprocessing
// number" grammar to the full classified grammar spec.md requires
// (distinct decimal/octal/hex/binary/float kinds, precise integer
// suffix validation, raw and prefixed strings).
package rawlex

import (
	"strings"

	"github.com/fundies/JustDefineIt/pkg/diag"
	"github.com/fundies/JustDefineIt/pkg/source"
	"github.com/fundies/JustDefineIt/pkg/token"
)

// stringPrefixes lists the valid string/char literal prefixes (spec
// §4.B.3), mirroring original_source's parse_string_prefix: bare, u8,
// u8R, u, uR, U, UR, L, LR.
var stringPrefixes = []string{"u8R", "u8", "uR", "u", "UR", "U", "LR", "L", "R"}

// punctuators3 and punctuators2 are matched longest-first; anything left
// falls through to the single-character case in scanPunctuator.
var punctuators3 = []string{"<<=", ">>=", "...", "->*"}
var punctuators2 = []string{
	"::", "->", ".*", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=",
}

const singleCharPunctuators = "+-*/%=<>!&|^~.?:;,()[]{}"

// ReadToken produces exactly one preprocessing token from r, or a
// newline token, per the priority-ordered recognition rules in spec
// §4.B. It never crosses the end of r's source frame.
func ReadToken(r *source.Reader, sink *diag.Sink) token.Token {
	startLine, startCol, startOff := r.Line(), r.Column(), r.Tell()
	pos := func() token.Position {
		return token.Position{File: r.Filename(), Line: startLine, Column: startCol, Offset: startOff}
	}

	if r.Eof() {
		return token.EOF(pos())
	}

	// Rule 1: whitespace and newlines.
	switch r.At() {
	case ' ', '\t':
		r.SkipWhitespace()
		return ReadToken(r, sink)
	case '\n', '\r':
		begin := r.Tell()
		r.TakeNewline()
		return token.Token{Kind: token.Newline, Pos: pos(), Lexeme: string(r.Slice(begin))}
	}

	// Rule 2: comments, or '/'/'/='.
	if r.At() == '/' {
		switch r.PeekNext() {
		case '/':
			skipLineComment(r)
			return ReadToken(r, sink)
		case '*':
			skipBlockComment(r, sink, pos())
			return ReadToken(r, sink)
		case '=':
			r.Advance()
			r.Advance()
			return token.New(token.Punctuator, pos(), "/=")
		default:
			r.Advance()
			return token.New(token.Punctuator, pos(), "/")
		}
	}

	// Rule 3: identifier, or a short run that is actually a string prefix.
	if isIdentStart(r.At()) {
		return scanIdentifierOrPrefixedLiteral(r, sink, pos())
	}

	// A bare quote (no identifier prefix) is an unprefixed literal.
	if r.At() == '"' {
		return scanString(r, sink, pos(), "")
	}
	if r.At() == '\'' {
		return scanChar(r, sink, pos(), "")
	}

	// Rule 4: numbers.
	if isDigit(r.At()) || (r.At() == '.' && isDigit(r.PeekNext())) {
		return scanNumber(r, sink, pos())
	}

	// Rule 6: '#' / '##' (preprocessing-only, not table punctuators).
	if r.At() == '#' {
		r.Advance()
		if r.At() == '#' {
			r.Advance()
			return token.Token{Kind: token.HashHash, Pos: pos(), Lexeme: "##"}
		}
		return token.Token{Kind: token.Hash, Pos: pos(), Lexeme: "#"}
	}

	if tok, ok := scanPunctuator(r, pos()); ok {
		return tok
	}

	// Rule 8: anything else.
	bad := r.Next()
	sink.Error(pos(), "unrecognized character %q", bad)
	return token.Token{Kind: token.Invalid, Pos: pos(), Lexeme: string(bad)}
}

// Tokenize runs ReadToken to exhaustion over a fresh Reader for content,
// with no macro or directive interpretation — the pure function named
// by spec §8's testable property "tokenize(str) is a pure function of
// str". Used both as a public utility and internally by the macro table
// to tokenize -D values and the result of a "##" paste; the director
// reads directive lines with ReadToken instead.
func Tokenize(filename, content string, sink *diag.Sink) []token.Token {
	r := source.FromString(filename, content, true)
	defer r.Close()

	var out []token.Token
	for {
		tok := ReadToken(r, sink)
		out = append(out, tok)
		if tok.Kind == token.EndOfCode {
			return out
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }

func skipLineComment(r *source.Reader) {
	r.Advance()
	r.Advance()
	for !r.Eof() && r.At() != '\n' && r.At() != '\r' {
		r.Advance()
	}
}

func skipBlockComment(r *source.Reader, sink *diag.Sink, start token.Position) {
	r.Advance()
	r.Advance()
	for {
		if r.Eof() {
			sink.Error(start, "unterminated block comment")
			return
		}
		if r.At() == '*' && r.PeekNext() == '/' {
			r.Advance()
			r.Advance()
			return
		}
		r.Advance()
	}
}

// scanIdentifierOrPrefixedLiteral implements spec rule 3: a run of
// identifier characters of length <= 2 immediately followed by a quote
// is first tested against the string-prefix table; on a match the full
// literal is returned, on a mismatch the run is an ordinary identifier
// and the quote is left for the next call.
func scanIdentifierOrPrefixedLiteral(r *source.Reader, sink *diag.Sink, pos token.Position) token.Token {
	start := r.Tell()
	for isIdentCont(r.At()) {
		r.Advance()
	}
	run := string(r.Slice(start))

	if len(run) <= 2 && (r.At() == '\'' || r.At() == '"') {
		for _, prefix := range stringPrefixes {
			if run == prefix {
				if r.At() == '"' {
					return scanString(r, sink, pos, prefix)
				}
				return scanChar(r, sink, pos, prefix)
			}
		}
	}

	return token.Token{Kind: token.Identifier, Pos: pos, Lexeme: run}
}

func scanString(r *source.Reader, sink *diag.Sink, pos token.Position, prefix string) token.Token {
	if strings.HasSuffix(prefix, "R") {
		return scanRawString(r, sink, pos, prefix)
	}
	start := r.Tell() - len(prefix)
	r.Advance() // opening quote
	for {
		if r.Eof() {
			sink.Error(pos, "unterminated string literal")
			break
		}
		switch r.At() {
		case '"':
			r.Advance()
			return token.Token{Kind: token.String, Pos: pos, Lexeme: string(r.Slice(start))}
		case '\\':
			r.Advance()
			r.Advance()
		case '\n':
			sink.Error(pos, "unterminated string literal")
			return token.Token{Kind: token.String, Pos: pos, Lexeme: string(r.Slice(start))}
		default:
			r.Advance()
		}
	}
	return token.Token{Kind: token.String, Pos: pos, Lexeme: string(r.Slice(start))}
}

func scanChar(r *source.Reader, sink *diag.Sink, pos token.Position, prefix string) token.Token {
	if strings.HasSuffix(prefix, "R") {
		// A raw char-literal prefix ('uR' etc. before a single quote) is
		// not meaningful in C++; fall back to ordinary char scanning.
	}
	start := r.Tell() - len(prefix)
	r.Advance() // opening quote
	contentStart := r.Tell()
	for {
		if r.Eof() || r.At() == '\n' {
			sink.Error(pos, "unterminated character literal")
			break
		}
		if r.At() == '\'' {
			break
		}
		if r.At() == '\\' {
			r.Advance()
			if !r.Eof() {
				r.Advance()
			}
			continue
		}
		r.Advance()
	}
	empty := r.Tell() == contentStart
	if r.At() == '\'' {
		r.Advance()
	}
	if empty {
		sink.Error(pos, "empty character literal")
	}
	return token.Token{Kind: token.Char, Pos: pos, Lexeme: string(r.Slice(start))}
}

// scanRawString implements R"delim(...)delim" per spec §4.B.5. After the
// prefix and opening quote, a delimiter up to '(' is read; the literal
// then runs until the matching ")delim\"". A delimiter containing a
// backslash, space, or quote emits one warning, matching
// original_source's skip_rstring.
func scanRawString(r *source.Reader, sink *diag.Sink, pos token.Position, prefix string) token.Token {
	start := r.Tell() - len(prefix)
	r.Advance() // opening quote

	delimStart := r.Tell()
	warnDelim := false
	for !r.Eof() && r.At() != '(' {
		switch r.At() {
		case '\\', ' ', '"':
			warnDelim = true
		}
		r.Advance()
	}
	delim := string(r.Slice(delimStart))
	if warnDelim {
		sink.Warning(pos, "raw string delimiter %q contains a backslash, space, or quote", delim)
	}
	if r.Eof() {
		sink.Error(pos, "unterminated raw string literal")
		return token.Token{Kind: token.String, Pos: pos, Lexeme: string(r.Slice(start))}
	}
	r.Advance() // '('

	closer := ")" + delim + "\""
	for {
		if r.Eof() {
			sink.Error(pos, "unterminated raw string literal")
			return token.Token{Kind: token.String, Pos: pos, Lexeme: string(r.Slice(start))}
		}
		if r.At() == ')' && matchesAhead(r, closer) {
			r.Skip(len(closer))
			return token.Token{Kind: token.String, Pos: pos, Lexeme: string(r.Slice(start))}
		}
		r.Advance()
	}
}

func matchesAhead(r *source.Reader, s string) bool {
	for i := 0; i < len(s); i++ {
		if r.AtOffset(r.Tell()+i) != s[i] {
			return false
		}
	}
	return true
}

// scanNumber implements spec rule 4's full grammar: hex (0x/0X), binary
// (0b/0B), octal (0 followed by octal digits, including the lone octal
// "0"), decimal with optional fraction/exponent, and a leading-dot
// float form, each optionally followed by a validated integer suffix.
func scanNumber(r *source.Reader, sink *diag.Sink, pos token.Position) token.Token {
	start := r.Tell()

	if r.At() == '0' && (r.PeekNext() == 'x' || r.PeekNext() == 'X') {
		r.Advance()
		r.Advance()
		for isHexDigit(r.At()) {
			r.Advance()
		}
		scanIntegerSuffix(r, sink, pos)
		return token.Token{Kind: token.IntHex, Pos: pos, Lexeme: string(r.Slice(start))}
	}
	if r.At() == '0' && (r.PeekNext() == 'b' || r.PeekNext() == 'B') {
		r.Advance()
		r.Advance()
		for r.At() == '0' || r.At() == '1' {
			r.Advance()
		}
		scanIntegerSuffix(r, sink, pos)
		return token.Token{Kind: token.IntBinary, Pos: pos, Lexeme: string(r.Slice(start))}
	}

	isFloat := false
	if r.At() == '.' {
		isFloat = true
		r.Advance()
		for isDigit(r.At()) {
			r.Advance()
		}
	} else {
		leadingZero := r.At() == '0'
		for isDigit(r.At()) {
			r.Advance()
		}
		if r.At() == '.' {
			isFloat = true
			r.Advance()
			for isDigit(r.At()) {
				r.Advance()
			}
		} else if leadingZero {
			// 0, 00, 017, ... : octal, per ISO (a lone "0" is octal).
			scanIntegerSuffix(r, sink, pos)
			return token.Token{Kind: token.IntOctal, Pos: pos, Lexeme: string(r.Slice(start))}
		}
	}

	if r.At() == 'e' || r.At() == 'E' {
		consumed := 1
		r.Advance()
		if r.At() == '+' || r.At() == '-' {
			consumed++
			r.Advance()
		}
		if isDigit(r.At()) {
			isFloat = true
			for isDigit(r.At()) {
				r.Advance()
			}
		} else {
			// Not a real exponent (e.g. a trailing bare 'e'): put the
			// marker and sign back, they aren't part of this number.
			r.Backtrack(consumed)
		}
	}

	if isFloat {
		if r.At() == 'f' || r.At() == 'F' || r.At() == 'l' || r.At() == 'L' {
			r.Advance()
		}
		return token.Token{Kind: token.Float, Pos: pos, Lexeme: string(r.Slice(start))}
	}

	scanIntegerSuffix(r, sink, pos)
	return token.Token{Kind: token.IntDecimal, Pos: pos, Lexeme: string(r.Slice(start))}
}

// scanIntegerSuffix validates the precise grammar from spec §4.B.4:
// u|U optionally followed by l|L|ll|LL, or l|L|ll|LL optionally followed
// by u|U; mixed "lL"/"Ll" is rejected. Grounded on
// original_source/.../lex_cpp.cpp's skip_integer_suffix.
func scanIntegerSuffix(r *source.Reader, sink *diag.Sink, pos token.Position) {
	switch {
	case r.At() == 'u' || r.At() == 'U':
		r.Advance()
		scanLongSuffix(r, sink, pos)
	case r.At() == 'l' || r.At() == 'L':
		scanLongSuffix(r, sink, pos)
		if r.At() == 'u' || r.At() == 'U' {
			r.Advance()
		}
	}
}

func scanLongSuffix(r *source.Reader, sink *diag.Sink, pos token.Position) {
	if r.At() != 'l' && r.At() != 'L' {
		return
	}
	first := r.Next()
	if r.At() == 'l' || r.At() == 'L' {
		second := r.At()
		if (first == 'l' && second == 'L') || (first == 'L' && second == 'l') {
			sink.Error(pos, "invalid integer suffix: mixed case \"ll\"")
		}
		r.Advance()
	}
}

func scanPunctuator(r *source.Reader, pos token.Position) (token.Token, bool) {
	for _, p := range punctuators3 {
		if matchesAhead(r, p) {
			r.Skip(len(p))
			return token.New(token.Punctuator, pos, p), true
		}
	}
	for _, p := range punctuators2 {
		if matchesAhead(r, p) {
			r.Skip(len(p))
			return token.New(token.Punctuator, pos, p), true
		}
	}
	if strings.IndexByte(singleCharPunctuators, r.At()) >= 0 {
		b := r.Next()
		return token.New(token.Punctuator, pos, string(b)), true
	}
	return token.Token{}, false
}
