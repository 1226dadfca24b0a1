// Package token defines the preprocessing-token model shared by every
// stage of the lexer core: the raw tokenizer, the macro substitution
// engine, the preprocessor director, and the lexer façade.
package token

import "fmt"

// Kind identifies the category of a Token. Kinds are partitioned into
// punctuators, literals, identifier, preprocessing-only tokens, keyword
// kinds (produced only after identifier resolution), declarator/decflag
// kinds (produced only after built-in declarator resolution),
// end-of-code, and invalid.
type Kind int

const (
	Invalid Kind = iota
	EndOfCode

	// Preprocessing-only tokens.
	Newline
	Hash     // '#': a directive introducer, or the stringize operator in a replacement list
	HashHash // '##'

	Identifier

	// Literals.
	IntDecimal
	IntOctal
	IntHex
	IntBinary
	Float
	Char
	String

	// Punctuators. A single kind covers the whole operator/bracket table;
	// the lexeme disambiguates ("+", "+=", "::", "...", ".*", "->", ...).
	Punctuator

	// Produced only after identifier resolution by the lexer façade.
	Keyword
	// Produced only after built-in declarator resolution.
	Declarator
	DeclFlag
	// Names an existing, non-type definition. No code in this module
	// produces it: GetTokenInScope performs no scope lookup.
	Definition
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "Invalid"
	case EndOfCode:
		return "EndOfCode"
	case Newline:
		return "Newline"
	case Hash:
		return "Hash"
	case HashHash:
		return "HashHash"
	case Identifier:
		return "Identifier"
	case IntDecimal:
		return "IntDecimal"
	case IntOctal:
		return "IntOctal"
	case IntHex:
		return "IntHex"
	case IntBinary:
		return "IntBinary"
	case Float:
		return "Float"
	case Char:
		return "Char"
	case String:
		return "String"
	case Punctuator:
		return "Punctuator"
	case Keyword:
		return "Keyword"
	case Declarator:
		return "Declarator"
	case DeclFlag:
		return "DeclFlag"
	case Definition:
		return "Definition"
	default:
		return "Unknown"
	}
}

// IsLiteral reports whether k is one of the literal kinds.
func (k Kind) IsLiteral() bool {
	switch k {
	case IntDecimal, IntOctal, IntHex, IntBinary, Float, Char, String:
		return true
	default:
		return false
	}
}

// Position is the tuple (filename, line, column, absolute offset) every
// emitted token carries. Line/column are 1-based; Offset is a 0-based
// byte offset into the source frame's buffer.
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Less reports whether p occurs strictly before q in the same file.
func (p Position) Less(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// ParamRef marks a token within a macro replacement list as a reference
// to the parameter at Index (or to __VA_ARGS__ when IsVariadic is true).
// No code in this module sets it: macro substitution finds parameters by
// name (Macro.ParamIndex), so Param is nil on every token.
type ParamRef struct {
	Index      int
	IsVariadic bool
}

// DeclaratorPayload carries the semantic payload attached to a Declarator
// or DeclFlag token by built-in declarator resolution.
type DeclaratorPayload struct {
	Name string
	Flag int
}

// Token is a tagged value: (kind, source position, lexeme, optional
// semantic payload). The payload fields are mutually exclusive and only
// populated for the token kinds that use them.
type Token struct {
	Kind    Kind
	Pos     Position
	Lexeme  string
	Param   *ParamRef
	Decl    *DeclaratorPayload
	MacroOf string // name of a producing macro; no code in this module sets it, so it is always ""
}

// New constructs a plain token with no semantic payload.
func New(kind Kind, pos Position, lexeme string) Token {
	return Token{Kind: kind, Pos: pos, Lexeme: lexeme}
}

// IsParam reports whether t carries a ParamRef.
func (t Token) IsParam() bool { return t.Param != nil }

// EOF returns a synthetic end-of-code token at pos.
func EOF(pos Position) Token { return Token{Kind: EndOfCode, Pos: pos} }

// Lexemes concatenates the lexemes of a token sequence with no separator;
// the director uses it for #error and #warning messages.
func Lexemes(tokens []Token) string {
	var out []byte
	for _, t := range tokens {
		out = append(out, t.Lexeme...)
	}
	return string(out)
}
