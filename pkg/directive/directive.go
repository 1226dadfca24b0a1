// Package directive implements the Preprocessor Director (spec §4.D):
// directive recognition and dispatch, the conditional-compilation stack,
// and include resolution including cycle/depth guards and #pragma once.
// Grounded on the teacher's pkg/cpp/preprocess.go's processDirective
// dispatch (which references a ParseDirectiveFromTokens/Directive pair
// never defined anywhere in the retrieved pack — confirmed absent by
// grep — so the Directive type and its Kind enum are authored here from
// the call site's switch over DIR_IF/DIR_IFDEF/.../DIR_PRAGMA/DIR_EMPTY,
// extended with the include_next/import/using/elifdef/elifndef
// directives spec §4.D names that the teacher's switch never handled).
package directive

import (
	"fmt"

	"github.com/fundies/JustDefineIt/pkg/token"
)

// Kind identifies which directive a line spells.
type Kind int

const (
	DirUnknown Kind = iota
	DirEmpty        // a bare "#" with nothing else on the line: a no-op
	DirIf
	DirIfdef
	DirIfndef
	DirElif
	DirElifdef
	DirElifndef
	DirElse
	DirEndif
	DirInclude
	DirIncludeNext
	DirImport
	DirDefine
	DirUndef
	DirLine
	DirError
	DirWarning
	DirPragma
	DirUsing
	DirLineMarker // a GCC-style numeric line marker ("# 1 \"foo.h\" 1"): accepted, ignored
)

func (k Kind) String() string {
	switch k {
	case DirEmpty:
		return "(empty)"
	case DirIf:
		return "if"
	case DirIfdef:
		return "ifdef"
	case DirIfndef:
		return "ifndef"
	case DirElif:
		return "elif"
	case DirElifdef:
		return "elifdef"
	case DirElifndef:
		return "elifndef"
	case DirElse:
		return "else"
	case DirEndif:
		return "endif"
	case DirInclude:
		return "include"
	case DirIncludeNext:
		return "include_next"
	case DirImport:
		return "import"
	case DirDefine:
		return "define"
	case DirUndef:
		return "undef"
	case DirLine:
		return "line"
	case DirError:
		return "error"
	case DirWarning:
		return "warning"
	case DirPragma:
		return "pragma"
	case DirUsing:
		return "using"
	case DirLineMarker:
		return "line-marker"
	default:
		return "unknown"
	}
}

var directiveNames = map[string]Kind{
	"if":           DirIf,
	"ifdef":        DirIfdef,
	"ifndef":       DirIfndef,
	"elif":         DirElif,
	"elifdef":      DirElifdef,
	"elifndef":     DirElifndef,
	"else":         DirElse,
	"endif":        DirEndif,
	"include":      DirInclude,
	"include_next": DirIncludeNext,
	"import":       DirImport,
	"define":       DirDefine,
	"undef":        DirUndef,
	"line":         DirLine,
	"error":        DirError,
	"warning":      DirWarning,
	"pragma":       DirPragma,
	"using":        DirUsing,
}

// Directive is one parsed "#..." line: the recognized Kind plus
// whatever tokens followed the directive name, available to the
// caller for directive-specific parsing (macro name and replacement
// list for DirDefine, header-name tokens for DirInclude, the raw
// message tokens for DirError/DirWarning, and so on).
type Directive struct {
	Type Kind
	Name string // macro name for DirDefine/DirUndef, the unrecognized directive name for DirUnknown, empty otherwise
	Args []token.Token
	Pos  token.Position
}

// ParseDirectiveFromTokens classifies a directive line given the tokens
// that followed the leading "#" (itself already consumed by the
// caller), with newline/EOF tokens already stripped. An empty slice is
// a lone "#", a harmless no-op per ISO 6.10p7.
func ParseDirectiveFromTokens(tokens []token.Token, pos token.Position) (*Directive, error) {
	if len(tokens) == 0 {
		return &Directive{Type: DirEmpty, Pos: pos}, nil
	}
	head := tokens[0]
	if isNumericLiteral(head.Kind) {
		// GCC-style line marker ("# 1 \"foo.h\" 1"): a numeric directive
		// "name" is never a valid ISO directive, but SPEC_FULL.md §4.D
		// requires this form be accepted and ignored rather than reported
		// as an unknown directive.
		return &Directive{Type: DirLineMarker, Args: tokens, Pos: pos}, nil
	}
	if head.Kind != token.Identifier {
		return nil, fmt.Errorf("invalid preprocessing directive: expected a directive name, found %q", head.Lexeme)
	}
	kind, ok := directiveNames[head.Lexeme]
	if !ok {
		return &Directive{Type: DirUnknown, Name: head.Lexeme, Args: tokens[1:], Pos: pos}, nil
	}

	d := &Directive{Type: kind, Args: tokens[1:], Pos: pos}
	if (kind == DirDefine || kind == DirUndef) && len(d.Args) > 0 && d.Args[0].Kind == token.Identifier {
		d.Name = d.Args[0].Lexeme
	}
	return d, nil
}

// isNumericLiteral reports whether k is any of the raw tokenizer's
// numeric-literal kinds, matched against a directive's head token to
// recognize a GCC-style line marker.
func isNumericLiteral(k token.Kind) bool {
	switch k {
	case token.IntDecimal, token.IntOctal, token.IntHex, token.IntBinary, token.Float:
		return true
	default:
		return false
	}
}
