package pplexer

import (
	"github.com/fundies/JustDefineIt/pkg/constexpr"
	"github.com/fundies/JustDefineIt/pkg/directive"
	"github.com/fundies/JustDefineIt/pkg/macro"
	"github.com/fundies/JustDefineIt/pkg/rawlex"
	"github.com/fundies/JustDefineIt/pkg/source"
	"github.com/fundies/JustDefineIt/pkg/token"
)

// processDirectiveLine reads the rest of a "#..." line directly from
// frame's reader (bypassing the buffer/lookahead layers — directives
// are always a source-level construct, never produced by macro
// expansion) and dispatches it, mirroring the switch in the teacher's
// pkg/cpp/preprocess.go's processDirective but extended with
// include_next/import/using and renamed to the Director's own
// vocabulary.
func (lx *Lexer) processDirectiveLine(frame *sourceFrame) {
	pos := token.Position{File: frame.reader.Filename(), Line: frame.reader.Line(), Column: frame.reader.Column(), Offset: frame.reader.Tell()}

	var lineTokens []token.Token
	for {
		t := rawlex.ReadToken(frame.reader, lx.Diag)
		if t.Kind == token.Newline || t.Kind == token.EndOfCode {
			frame.atLineStart = true
			break
		}
		lineTokens = append(lineTokens, t)
	}

	d, err := directive.ParseDirectiveFromTokens(lineTokens, pos)
	if err != nil {
		lx.Diag.Error(pos, "%s", err.Error())
		return
	}

	switch d.Type {
	case directive.DirEmpty, directive.DirUnknown, directive.DirUsing, directive.DirLineMarker:
		// A bare "#" is a no-op; an unrecognized directive name is
		// reported but does not stop preprocessing; the MSVC-only #using
		// and a GCC-style numeric line marker are accepted and silently
		// ignored.
		if d.Type == directive.DirUnknown {
			lx.Diag.Error(pos, "invalid preprocessing directive #%s", d.Name)
		}

	case directive.DirIf:
		if lx.Cond.IsActive() {
			lx.Cond.PushIf(lx.evalIfCondition(d.Args, pos))
		} else {
			lx.Cond.PushIf(false)
		}

	case directive.DirIfdef:
		if lx.Cond.IsActive() {
			lx.Cond.PushIf(len(d.Args) > 0 && lx.Macros.IsDefined(d.Args[0].Lexeme))
		} else {
			lx.Cond.PushIf(false)
		}

	case directive.DirIfndef:
		if lx.Cond.IsActive() {
			lx.Cond.PushIf(len(d.Args) == 0 || !lx.Macros.IsDefined(d.Args[0].Lexeme))
		} else {
			lx.Cond.PushIf(false)
		}

	case directive.DirElif:
		cond := false
		if lx.Cond.Depth() > 0 {
			cond = lx.evalIfCondition(d.Args, pos)
		}
		if err := lx.Cond.Elif(cond, pos, lx.Diag); err != nil {
			lx.Diag.Error(pos, "%s", err.Error())
		}

	case directive.DirElifdef:
		cond := len(d.Args) > 0 && lx.Macros.IsDefined(d.Args[0].Lexeme)
		if err := lx.Cond.Elif(cond, pos, lx.Diag); err != nil {
			lx.Diag.Error(pos, "%s", err.Error())
		}

	case directive.DirElifndef:
		cond := len(d.Args) == 0 || !lx.Macros.IsDefined(d.Args[0].Lexeme)
		if err := lx.Cond.Elif(cond, pos, lx.Diag); err != nil {
			lx.Diag.Error(pos, "%s", err.Error())
		}

	case directive.DirElse:
		if err := lx.Cond.Else(pos, lx.Diag); err != nil {
			lx.Diag.Error(pos, "%s", err.Error())
		}

	case directive.DirEndif:
		if err := lx.Cond.Endif(pos); err != nil {
			lx.Diag.Error(pos, "%s", err.Error())
		}

	case directive.DirInclude, directive.DirIncludeNext, directive.DirImport:
		if lx.Cond.IsActive() {
			lx.processInclude(d, pos)
		}

	case directive.DirDefine:
		if lx.Cond.IsActive() {
			mac, err := macro.ParseMacroDefinition(d.Args)
			if err != nil {
				lx.Diag.Error(pos, "%s", err.Error())
				return
			}
			mac.DefinedAt = pos
			lx.Macros.Insert(mac)
		}

	case directive.DirUndef:
		if lx.Cond.IsActive() && d.Name != "" {
			lx.Macros.Erase(d.Name)
		}

	case directive.DirLine:
		// #line's numeric remap of reported line/file is not observable
		// through token.Position's offset-derived line tracking in this
		// implementation; the directive is recognized (so its presence
		// never trips an "unknown directive" diagnostic) but otherwise a
		// no-op.

	case directive.DirError:
		if lx.Cond.IsActive() {
			lx.Diag.Error(pos, "#error %s", token.Lexemes(d.Args))
		}

	case directive.DirWarning:
		if lx.Cond.IsActive() {
			lx.Diag.Warning(pos, "#warning %s", token.Lexemes(d.Args))
		}

	case directive.DirPragma:
		if lx.Cond.IsActive() {
			lx.processPragma(d, frame, pos)
		}
	}
}

// processPragma handles "#pragma once" (the one pragma spec §3/§9
// specially recognizes); any other pragma is accepted and ignored,
// matching pkg/cpp/preprocess.go's processPragma.
func (lx *Lexer) processPragma(d *directive.Directive, frame *sourceFrame, pos token.Position) {
	if len(d.Args) > 0 && d.Args[0].Kind == token.Identifier && d.Args[0].Lexeme == "once" {
		lx.Resolver.MarkPragmaOnce(absPath(frame.reader.Filename()))
	}
}

// processInclude resolves and opens the file named by a #include,
// #include_next, or #import directive, pushing a new Open Source Frame.
// #import is treated as #include plus an implicit #pragma once, matching
// its traditional semantics.
func (lx *Lexer) processInclude(d *directive.Directive, pos token.Position) {
	name, angled, err := directive.ParseHeaderName(d.Args)
	if err != nil {
		lx.Diag.Error(pos, "%s", err.Error())
		return
	}

	var path string
	var idx int
	if d.Type == directive.DirIncludeNext {
		path, idx, err = lx.Resolver.ResolveNext(name)
	} else {
		path, idx, err = lx.Resolver.Resolve(name, angled)
	}
	if err != nil {
		lx.Diag.Error(pos, "%s: %s", name, err.Error())
		return
	}

	abs := absPath(path)
	if lx.Resolver.IsPragmaOnce(abs) {
		return
	}
	if err := lx.Resolver.PushFile(abs, idx); err != nil {
		lx.Diag.Error(pos, "%s", err.Error())
		return
	}

	reader, ok := source.Open(path)
	if !ok {
		lx.Diag.Error(pos, "cannot open %q", path)
		lx.Resolver.PopFile()
		return
	}
	lx.sourceStack = append(lx.sourceStack, &sourceFrame{reader: reader, atLineStart: true, isInclude: true})

	if d.Type == directive.DirImport {
		lx.Resolver.MarkPragmaOnce(abs)
	}
}

// evalIfCondition resolves "defined"/"defined(...)" operators, macro-
// expands what remains under the façade's normal rules, and evaluates
// the result as a constant expression, per spec §4.C/§4.D. Grounded on
// pkg/cpp/conditional.go's evaluateCondition/evaluateExpr split.
func (lx *Lexer) evalIfCondition(tokens []token.Token, pos token.Position) bool {
	resolved := resolveDefined(tokens, lx.Macros)
	expanded, err := lx.Macros.Expand(resolved, lx.hideSet(), lx.Diag, nil)
	if err != nil {
		lx.Diag.Error(pos, "%s", err.Error())
		return false
	}
	ok, err := constexpr.Eval(expanded)
	if err != nil {
		lx.Diag.Error(pos, "%s", err.Error())
		return false
	}
	return ok
}

// resolveDefined replaces every "defined NAME" or "defined(NAME)" in
// tokens with a literal "1"/"0", before the remaining tokens are
// macro-expanded — "defined" must see the macro table's current state
// directly, never through expansion, per ISO 16.1p1.
func resolveDefined(tokens []token.Token, macros *macro.Table) []token.Token {
	var out []token.Token
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind != token.Identifier || t.Lexeme != "defined" {
			out = append(out, t)
			continue
		}
		var name string
		if i+1 < len(tokens) && tokens[i+1].Kind == token.Punctuator && tokens[i+1].Lexeme == "(" &&
			i+2 < len(tokens) && tokens[i+2].Kind == token.Identifier &&
			i+3 < len(tokens) && tokens[i+3].Kind == token.Punctuator && tokens[i+3].Lexeme == ")" {
			name = tokens[i+2].Lexeme
			i += 3
		} else if i+1 < len(tokens) && tokens[i+1].Kind == token.Identifier {
			name = tokens[i+1].Lexeme
			i++
		} else {
			out = append(out, t)
			continue
		}
		val := "0"
		if macros.IsDefined(name) {
			val = "1"
		}
		out = append(out, token.Token{Kind: token.IntDecimal, Pos: t.Pos, Lexeme: val})
	}
	return out
}
