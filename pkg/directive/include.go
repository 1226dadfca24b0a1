package directive

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fundies/JustDefineIt/pkg/token"
)

// MaxIncludeDepth bounds #include nesting. The teacher's
// pkg/cpp/include.go hard-codes 200; spec §4.D/§5 requires headroom for
// deeply layered real-world header trees (up to 9000 levels), so this is
// raised rather than copied verbatim.
const MaxIncludeDepth = 9000

// openFile is one entry on the include stack: an Open Source Frame's
// resolved path plus which search-directory index resolved it, needed
// to implement #include_next (spec §3's "Open Source Frame" carries
// include_searchdir_index for exactly this reason).
type openFile struct {
	path            string
	searchDirIndex int // -1 for the quoted-form "current directory" hit
}

// IncludeResolver resolves #include/#include_next header names against
// quoted and angled search-path rules, tracks the include stack for
// cycle detection, and remembers #pragma once files. Grounded on
// pkg/cpp/include.go's IncludeResolver, with MaxIncludeDepth corrected
// to 9000 and include_next support added (absent from the teacher).
type IncludeResolver struct {
	UserPaths   []string
	SystemPaths []string

	stack       []openFile
	visitedOnce map[string]bool
}

// NewIncludeResolver builds an empty resolver; call AddUserPath/
// AddSystemPath to populate search directories before resolving.
func NewIncludeResolver() *IncludeResolver {
	return &IncludeResolver{visitedOnce: make(map[string]bool)}
}

func (r *IncludeResolver) AddUserPath(dir string)   { r.UserPaths = append(r.UserPaths, dir) }
func (r *IncludeResolver) AddSystemPath(dir string) { r.SystemPaths = append(r.SystemPaths, dir) }

// allDirs returns the combined, order-significant search path: quoted
// includes search UserPaths then SystemPaths (after the current
// directory, handled separately in Resolve); angled includes search the
// same combined list starting from the front.
func (r *IncludeResolver) allDirs() []string {
	out := make([]string, 0, len(r.UserPaths)+len(r.SystemPaths))
	out = append(out, r.UserPaths...)
	out = append(out, r.SystemPaths...)
	return out
}

// currentDir returns the directory of the file currently on top of the
// include stack, or "." at top level.
func (r *IncludeResolver) currentDir() string {
	if len(r.stack) == 0 {
		return "."
	}
	return filepath.Dir(r.stack[len(r.stack)-1].path)
}

// Resolve finds the file for a "#include" (angled or quoted) header
// name, returning its absolute path and the search-directory index that
// found it (or -1 for a quoted-form current-directory hit), matching
// pkg/cpp/include.go's Resolve precedence: quoted tries CurrentDir
// first, then UserPaths, then SystemPaths; angled skips CurrentDir.
func (r *IncludeResolver) Resolve(name string, angled bool) (path string, searchDirIndex int, err error) {
	if !angled {
		candidate := filepath.Join(r.currentDir(), name)
		if fileExists(candidate) {
			return candidate, -1, nil
		}
	}
	dirs := r.allDirs()
	for i, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, i, nil
		}
	}
	return "", 0, fmt.Errorf("%q: no such file or directory", name)
}

// ResolveNext implements #include_next (spec §4.D): resolution
// continues searching the combined directory list starting just after
// the index that resolved the currently-open file, skipping the
// directory (and everything before it) that produced the file doing the
// including. A file not itself found via a search-directory hit (e.g.
// the translation unit's own top-level source) has no meaningful
// "next" starting point, so ResolveNext falls back to searching the
// full list, matching the "acts like #include" fallback many
// implementations use outside a header context.
func (r *IncludeResolver) ResolveNext(name string) (path string, searchDirIndex int, err error) {
	start := 0
	if len(r.stack) > 0 {
		if idx := r.stack[len(r.stack)-1].searchDirIndex; idx >= 0 {
			start = idx + 1
		}
	}
	dirs := r.allDirs()
	for i := start; i < len(dirs); i++ {
		candidate := filepath.Join(dirs[i], name)
		if fileExists(candidate) {
			return candidate, i, nil
		}
	}
	return "", 0, fmt.Errorf("%q: no such file for #include_next", name)
}

// PushFile opens a new Open Source Frame for path, detecting cycles
// (path already on the stack) and depth overruns. absPath should be the
// resolved, absolute form of the file about to be read.
func (r *IncludeResolver) PushFile(absPath string, searchDirIndex int) error {
	for _, f := range r.stack {
		if f.path == absPath {
			return fmt.Errorf("circular #include of %q", absPath)
		}
	}
	if len(r.stack) >= MaxIncludeDepth {
		return fmt.Errorf("#include nested too deeply (limit %d)", MaxIncludeDepth)
	}
	r.stack = append(r.stack, openFile{path: absPath, searchDirIndex: searchDirIndex})
	return nil
}

// PopFile closes the current Open Source Frame.
func (r *IncludeResolver) PopFile() {
	if len(r.stack) > 0 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// Depth reports the current include nesting depth.
func (r *IncludeResolver) Depth() int { return len(r.stack) }

// MarkPragmaOnce records that absPath carries #pragma once, so a later
// attempt to include it again is a silent no-op (spec §3's Visited
// Files Set; a supplemented feature per SPEC_FULL.md §9 — the original
// spec.md is silent on #pragma once's exact mechanism).
func (r *IncludeResolver) MarkPragmaOnce(absPath string) { r.visitedOnce[absPath] = true }

// IsPragmaOnce reports whether absPath was previously marked.
func (r *IncludeResolver) IsPragmaOnce(absPath string) bool { return r.visitedOnce[absPath] }

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// ParseHeaderName reconstructs a "<...>" or "\"...\"" header spelling
// from the raw tokens following #include/#include_next/#import. The
// raw tokenizer has no header-name token kind of its own (ISO's
// header-name is only meaningful in this one grammatical position, so
// giving it special lexer-level recognition would require threading
// directive context back into rawlex); instead the quoted form is read
// directly off the string literal token's lexeme, and the angled form
// is reassembled by concatenating the lexemes of every token between
// '<' and '>', which reproduces the path exactly for the well-formed,
// unspaced spellings ("<sys/stat.h>", "<a/b.h>") that make up the
// overwhelming majority of real headers.
func ParseHeaderName(tokens []token.Token) (name string, angled bool, err error) {
	if len(tokens) == 0 {
		return "", false, fmt.Errorf("expected a header name")
	}
	if tokens[0].Kind == token.String {
		unquoted, uerr := strconv.Unquote(tokens[0].Lexeme)
		if uerr != nil {
			return "", false, fmt.Errorf("malformed header name %q", tokens[0].Lexeme)
		}
		return unquoted, false, nil
	}
	if tokens[0].Kind == token.Punctuator && tokens[0].Lexeme == "<" {
		var b []byte
		for _, t := range tokens[1:] {
			if t.Kind == token.Punctuator && t.Lexeme == ">" {
				return string(b), true, nil
			}
			b = append(b, t.Lexeme...)
		}
		return "", false, fmt.Errorf("missing closing '>' in header name")
	}
	return "", false, fmt.Errorf("expected a header name, found %q", tokens[0].Lexeme)
}
