// Package builtin implements the Built-in Context (spec §3/§4.F): the
// fixed tables of C++ keywords and built-in declarator types the Lexer
// Façade consults when classifying an identifier that the Macro Table
// does not claim, plus the "kludge map" of compiler-intrinsic spellings
// (__attribute__, __restrict__, __extension__, __asm__, ...) that the
// façade defines as no-op function-like macros: a call such as
// "__attribute__((unused))" vanishes, while a bare spelling with no
// following "(" stays an ordinary identifier.
//
// The Feature/Warning-style "enum plus name-lookup map, seeded by a
// constructor, overridable from a config file" shape is grounded on
// xplshn-gbc/pkg/config/config.go's Config/Info/NewConfig/ApplyStd,
// generalized here from compiler features/warnings to keywords/
// declarators/kludge entries. YAML loading (LoadBuiltinContext) is
// grounded on the same repo's convention of externally overridable
// tables, using gopkg.in/yaml.v3 exactly as the teacher's go.mod
// already requires it for config.
package builtin

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeclFlag marks what kind of built-in declarator an identifier names,
// mirroring token.DeclaratorPayload.Flag's intended range of values.
type DeclFlag int

const (
	DeclNone DeclFlag = iota
	DeclVoid
	DeclBool
	DeclChar
	DeclInt
	DeclFloat
	DeclDouble
	DeclLong
	DeclShort
	DeclSigned
	DeclUnsigned
	DeclWchar
	DeclAuto
	DeclConst
	DeclVolatile
	DeclStatic
	DeclExtern
	DeclTypedef
	DeclInline
	DeclVirtual
	DeclConstexpr
)

// defaultKeywords lists the reserved C++ words the façade classifies as
// Keyword tokens. A macro of the same name takes precedence, since the
// façade consults the Macro Table before the keyword set.
var defaultKeywords = []string{
	"alignas", "alignof", "and", "and_eq", "asm", "auto", "bitand", "bitor",
	"bool", "break", "case", "catch", "char", "char8_t", "char16_t", "char32_t",
	"class", "compl", "concept", "const", "consteval", "constexpr", "constinit",
	"const_cast", "continue", "co_await", "co_return", "co_yield", "decltype",
	"default", "delete", "do", "double", "dynamic_cast", "else", "enum",
	"explicit", "export", "extern", "false", "float", "for", "friend", "goto",
	"if", "inline", "int", "long", "mutable", "namespace", "new", "noexcept",
	"not", "not_eq", "nullptr", "operator", "or", "or_eq", "private",
	"protected", "public", "register", "reinterpret_cast", "requires",
	"return", "short", "signed", "sizeof", "static", "static_assert",
	"static_cast", "struct", "switch", "template", "this", "thread_local",
	"throw", "true", "try", "typedef", "typeid", "typename", "union",
	"unsigned", "using", "virtual", "void", "volatile", "wchar_t", "while",
	"xor", "xor_eq",
}

var defaultDeclarators = map[string]DeclFlag{
	"void": DeclVoid, "bool": DeclBool, "char": DeclChar, "int": DeclInt,
	"float": DeclFloat, "double": DeclDouble, "long": DeclLong, "short": DeclShort,
	"signed": DeclSigned, "unsigned": DeclUnsigned, "wchar_t": DeclWchar,
	"auto": DeclAuto, "const": DeclConst, "volatile": DeclVolatile,
	"static": DeclStatic, "extern": DeclExtern, "typedef": DeclTypedef,
	"inline": DeclInline, "virtual": DeclVirtual, "constexpr": DeclConstexpr,
}

// defaultKludge lists compiler-intrinsic spellings that a strict C++
// grammar would reject but real-world headers rely on; the façade
// defines each as a no-op variadic function-like macro, so the spelling
// and its parenthesized argument list vanish when a call follows, and a
// bare spelling is left as an ordinary identifier.
var defaultKludge = []string{
	"__attribute__", "__restrict__", "__extension__", "__asm__",
	"__inline__", "__inline", "__const__", "__volatile__", "__typeof__",
}

// Context is the Built-in Context: the keyword set, the declarator
// table, the kludge-map, and configured search directories (spec §4.F).
type Context struct {
	Keywords    map[string]bool
	Declarators map[string]DeclFlag
	Kludge      map[string]bool

	UserSearchDirs   []string
	SystemSearchDirs []string
}

// NewBuiltinContext seeds a Context with the fixed C++ tables above.
// Callers add project-specific search directories afterward via
// AddSearchDir, and may layer a config file on top with
// LoadBuiltinContext.
func NewBuiltinContext() *Context {
	c := &Context{
		Keywords:    make(map[string]bool, len(defaultKeywords)),
		Declarators: make(map[string]DeclFlag, len(defaultDeclarators)),
		Kludge:      make(map[string]bool, len(defaultKludge)),
	}
	for _, k := range defaultKeywords {
		c.Keywords[k] = true
	}
	for k, v := range defaultDeclarators {
		c.Declarators[k] = v
	}
	for _, k := range defaultKludge {
		c.Kludge[k] = true
	}
	return c
}

// IsKeyword reports whether name is a reserved C++ word.
func (c *Context) IsKeyword(name string) bool { return c.Keywords[name] }

// DeclaratorFlag returns name's built-in declarator flag and whether it
// has one at all.
func (c *Context) DeclaratorFlag(name string) (DeclFlag, bool) {
	f, ok := c.Declarators[name]
	return f, ok
}

// IsKludge reports whether name is a compiler-intrinsic spelling the
// façade should consume rather than resolve normally.
func (c *Context) IsKludge(name string) bool { return c.Kludge[name] }

// AddSearchDir appends a directory to the user (quoted-include) or
// system (angled-include) search path, in the order given.
func (c *Context) AddSearchDir(dir string, system bool) {
	if system {
		c.SystemSearchDirs = append(c.SystemSearchDirs, dir)
	} else {
		c.UserSearchDirs = append(c.UserSearchDirs, dir)
	}
}

// SearchDirCount reports how many search directories are configured.
func (c *Context) SearchDirCount() int {
	return len(c.UserSearchDirs) + len(c.SystemSearchDirs)
}

// configFile mirrors the on-disk shape LoadBuiltinContext expects: extra
// keywords/kludge entries and search directories layered on top of the
// built-in defaults.
type configFile struct {
	ExtraKeywords []string `yaml:"extra_keywords"`
	ExtraKludge   []string `yaml:"extra_kludge"`
	UserIncludes  []string `yaml:"user_includes"`
	SystemIncludes []string `yaml:"system_includes"`
}

// LoadBuiltinContext reads a YAML config file (spec §4.F) and returns a
// Context seeded with the built-in defaults plus the file's additions.
func LoadBuiltinContext(path string) (*Context, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading built-in context config %q: %w", path, err)
	}
	var cfg configFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing built-in context config %q: %w", path, err)
	}

	c := NewBuiltinContext()
	for _, k := range cfg.ExtraKeywords {
		c.Keywords[k] = true
	}
	for _, k := range cfg.ExtraKludge {
		c.Kludge[k] = true
	}
	for _, d := range cfg.UserIncludes {
		c.AddSearchDir(d, false)
	}
	for _, d := range cfg.SystemIncludes {
		c.AddSearchDir(d, true)
	}
	return c, nil
}
