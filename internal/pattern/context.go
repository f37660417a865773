package pattern

import (
	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Context carries the per-invocation surroundings of a match run. It
// lives for the duration of pattern execution and is never persisted.
type Context struct {
	LanguageID string
	FilePath   string
	ParserKind types.ParserKind

	// CodeStructure is the pre-parsed tree, when the caller has one.
	// When set, its kind wins over ParserKind: a grammar-only pattern
	// handed a handwritten tree degrades to its regex fallback.
	CodeStructure parser.Tree

	// ProjectPatterns are patterns learned from the surrounding
	// project, available to strategies.
	ProjectPatterns []string
	// RelevantPatterns names patterns already matched nearby.
	RelevantPatterns []string

	ScopeLevel    int
	AllowsNesting bool

	Metadata map[string]any
}

// NewContext builds a context for a language.
func NewContext(languageID string) *Context {
	return &Context{
		LanguageID:    languageID,
		AllowsNesting: true,
		Metadata:      make(map[string]any),
	}
}
