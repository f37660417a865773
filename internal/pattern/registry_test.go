package pattern

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/polyscan/internal/types"
)

func baseDef(name, language string) *Definition {
	return &Definition{
		Name:       name,
		LanguageID: language,
		Category:   types.CategorySyntax,
		Confidence: 0.9,
		Regex:      `x`,
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Register(NewBase(baseDef("function", "python"))))

	p, ok := r.Resolve("python", "function")
	require.True(t, ok)
	assert.Equal(t, "function", p.Name())

	_, ok = r.Resolve("python", "nope")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Register(NewBase(&Definition{Name: "", LanguageID: "go", Regex: "x"})))
	assert.False(t, r.Register(NewBase(&Definition{Name: "no_expr", LanguageID: "go"})))
	// Wildcard language is valid only for the base variant.
	assert.False(t, r.Register(NewAdaptive(baseDef("wild", types.LanguageWildcard))))
	assert.True(t, r.Register(NewBase(baseDef("wild", types.LanguageWildcard))))
}

func TestRegistryWildcardResolution(t *testing.T) {
	r := NewRegistry()
	r.Register(NewBase(baseDef("todo", types.LanguageWildcard)))
	r.Register(NewBase(baseDef("todo", "go")))

	p, ok := r.Resolve("go", "todo")
	require.True(t, ok)
	assert.Equal(t, "go", p.LanguageID(), "language-specific pattern wins over wildcard")

	p, ok = r.Resolve("rust", "todo")
	require.True(t, ok)
	assert.Equal(t, types.LanguageWildcard, p.LanguageID())
}

// Improved patterns coexist with originals: resolution prefers the
// improvement, rollback restores the original.
func TestRegistryImprovedPrecedenceAndRollback(t *testing.T) {
	r := NewRegistry()
	original := NewBase(baseDef("function", "python"))
	r.Register(original)

	improvedDef := baseDef("ignored", "ignored")
	improvedDef.Regex = "y"
	improved := r.RegisterImproved(original, improvedDef)
	assert.Equal(t, "function"+ImprovedSuffix, improved.Name())

	p, ok := r.Resolve("python", "function")
	require.True(t, ok)
	assert.Equal(t, improved.Name(), p.Name())

	// The original is preserved for rollback.
	r.Rollback("python", "function")
	p, ok = r.Resolve("python", "function")
	require.True(t, ok)
	assert.Equal(t, "function", p.Name())
}

func TestRegistryInvalidImprovementFallsBack(t *testing.T) {
	r := NewRegistry()
	original := NewBase(baseDef("function", "python"))
	r.Register(original)
	improved := r.RegisterImproved(original, baseDef("x", "x"))
	r.MarkInvalid(improved.Name(), fmt.Errorf("bad query"))

	p, ok := r.Resolve("python", "function")
	require.True(t, ok)
	assert.Equal(t, "function", p.Name())

	r.ResetInvalid()
	p, _ = r.Resolve("python", "function")
	assert.Equal(t, improved.Name(), p.Name())
}

func TestRegistryPatternsForSortedAndShadowed(t *testing.T) {
	r := NewRegistry()
	r.Register(NewBase(baseDef("zeta", "go")))
	r.Register(NewBase(baseDef("alpha", "go")))
	r.Register(NewBase(baseDef("todo", types.LanguageWildcard)))
	original := NewBase(baseDef("zeta", "go"))
	r.RegisterImproved(original, baseDef("x", "x"))

	patterns := r.PatternsFor("go")
	require.Len(t, patterns, 3)
	assert.Equal(t, "alpha", patterns[0].Name())
	assert.Equal(t, "todo", patterns[1].Name())
	assert.Equal(t, "zeta"+ImprovedSuffix, patterns[2].Name())
}

// Relationship graphs may contain cycles; storage by name keeps that
// safe.
func TestRegistryRelationshipCycles(t *testing.T) {
	r := NewRegistry()
	r.AddRelationship(types.PatternRelationship{
		SourcePattern: "function", TargetPattern: "comment",
		Relation: types.RelationComplements, Confidence: 0.8,
	})
	r.AddRelationship(types.PatternRelationship{
		SourcePattern: "comment", TargetPattern: "function",
		Relation: types.RelationComplements, Confidence: 0.8,
	})

	fn := r.Relationships("function")
	require.Len(t, fn, 1)
	assert.Equal(t, "comment", fn[0].TargetPattern)
	back := r.Relationships("comment")
	require.Len(t, back, 1)
	assert.Equal(t, "function", back[0].TargetPattern)
}

func TestClassifyRegexRouting(t *testing.T) {
	assert.False(t, classifyRegex(`^def\s+\w+`))
	assert.False(t, classifyRegex(`(?P<name>\w+)=(?P<value>.*)`))
	assert.True(t, classifyRegex(`(?=lookahead)x`))
	assert.True(t, classifyRegex(`(a)\1`))
	assert.True(t, classifyRegex(`(?<=behind)x`))
}

func TestRegexCacheReuseAndEviction(t *testing.T) {
	c := NewRegexCache(2, 0)
	first, err := c.Get(`\w+`)
	assert.NoError(t, err)
	again, _ := c.Get(`\w+`)
	assert.Same(t, first, again)

	c.Get(`\d+`)
	c.Get(`\s+`) // evicts the oldest
	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(3), misses)
}

func TestRegexCacheCompileError(t *testing.T) {
	c := NewRegexCache(8, 0)
	_, err := c.Get(`(unclosed`)
	assert.Error(t, err)
	// Errors are cached too.
	_, err2 := c.Get(`(unclosed`)
	assert.Error(t, err2)
}

func TestBacktrackingEngineSpans(t *testing.T) {
	c := NewRegexCache(8, 0)
	compiled, err := c.Get(`(?<=def )(?P<name>\w+)`)
	assert.NoError(t, err)
	spans := compiled.execute([]byte("def hello(x):\n"))
	assert.Len(t, spans, 1)
	assert.Equal(t, "hello", string([]byte("def hello(x):\n")[spans[0].start:spans[0].end]))
	groups := spans[0].groups["name"]
	assert.Len(t, groups, 1)
}
