package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		less bool
	}{
		{"same row earlier column", Point{1, 2}, Point{1, 5}, true},
		{"earlier row wins", Point{0, 99}, Point{1, 0}, true},
		{"equal", Point{3, 3}, Point{3, 3}, false},
		{"later row", Point{2, 0}, Point{1, 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.less, tt.a.Less(tt.b))
		})
	}

	assert.True(t, Point{3, 3}.LessEq(Point{3, 3}))
	assert.True(t, Point{1, 0}.LessEq(Point{2, 0}))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "code", FileTypeCode.String())
	assert.Equal(t, "binary", FileTypeBinary.String())
	assert.Equal(t, "grammar", ParserKindGrammar.String())
	assert.Equal(t, "handwritten", ParserKindHandwritten.String())
	assert.Equal(t, "unknown", ParserKindUnknown.String())
	assert.Equal(t, "missing", DiagnosticMissing.String())
	assert.Equal(t, "adaptive", VariantAdaptive.String())
}

// Every pattern category must land in exactly one feature bucket, and
// every feature bucket must be fed by at least one pattern category.
func TestCategoryFeatureMappingIsTotal(t *testing.T) {
	categories := []PatternCategory{
		CategorySyntax, CategorySemantics, CategoryStructure,
		CategoryDocumentation, CategoryCodePatterns, CategoryLearning,
		CategoryBestPractices, CategoryCommonIssues, CategoryUserPatterns,
	}
	fed := make(map[FeatureCategory]bool)
	for _, c := range categories {
		fed[c.FeedsFeature()] = true
	}
	for _, f := range []FeatureCategory{FeatureSyntax, FeatureStructure, FeatureSemantics, FeatureDocumentation} {
		assert.True(t, fed[f], "feature bucket %s has no feeding pattern category", f)
	}
}

func TestStrategyWeights(t *testing.T) {
	assert.Equal(t, 1.0, StrategyWeight(StrategyPrimary))
	assert.Equal(t, 0.9, StrategyWeight(StrategyAdapted))
	assert.Equal(t, 0.8, StrategyWeight(StrategyFallbackPatterns))
	assert.Equal(t, 0.7, StrategyWeight(StrategyRegexFallback))
	assert.Equal(t, 0.6, StrategyWeight(StrategyPartialMatch))
	assert.Equal(t, 0.0, StrategyWeight(MatchStrategy("bogus")))
}

func TestPatternMatchCapture(t *testing.T) {
	m := PatternMatch{Captures: map[string][]CaptureSpan{
		"name": {{Name: "name", Text: "hello"}},
	}}
	span, ok := m.Capture("name")
	assert.True(t, ok)
	assert.Equal(t, "hello", span.Text)
	_, ok = m.Capture("missing")
	assert.False(t, ok)
}

func TestCustomNodeWalkAndErrors(t *testing.T) {
	root := NewCustomNode("root", Point{}, Point{Row: 2})
	child := NewCustomNode("child", Point{Row: 1}, Point{Row: 1, Column: 4})
	bad := NewCustomNode("bad", Point{Row: 2}, Point{Row: 2})
	bad.Error = "malformed"
	root.AddChild(child)
	child.AddChild(bad)

	assert.True(t, root.HasError())
	assert.False(t, NewCustomNode("ok", Point{}, Point{}).HasError())
	assert.Equal(t, 3, root.CountNodes())

	var visited []string
	root.Walk(func(n *CustomNode, depth int) bool {
		visited = append(visited, n.Kind)
		return n.Kind != "child" // prune below child
	})
	assert.Equal(t, []string{"root", "child"}, visited)
}
