package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

func insightsWith(structures map[string]int, captures map[string]int, matches int) *Insights {
	ins := newInsights()
	for k, v := range structures {
		ins.StructureFrequencies[k] = v
	}
	for k, v := range captures {
		ins.CaptureFrequencies[k] = v
	}
	ins.TotalMatches = matches
	return ins
}

func TestNodePatternImprovementTightensWildcard(t *testing.T) {
	def := &pattern.Definition{
		Name: "function", LanguageID: "python", Confidence: 0.9,
		Query: `(function_definition parameters: (_) @params) @function`,
	}
	ins := insightsWith(map[string]int{"params:parameters": 40}, nil, 40)

	improved, confidence, changed := nodePatternImprovement{}.Improve(def, ins)
	require.True(t, changed)
	assert.Contains(t, improved.Query, "(parameters) @params")
	assert.NotContains(t, improved.Query, "(_) @params")
	assert.Greater(t, confidence, def.Confidence)
	// Original untouched.
	assert.Contains(t, def.Query, "(_) @params")
}

func TestNodePatternImprovementNeedsDominance(t *testing.T) {
	def := &pattern.Definition{
		Name: "x", LanguageID: "python", Confidence: 0.9,
		Query: `(_) @node`,
	}
	ins := insightsWith(map[string]int{"node:identifier": 5, "node:string": 5}, nil, 10)
	_, _, changed := nodePatternImprovement{}.Improve(def, ins)
	assert.False(t, changed)
}

func TestCaptureOptimizationDropsDeadCaptures(t *testing.T) {
	def := &pattern.Definition{
		Name: "fn", LanguageID: "go", Confidence: 0.9,
		Query: `(function_declaration name: (identifier) @name body: (block) @body) @function`,
	}
	ins := insightsWith(nil, map[string]int{"name": 30, "function": 30, "body": 0}, 30)

	improved, _, changed := captureOptimization{}.Improve(def, ins)
	require.True(t, changed)
	assert.NotContains(t, improved.Query, "@body")
	assert.Contains(t, improved.Query, "@name")
}

func TestPredicateRefinementDropsAlwaysFailing(t *testing.T) {
	def := &pattern.Definition{
		Name: "fn", LanguageID: "go", Confidence: 0.9, Query: `(x) @x`,
		Predicates: []pattern.Predicate{
			{Name: "useful", Capture: "x", Test: func(types.CaptureSpan) bool { return true }},
			{Name: "hopeless", Capture: "x", Test: func(types.CaptureSpan) bool { return false }},
		},
	}
	ins := newInsights()
	ins.PredicateTotal["useful"] = 20
	ins.PredicateSuccess["useful"] = 18
	ins.PredicateTotal["hopeless"] = 20
	ins.PredicateSuccess["hopeless"] = 0

	improved, _, changed := predicateRefinement{}.Improve(def, ins)
	require.True(t, changed)
	require.Len(t, improved.Predicates, 1)
	assert.Equal(t, "useful", improved.Predicates[0].Name)
}

func TestPatternGeneralizationUnionsSimilarKinds(t *testing.T) {
	def := &pattern.Definition{
		Name: "decl", LanguageID: "go", Confidence: 0.9,
		Query: `(function_declaration) @decl`,
	}
	ins := insightsWith(map[string]int{
		"decl:function_declaration": 10,
		"decl:method_declaration":   8,
	}, nil, 18)

	improved, confidence, changed := patternGeneralization{}.Improve(def, ins)
	require.True(t, changed)
	assert.Contains(t, improved.Query, "[(function_declaration) (method_declaration)] @decl")
	assert.Less(t, confidence, def.Confidence)
}

func TestPatternGeneralizationRejectsDissimilarKinds(t *testing.T) {
	def := &pattern.Definition{
		Name: "decl", LanguageID: "go", Confidence: 0.9,
		Query: `(comment) @decl`,
	}
	ins := insightsWith(map[string]int{
		"decl:comment":        10,
		"decl:call_expression": 8,
	}, nil, 18)
	_, _, changed := patternGeneralization{}.Improve(def, ins)
	assert.False(t, changed)
}

func TestStrategiesIgnoreSparseData(t *testing.T) {
	def := &pattern.Definition{
		Name: "x", LanguageID: "go", Confidence: 0.9, Query: `(_) @n`,
	}
	ins := insightsWith(map[string]int{"n:identifier": 2}, nil, 2)
	for _, s := range DefaultStrategies() {
		_, _, changed := s.Improve(def, ins)
		assert.False(t, changed, s.Name())
	}
}
