package catalog

import (
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Python returns the python pattern set.
func Python() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "function",
			Variant:    types.VariantResilient,
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Query: `(function_definition
  name: (identifier) @name
  parameters: (parameters) @parameters) @function`,
			FallbackQueries: []string{
				`(function_definition name: (identifier) @name) @function`,
			},
			Regex: `(?m)^[ \t]*def\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\((?P<parameters>[^)]*)\)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "function"}
				captureFeature(m, features, "name", "name", "")
				captureFeature(m, features, "parameters", "parameters", "()")
				return features
			},
			Predicates: []pattern.Predicate{nonEmpty("name")},
			TestCases: []pattern.TestCase{
				{Source: "def hello(x, y):\n    return x + y\n", WantMatches: 1},
				{Source: "class C:\n    pass\n", WantMatches: 0},
			},
			Relationships: []types.PatternRelationship{
				{SourcePattern: "function", TargetPattern: "docstring", Relation: types.RelationComplements, Confidence: 0.8},
			},
		},
		{
			Name:       "class",
			Variant:    types.VariantAdaptive,
			Category:   types.CategoryStructure,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Query: `(class_definition
  name: (identifier) @name
  superclasses: (argument_list)? @bases) @class`,
			Regex: `(?m)^[ \t]*class\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "class"}
				captureFeature(m, features, "name", "name", "")
				captureFeature(m, features, "bases", "bases", "()")
				return features
			},
			TestCases: []pattern.TestCase{
				{Source: "class Widget(Base):\n    pass\n", WantMatches: 1},
			},
		},
		{
			Name:       "import",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query: `[(import_statement) (import_from_statement)] @import`,
			Regex: `(?m)^(?:from\s+(?P<module>[\w.]+)\s+)?import\s+(?P<names>.+)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "import"}
				captureFeature(m, features, "module", "module", "")
				captureFeature(m, features, "names", "names", "")
				return features
			},
		},
		{
			Name:       "docstring",
			Category:   types.CategoryDocumentation,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.85,
			Query: `(expression_statement (string) @doc)`,
			Regex: `(?ms)^\s*(?:'''|""")(?P<doc>.*?)(?:'''|""")`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "docstring"}
				captureFeature(m, features, "doc", "text", `"'`)
				return features
			},
		},
		{
			Name:       "decorator",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query:      `(decorator) @decorator`,
			Regex:      `(?m)^[ \t]*@(?P<name>[\w.]+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "decorator"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
	}
}
