package catalog

import (
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// JavaScript returns the javascript/typescript pattern set.
func JavaScript() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "function",
			Variant:    types.VariantResilient,
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query: `(function_declaration
  name: (identifier) @name
  parameters: (formal_parameters) @parameters) @function`,
			FallbackQueries: []string{
				`(variable_declarator
  name: (identifier) @name
  value: [(arrow_function) (function_expression)]) @function`,
				`(method_definition name: (property_identifier) @name) @function`,
			},
			Regex: `(?m)(?:function\s+(?P<name>\w+)\s*\((?P<parameters>[^)]*)\)|(?:const|let|var)\s+(?P<name2>\w+)\s*=\s*(?:async\s*)?\()`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "function"}
				captureFeature(m, features, "name", "name", "")
				if _, ok := features["name"]; !ok {
					captureFeature(m, features, "name2", "name", "")
				}
				captureFeature(m, features, "parameters", "parameters", "()")
				return features
			},
			Predicates: []pattern.Predicate{nonEmpty("name")},
			TestCases: []pattern.TestCase{
				{Source: "function greet(who) { return 'hi ' + who; }\n", WantMatches: 1},
			},
		},
		{
			Name:       "class",
			Category:   types.CategoryStructure,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query:      `(class_declaration name: (identifier) @name) @class`,
			Regex:      `(?m)class\s+(?P<name>\w+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "class"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
		{
			Name:       "import",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query:      `(import_statement source: (string) @source) @import`,
			Regex:      `(?m)(?:import\s+.*?from\s+|require\s*\(\s*)['"](?P<source>[^'"]+)['"]`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "import"}
				captureFeature(m, features, "source", "source", `'"`)
				return features
			},
		},
		{
			Name:       "export",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.85,
			Query:      `(export_statement declaration: (_) @declaration) @export`,
			Regex:      `(?m)^export\s+(?:default\s+)?(?:function|class|const|let|var)\s+(?P<name>\w+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "export"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
	}
}
