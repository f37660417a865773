package catalog

import (
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Go returns the go pattern set.
func Go() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "function",
			Variant:    types.VariantResilient,
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Query: `(function_declaration
  name: (identifier) @name
  parameters: (parameter_list) @parameters) @function`,
			FallbackQueries: []string{
				`(function_declaration name: (identifier) @name) @function`,
			},
			Regex: `(?m)^func\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\((?P<parameters>[^)]*)\)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "function"}
				captureFeature(m, features, "name", "name", "")
				captureFeature(m, features, "parameters", "parameters", "()")
				return features
			},
			Predicates: []pattern.Predicate{nonEmpty("name")},
			TestCases: []pattern.TestCase{
				{Source: "package x\n\nfunc Add(a, b int) int { return a + b }\n", WantMatches: 1},
			},
		},
		{
			Name:       "method",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Query: `(method_declaration
  receiver: (parameter_list) @receiver
  name: (field_identifier) @name) @method`,
			Regex: `(?m)^func\s+\((?P<receiver>[^)]*)\)\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "method"}
				captureFeature(m, features, "name", "name", "")
				captureFeature(m, features, "receiver", "receiver", "()")
				return features
			},
		},
		{
			Name:       "type",
			Variant:    types.VariantAdaptive,
			Category:   types.CategoryStructure,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query: `(type_declaration
  (type_spec name: (type_identifier) @name type: (_) @definition)) @type`,
			Regex: `(?m)^type\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s+(?P<definition>struct|interface|\S+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "type"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
		{
			Name:       "import",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query:      `(import_spec path: (interpreted_string_literal) @path) @import`,
			Regex:      "(?m)^\\s*(?:import\\s+)?(?:[\\w.]+\\s+)?\"(?P<path>[^\"]+)\"",
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "import"}
				captureFeature(m, features, "path", "path", `"`)
				return features
			},
		},
		{
			Name:       "error_return",
			Category:   types.CategoryBestPractices,
			Purpose:    types.PurposeValidation,
			Confidence: 0.8,
			Query: `(function_declaration
  result: (parameter_list (parameter_declaration type: (type_identifier) @errtype))
  name: (identifier) @name
  (#any-of? @errtype "error")) @function`,
			Regex: `(?m)^func\s+(?P<name>\w+)[^\n]*\)\s*(?:\([^)]*error\)|error)\s*\{`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "error_return"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
	}
}
