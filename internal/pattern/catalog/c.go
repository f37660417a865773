package catalog

import (
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// C returns the c/cpp pattern set. Both ids share the cpp grammar.
func C() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "function",
			Variant:    types.VariantResilient,
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query: `(function_definition
  declarator: (function_declarator
    declarator: (identifier) @name
    parameters: (parameter_list) @parameters)) @function`,
			FallbackQueries: []string{
				`(function_definition
  declarator: (function_declarator declarator: (_) @name)) @function`,
			},
			Regex: `(?m)^[\w\s\*]+?(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\((?P<parameters>[^;{]*)\)\s*\{`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "function"}
				captureFeature(m, features, "name", "name", "")
				captureFeature(m, features, "parameters", "parameters", "()")
				return features
			},
			Predicates: []pattern.Predicate{nonEmpty("name")},
			TestCases: []pattern.TestCase{
				{Source: "int main() { return 0; }\n", WantMatches: 1},
			},
		},
		{
			Name:       "struct",
			Category:   types.CategoryStructure,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query:      `(struct_specifier name: (type_identifier) @name) @struct`,
			Regex:      `(?m)struct\s+(?P<name>\w+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "struct"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
		{
			Name:       "include",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Query:      `(preproc_include path: (_) @path) @include`,
			Regex:      `(?m)^#include\s+[<"](?P<path>[^>"]+)[>"]`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "include"}
				captureFeature(m, features, "path", "path", `<>"`)
				return features
			},
		},
		{
			Name:       "class",
			Category:   types.CategoryStructure,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Query:      `(class_specifier name: (type_identifier) @name) @class`,
			Regex:      `(?m)class\s+(?P<name>\w+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "class"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
		},
	}
}
