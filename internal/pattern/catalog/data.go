package catalog

import (
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// JSON returns the json pattern set. JSON is handwritten-backed, so
// every pattern runs on its regex expression.
func JSON() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "object",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Regex:      `(?s)\{.*\}`,
			Extract: func(m *types.PatternMatch) map[string]any {
				return map[string]any{"kind": "object"}
			},
			TestCases: []pattern.TestCase{
				{Source: `{"items":[1,2,3],"name":"kit"}`, WantMatches: 1},
			},
		},
		{
			Name:       "array",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Regex:      `\[[^\[\]]*\]`,
			Extract: func(m *types.PatternMatch) map[string]any {
				return map[string]any{"kind": "array"}
			},
			TestCases: []pattern.TestCase{
				{Source: `{"items":[1,2,3],"name":"kit"}`, WantMatches: 1},
			},
		},
		{
			Name:       "pair",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.85,
			Regex:      `"(?P<key>[^"]+)"\s*:\s*(?P<value>"[^"]*"|[-\d.eE+]+|true|false|null|\{|\[)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "pair"}
				captureFeature(m, features, "key", "key", `"`)
				captureFeature(m, features, "value", "value", "")
				return features
			},
		},
	}
}

// INI returns the ini pattern set.
func INI() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "section",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Regex:      `(?m)^\[(?P<name>[^\]]+)\]`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "section"}
				captureFeature(m, features, "name", "name", "")
				return features
			},
			TestCases: []pattern.TestCase{
				{Source: "[db]\nhost=localhost\n", WantMatches: 1},
			},
		},
		{
			Name:       "property",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Regex:      `(?m)^(?P<key>[^=:;#\s][^=:]*?)\s*[=:]\s*(?P<value>.*)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "property"}
				captureFeature(m, features, "key", "key", "")
				captureFeature(m, features, "value", "value", "")
				return features
			},
		},
		{
			Name:       "comment",
			Category:   types.CategoryDocumentation,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Regex:      `(?m)^[;#]\s?(?P<text>.*)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "comment"}
				captureFeature(m, features, "text", "text", "")
				return features
			},
		},
	}
}

// Markdown returns the markdown pattern set.
func Markdown() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "heading",
			Category:   types.CategoryStructure,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Regex:      `(?m)^(?P<level>#{1,6})\s+(?P<text>.+)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "heading"}
				if span, ok := m.Capture("level"); ok {
					features["level"] = len(span.Text)
				}
				captureFeature(m, features, "text", "text", "")
				return features
			},
		},
		{
			Name:       "code_block",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.9,
			Regex:      "(?ms)^```(?P<language>[A-Za-z0-9_+-]*)\\n(?P<content>.*?)^```",
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "code_block"}
				captureFeature(m, features, "language", "language", "")
				captureFeature(m, features, "content", "content", "")
				return features
			},
		},
		{
			Name:       "link",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.85,
			Regex:      `\[(?P<text>[^\]]+)\]\((?P<url>[^)]+)\)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "link"}
				captureFeature(m, features, "text", "text", "")
				captureFeature(m, features, "url", "url", "")
				return features
			},
		},
	}
}

// Env returns the dotenv pattern set.
func Env() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "variable",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.95,
			Regex:      `(?m)^(?:export\s+)?(?P<key>[A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?P<value>.*)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "variable"}
				captureFeature(m, features, "key", "key", "")
				captureFeature(m, features, "value", "value", `"'`)
				return features
			},
		},
		{
			Name:       "secret_candidate",
			Category:   types.CategoryCommonIssues,
			Purpose:    types.PurposeValidation,
			Confidence: 0.7,
			Regex:      `(?mi)^(?:export\s+)?(?P<key>\w*(?:secret|token|password|api_?key)\w*)\s*=\s*(?P<value>\S+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "secret_candidate"}
				captureFeature(m, features, "key", "key", "")
				return features
			},
		},
	}
}

// YAML returns the yaml pattern set.
func YAML() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "mapping_entry",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.85,
			Regex:      `(?m)^(?P<indent>\s*)(?P<key>[^\s:#][^:]*):\s*(?P<value>.*)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "mapping_entry"}
				captureFeature(m, features, "key", "key", "")
				captureFeature(m, features, "value", "value", "")
				return features
			},
		},
		{
			Name:       "sequence_item",
			Category:   types.CategorySyntax,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.85,
			Regex:      `(?m)^\s*-\s+(?P<value>.+)$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "sequence_item"}
				captureFeature(m, features, "value", "value", "")
				return features
			},
		},
	}
}

// Common returns language-agnostic patterns, registered under the
// wildcard language. Only base variants may be wildcard-scoped.
func Common() []*pattern.Definition {
	return []*pattern.Definition{
		{
			Name:       "todo_comment",
			Category:   types.CategoryCommonIssues,
			Purpose:    types.PurposeValidation,
			Confidence: 0.85,
			Regex:      `(?m)(?://|#|;|/\*)\s*(?P<marker>TODO|FIXME|HACK|XXX)[:\s](?P<text>[^\n]*)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "todo_comment"}
				captureFeature(m, features, "marker", "marker", "")
				captureFeature(m, features, "text", "text", "")
				return features
			},
		},
		{
			Name:       "url",
			Category:   types.CategorySemantics,
			Purpose:    types.PurposeUnderstanding,
			Confidence: 0.8,
			Regex:      `(?P<url>https?://[^\s'"<>)]+)`,
			Extract: func(m *types.PatternMatch) map[string]any {
				features := map[string]any{"kind": "url"}
				captureFeature(m, features, "url", "url", "")
				return features
			},
		},
		{
			Name:       "long_line",
			Category:   types.CategoryBestPractices,
			Purpose:    types.PurposeValidation,
			Confidence: 0.6,
			Regex:      `(?m)^(?P<line>.{161,})$`,
			Extract: func(m *types.PatternMatch) map[string]any {
				return map[string]any{"kind": "long_line"}
			},
		},
	}
}
