// Package catalog holds the built-in pattern definitions, one file
// per language. The definitions are data: small query and regex
// strings plus extract transformers, interpreted by the pattern
// engine.
package catalog

import (
	"strings"

	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// All returns every built-in definition grouped by language id.
func All() map[string][]*pattern.Definition {
	return map[string][]*pattern.Definition{
		types.LanguageWildcard: Common(),
		"go":                   Go(),
		"python":               Python(),
		"javascript":           JavaScript(),
		"typescript":           JavaScript(), // same constructs at this granularity
		"c":                    C(),
		"cpp":                  C(),
		"json":                 JSON(),
		"ini":                  INI(),
		"markdown":             Markdown(),
		"env":                  Env(),
		"yaml":                 YAML(),
	}
}

// RegisterAll loads the built-in catalog into a registry.
func RegisterAll(r *pattern.Registry) int {
	total := 0
	for language, defs := range All() {
		total += r.RegisterLanguagePatterns(language, defs)
	}
	return total
}

// captureFeature copies a capture's text into the feature map under
// the given key, trimming the listed cut set.
func captureFeature(m *types.PatternMatch, features map[string]any, capture, key, cutset string) {
	if span, ok := m.Capture(capture); ok {
		text := span.Text
		if cutset != "" {
			text = strings.Trim(text, cutset)
		}
		features[key] = strings.TrimSpace(text)
	}
}

// nonEmpty is the stock predicate: the capture exists and has text.
func nonEmpty(capture string) pattern.Predicate {
	return pattern.Predicate{
		Name:    capture + "_non_empty",
		Capture: capture,
		Test: func(span types.CaptureSpan) bool {
			return strings.TrimSpace(span.Text) != ""
		},
	}
}
