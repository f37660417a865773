// Package extract consumes parse trees and pattern matches to
// produce typed feature records, documentation, complexity metrics
// and structural blocks.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/surgebase/porter2"

	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// nodeDispatch maps a node kind to its feature bucket and record
// name. Per-language tables override the shared defaults.
type nodeDispatch struct {
	category types.FeatureCategory
	name     string
}

var sharedDispatch = map[string]nodeDispatch{
	// Syntax
	"function_definition":  {types.FeatureSyntax, "function"},
	"function_declaration": {types.FeatureSyntax, "function"},
	"method_declaration":   {types.FeatureSyntax, "method"},
	"method_definition":    {types.FeatureSyntax, "method"},
	"arrow_function":       {types.FeatureSyntax, "function"},
	"lambda":               {types.FeatureSyntax, "lambda"},
	"property":             {types.FeatureSyntax, "property"},
	"variable":             {types.FeatureSyntax, "variable"},

	// Structure
	"class_definition":      {types.FeatureStructure, "class"},
	"class_declaration":     {types.FeatureStructure, "class"},
	"struct_specifier":      {types.FeatureStructure, "struct"},
	"type_declaration":      {types.FeatureStructure, "type"},
	"interface_declaration": {types.FeatureStructure, "interface"},
	"impl_item":             {types.FeatureStructure, "impl"},
	"module":                {types.FeatureStructure, "module"},
	"namespace_definition":  {types.FeatureStructure, "namespace"},
	"section":               {types.FeatureStructure, "section"},
	"heading":               {types.FeatureStructure, "heading"},
	"mapping":               {types.FeatureStructure, "mapping"},
	"object":                {types.FeatureStructure, "object"},
	"array":                 {types.FeatureStructure, "array"},

	// Semantics
	"import_statement":      {types.FeatureSemantics, "import"},
	"import_from_statement": {types.FeatureSemantics, "import"},
	"import_declaration":    {types.FeatureSemantics, "import"},
	"import_spec":           {types.FeatureSemantics, "import"},
	"preproc_include":       {types.FeatureSemantics, "include"},
	"call_expression":       {types.FeatureSemantics, "call"},
	"decorator":             {types.FeatureSemantics, "decorator"},
	"pair":                  {types.FeatureSemantics, "pair"},

	// Documentation
	"comment":       {types.FeatureDocumentation, "comment"},
	"line_comment":  {types.FeatureDocumentation, "comment"},
	"block_comment": {types.FeatureDocumentation, "comment"},
}

// languageDispatch holds per-language additions to the shared table.
var languageDispatch = map[string]map[string]nodeDispatch{
	"python": {
		"decorated_definition": {types.FeatureSemantics, "decorated"},
	},
	"go": {
		"go_statement":    {types.FeatureSemantics, "goroutine"},
		"defer_statement": {types.FeatureSemantics, "defer"},
	},
	"markdown": {
		"code_block": {types.FeatureSyntax, "code_block"},
		"link":       {types.FeatureSemantics, "link"},
	},
}

var annotationMarkerRe = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX|NOTE|WARNING)\b`)

// FeatureExtractor walks trees into ExtractedFeatures.
type FeatureExtractor struct {
	engine *pattern.Engine
}

// NewFeatureExtractor builds an extractor; engine may be nil when no
// pattern merging is wanted.
func NewFeatureExtractor(engine *pattern.Engine) *FeatureExtractor {
	return &FeatureExtractor{engine: engine}
}

// Extract walks the tree once, categorizing nodes into the four
// buckets, then merges captures from the supplied patterns and
// computes complexity. It never fails: internal problems land in
// Diagnostics on a partially populated result.
func (fe *FeatureExtractor) Extract(ctx context.Context, tree parser.Tree, source []byte, patterns []pattern.Pattern) (result *types.ExtractedFeatures) {
	result = types.NewExtractedFeatures()

	defer func() {
		if r := recover(); r != nil {
			debug.Extract("extraction panic", "panic", r)
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("feature extraction panic: %v", r))
		}
	}()

	if tree == nil {
		result.Diagnostics = append(result.Diagnostics, "no parse tree")
		return result
	}

	dispatch := sharedDispatch
	if overrides, ok := languageDispatch[tree.Language()]; ok {
		dispatch = make(map[string]nodeDispatch, len(sharedDispatch)+len(overrides))
		for k, v := range sharedDispatch {
			dispatch[k] = v
		}
		for k, v := range overrides {
			dispatch[k] = v
		}
	}

	parser.WalkTree(tree.Root(), func(n parser.Node, depth int) bool {
		d, ok := dispatch[n.Kind()]
		if !ok {
			// Python docstrings are plain string nodes; only
			// triple-quoted ones are filed as documentation.
			if n.Kind() == "string" && isDocstring(strings.TrimSpace(n.Text(source))) {
				fe.collectDocumentation(result, n, source)
			}
			return true
		}
		if d.category == types.FeatureDocumentation {
			fe.collectDocumentation(result, n, source)
			return true
		}
		record := types.FeatureRecord{
			Name:       d.name,
			Text:       truncate(n.Text(source), 240),
			StartPoint: n.StartPoint(),
			EndPoint:   n.EndPoint(),
		}
		if md := n.Metadata(); len(md) > 0 {
			record.Metadata = md
		}
		fe.bucketFor(result, d.category)[d.name] = append(fe.bucketFor(result, d.category)[d.name], record)
		return true
	})

	for _, p := range patterns {
		if ctx != nil && ctx.Err() != nil {
			result.Diagnostics = append(result.Diagnostics, "cancelled during pattern merge")
			break
		}
		fe.mergePattern(ctx, result, tree, source, p)
	}

	result.Metrics = ComputeComplexity(tree, source)
	result.Documentation.Terms = docTerms(result.Documentation)
	result.Metadata["language"] = tree.Language()
	result.Metadata["parser_kind"] = tree.Kind().String()
	return result
}

func (fe *FeatureExtractor) bucketFor(result *types.ExtractedFeatures, c types.FeatureCategory) types.FeatureBucket {
	switch c {
	case types.FeatureSyntax:
		return result.Syntax
	case types.FeatureStructure:
		return result.Structure
	default:
		return result.Semantics
	}
}

// collectDocumentation files a documentation node into the doc record.
func (fe *FeatureExtractor) collectDocumentation(result *types.ExtractedFeatures, n parser.Node, source []byte) {
	text := strings.TrimSpace(n.Text(source))
	if text == "" {
		if md := n.Metadata(); md != nil {
			if t, ok := md["text"].(string); ok {
				text = t
			}
		}
	}
	if text == "" {
		return
	}
	entry := types.DocEntry{
		Text:  truncate(text, 500),
		Start: n.StartPoint(),
		End:   n.EndPoint(),
		Kind:  n.Kind(),
	}
	if marker := annotationMarkerRe.FindString(text); marker != "" {
		entry.Kind = "annotation"
		result.Documentation.Annotations = append(result.Documentation.Annotations, entry)
		return
	}
	if isDocstring(text) {
		result.Documentation.Docstrings = append(result.Documentation.Docstrings, entry)
		return
	}
	result.Documentation.Comments = append(result.Documentation.Comments, entry)
}

func isDocstring(text string) bool {
	return strings.HasPrefix(text, `"""`) || strings.HasPrefix(text, "'''") ||
		strings.HasPrefix(text, "/**")
}

// mergePattern runs one pattern and folds its matches into the bucket
// its category feeds.
func (fe *FeatureExtractor) mergePattern(ctx context.Context, result *types.ExtractedFeatures, tree parser.Tree, source []byte, p pattern.Pattern) {
	if fe.engine == nil {
		return
	}
	pctx := pattern.NewContext(tree.Language())
	pctx.CodeStructure = tree
	matches := fe.engine.Match(ctx, p, source, pctx)
	if len(matches) == 0 {
		return
	}

	category := p.Category().FeedsFeature()
	for _, m := range matches {
		record := types.FeatureRecord{
			Name:       p.Name(),
			Text:       truncate(m.Text, 240),
			StartPoint: m.StartPoint,
			EndPoint:   m.EndPoint,
		}
		if len(m.Features) > 0 {
			record.Metadata = m.Features
		}
		if category == types.FeatureDocumentation {
			result.Documentation.Comments = append(result.Documentation.Comments, types.DocEntry{
				Text:  record.Text,
				Start: m.StartPoint,
				End:   m.EndPoint,
				Kind:  p.Name(),
			})
			continue
		}
		fe.bucketFor(result, category)[p.Name()] = append(fe.bucketFor(result, category)[p.Name()], record)
	}
}

// docTerms stems and dedupes significant words across all collected
// documentation for downstream retrieval.
func docTerms(doc types.Documentation) []string {
	seen := make(map[string]struct{})
	collect := func(entries []types.DocEntry) {
		for _, e := range entries {
			for _, word := range strings.FieldsFunc(strings.ToLower(e.Text), func(r rune) bool {
				return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
			}) {
				if len(word) < 3 || len(word) > 40 {
					continue
				}
				seen[porter2.Stem(word)] = struct{}{}
			}
		}
	}
	collect(doc.Docstrings)
	collect(doc.Comments)
	collect(doc.Annotations)

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
