package pattern

import (
	"context"
	"sort"
	"time"

	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Engine executes patterns. It owns the regex cache and the
// per-pattern metrics table; compiled queries are cached by the
// dispatcher's grammar backend, and pattern state (adaptation,
// recovery stats) lives on the patterns themselves.
type Engine struct {
	dispatch *parser.Dispatcher
	registry *Registry
	regexes  *RegexCache
	metrics  *MetricsTable
	limits   types.QueryLimits
}

// NewEngine wires an engine over a dispatcher and registry.
func NewEngine(dispatch *parser.Dispatcher, registry *Registry) *Engine {
	return &Engine{
		dispatch: dispatch,
		registry: registry,
		regexes:  NewRegexCache(256, 250*time.Millisecond),
		metrics:  NewMetricsTable(),
		limits:   types.DefaultQueryLimits(),
	}
}

// SetLimits replaces the default query limits.
func (e *Engine) SetLimits(limits types.QueryLimits) { e.limits = limits }

// SetRegexOptions resizes the regex cache and retunes the
// backtracking match timeout.
func (e *Engine) SetRegexOptions(cacheSize int, matchTimeout time.Duration) {
	e.regexes = NewRegexCache(cacheSize, matchTimeout)
}

// Metrics exposes the per-pattern metrics table.
func (e *Engine) Metrics() *MetricsTable { return e.metrics }

// Registry exposes the pattern registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Match runs one pattern over source under the variant state machine:
// PRIMARY, then ADAPT (adaptive only), then RECOVER (resilient only),
// then empty. Pattern failures are absorbed: compile errors mark the
// pattern invalid for the run, execution errors count and yield an
// empty result. Results come back in source order.
func (e *Engine) Match(ctx context.Context, p Pattern, source []byte, pctx *Context) []types.PatternMatch {
	if pctx == nil {
		pctx = NewContext(p.LanguageID())
	}
	m := e.metrics.For(p.Name())
	start := time.Now()

	tree, ownsTree := e.resolveTree(ctx, p, source, pctx)
	if ownsTree && tree != nil {
		defer tree.Close()
	}

	matches, qm := e.runPrimary(ctx, p, source, tree, pctx)

	switch p.Variant() {
	case types.VariantAdaptive:
		if len(matches) == 0 {
			matches = e.runAdaptive(ctx, p.(*AdaptivePattern), source, tree, qm)
		}
	case types.VariantResilient:
		if len(matches) == 0 {
			matches = e.runRecovery(ctx, p.(*ResilientPattern), source, tree, pctx)
		}
	}

	finalize(matches, p, source)
	m.RecordExecution(len(matches) > 0, time.Since(start), qm)
	return matches
}

// MatchByName resolves a pattern through the registry and runs it.
// Unknown names yield an empty result, never an error.
func (e *Engine) MatchByName(ctx context.Context, languageID, name string, source []byte, pctx *Context) []types.PatternMatch {
	p, ok := e.registry.Resolve(languageID, name)
	if !ok {
		debug.Match("unknown pattern", "pattern", name, "language", languageID)
		return nil
	}
	return e.Match(ctx, p, source, pctx)
}

// resolveTree picks the tree to execute against. The tree's kind wins
// over the pattern's expectations: it is never re-parsed to suit the
// pattern.
func (e *Engine) resolveTree(ctx context.Context, p Pattern, source []byte, pctx *Context) (parser.Tree, bool) {
	if pctx.CodeStructure != nil {
		return pctx.CodeStructure, false
	}

	languageID := p.LanguageID()
	if languageID == types.LanguageWildcard {
		languageID = pctx.LanguageID
	}
	if languageID == "" || languageID == types.LanguageWildcard {
		return nil, false
	}
	if p.Definition().Query == "" {
		// Regex-only pattern: no tree needed.
		return nil, false
	}
	if !e.dispatch.HasGrammarBackend(languageID) {
		return nil, false
	}

	gp, err := e.dispatch.GetParser(types.FileClassification{
		LanguageID: languageID,
		ParserKind: types.ParserKindGrammar,
	})
	if err != nil {
		debug.Match("parser unavailable", "language", languageID, "error", err)
		return nil, false
	}
	defer e.dispatch.Release(gp)

	result, err := gp.Parse(ctx, source)
	if err != nil || result == nil || result.Tree == nil {
		return nil, false
	}
	return result.Tree, true
}

// runPrimary executes the pattern's declared primary path against the
// resolved tree, or its regex when the tree is handwritten or absent.
func (e *Engine) runPrimary(ctx context.Context, p Pattern, source []byte, tree parser.Tree, pctx *Context) ([]types.PatternMatch, types.QueryMetrics) {
	def := p.Definition()

	query, regex := def.Query, def.Regex
	if ap, ok := p.(*AdaptivePattern); ok {
		if aq, ar, adapted := ap.adaptedState(); adapted {
			if aq != "" {
				query = aq
			}
			if ar != "" {
				regex = ar
			}
		}
	}

	if gt, ok := tree.(*parser.GrammarTree); ok && query != "" {
		matches, qm := e.runQuery(ctx, p, query, gt, e.limits)
		for i := range matches {
			matches[i].Strategy = types.StrategyPrimary
		}
		return matches, qm
	}

	// Handwritten tree or no grammar: regex decides, per the
	// tree-kind-wins rule.
	if regex != "" {
		matches := e.runRegex(ctx, p, regex, source, types.StrategyPrimary)
		return matches, types.QueryMetrics{CaptureCount: countCaptures(matches)}
	}
	return nil, types.QueryMetrics{}
}

// runQuery compiles and executes one structural query. Compilation
// failures mark the pattern invalid; execution is crash-protected.
func (e *Engine) runQuery(ctx context.Context, p Pattern, querySource string, tree *parser.GrammarTree, limits types.QueryLimits) (out []types.PatternMatch, qm types.QueryMetrics) {
	m := e.metrics.For(p.Name())

	defer func() {
		if r := recover(); r != nil {
			debug.Match("query panic", "pattern", p.Name(), "panic", r)
			m.RecordError()
			out, qm = nil, types.QueryMetrics{}
		}
	}()

	compileStart := time.Now()
	query, err := e.dispatch.Grammar().CompileQuery(tree.Language(), querySource)
	m.RecordCompilation(time.Since(compileStart))
	if err != nil || query == nil {
		e.registry.MarkInvalid(p.Name(), err)
		m.RecordError()
		return nil, types.QueryMetrics{}
	}

	raw, qm := e.dispatch.Grammar().RunQuery(ctx, tree, query, limits)
	source := tree.Source()
	def := p.Definition()

	for _, rm := range raw {
		match := types.PatternMatch{
			PatternName: p.Name(),
			Captures:    make(map[string][]types.CaptureSpan),
		}
		first := true
		for _, c := range rm.Captures {
			span := types.CaptureSpan{
				Name:       c.Name,
				Text:       c.Text,
				StartPoint: c.StartPoint,
				EndPoint:   c.EndPoint,
				StartByte:  c.StartByte,
				EndByte:    c.EndByte,
				NodeKind:   c.NodeKind,
			}
			match.Captures[c.Name] = append(match.Captures[c.Name], span)
			if first || c.StartByte < match.StartByte {
				match.StartByte = c.StartByte
				match.StartPoint = c.StartPoint
			}
			if first || c.EndByte > match.EndByte {
				match.EndByte = c.EndByte
				match.EndPoint = c.EndPoint
			}
			first = false
		}
		if first {
			continue
		}
		if match.EndByte <= uint(len(source)) {
			match.Text = string(source[match.StartByte:match.EndByte])
		}
		if !applyPredicates(&match, def.Predicates) {
			continue
		}
		if ctx != nil && ctx.Err() != nil {
			match.Cancelled = true
			out = append(out, match)
			break
		}
		out = append(out, match)
	}
	return out, qm
}

// runRegex executes the pattern's regex fallback over raw bytes.
func (e *Engine) runRegex(ctx context.Context, p Pattern, expr string, source []byte, strategy types.MatchStrategy) []types.PatternMatch {
	m := e.metrics.For(p.Name())

	compiled, err := e.regexes.Get(expr)
	if err != nil {
		e.registry.MarkInvalid(p.Name(), err)
		m.RecordError()
		return nil
	}

	lines := newLineIndex(source)
	def := p.Definition()
	var out []types.PatternMatch
	for _, span := range compiled.execute(source) {
		match := types.PatternMatch{
			PatternName: p.Name(),
			Captures:    make(map[string][]types.CaptureSpan),
			Text:        string(source[span.start:span.end]),
			StartPoint:  lines.pointAt(span.start),
			EndPoint:    lines.pointAt(span.end),
			StartByte:   uint(span.start),
			EndByte:     uint(span.end),
			Strategy:    strategy,
		}
		for name, groups := range span.groups {
			for _, g := range groups {
				match.Captures[name] = append(match.Captures[name], types.CaptureSpan{
					Name:       name,
					Text:       string(source[g.start:g.end]),
					StartPoint: lines.pointAt(g.start),
					EndPoint:   lines.pointAt(g.end),
					StartByte:  uint(g.start),
					EndByte:    uint(g.end),
				})
			}
		}
		if !applyPredicates(&match, def.Predicates) {
			continue
		}
		if ctx != nil && ctx.Err() != nil {
			match.Cancelled = true
			out = append(out, match)
			break
		}
		out = append(out, match)
	}
	return out
}

// applyPredicates filters a match and records per-predicate outcomes.
func applyPredicates(match *types.PatternMatch, predicates []Predicate) bool {
	if len(predicates) == 0 {
		return true
	}
	if match.PredicateResults == nil {
		match.PredicateResults = make(map[string]bool, len(predicates))
	}
	pass := true
	for _, pred := range predicates {
		span, ok := match.Capture(pred.Capture)
		result := ok && pred.Test(span)
		match.PredicateResults[pred.Name] = result
		if !result {
			pass = false
		}
	}
	return pass
}

// finalize orders matches, composes confidence, and runs extraction.
func finalize(matches []types.PatternMatch, p Pattern, source []byte) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].StartPoint != matches[j].StartPoint {
			return matches[i].StartPoint.Less(matches[j].StartPoint)
		}
		// Ties break by longer span first.
		return matches[i].EndByte-matches[i].StartByte > matches[j].EndByte-matches[j].StartByte
	})

	def := p.Definition()
	for i := range matches {
		if matches[i].Strategy == "" {
			matches[i].Strategy = types.StrategyPrimary
		}
		matches[i].Confidence = p.Confidence() * types.StrategyWeight(matches[i].Strategy)
		if def.Extract != nil {
			matches[i].Features = def.Extract(&matches[i])
		}
	}
}

func countCaptures(matches []types.PatternMatch) int {
	n := 0
	for _, m := range matches {
		for _, spans := range m.Captures {
			n += len(spans)
		}
	}
	return n
}

// lineIndex converts byte offsets to points.
type lineIndex struct {
	offsets []int
}

func newLineIndex(source []byte) *lineIndex {
	offsets := []int{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &lineIndex{offsets: offsets}
}

func (l *lineIndex) pointAt(byteOffset int) types.Point {
	row := sort.Search(len(l.offsets), func(i int) bool {
		return l.offsets[i] > byteOffset
	}) - 1
	if row < 0 {
		row = 0
	}
	return types.Point{Row: uint32(row), Column: uint32(byteOffset - l.offsets[row])}
}
