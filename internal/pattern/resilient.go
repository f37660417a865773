package pattern

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// RecoveryStrategy is one pluggable step in a resilient pattern's
// recovery chain. Apply returns (matches, progressed): progressed is
// false when the strategy could not even attempt recovery.
type RecoveryStrategy interface {
	Name() string
	Apply(ctx context.Context, e *Engine, p *ResilientPattern, source []byte, tree parser.Tree) ([]types.PatternMatch, bool)
}

// RecoveryStats aggregates recovery outcomes per strategy so
// operators can tune strategy order.
type RecoveryStats struct {
	mu         sync.Mutex
	attempts   int64
	successes  int64
	byStrategy map[string]*strategyStats
}

type strategyStats struct {
	attempts  int64
	successes int64
	totalTime time.Duration
}

// NewRecoveryStats creates an empty stats record.
func NewRecoveryStats() *RecoveryStats {
	return &RecoveryStats{byStrategy: make(map[string]*strategyStats)}
}

func (s *RecoveryStats) recordAttempt(strategy string, success bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byStrategy[strategy]
	if !ok {
		st = &strategyStats{}
		s.byStrategy[strategy] = st
	}
	st.attempts++
	st.totalTime += elapsed
	if success {
		st.successes++
	}
}

func (s *RecoveryStats) recordRun(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if success {
		s.successes++
	}
}

// StrategyExport is the exported view of one strategy's history.
type StrategyExport struct {
	Attempts        int64   `json:"attempts"`
	Successes       int64   `json:"successes"`
	AvgRecoveryMs   float64 `json:"avg_recovery_ms"`
}

// Export returns the aggregate view. The per-strategy success sum
// never exceeds overall successes, which never exceed attempts.
func (s *RecoveryStats) Export() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	strategies := make(map[string]StrategyExport, len(s.byStrategy))
	for name, st := range s.byStrategy {
		exp := StrategyExport{Attempts: st.attempts, Successes: st.successes}
		if st.attempts > 0 {
			exp.AvgRecoveryMs = float64(st.totalTime.Milliseconds()) / float64(st.attempts)
		}
		strategies[name] = exp
	}
	return map[string]any{
		"attempts":   s.attempts,
		"successes":  s.successes,
		"strategies": strategies,
	}
}

// runRecovery walks the strategy chain left to right until one
// produces matches.
func (e *Engine) runRecovery(ctx context.Context, p *ResilientPattern, source []byte, tree parser.Tree, pctx *Context) []types.PatternMatch {
	var recovered []types.PatternMatch
	for _, strategy := range p.strategies {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		start := time.Now()
		matches, progressed := strategy.Apply(ctx, e, p, source, tree)
		if !progressed {
			continue
		}
		success := len(matches) > 0
		p.stats.recordAttempt(strategy.Name(), success, time.Since(start))
		if success {
			recovered = matches
			break
		}
	}
	p.stats.recordRun(len(recovered) > 0)
	for i := range recovered {
		if recovered[i].Features == nil {
			recovered[i].Features = map[string]any{}
		}
		recovered[i].Features["recovery_strategy"] = string(recovered[i].Strategy)
	}
	return recovered
}

// fallbackPatternsStrategy tries the declared alternative queries in
// order.
type fallbackPatternsStrategy struct{}

func (fallbackPatternsStrategy) Name() string { return string(types.StrategyFallbackPatterns) }

func (fallbackPatternsStrategy) Apply(ctx context.Context, e *Engine, p *ResilientPattern, source []byte, tree parser.Tree) ([]types.PatternMatch, bool) {
	gt, ok := tree.(*parser.GrammarTree)
	if !ok || len(p.Definition().FallbackQueries) == 0 {
		return nil, false
	}
	for _, query := range p.Definition().FallbackQueries {
		matches, _ := e.runQuery(ctx, p, query, gt, e.limits)
		if len(matches) > 0 {
			tagStrategy(matches, types.StrategyFallbackPatterns)
			return matches, true
		}
	}
	return nil, true
}

// regexFallbackStrategy runs the pattern's regex variant.
type regexFallbackStrategy struct{}

func (regexFallbackStrategy) Name() string { return string(types.StrategyRegexFallback) }

func (regexFallbackStrategy) Apply(ctx context.Context, e *Engine, p *ResilientPattern, source []byte, tree parser.Tree) ([]types.PatternMatch, bool) {
	if p.Definition().Regex == "" {
		return nil, false
	}
	matches := e.runRegex(ctx, p, p.Definition().Regex, source, types.StrategyRegexFallback)
	return matches, true
}

// partialMatchStrategy re-parses contiguous line windows of the
// source and unions per-window query results.
type partialMatchStrategy struct{}

const (
	partialWindowLines  = 40
	partialWindowStride = 30
)

func (partialMatchStrategy) Name() string { return string(types.StrategyPartialMatch) }

func (partialMatchStrategy) Apply(ctx context.Context, e *Engine, p *ResilientPattern, source []byte, tree parser.Tree) ([]types.PatternMatch, bool) {
	def := p.Definition()
	if def.Query == "" {
		return nil, false
	}
	languageID := p.LanguageID()
	if !e.dispatch.HasGrammarBackend(languageID) {
		return nil, false
	}

	lines := strings.Split(string(source), "\n")
	if len(lines) == 0 {
		return nil, false
	}

	gp, err := e.dispatch.GetParser(types.FileClassification{
		LanguageID: languageID,
		ParserKind: types.ParserKindGrammar,
	})
	if err != nil {
		return nil, false
	}
	defer e.dispatch.Release(gp)

	seen := make(map[[2]uint]struct{})
	var all []types.PatternMatch

	for windowStart := 0; windowStart < len(lines); windowStart += partialWindowStride {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		windowEnd := windowStart + partialWindowLines
		if windowEnd > len(lines) {
			windowEnd = len(lines)
		}
		windowText := strings.Join(lines[windowStart:windowEnd], "\n")
		byteBase := lineStartOffset(lines, windowStart)

		result, perr := gp.Parse(ctx, []byte(windowText))
		if perr != nil || result == nil || result.Tree == nil {
			continue
		}
		gt, ok := result.Tree.(*parser.GrammarTree)
		if !ok {
			result.Tree.Close()
			continue
		}
		matches, _ := e.runQuery(ctx, p, def.Query, gt, e.limits)
		result.Tree.Close()

		for _, m := range matches {
			shiftMatch(&m, uint32(windowStart), byteBase)
			key := [2]uint{m.StartByte, m.EndByte}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			m.Strategy = types.StrategyPartialMatch
			all = append(all, m)
		}

		if windowEnd == len(lines) {
			break
		}
	}
	return all, true
}

func lineStartOffset(lines []string, line int) uint {
	var off uint
	for i := 0; i < line; i++ {
		off += uint(len(lines[i])) + 1
	}
	return off
}

// shiftMatch translates a window-relative match into whole-file
// coordinates.
func shiftMatch(m *types.PatternMatch, rowBase uint32, byteBase uint) {
	m.StartPoint.Row += rowBase
	m.EndPoint.Row += rowBase
	m.StartByte += byteBase
	m.EndByte += byteBase
	for name, spans := range m.Captures {
		for i := range spans {
			spans[i].StartPoint.Row += rowBase
			spans[i].EndPoint.Row += rowBase
			spans[i].StartByte += byteBase
			spans[i].EndByte += byteBase
		}
		m.Captures[name] = spans
	}
}
