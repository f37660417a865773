// Package metrics aggregates per-pattern performance snapshots into
// engine-level statistics and forwards them to the metrics sink
// collaborator.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/standardbeagle/polyscan/internal/pattern"
)

// Sink receives periodic pattern performance snapshots.
type Sink interface {
	PublishPatternMetrics(snapshots []pattern.Snapshot)
}

// NopSink discards snapshots.
type NopSink struct{}

func (NopSink) PublishPatternMetrics([]pattern.Snapshot) {}

// EngineStats summarizes the engine's pattern activity.
type EngineStats struct {
	// Pattern-level metrics
	TotalPatterns int64
	TotalHits     int64
	TotalMisses   int64
	TotalErrors   int64

	// Cache statistics
	CacheHits   int64
	CacheMisses int64

	// Limit pressure
	ExceededMatchLimit int64
	ExceededTimeLimit  int64

	// Derived
	OverallSuccessRate float64
	AvgQueryMicros     float64
}

// Aggregate folds snapshots into engine-level stats.
func Aggregate(snapshots []pattern.Snapshot) EngineStats {
	var stats EngineStats
	var totalMs float64
	var executions int64
	for _, s := range snapshots {
		stats.TotalPatterns++
		stats.TotalHits += s.Hits
		stats.TotalMisses += s.Misses
		stats.TotalErrors += s.Errors
		stats.CacheHits += s.CacheHits
		stats.CacheMisses += s.CacheMisses
		stats.ExceededMatchLimit += s.ExceededMatchLimit
		stats.ExceededTimeLimit += s.ExceededTimeLimit
		totalMs += s.ExecutionTimeMs
		executions += s.Hits + s.Misses + s.Errors
	}
	if executions > 0 {
		stats.OverallSuccessRate = float64(stats.TotalHits) / float64(executions)
		stats.AvgQueryMicros = totalMs * 1000 / float64(executions)
	}
	return stats
}

// Format renders stats and the busiest patterns as a readable report.
func Format(stats EngineStats, snapshots []pattern.Snapshot, topN int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Patterns: %d  Hits: %d  Misses: %d  Errors: %d\n",
		stats.TotalPatterns, stats.TotalHits, stats.TotalMisses, stats.TotalErrors)
	fmt.Fprintf(&sb, "Success rate: %.1f%%  Avg query: %.0fµs\n",
		stats.OverallSuccessRate*100, stats.AvgQueryMicros)
	fmt.Fprintf(&sb, "Cache: %d hits / %d misses  Limits exceeded: %d match, %d time\n",
		stats.CacheHits, stats.CacheMisses, stats.ExceededMatchLimit, stats.ExceededTimeLimit)

	sorted := append([]pattern.Snapshot(nil), snapshots...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Hits+sorted[i].Misses > sorted[j].Hits+sorted[j].Misses
	})
	if topN > len(sorted) {
		topN = len(sorted)
	}
	if topN > 0 {
		sb.WriteString("Busiest patterns:\n")
		for _, s := range sorted[:topN] {
			fmt.Fprintf(&sb, "  %-30s hits=%-6d misses=%-6d success=%.0f%%\n",
				s.PatternName, s.Hits, s.Misses, s.SuccessRate*100)
		}
	}
	return sb.String()
}
