package pattern

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/polyscan/internal/types"
)

// rollingSampleSize bounds the per-pattern rolling windows.
const rollingSampleSize = 50

// PerfMetrics tracks one pattern's execution history. Counters are
// atomic and monotonic for the process lifetime; rolling samples are
// mutex-guarded. Reads may observe slightly stale values.
type PerfMetrics struct {
	hits               atomic.Int64
	misses             atomic.Int64
	errors             atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	exceededMatchLimit atomic.Int64
	exceededTimeLimit  atomic.Int64

	executionTimeNanos atomic.Int64
	memoryUsageBytes   atomic.Int64

	mu               sync.Mutex
	compilationTimes []time.Duration
	nodeCounts       []int
	captureCounts    []int
}

// RecordExecution folds one run's outcome into the counters.
func (m *PerfMetrics) RecordExecution(matched bool, elapsed time.Duration, qm types.QueryMetrics) {
	if matched {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.executionTimeNanos.Add(elapsed.Nanoseconds())
	if qm.ExceededMatchLimit {
		m.exceededMatchLimit.Add(1)
	}
	if qm.ExceededTimeLimit {
		m.exceededTimeLimit.Add(1)
	}

	m.mu.Lock()
	m.nodeCounts = appendSample(m.nodeCounts, qm.NodeCount)
	m.captureCounts = appendSample(m.captureCounts, qm.CaptureCount)
	m.mu.Unlock()
}

// RecordError counts an execution failure.
func (m *PerfMetrics) RecordError() { m.errors.Add(1) }

// RecordCache counts a cache lookup outcome.
func (m *PerfMetrics) RecordCache(hit bool) {
	if hit {
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
}

// RecordCompilation samples one query compilation.
func (m *PerfMetrics) RecordCompilation(elapsed time.Duration) {
	m.mu.Lock()
	m.compilationTimes = appendSample(m.compilationTimes, elapsed)
	m.mu.Unlock()
}

func appendSample[T any](samples []T, v T) []T {
	if len(samples) >= rollingSampleSize {
		copy(samples, samples[1:])
		samples[len(samples)-1] = v
		return samples
	}
	return append(samples, v)
}

// Snapshot is the exported, read-only view of a pattern's metrics.
type Snapshot struct {
	PatternName        string  `json:"pattern_name"`
	Hits               int64   `json:"hits"`
	Misses             int64   `json:"misses"`
	Errors             int64   `json:"errors"`
	CacheHits          int64   `json:"cache_hits"`
	CacheMisses        int64   `json:"cache_misses"`
	ExceededMatchLimit int64   `json:"exceeded_match_limit"`
	ExceededTimeLimit  int64   `json:"exceeded_time_limit"`
	ExecutionTimeMs    float64 `json:"execution_time_ms"`
	SuccessRate        float64 `json:"success_rate"`
	AvgCompileMicros   float64 `json:"avg_compile_micros"`
	AvgNodeCount       float64 `json:"avg_node_count"`
	AvgCaptureCount    float64 `json:"avg_capture_count"`
}

// Snapshot captures the current metric values.
func (m *PerfMetrics) Snapshot(name string) Snapshot {
	s := Snapshot{
		PatternName:        name,
		Hits:               m.hits.Load(),
		Misses:             m.misses.Load(),
		Errors:             m.errors.Load(),
		CacheHits:          m.cacheHits.Load(),
		CacheMisses:        m.cacheMisses.Load(),
		ExceededMatchLimit: m.exceededMatchLimit.Load(),
		ExceededTimeLimit:  m.exceededTimeLimit.Load(),
		ExecutionTimeMs:    float64(m.executionTimeNanos.Load()) / 1e6,
	}
	total := s.Hits + s.Misses + s.Errors
	if total > 0 {
		s.SuccessRate = float64(s.Hits) / float64(total)
	}

	m.mu.Lock()
	if len(m.compilationTimes) > 0 {
		var sum time.Duration
		for _, d := range m.compilationTimes {
			sum += d
		}
		s.AvgCompileMicros = float64(sum.Microseconds()) / float64(len(m.compilationTimes))
	}
	s.AvgNodeCount = meanInt(m.nodeCounts)
	s.AvgCaptureCount = meanInt(m.captureCounts)
	m.mu.Unlock()
	return s
}

func meanInt(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0
	for _, v := range samples {
		sum += v
	}
	return float64(sum) / float64(len(samples))
}

// MetricsTable holds the per-pattern metric records.
type MetricsTable struct {
	mu      sync.RWMutex
	byName  map[string]*PerfMetrics
}

// NewMetricsTable creates an empty table.
func NewMetricsTable() *MetricsTable {
	return &MetricsTable{byName: make(map[string]*PerfMetrics)}
}

// For returns the metrics record for a pattern, creating it on first use.
func (t *MetricsTable) For(patternName string) *PerfMetrics {
	t.mu.RLock()
	m, ok := t.byName[patternName]
	t.mu.RUnlock()
	if ok {
		return m
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok = t.byName[patternName]; ok {
		return m
	}
	m = &PerfMetrics{}
	t.byName[patternName] = m
	return m
}

// Snapshots exports every pattern's metrics.
func (t *MetricsTable) Snapshots() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.byName))
	for name, m := range t.byName {
		out = append(out, m.Snapshot(name))
	}
	return out
}
