package health

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingReporter) Report(component string, status Status, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, component+":"+status.String())
}

func TestMonitorRecordsTransitionsOnly(t *testing.T) {
	downstream := &recordingReporter{}
	m := NewMonitor(downstream)

	m.Report("parser", StatusInitializing, nil)
	m.Report("parser", StatusHealthy, nil)
	m.Report("parser", StatusHealthy, nil) // no transition
	m.Report("parser", StatusDegraded, map[string]any{"reason": "slow"})

	transitions := m.Transitions()
	require.Len(t, transitions, 3)
	assert.Equal(t, StatusInitializing, transitions[0].To)
	assert.Equal(t, StatusHealthy, transitions[1].To)
	assert.Equal(t, StatusDegraded, transitions[2].To)
	assert.Equal(t, []string{
		"parser:initializing", "parser:healthy", "parser:degraded",
	}, downstream.calls)
}

func TestMonitorOverall(t *testing.T) {
	m := NewMonitor(nil)
	assert.Equal(t, StatusHealthy, m.Overall())

	m.Report("a", StatusHealthy, nil)
	m.Report("b", StatusDegraded, nil)
	assert.Equal(t, StatusDegraded, m.Overall())

	m.Report("c", StatusUnhealthy, nil)
	assert.Equal(t, StatusUnhealthy, m.Overall())
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "initializing", StatusInitializing.String())
	assert.Equal(t, "healthy", StatusHealthy.String())
	assert.Equal(t, "degraded", StatusDegraded.String())
	assert.Equal(t, "unhealthy", StatusUnhealthy.String())
}
