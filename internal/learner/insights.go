package learner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Improvement records one accepted refinement in a run report.
type Improvement struct {
	ImprovedQuery string   `json:"improved_query"`
	Confidence    float64  `json:"confidence"`
	Original      string   `json:"original"`
	Strategies    []string `json:"strategies"`
}

// RunReport is the persisted insight document for one learner run.
// Readers must ignore unknown fields; writers only add.
type RunReport struct {
	Language         string                 `json:"language"`
	RunID            string                 `json:"run_id"`
	Timestamp        time.Time              `json:"timestamp"`
	FilesSampled     int                    `json:"files_sampled"`
	PatternsAnalyzed int                    `json:"patterns_analyzed"`
	PatternsImproved int                    `json:"patterns_improved"`
	Improvements     map[string]Improvement `json:"improvements"`
	Insights         map[string]*Insights   `json:"insights"`
	Cancelled        bool                   `json:"cancelled,omitempty"`
}

// NewRunReport starts a report for a language.
func NewRunReport(language string) *RunReport {
	return &RunReport{
		Language:     language,
		RunID:        uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Improvements: make(map[string]Improvement),
		Insights:     make(map[string]*Insights),
	}
}

// InsightsStore persists run reports, one JSON document per run,
// append-only: file names carry the timestamp and run id, and the
// write lands via rename so readers never see a torn document.
type InsightsStore struct {
	dir string
}

// NewInsightsStore creates a store rooted at dir. An empty dir
// disables persistence.
func NewInsightsStore(dir string) *InsightsStore {
	return &InsightsStore{dir: dir}
}

// Dir returns the store root.
func (s *InsightsStore) Dir() string { return s.dir }

// Write persists one report atomically.
func (s *InsightsStore) Write(report *RunReport) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s-%s.json",
		report.Language,
		report.Timestamp.Format("20060102T150405"),
		shortID(report.RunID))
	final := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".insights-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, final)
}

// List returns the stored report files for a language, oldest first.
func (s *InsightsStore) List(language string) ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), language+"-") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Read loads one persisted report.
func (s *InsightsStore) Read(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
