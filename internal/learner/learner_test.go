package learner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/polyscan/internal/classify"
	"github.com/standardbeagle/polyscan/internal/config"
	"github.com/standardbeagle/polyscan/internal/langmap"
	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/parser/custom"
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

func newTestLearner(t *testing.T, insightsDir string) (*Learner, *pattern.Engine) {
	t.Helper()
	d := parser.NewDispatcher()
	custom.RegisterAll(d)
	t.Cleanup(d.Cleanup)

	registry := pattern.NewRegistry()
	engine := pattern.NewEngine(d, registry)
	mapper := langmap.NewMapper(d)
	classifier := classify.New(mapper, d)

	cfg := config.Default().Learner
	cfg.InsightsDir = insightsDir
	cfg.SampleSize = 50
	l := New(engine, classifier, cfg, nil, config.Default().Exclude, nil)
	return l, engine
}

func writeSampleProject(t *testing.T, files int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < files; i++ {
		content := fmt.Sprintf("def func_%d(a, b):\n    return a + b\n\nclass Type%d:\n    pass\n", i, i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("mod_%02d.py", i)), []byte(content), 0o644))
	}
	// Noise the walk must skip.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "x.py"), []byte("def ignored(): pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# docs\n"), 0o644))
	return dir
}

// End-to-end learner run: the insights document is written; any
// accepted improvement validated against the pattern's test cases.
func TestLearnLanguageWritesInsights(t *testing.T) {
	insightsDir := filepath.Join(t.TempDir(), "insights")
	l, engine := newTestLearner(t, insightsDir)

	def := &pattern.Definition{
		Name:       "function",
		LanguageID: "python",
		Category:   types.CategorySyntax,
		Confidence: 0.9,
		// The (_) parameter node gives the node-pattern strategy
		// something to tighten.
		Query: `(function_definition name: (identifier) @name parameters: (_) @params) @function`,
		Regex: `(?m)^def\s+(?P<name>\w+)`,
		TestCases: []pattern.TestCase{
			{Source: "def hello(x, y):\n    return x + y\n", WantMatches: 1},
		},
	}
	engine.Registry().RegisterLanguagePatterns("python", []*pattern.Definition{def})

	project := writeSampleProject(t, 50)
	report, err := l.LearnLanguage(context.Background(), "python", project)
	require.NoError(t, err)

	assert.Equal(t, "python", report.Language)
	assert.Equal(t, 50, report.FilesSampled)
	assert.Equal(t, 1, report.PatternsAnalyzed)
	assert.NotEmpty(t, report.RunID)

	ins := report.Insights["function"]
	require.NotNil(t, ins)
	assert.Equal(t, 50, ins.FilesMatched)
	assert.Equal(t, 50, ins.TotalMatches)
	assert.Greater(t, ins.CaptureFrequencies["name"], 0)
	assert.Greater(t, ins.StructureFrequencies["name:identifier"], 0)

	// The document landed on disk.
	files, err := l.Store().List("python")
	require.NoError(t, err)
	require.Len(t, files, 1)
	loaded, err := l.Store().Read(files[0])
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)

	// If an improvement was accepted, it must hold up against every
	// declared test case; otherwise nothing changed.
	if report.PatternsImproved > 0 {
		improved, ok := engine.Registry().Resolve("python", "function")
		require.True(t, ok)
		assert.Contains(t, improved.Name(), pattern.ImprovedSuffix)
		for _, tc := range def.TestCases {
			got := engine.Match(context.Background(), improved, []byte(tc.Source), nil)
			assert.GreaterOrEqual(t, len(got), tc.WantMatches)
		}
	} else {
		assert.Empty(t, report.Improvements)
	}
}

func TestLearnerSkipsOversizeAndExcluded(t *testing.T) {
	insightsDir := filepath.Join(t.TempDir(), "insights")
	l, engine := newTestLearner(t, insightsDir)
	engine.Registry().RegisterLanguagePatterns("python", []*pattern.Definition{{
		Name: "function", LanguageID: "python", Category: types.CategorySyntax,
		Confidence: 0.9, Regex: `(?m)^def\s+(?P<name>\w+)`,
	}})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.py"), []byte("def a(): pass\n"), 0o644))
	big := make([]byte, 600*1024)
	copy(big, []byte("def huge(): pass\n"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.py"), big, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "dep.py"), []byte("def dep(): pass\n"), 0o644))

	report, err := l.LearnLanguage(context.Background(), "python", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesSampled)
}

func TestLearnerSampleLimit(t *testing.T) {
	insightsDir := filepath.Join(t.TempDir(), "insights")
	l, engine := newTestLearner(t, insightsDir)
	l.cfg.SampleSize = 10
	engine.Registry().RegisterLanguagePatterns("python", []*pattern.Definition{{
		Name: "function", LanguageID: "python", Category: types.CategorySyntax,
		Confidence: 0.9, Regex: `(?m)^def\s+(?P<name>\w+)`,
	}})

	project := writeSampleProject(t, 30)
	report, err := l.LearnLanguage(context.Background(), "python", project)
	require.NoError(t, err)
	assert.LessOrEqual(t, report.FilesSampled, 10)
}

func TestInsightsStoreAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	store := NewInsightsStore(dir)

	report := NewRunReport("go")
	report.PatternsAnalyzed = 3
	require.NoError(t, store.Write(report))

	// No temp files linger.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ".insights-")

	// Append-only: a second run adds a second document.
	second := NewRunReport("go")
	require.NoError(t, store.Write(second))
	files, err := store.List("go")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestInsightsStoreDisabled(t *testing.T) {
	store := NewInsightsStore("")
	assert.NoError(t, store.Write(NewRunReport("go")))
	files, err := store.List("go")
	assert.NoError(t, err)
	assert.Empty(t, files)
}
