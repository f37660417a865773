package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/polyscan/internal/config"
	"github.com/standardbeagle/polyscan/internal/health"
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(config.Default())
	t.Cleanup(e.Cleanup)
	return e
}

// Scenario: python function file end to end.
func TestScenarioPythonFunction(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("def hello(x, y):\n    return x + y\n")

	cls := e.Classify("a.py", source)
	assert.Equal(t, "python", cls.LanguageID)
	assert.Equal(t, types.FileTypeCode, cls.FileType)
	assert.Equal(t, types.ParserKindGrammar, cls.ParserKind)
	assert.GreaterOrEqual(t, cls.Confidence, 0.95)
	assert.False(t, cls.IsBinary)

	matches := e.Match(context.Background(), "python", "function", source, nil)
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, types.Point{Row: 0, Column: 0}, m.StartPoint)
	name, ok := m.Capture("name")
	require.True(t, ok)
	assert.Equal(t, "hello", name.Text)
	assert.Equal(t, "x, y", m.Features["parameters"])
}

// Scenario: JSON object with nested array; the array match lies
// strictly inside the object match.
func TestScenarioJSONNesting(t *testing.T) {
	e := newTestEngine(t)
	source := []byte(`{"items":[1,2,3],"name":"kit"}`)

	cls := e.Classify("data.json", source)
	assert.Equal(t, "json", cls.LanguageID)
	assert.Equal(t, types.ParserKindHandwritten, cls.ParserKind)

	objects := e.Match(context.Background(), "json", "object", source, nil)
	require.NotEmpty(t, objects)
	arrays := e.Match(context.Background(), "json", "array", source, nil)
	require.Len(t, arrays, 1)

	assert.Greater(t, arrays[0].StartByte, objects[0].StartByte)
	assert.Less(t, arrays[0].EndByte, objects[0].EndByte)
}

// Scenario: INI with section and comment parses into the documented
// tree shape.
func TestScenarioINI(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("; top comment\n[db]\nhost=localhost\nport=5432\n")

	cls := e.Classify("settings.ini", source)
	assert.Equal(t, "ini", cls.LanguageID)
	assert.Equal(t, types.ParserKindHandwritten, cls.ParserKind)

	result, err := e.Parse(context.Background(), cls, source)
	require.NoError(t, err)
	assert.True(t, result.Success)

	root := result.Tree.Root()
	require.GreaterOrEqual(t, root.ChildCount(), 2)
	assert.Equal(t, "comment", root.Child(0).Kind())
	assert.Equal(t, uint32(0), root.Child(0).StartPoint().Row)
	section := root.Child(1)
	assert.Equal(t, "section", section.Kind())
	require.Equal(t, 2, section.ChildCount())
	assert.Equal(t, "property", section.Child(0).Kind())
	assert.Equal(t, "property", section.Child(1).Kind())
}

// Scenario: malformed C file parses with diagnostics and the function
// pattern still finds main.
func TestScenarioMalformedC(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("int main() { int x = ; }\n")

	cls := e.Classify("bad.c", source)
	assert.Equal(t, "c", cls.LanguageID)

	result, err := e.Parse(context.Background(), cls, source)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, types.DiagnosticError, result.Errors[0].Kind)

	matches := e.Match(context.Background(), "c", "function", source, nil)
	require.Len(t, matches, 1)
	name, ok := matches[0].Capture("name")
	require.True(t, ok)
	assert.Equal(t, "main", name.Text)
}

// Scenario: learner over a sample project writes insights.
func TestScenarioLearner(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		content := fmt.Sprintf("def f_%d(a):\n    return a\n", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("m%02d.py", i)), []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Learner.InsightsDir = filepath.Join(t.TempDir(), "insights")
	e := New(cfg)
	t.Cleanup(e.Cleanup)

	report, err := e.LearnProject(context.Background(), "python", dir)
	require.NoError(t, err)
	assert.Equal(t, 50, report.FilesSampled)
	assert.Greater(t, report.PatternsAnalyzed, 0)

	entries, err := os.ReadDir(cfg.Learner.InsightsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseResultCached(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("package x\n\nfunc F() {}\n")
	cls := e.Classify("x.go", source)

	first, err := e.Parse(context.Background(), cls, source)
	require.NoError(t, err)
	second, err := e.Parse(context.Background(), cls, source)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestParseRejectsOversizeFile(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.MaxFileSizeKB = 1
	e := New(cfg)
	t.Cleanup(e.Cleanup)

	big := make([]byte, 2048)
	cls := e.Classify("big.py", big)
	_, err := e.Parse(context.Background(), cls, big)
	assert.Error(t, err)
}

func TestExtractFeaturesAndBlocks(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("def area(w, h):\n    return w * h\n")
	cls := e.Classify("geom.py", source)
	result, err := e.Parse(context.Background(), cls, source)
	require.NoError(t, err)

	features := e.ExtractFeatures(context.Background(), result.Tree, source, []string{"function"})
	assert.NotEmpty(t, features.Syntax["function"])
	assert.Greater(t, features.Metrics.NodeCount, 0)

	blocks := e.ExtractBlocks(cls.LanguageID, source, result.Tree)
	require.Len(t, blocks, 1)
	assert.Equal(t, "function", blocks[0].Kind)
}

func TestListLanguages(t *testing.T) {
	e := newTestEngine(t)
	infos := e.ListLanguages()
	byID := make(map[string]types.LanguageInfo)
	for _, info := range infos {
		byID[info.LanguageID] = info
	}
	assert.Equal(t, types.ParserKindGrammar, byID["go"].ParserKind)
	assert.Equal(t, types.ParserKindHandwritten, byID["ini"].ParserKind)
	assert.Contains(t, byID["python"].Extensions, "py")
}

func TestRegisterPatternAndMatch(t *testing.T) {
	e := newTestEngine(t)
	registered := e.RegisterLanguagePatterns("go", []*pattern.Definition{{
		Name:       "panic_call",
		Category:   types.CategoryCommonIssues,
		Confidence: 0.9,
		Regex:      `panic\((?P<arg>[^)]*)\)`,
	}})
	assert.Equal(t, 1, registered)

	matches := e.Match(context.Background(), "go", "panic_call", []byte("func f() { panic(\"boom\") }\n"), nil)
	require.Len(t, matches, 1)
}

func TestHealthTransitions(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("x = 1\n")
	cls := e.Classify("a.py", source)
	_, err := e.Parse(context.Background(), cls, source)
	require.NoError(t, err)

	status, ok := e.Health().StatusOf("parser.python")
	require.True(t, ok)
	assert.Equal(t, health.StatusHealthy, status)
	assert.Equal(t, health.StatusHealthy, e.Health().Overall())
}

func TestPublishMetrics(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("def a():\n    pass\n")
	e.Match(context.Background(), "python", "function", source, nil)

	stats := e.PublishMetrics()
	assert.GreaterOrEqual(t, stats.TotalPatterns, int64(1))
	assert.GreaterOrEqual(t, stats.TotalHits, int64(1))
}

func TestTableOverlayDirectory(t *testing.T) {
	dir := t.TempDir()
	overlay := "[extensions]\nxyz = \"python\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.toml"), []byte(overlay), 0o644))

	cfg := config.Default()
	cfg.Patterns.Dir = dir
	e := New(cfg)
	t.Cleanup(e.Cleanup)

	cls := e.Classify("script.xyz", []byte("def f():\n    pass\n"))
	assert.Equal(t, "python", cls.LanguageID)
}

func TestBlockForMatch(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("def region(x):\n    y = x * 2\n    return y\nz = 1\n")

	matches := e.Match(context.Background(), "python", "function", source, nil)
	require.NotEmpty(t, matches)

	block := e.BlockForMatch(source, matches[0])
	assert.Contains(t, block.Content, "return y")
	assert.NotContains(t, block.Content, "z = 1")
	assert.Equal(t, 0.7, block.Confidence)
}

func TestMatchResultCached(t *testing.T) {
	e := newTestEngine(t)
	source := []byte("def cached(x):\n    return x\n")

	first := e.Match(context.Background(), "python", "function", source, nil)
	second := e.Match(context.Background(), "python", "function", source, nil)
	require.Equal(t, first, second)

	for _, snap := range e.Snapshots() {
		if snap.PatternName == "function" {
			assert.Equal(t, int64(1), snap.CacheHits)
			assert.Equal(t, int64(1), snap.CacheMisses)
		}
	}
}
