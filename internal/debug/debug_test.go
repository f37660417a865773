package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableStagesSelection(t *testing.T) {
	t.Cleanup(Reset)

	EnableStages("parse,match")
	assert.True(t, Enabled(StageParse))
	assert.True(t, Enabled(StageMatch))
	assert.False(t, Enabled(StageClassify))
	assert.False(t, Enabled(StageLearn))

	EnableStages("all")
	for s := Stage(0); s < stageCount; s++ {
		assert.True(t, Enabled(s), s.String())
	}

	EnableStages("")
	assert.False(t, Enabled(StageParse))

	// Unknown names are ignored, known ones still apply.
	EnableStages("bogus, learn")
	assert.True(t, Enabled(StageLearn))
	assert.False(t, Enabled(StageParse))
}

func TestStageNames(t *testing.T) {
	names := []string{"classify", "parse", "match", "extract", "learn", "config"}
	for s := Stage(0); s < stageCount; s++ {
		assert.Equal(t, names[s], s.String())
	}
}

// A disabled stage produces nothing: no sink output, no ring entry.
func TestDisabledStageIsSilent(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableStages("parse")

	Classify("language resolved", "path", "a.py", "language", "python")
	assert.Empty(t, buf.String())
	assert.Empty(t, Recent())

	Parse("tree produced", "language", "python")
	assert.Contains(t, buf.String(), "parse tree produced")
	assert.Len(t, Recent(), 1)
}

func TestStructuredFields(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableStages("match")

	Match("pattern invalid", "pattern", "function", "language", "go")
	out := buf.String()
	assert.Contains(t, out, "match pattern invalid")
	assert.Contains(t, out, "pattern=function")
	assert.Contains(t, out, "language=go")

	// A dangling key is visible rather than dropped.
	buf.Reset()
	Match("odd fields", "pattern")
	assert.Contains(t, buf.String(), "pattern=?")
}

// Quiet mode silences the sink but the ring still records, so a
// failing run can be inspected afterwards.
func TestQuietKeepsRing(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableStages("learn")
	SetQuiet(true)

	Learn("improvement rejected", "pattern", "function")
	assert.Empty(t, buf.String())

	recent := Recent()
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0], "learn improvement rejected")
	assert.Contains(t, recent[0], "pattern=function")

	SetQuiet(false)
	Learn("improvement registered")
	assert.Contains(t, buf.String(), "improvement registered")
}

func TestRecentOrderAndBound(t *testing.T) {
	t.Cleanup(Reset)
	Reset()
	EnableStages("extract")

	for i := 0; i < ringSize+10; i++ {
		Extract("walk", "nodes", i)
	}
	recent := Recent()
	require.Len(t, recent, ringSize)
	// Oldest retained entry is the 11th emitted.
	assert.Contains(t, recent[0], "nodes=10")
	assert.Contains(t, recent[len(recent)-1], "nodes="+strconv.Itoa(ringSize+9))
}

func TestTraceToFileNaming(t *testing.T) {
	t.Cleanup(Reset)
	Reset()
	EnableStages("config")

	dir := t.TempDir()
	path, err := TraceTo(dir)
	require.NoError(t, err)
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "polyscan-trace-"))
	assert.True(t, strings.HasSuffix(base, ".log"))

	Config("tables reloaded", "path", "tables.toml")
	require.NoError(t, Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "config tables reloaded")
	assert.Contains(t, string(content), "path=tables.toml")
}

func TestConcurrentTracing(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableStages("all")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Classify("worker classify", "id", id)
			Parse("worker parse", "id", id)
			Match("worker match", "id", id)
			Learn("worker learn", "id", id)
		}(i)
	}
	wg.Wait()

	assert.Len(t, Recent(), 40)
}
