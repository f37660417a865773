package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Learner.SampleSize)
	assert.Equal(t, int64(500), cfg.Learner.MaxFileSizeKB)
}

func TestLoadMissingFilesFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().Engine.QueryMatchLimit, cfg.Engine.QueryMatchLimit)
	assert.Equal(t, dir, cfg.Project.Root)
	assert.True(t, filepath.IsAbs(cfg.Learner.InsightsDir))
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	content := `
[Project]
Name = "demo"

[Engine]
QueryMatchLimit = 99

[Learner]
SampleSize = 25
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".polyscan.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, 99, cfg.Engine.QueryMatchLimit)
	assert.Equal(t, 25, cfg.Learner.SampleSize)
	// Untouched fields keep defaults.
	assert.Equal(t, Default().Engine.RegexCacheSize, cfg.Engine.RegexCacheSize)
}

func TestLoadKDL(t *testing.T) {
	dir := t.TempDir()
	content := `
project {
    name "kdl-demo"
}
engine {
    query_match_limit 77
    max_file_size_kb 2048
}
learner {
    sample_size 42
    min_confidence 0.6
    insights_dir "learn/insights"
}
exclude "**/generated/**" "**/tmp/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".polyscan.kdl"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "kdl-demo", cfg.Project.Name)
	assert.Equal(t, 77, cfg.Engine.QueryMatchLimit)
	assert.Equal(t, int64(2048), cfg.Engine.MaxFileSizeKB)
	assert.Equal(t, 42, cfg.Learner.SampleSize)
	assert.InDelta(t, 0.6, cfg.Learner.MinConfidence, 1e-9)
	assert.Contains(t, cfg.Exclude, "**/generated/**")
	assert.Equal(t, filepath.Join(dir, "learn", "insights"), cfg.Learner.InsightsDir)
}

func TestTOMLWinsOverKDL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".polyscan.toml"), []byte("[Project]\nName = \"toml\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".polyscan.kdl"), []byte("project { name \"kdl\" }\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "toml", cfg.Project.Name)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Engine.QueryTimeoutMicros = -1 }},
		{"zero sample size", func(c *Config) { c.Learner.SampleSize = 0 }},
		{"confidence above one", func(c *Config) { c.Learner.MinConfidence = 1.5 }},
		{"zero max file size", func(c *Config) { c.Engine.MaxFileSizeKB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWatcherAppliesDataFileChanges(t *testing.T) {
	dir := t.TempDir()
	applied := make(chan string, 4)
	w, err := Watch(dir, func(path string) { applied <- path })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.toml"), []byte("x = 1\n"), 0o644))
	select {
	case path := <-applied:
		assert.Contains(t, path, "tables.toml")
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never fired")
	}

	// Non-data files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("ignored\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	select {
	case path := <-applied:
		assert.NotContains(t, path, "scratch.txt")
	default:
	}
}
