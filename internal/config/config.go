// Package config carries the engine's tunables. Configuration loads
// from .polyscan.toml or .polyscan.kdl at a project root; every field
// has a default so a missing file means a usable engine.
package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Version  int
	Project  Project
	Engine   Engine
	Learner  Learner
	Patterns Patterns
	Include  []string
	Exclude  []string
}

type Project struct {
	Root string
	Name string
}

type Engine struct {
	QueryTimeoutMicros int64 // Soft per-query time limit
	QueryMatchLimit    int   // Soft per-query match limit
	RegexCacheSize     int   // Compiled regex LRU capacity
	RegexTimeoutMs     int   // Backtracking regex match timeout
	CacheTTLMinutes    int   // AST/pattern-result cache TTL
	CacheMaxEntries    int   // AST/pattern-result cache capacity
	MaxFileSizeKB      int64 // Files larger than this are not parsed
}

type Learner struct {
	SampleSize       int    // Files sampled per project walk
	MaxFileSizeKB    int64  // Walk skips files larger than this
	ProjectBudgetSec int    // Wall-clock budget per project
	Parallelism      int    // 0 = NumCPU
	InsightsDir      string // Where insight documents persist
	MinConfidence    float64
}

type Patterns struct {
	Dir       string // Extra pattern/table directory, reloadable
	WatchMode bool   // Watch Dir for changes
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Engine: Engine{
			QueryTimeoutMicros: 50_000,
			QueryMatchLimit:    1024,
			RegexCacheSize:     256,
			RegexTimeoutMs:     250,
			CacheTTLMinutes:    120,
			CacheMaxEntries:    400,
			MaxFileSizeKB:      10 * 1024,
		},
		Learner: Learner{
			SampleSize:       100,
			MaxFileSizeKB:    500,
			ProjectBudgetSec: 120,
			InsightsDir:      ".polyscan/insights",
			MinConfidence:    0.5,
		},
		Exclude: []string{
			"**/node_modules/**", "**/.git/**", "**/vendor/**",
			"**/dist/**", "**/build/**", "**/target/**",
		},
	}
}

// Load reads configuration from projectRoot, trying TOML then KDL,
// falling back to defaults. The returned config always validates.
func Load(projectRoot string) (*Config, error) {
	cfg, err := LoadTOML(projectRoot)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg, err = LoadKDL(projectRoot)
		if err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = Default()
	}
	cfg.resolveRoot(projectRoot)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML reads .polyscan.toml if present; nil means not found.
func LoadTOML(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".polyscan.toml")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolveRoot(projectRoot string) {
	if c.Project.Root == "" {
		c.Project.Root = projectRoot
	}
	if !filepath.IsAbs(c.Project.Root) {
		abs, err := filepath.Abs(filepath.Join(projectRoot, c.Project.Root))
		if err == nil {
			c.Project.Root = abs
		}
	}
	c.Project.Root = filepath.Clean(c.Project.Root)
	if c.Learner.InsightsDir != "" && !filepath.IsAbs(c.Learner.InsightsDir) {
		c.Learner.InsightsDir = filepath.Join(c.Project.Root, c.Learner.InsightsDir)
	}
}
