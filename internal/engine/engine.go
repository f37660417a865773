// Package engine owns the process-wide resources — parser pool,
// compiled-query cache, pattern registry, result cache — behind one
// handle with an explicit lifecycle. Tests construct fresh engines
// rather than sharing globals.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/standardbeagle/polyscan/internal/cache"
	"github.com/standardbeagle/polyscan/internal/classify"
	"github.com/standardbeagle/polyscan/internal/config"
	pserr "github.com/standardbeagle/polyscan/internal/errors"
	"github.com/standardbeagle/polyscan/internal/extract"
	"github.com/standardbeagle/polyscan/internal/health"
	"github.com/standardbeagle/polyscan/internal/langmap"
	"github.com/standardbeagle/polyscan/internal/learner"
	"github.com/standardbeagle/polyscan/internal/logging"
	"github.com/standardbeagle/polyscan/internal/metrics"
	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/parser/custom"
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/pattern/catalog"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Engine is the core handle over the analysis subsystems.
type Engine struct {
	cfg        *config.Config
	log        logging.Logger
	monitor    *health.Monitor
	results    cache.Cache
	dispatch   *parser.Dispatcher
	mapper     *langmap.Mapper
	classifier *classify.Classifier
	registry   *pattern.Registry
	patterns   *pattern.Engine
	features   *extract.FeatureExtractor
	learn      *learner.Learner
	sink       metrics.Sink
	watcher    *config.Watcher
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger sets the logging sink.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCache sets the result cache collaborator.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.results = c }
}

// WithHealthReporter forwards component transitions downstream.
func WithHealthReporter(r health.Reporter) Option {
	return func(e *Engine) { e.monitor = health.NewMonitor(r) }
}

// WithMetricsSink sets the pattern-metrics sink.
func WithMetricsSink(s metrics.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// New builds a fully wired engine. Construction allocates the shared
// resources; Cleanup releases them.
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg:     cfg,
		log:     logging.Nop{},
		monitor: health.NewMonitor(nil),
		sink:    metrics.NopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.monitor.Report("engine", health.StatusInitializing, nil)

	if e.results == nil {
		e.results = cache.NewMemory(cache.Config{
			MaxEntries: cfg.Engine.CacheMaxEntries,
			DefaultTTL: time.Duration(cfg.Engine.CacheTTLMinutes) * time.Minute,
			OnEvict: func(key string, value any) {
				if result, ok := value.(*parser.ParseResult); ok && result.Tree != nil {
					result.Tree.Close()
				}
			},
		})
	}

	e.dispatch = parser.NewDispatcher()
	custom.RegisterAll(e.dispatch)
	e.mapper = langmap.NewMapper(e.dispatch)
	e.classifier = classify.New(e.mapper, e.dispatch)

	e.registry = pattern.NewRegistry()
	catalog.RegisterAll(e.registry)
	e.patterns = pattern.NewEngine(e.dispatch, e.registry)
	e.patterns.SetLimits(types.QueryLimits{
		TimeoutMicros: uint64(cfg.Engine.QueryTimeoutMicros),
		MatchLimit:    uint32(cfg.Engine.QueryMatchLimit),
	})
	e.patterns.SetRegexOptions(cfg.Engine.RegexCacheSize,
		time.Duration(cfg.Engine.RegexTimeoutMs)*time.Millisecond)
	e.features = extract.NewFeatureExtractor(e.patterns)
	e.learn = learner.New(e.patterns, e.classifier, cfg.Learner, cfg.Include, cfg.Exclude, e.log)

	if cfg.Patterns.Dir != "" {
		e.loadTableOverlays(cfg.Patterns.Dir)
		if cfg.Patterns.WatchMode {
			watcher, err := config.Watch(cfg.Patterns.Dir, func(path string) {
				e.applyOverlayFile(path)
			})
			if err != nil {
				e.log.Warn("table watch unavailable", "dir", cfg.Patterns.Dir, "error", err)
			} else {
				e.watcher = watcher
			}
		}
	}

	e.monitor.Report("engine", health.StatusHealthy, nil)
	return e
}

// loadTableOverlays applies every TOML overlay in the data directory,
// in name order.
func (e *Engine) loadTableOverlays(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".toml") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		e.applyOverlayFile(filepath.Join(dir, name))
	}
}

func (e *Engine) applyOverlayFile(path string) {
	if !strings.HasSuffix(path, ".toml") {
		return
	}
	overlay, err := langmap.LoadOverlay(path)
	if err != nil {
		e.log.Warn("table overlay rejected", "path", path, "error", err)
		return
	}
	e.mapper.ApplyOverlay(overlay)
	e.log.Info("table overlay applied", "path", path)
}

// Classify maps (path, optional content) to a FileClassification,
// consulting the result cache first.
func (e *Engine) Classify(path string, content []byte) types.FileClassification {
	key := cache.ContentKey("classify", path, content)
	if cached, ok := e.results.Get(key); ok {
		return cached.(types.FileClassification)
	}
	cls := e.classifier.Classify(path, content)
	e.results.Set(key, cls, 0)
	return cls
}

// Parse routes a classification to a parser and produces the uniform
// result. Parse results are cached by (path, content-hash); cached
// trees stay alive until eviction or Cleanup. Oversized input yields
// a lifecycle error rather than an attempt.
func (e *Engine) Parse(ctx context.Context, classification types.FileClassification, source []byte) (*parser.ParseResult, error) {
	if int64(len(source)) > e.cfg.Engine.MaxFileSizeKB*1024 {
		return nil, pserr.NewFileTooLarge(classification.Path, int64(len(source)), e.cfg.Engine.MaxFileSizeKB*1024)
	}

	key := cache.ContentKey("ast", classification.Path, source)
	if cached, ok := e.results.Get(key); ok {
		return cached.(*parser.ParseResult), nil
	}

	p, err := e.dispatch.GetParser(classification)
	if err != nil {
		e.monitor.Report("parser."+classification.LanguageID, health.StatusUnhealthy,
			map[string]any{"error": err.Error()})
		return nil, err
	}
	defer e.dispatch.Release(p)

	result, err := p.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	e.monitor.Report("parser."+classification.LanguageID, health.StatusHealthy, nil)
	e.results.Set(key, result, 0)
	return result, nil
}

// Match resolves a pattern by name for a language and executes it.
// Results are cached by (language, pattern, content-hash); hits and
// misses land on the pattern's counters.
func (e *Engine) Match(ctx context.Context, languageID, patternName string, source []byte, pctx *pattern.Context) []types.PatternMatch {
	key := cache.ContentKey("match", languageID+"/"+patternName, source)
	perf := e.patterns.Metrics().For(patternName)
	if cached, ok := e.results.Get(key); ok {
		perf.RecordCache(true)
		return cached.([]types.PatternMatch)
	}
	perf.RecordCache(false)

	matches := e.patterns.MatchByName(ctx, languageID, patternName, source, pctx)
	if ctx == nil || ctx.Err() == nil {
		e.results.Set(key, matches, 0)
	}
	return matches
}

// MatchPattern executes an already-resolved pattern.
func (e *Engine) MatchPattern(ctx context.Context, p pattern.Pattern, source []byte, pctx *pattern.Context) []types.PatternMatch {
	return e.patterns.Match(ctx, p, source, pctx)
}

// ExtractFeatures walks a tree into the four feature buckets plus
// complexity metrics, optionally merging pattern captures.
func (e *Engine) ExtractFeatures(ctx context.Context, tree parser.Tree, source []byte, patternNames []string) *types.ExtractedFeatures {
	var patterns []pattern.Pattern
	if tree != nil {
		for _, name := range patternNames {
			if p, ok := e.registry.Resolve(tree.Language(), name); ok {
				patterns = append(patterns, p)
			}
		}
	}
	return e.features.Extract(ctx, tree, source, patterns)
}

// ExtractBlocks returns the structural blocks of a parsed source.
func (e *Engine) ExtractBlocks(languageID string, source []byte, tree parser.Tree) []types.Block {
	return extract.ExtractBlocks(languageID, source, tree)
}

// BlockForMatch approximates the block enclosing a regex-produced
// match, scanning for the matching delimiter or dedent. Used when no
// tree backs the match; confidence reflects the heuristic boundary.
func (e *Engine) BlockForMatch(source []byte, m types.PatternMatch) types.Block {
	return extract.ApproximateBlock(source, m.StartByte, m.PatternName)
}

// RegisterPattern adds one pattern to the catalog.
func (e *Engine) RegisterPattern(p pattern.Pattern) bool {
	return e.registry.Register(p)
}

// RegisterLanguagePatterns bulk-adds definitions for a language.
func (e *Engine) RegisterLanguagePatterns(languageID string, defs []*pattern.Definition) int {
	return e.registry.RegisterLanguagePatterns(languageID, defs)
}

// ListLanguages reports every supported language with its backend
// capabilities.
func (e *Engine) ListLanguages() []types.LanguageInfo {
	var infos []types.LanguageInfo
	for _, id := range e.dispatch.SupportedLanguages() {
		capability := e.mapper.Capability(id)
		info := types.LanguageInfo{
			LanguageID:  id,
			Extensions:  e.mapper.ExtensionsOf(id),
			FileType:    capability.FileType,
			HasFallback: capability.FallbackKind != types.ParserKindUnknown,
		}
		switch {
		case capability.HasHandwrittenBackend:
			info.ParserKind = types.ParserKindHandwritten
		case capability.HasGrammarBackend:
			info.ParserKind = types.ParserKindGrammar
		}
		infos = append(infos, info)
	}
	return infos
}

// LearnProject runs the cross-project learner for a language over a
// project tree.
func (e *Engine) LearnProject(ctx context.Context, languageID, projectRoot string) (*learner.RunReport, error) {
	e.monitor.Report("learner", health.StatusInitializing, map[string]any{"language": languageID})
	report, err := e.learn.LearnLanguage(ctx, languageID, projectRoot)
	if err != nil {
		e.monitor.Report("learner", health.StatusDegraded, map[string]any{"error": err.Error()})
		return nil, err
	}
	e.monitor.Report("learner", health.StatusHealthy, nil)
	return report, nil
}

// PublishMetrics pushes a metrics snapshot to the sink and returns
// the aggregate.
func (e *Engine) PublishMetrics() metrics.EngineStats {
	snapshots := e.patterns.Metrics().Snapshots()
	e.sink.PublishPatternMetrics(snapshots)
	return metrics.Aggregate(snapshots)
}

// Snapshots exposes the raw per-pattern metrics.
func (e *Engine) Snapshots() []pattern.Snapshot {
	return e.patterns.Metrics().Snapshots()
}

// Health returns the engine health monitor.
func (e *Engine) Health() *health.Monitor { return e.monitor }

// Registry exposes the pattern registry.
func (e *Engine) Registry() *pattern.Registry { return e.registry }

// Mapper exposes the language mapper (table reloads).
func (e *Engine) Mapper() *langmap.Mapper { return e.mapper }

// Cleanup releases every owned resource. The engine is unusable
// afterwards.
func (e *Engine) Cleanup() {
	if e.watcher != nil {
		e.watcher.Close()
	}
	e.results.Close()
	e.dispatch.Cleanup()
	e.monitor.Report("engine", health.StatusUnhealthy, map[string]any{"reason": "cleanup"})
}
