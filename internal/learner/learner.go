// Package learner observes how patterns match across a project,
// aggregates insights, and proposes validated pattern refinements.
// Improvements coexist with originals in the registry; validation
// never lets an improvement degrade a pattern's declared test cases.
package learner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/polyscan/internal/classify"
	"github.com/standardbeagle/polyscan/internal/config"
	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/logging"
	"github.com/standardbeagle/polyscan/internal/pattern"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Insights aggregates how one pattern matched across sampled files.
type Insights struct {
	NodeTypeFrequencies  map[string]int `json:"node_type_frequencies"`
	CaptureFrequencies   map[string]int `json:"capture_frequencies"`
	StructureFrequencies map[string]int `json:"structure_frequencies"`
	PredicateSuccess     map[string]int `json:"predicates_success"`
	PredicateTotal       map[string]int `json:"predicates_total"`
	TotalMatches         int            `json:"total_matches"`
	FilesMatched         int            `json:"files_matched"`
}

func newInsights() *Insights {
	return &Insights{
		NodeTypeFrequencies:  make(map[string]int),
		CaptureFrequencies:   make(map[string]int),
		StructureFrequencies: make(map[string]int),
		PredicateSuccess:     make(map[string]int),
		PredicateTotal:       make(map[string]int),
	}
}

func (ins *Insights) observe(matches []types.PatternMatch) {
	if len(matches) > 0 {
		ins.FilesMatched++
	}
	for _, m := range matches {
		ins.TotalMatches++
		for name, spans := range m.Captures {
			ins.CaptureFrequencies[name] += len(spans)
			for _, span := range spans {
				if span.NodeKind != "" {
					ins.NodeTypeFrequencies[span.NodeKind]++
					ins.StructureFrequencies[name+":"+span.NodeKind]++
				}
			}
		}
		for pred, ok := range m.PredicateResults {
			ins.PredicateTotal[pred]++
			if ok {
				ins.PredicateSuccess[pred]++
			}
		}
	}
}

// Learner runs cross-project pattern learning for one engine.
type Learner struct {
	engine     *pattern.Engine
	classifier *classify.Classifier
	store      *InsightsStore
	strategies []ImprovementStrategy
	cfg        config.Learner
	include    []string
	exclude    []string
	log        logging.Logger
}

// New wires a learner. logger may be nil.
func New(engine *pattern.Engine, classifier *classify.Classifier, cfg config.Learner, include, exclude []string, log logging.Logger) *Learner {
	if log == nil {
		log = logging.Nop{}
	}
	return &Learner{
		engine:     engine,
		classifier: classifier,
		store:      NewInsightsStore(cfg.InsightsDir),
		strategies: DefaultStrategies(),
		cfg:        cfg,
		include:    include,
		exclude:    exclude,
		log:        log,
	}
}

// Store exposes the insights store for diagnostics.
func (l *Learner) Store() *InsightsStore { return l.store }

// LearnLanguage walks a project, runs every active pattern for the
// language over the sampled files, applies the improvement
// strategies, validates, persists, and registers accepted
// improvements.
func (l *Learner) LearnLanguage(ctx context.Context, languageID, projectRoot string) (*RunReport, error) {
	if l.cfg.ProjectBudgetSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(l.cfg.ProjectBudgetSec)*time.Second)
		defer cancel()
	}

	files, err := l.sampleFiles(ctx, languageID, projectRoot)
	if err != nil {
		return nil, err
	}

	report := NewRunReport(languageID)
	report.FilesSampled = len(files)

	patterns := l.engine.Registry().PatternsFor(languageID)
	for _, p := range patterns {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if strings.HasSuffix(p.Name(), pattern.ImprovedSuffix) {
			continue
		}
		report.PatternsAnalyzed++

		insights := l.collectInsights(ctx, p, files)
		report.Insights[p.Name()] = insights

		improved, strategies := l.improve(p, insights)
		if improved == nil {
			continue
		}
		newConfidence := improved.Confidence

		if !l.validate(ctx, p, improved, files) {
			l.log.Warn("learner improvement rejected", "pattern", p.Name(), "language", languageID)
			continue
		}

		registered := l.engine.Registry().RegisterImproved(p, improved)
		report.PatternsImproved++
		report.Improvements[p.Name()] = Improvement{
			ImprovedQuery: improved.Query,
			Confidence:    newConfidence,
			Original:      p.Definition().Query,
			Strategies:    strategies,
		}
		debug.Learn("improvement registered", "pattern", registered.Name(), "language", languageID)
	}

	if err := l.store.Write(report); err != nil {
		l.log.Warn("failed to persist insights", "language", languageID, "error", err)
	}
	return report, nil
}

// sampleFiles walks the project in lexical order, classifying and
// reading up to SampleSize files of the target language. Files above
// the size cap are skipped; cancellation is checked per file.
func (l *Learner) sampleFiles(ctx context.Context, languageID, projectRoot string) ([]sampledFile, error) {
	maxBytes := l.cfg.MaxFileSizeKB * 1024
	var paths []string

	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if l.excluded(rel + "/") {
				return fs.SkipDir
			}
			return nil
		}
		if l.excluded(rel) || !l.included(rel) {
			return nil
		}
		if info, infoErr := d.Info(); infoErr != nil || info.Size() > maxBytes {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	parallelism := l.cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	var mu sync.Mutex
	var files []sampledFile
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, path := range paths {
		mu.Lock()
		enough := len(files) >= l.cfg.SampleSize
		mu.Unlock()
		if enough || gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				return nil
			}
			cls := l.classifier.Classify(path, content)
			if cls.LanguageID != languageID {
				return nil
			}
			mu.Lock()
			if len(files) < l.cfg.SampleSize {
				files = append(files, sampledFile{path: path, content: content})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Walk order is restored after the parallel read so runs are
	// reproducible for an unchanged tree.
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

type sampledFile struct {
	path    string
	content []byte
}

func (l *Learner) excluded(rel string) bool {
	for _, glob := range l.exclude {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

func (l *Learner) included(rel string) bool {
	if len(l.include) == 0 {
		return true
	}
	for _, glob := range l.include {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

func (l *Learner) collectInsights(ctx context.Context, p pattern.Pattern, files []sampledFile) *Insights {
	insights := newInsights()
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		pctx := pattern.NewContext(p.LanguageID())
		pctx.FilePath = f.path
		insights.observe(l.engine.Match(ctx, p, f.content, pctx))
	}
	return insights
}

// improve applies the ordered strategy list; each strategy sees the
// output of the previous one.
func (l *Learner) improve(p pattern.Pattern, insights *Insights) (*pattern.Definition, []string) {
	current := cloneDefinition(p.Definition())
	var applied []string
	for _, strategy := range l.strategies {
		next, confidence, changed := strategy.Improve(current, insights)
		if !changed {
			continue
		}
		current = next
		current.Confidence = confidence
		applied = append(applied, strategy.Name())
	}
	if len(applied) == 0 {
		return nil, nil
	}
	if current.Confidence < l.cfg.MinConfidence {
		return nil, nil
	}
	return current, applied
}

// validate accepts an improvement only when it compiles, matches at
// least as much as the original across the sample, and never
// degrades a declared test case.
func (l *Learner) validate(ctx context.Context, original pattern.Pattern, improved *pattern.Definition, files []sampledFile) bool {
	improved.Name = original.Name() + ".candidate"
	improved.LanguageID = original.LanguageID()
	candidate := pattern.FromDefinition(improved)

	sampleOriginal, sampleImproved := 0, 0
	for _, f := range files {
		if ctx.Err() != nil {
			return false
		}
		sampleOriginal += len(l.engine.Match(ctx, original, f.content, nil))
		sampleImproved += len(l.engine.Match(ctx, candidate, f.content, nil))
	}
	if l.engine.Registry().IsInvalid(candidate.Name()) {
		return false
	}
	if sampleImproved < sampleOriginal {
		return false
	}

	for _, tc := range original.Definition().TestCases {
		source := []byte(tc.Source)
		originalCount := len(l.engine.Match(ctx, original, source, nil))
		improvedCount := len(l.engine.Match(ctx, candidate, source, nil))
		if improvedCount < originalCount {
			return false
		}
	}
	return true
}

func cloneDefinition(def *pattern.Definition) *pattern.Definition {
	clone := *def
	clone.FallbackQueries = append([]string(nil), def.FallbackQueries...)
	clone.Predicates = append([]pattern.Predicate(nil), def.Predicates...)
	clone.TestCases = append([]pattern.TestCase(nil), def.TestCases...)
	clone.Relationships = append([]types.PatternRelationship(nil), def.Relationships...)
	return &clone
}
