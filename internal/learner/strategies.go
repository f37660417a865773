package learner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	edlib "github.com/hbollon/go-edlib"

	"github.com/standardbeagle/polyscan/internal/pattern"
)

// ImprovementStrategy proposes a refined definition from aggregated
// insights, or reports no change.
type ImprovementStrategy interface {
	Name() string
	Improve(def *pattern.Definition, insights *Insights) (*pattern.Definition, float64, bool)
}

// DefaultStrategies returns the ordered built-in strategy list.
func DefaultStrategies() []ImprovementStrategy {
	return []ImprovementStrategy{
		nodePatternImprovement{},
		captureOptimization{},
		predicateRefinement{},
		patternGeneralization{},
	}
}

// dominanceThreshold is the share of observations a single node kind
// needs before a wildcard node is tightened to it.
const dominanceThreshold = 0.8

// minObservations guards every strategy against deciding from noise.
const minObservations = 5

var anyNodeCaptureRe = regexp.MustCompile(`\(_\)\s*@([\w.]+)`)

// nodePatternImprovement tightens `(_)` nodes to the concrete kind
// observed for their capture.
type nodePatternImprovement struct{}

func (nodePatternImprovement) Name() string { return "node_pattern_improvement" }

func (nodePatternImprovement) Improve(def *pattern.Definition, insights *Insights) (*pattern.Definition, float64, bool) {
	if def.Query == "" || insights.TotalMatches < minObservations {
		return def, 0, false
	}

	query := def.Query
	changed := false
	for _, m := range anyNodeCaptureRe.FindAllStringSubmatch(def.Query, -1) {
		capture := m[1]
		kind, share := dominantKind(insights, capture)
		if kind == "" || share < dominanceThreshold {
			continue
		}
		query = strings.Replace(query, m[0], fmt.Sprintf("(%s) @%s", kind, capture), 1)
		changed = true
	}
	if !changed {
		return def, 0, false
	}
	improved := *def
	improved.Query = query
	return &improved, clampConfidence(def.Confidence + 0.02), true
}

// captureOptimization drops captures that never produced a span:
// nothing downstream can be reading them.
type captureOptimization struct{}

func (captureOptimization) Name() string { return "capture_optimization" }

func (captureOptimization) Improve(def *pattern.Definition, insights *Insights) (*pattern.Definition, float64, bool) {
	if def.Query == "" || insights.TotalMatches < minObservations {
		return def, 0, false
	}

	captureRe := regexp.MustCompile(`@([\w.]+)`)
	names := captureRe.FindAllStringSubmatch(def.Query, -1)
	if len(names) < 2 {
		return def, 0, false
	}

	query := def.Query
	changed := false
	for _, m := range names {
		name := m[1]
		if insights.CaptureFrequencies[name] > 0 {
			continue
		}
		if predicatesReference(def, name) {
			continue
		}
		// Keep at least the whole-match capture.
		if strings.Count(query, "@") <= 1 {
			break
		}
		query = strings.Replace(query, " @"+name, "", 1)
		query = strings.Replace(query, "@"+name, "", 1)
		changed = true
	}
	if !changed {
		return def, 0, false
	}
	improved := *def
	improved.Query = query
	return &improved, clampConfidence(def.Confidence + 0.01), true
}

func predicatesReference(def *pattern.Definition, capture string) bool {
	for _, p := range def.Predicates {
		if p.Capture == capture {
			return true
		}
	}
	return strings.Contains(def.Query, "? @"+capture) || strings.Contains(def.Query, "@"+capture+" ")
}

// predicateRefinement drops predicates that failed on every
// evaluation; they only suppress matches the pattern was written to
// find.
type predicateRefinement struct{}

func (predicateRefinement) Name() string { return "predicate_refinement" }

func (predicateRefinement) Improve(def *pattern.Definition, insights *Insights) (*pattern.Definition, float64, bool) {
	if len(def.Predicates) == 0 {
		return def, 0, false
	}
	var kept []pattern.Predicate
	dropped := false
	for _, p := range def.Predicates {
		total := insights.PredicateTotal[p.Name]
		success := insights.PredicateSuccess[p.Name]
		if total >= minObservations && success == 0 {
			dropped = true
			continue
		}
		kept = append(kept, p)
	}
	if !dropped {
		return def, 0, false
	}
	improved := *def
	improved.Predicates = kept
	return &improved, clampConfidence(def.Confidence + 0.01), true
}

// patternGeneralization widens a capture's node kind to a union when
// several similar sibling kinds each carry real weight.
type patternGeneralization struct{}

func (patternGeneralization) Name() string { return "pattern_generalization" }

// generalizationShare is the minimum share each sibling kind needs.
const generalizationShare = 0.3

func (patternGeneralization) Improve(def *pattern.Definition, insights *Insights) (*pattern.Definition, float64, bool) {
	if def.Query == "" || insights.TotalMatches < minObservations {
		return def, 0, false
	}

	query := def.Query
	changed := false
	for capture, kinds := range kindsByCapture(insights) {
		if len(kinds) < 2 {
			continue
		}
		total := 0
		for _, count := range kinds {
			total += count
		}
		var heavy []string
		for kind, count := range kinds {
			if float64(count)/float64(total) >= generalizationShare {
				heavy = append(heavy, kind)
			}
		}
		if len(heavy) < 2 {
			continue
		}
		sort.Strings(heavy)

		// Only union kinds that look like true siblings; similarity
		// guards against uniting unrelated constructs.
		if !kindsSimilar(heavy) {
			continue
		}

		old := fmt.Sprintf("(%s) @%s", heavy[0], capture)
		if !strings.Contains(query, old) {
			continue
		}
		parts := make([]string, len(heavy))
		for i, kind := range heavy {
			parts[i] = "(" + kind + ")"
		}
		replacement := fmt.Sprintf("[%s] @%s", strings.Join(parts, " "), capture)
		query = strings.Replace(query, old, replacement, 1)
		changed = true
	}
	if !changed {
		return def, 0, false
	}
	improved := *def
	improved.Query = query
	return &improved, clampConfidence(def.Confidence - 0.02), true
}

func kindsByCapture(insights *Insights) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for key, count := range insights.StructureFrequencies {
		idx := strings.LastIndex(key, ":")
		if idx <= 0 {
			continue
		}
		capture, kind := key[:idx], key[idx+1:]
		if out[capture] == nil {
			out[capture] = make(map[string]int)
		}
		out[capture][kind] = count
	}
	return out
}

func kindsSimilar(kinds []string) bool {
	for i := 0; i < len(kinds); i++ {
		for j := i + 1; j < len(kinds); j++ {
			score, err := edlib.StringsSimilarity(kinds[i], kinds[j], edlib.JaroWinkler)
			if err != nil || score < 0.7 {
				return false
			}
		}
	}
	return true
}

func dominantKind(insights *Insights, capture string) (string, float64) {
	kinds := kindsByCapture(insights)[capture]
	if len(kinds) == 0 {
		return "", 0
	}
	total, best, bestCount := 0, "", 0
	for kind, count := range kinds {
		total += count
		if count > bestCount || (count == bestCount && kind < best) {
			best, bestCount = kind, count
		}
	}
	return best, float64(bestCount) / float64(total)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
