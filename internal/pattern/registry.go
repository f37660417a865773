package pattern

import (
	"sort"
	"strings"
	"sync"

	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/types"
)

// ImprovedSuffix marks learner-accepted refinements. Improved
// patterns coexist with their originals: resolution prefers the
// improvement, rollback re-activates the original.
const ImprovedSuffix = "@improved"

// Registry is the pattern catalog: per-language pattern sets, the
// relationship graph, and the per-run invalid set.
type Registry struct {
	mu sync.RWMutex
	// byLanguage[language][name] -> pattern
	byLanguage map[string]map[string]Pattern
	// relationships are keyed by pattern name; values may reference
	// names that form cycles, which is why names are stored, not
	// pattern pointers.
	relationships map[string][]types.PatternRelationship
	// invalid holds patterns whose compilation failed this run.
	invalid map[string]error
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage:    make(map[string]map[string]Pattern),
		relationships: make(map[string][]types.PatternRelationship),
		invalid:       make(map[string]error),
	}
}

// Register adds one pattern, replacing any same-name registration for
// the language. Invalid definitions are dropped with a debug note.
func (r *Registry) Register(p Pattern) bool {
	def := p.Definition()
	if !def.Valid() {
		debug.Match("definition rejected", "pattern", def.Name)
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	langSet, ok := r.byLanguage[def.LanguageID]
	if !ok {
		langSet = make(map[string]Pattern)
		r.byLanguage[def.LanguageID] = langSet
	}
	langSet[def.Name] = p
	for _, rel := range def.Relationships {
		r.relationships[rel.SourcePattern] = append(r.relationships[rel.SourcePattern], rel)
	}
	return true
}

// RegisterLanguagePatterns bulk-registers definitions for a language.
func (r *Registry) RegisterLanguagePatterns(languageID string, defs []*Definition) int {
	registered := 0
	for _, def := range defs {
		if def.LanguageID == "" {
			def.LanguageID = languageID
		}
		if r.Register(FromDefinition(def)) {
			registered++
		}
	}
	return registered
}

// RegisterImproved registers a learner refinement alongside its
// original under the derived name.
func (r *Registry) RegisterImproved(original Pattern, improved *Definition) Pattern {
	improved.Name = original.Name() + ImprovedSuffix
	improved.LanguageID = original.LanguageID()
	p := FromDefinition(improved)
	r.Register(p)
	return p
}

// Rollback removes the improvement for a pattern name, restoring the
// original as the resolution target.
func (r *Registry) Rollback(languageID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if langSet, ok := r.byLanguage[languageID]; ok {
		delete(langSet, name+ImprovedSuffix)
	}
}

// Resolve finds the active pattern for a name: the improvement when
// one is registered and valid, else the original; the language's own
// set wins over wildcard patterns.
func (r *Registry) Resolve(languageID, name string) (Pattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, lang := range []string{languageID, types.LanguageWildcard} {
		langSet, ok := r.byLanguage[lang]
		if !ok {
			continue
		}
		if improved, ok := langSet[name+ImprovedSuffix]; ok {
			if _, bad := r.invalid[improved.Name()]; !bad {
				return improved, true
			}
		}
		if p, ok := langSet[name]; ok {
			return p, true
		}
	}
	return nil, false
}

// PatternsFor lists the active pattern set for a language, wildcard
// patterns included, improved entries shadowing their originals.
// Sorted by name for reproducible iteration.
func (r *Registry) PatternsFor(languageID string) []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make(map[string]Pattern)
	for _, lang := range []string{types.LanguageWildcard, languageID} {
		langSet, ok := r.byLanguage[lang]
		if !ok {
			continue
		}
		for name, p := range langSet {
			if strings.HasSuffix(name, ImprovedSuffix) {
				continue
			}
			if improved, ok := langSet[name+ImprovedSuffix]; ok {
				if _, bad := r.invalid[improved.Name()]; !bad {
					active[name] = improved
					continue
				}
			}
			active[name] = p
		}
	}

	names := make([]string, 0, len(active))
	for name := range active {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Pattern, 0, len(names))
	for _, name := range names {
		out = append(out, active[name])
	}
	return out
}

// Relationships returns the outgoing relationships for a pattern name.
func (r *Registry) Relationships(name string) []types.PatternRelationship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.PatternRelationship(nil), r.relationships[name]...)
}

// AddRelationship records a directed relationship between patterns.
func (r *Registry) AddRelationship(rel types.PatternRelationship) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relationships[rel.SourcePattern] = append(r.relationships[rel.SourcePattern], rel)
}

// MarkInvalid flags a pattern as invalid for this run after a
// compilation failure. Never raises.
func (r *Registry) MarkInvalid(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.invalid[name]; !exists {
		r.invalid[name] = err
		debug.Match("pattern marked invalid", "pattern", name, "error", err)
	}
}

// IsInvalid reports whether a pattern failed compilation this run.
func (r *Registry) IsInvalid(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.invalid[name]
	return ok
}

// ResetInvalid clears the invalid set, typically at run boundaries.
func (r *Registry) ResetInvalid() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid = make(map[string]error)
}

// Languages lists every language with registered patterns.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
