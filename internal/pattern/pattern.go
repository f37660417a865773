// Package pattern compiles and executes structural queries against
// parse trees. Patterns come in three sealed variants: base patterns
// run their primary path only, adaptive patterns may rewrite
// themselves once to fit the observed tree, and resilient patterns
// walk an ordered recovery strategy list when the primary path comes
// up empty.
package pattern

import (
	"sync"

	"github.com/standardbeagle/polyscan/internal/types"
)

// ExtractFunc maps a raw match into a structured feature record.
type ExtractFunc func(m *types.PatternMatch) map[string]any

// TestCase is a declared pattern example used for learner validation.
type TestCase struct {
	Source      string
	WantMatches int
}

// Definition is the declarative description of a pattern. Definitions
// are data; the catalog package is nothing but a set of these.
type Definition struct {
	Name       string
	LanguageID string
	Variant    types.PatternVariant
	Category   types.PatternCategory
	Purpose    types.PatternPurpose
	Confidence float64

	// Query is the structural query, executed against grammar trees.
	Query string
	// Regex is the fallback expression, executed against raw bytes.
	Regex string
	// FallbackQueries are alternative structural queries tried in
	// order by the resilient variant.
	FallbackQueries []string

	Extract       ExtractFunc
	Predicates    []Predicate
	TestCases     []TestCase
	Relationships []types.PatternRelationship
}

// Predicate is a named per-match filter over one capture. A match
// survives only if every predicate passes; outcomes are recorded so
// the learner can refine or drop predicates by observed success.
type Predicate struct {
	Name    string
	Capture string
	Test    func(span types.CaptureSpan) bool
}

// Valid performs the structural checks shared by every variant.
func (d *Definition) Valid() bool {
	if d.Name == "" || d.LanguageID == "" {
		return false
	}
	if d.LanguageID == types.LanguageWildcard && d.Variant != types.VariantBase {
		return false
	}
	if d.Query == "" && d.Regex == "" {
		return false
	}
	return true
}

// Pattern is the common capability over the sealed variant set.
type Pattern interface {
	Name() string
	LanguageID() string
	Category() types.PatternCategory
	Purpose() types.PatternPurpose
	Confidence() float64
	Variant() types.PatternVariant
	Definition() *Definition
	// Metadata returns a copy of variant-specific state (adaptation
	// flags, recovery stats).
	Metadata() map[string]any
}

// BasePattern is the no-frills variant: primary path only.
type BasePattern struct {
	def *Definition
}

// NewBase wraps a definition as a base pattern.
func NewBase(def *Definition) *BasePattern {
	def.Variant = types.VariantBase
	return &BasePattern{def: def}
}

func (p *BasePattern) Name() string                    { return p.def.Name }
func (p *BasePattern) LanguageID() string              { return p.def.LanguageID }
func (p *BasePattern) Category() types.PatternCategory { return p.def.Category }
func (p *BasePattern) Purpose() types.PatternPurpose   { return p.def.Purpose }
func (p *BasePattern) Confidence() float64             { return p.def.Confidence }
func (p *BasePattern) Variant() types.PatternVariant   { return types.VariantBase }
func (p *BasePattern) Definition() *Definition         { return p.def }
func (p *BasePattern) Metadata() map[string]any        { return map[string]any{} }

// AdaptivePattern may rewrite its primary expression once per
// process; rewrites that fail to compile revert and the original
// definition is never mutated.
type AdaptivePattern struct {
	def *Definition

	mu           sync.Mutex
	adapted      bool
	adaptedQuery string
	adaptedRegex string
}

// NewAdaptive wraps a definition as an adaptive pattern.
func NewAdaptive(def *Definition) *AdaptivePattern {
	def.Variant = types.VariantAdaptive
	return &AdaptivePattern{def: def}
}

func (p *AdaptivePattern) Name() string                    { return p.def.Name }
func (p *AdaptivePattern) LanguageID() string              { return p.def.LanguageID }
func (p *AdaptivePattern) Category() types.PatternCategory { return p.def.Category }
func (p *AdaptivePattern) Purpose() types.PatternPurpose   { return p.def.Purpose }
func (p *AdaptivePattern) Confidence() float64             { return p.def.Confidence }
func (p *AdaptivePattern) Variant() types.PatternVariant   { return types.VariantAdaptive }
func (p *AdaptivePattern) Definition() *Definition         { return p.def }

func (p *AdaptivePattern) Metadata() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	md := map[string]any{"adapted": p.adapted}
	if p.adaptedQuery != "" {
		md["adapted_query"] = p.adaptedQuery
	}
	if p.adaptedRegex != "" {
		md["adapted_regex"] = p.adaptedRegex
	}
	return md
}

// adaptedState returns the current rewrite, if any.
func (p *AdaptivePattern) adaptedState() (query, regex string, adapted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adaptedQuery, p.adaptedRegex, p.adapted
}

// recordAdaptation stores a validated rewrite. Idempotent: the first
// rewrite wins.
func (p *AdaptivePattern) recordAdaptation(query, regex string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapted {
		return
	}
	p.adapted = true
	p.adaptedQuery = query
	p.adaptedRegex = regex
}

// ResilientPattern walks pluggable recovery strategies when its
// primary path yields nothing.
type ResilientPattern struct {
	def        *Definition
	strategies []RecoveryStrategy
	stats      *RecoveryStats
}

// NewResilient wraps a definition with the built-in strategy order:
// fallback patterns, regex fallback, partial match.
func NewResilient(def *Definition) *ResilientPattern {
	def.Variant = types.VariantResilient
	return &ResilientPattern{
		def: def,
		strategies: []RecoveryStrategy{
			&fallbackPatternsStrategy{},
			&regexFallbackStrategy{},
			&partialMatchStrategy{},
		},
		stats: NewRecoveryStats(),
	}
}

// SetStrategies replaces the recovery strategy order. Operators tune
// this from aggregated recovery stats.
func (p *ResilientPattern) SetStrategies(strategies []RecoveryStrategy) {
	p.strategies = strategies
}

func (p *ResilientPattern) Name() string                    { return p.def.Name }
func (p *ResilientPattern) LanguageID() string              { return p.def.LanguageID }
func (p *ResilientPattern) Category() types.PatternCategory { return p.def.Category }
func (p *ResilientPattern) Purpose() types.PatternPurpose   { return p.def.Purpose }
func (p *ResilientPattern) Confidence() float64             { return p.def.Confidence }
func (p *ResilientPattern) Variant() types.PatternVariant   { return types.VariantResilient }
func (p *ResilientPattern) Definition() *Definition         { return p.def }

func (p *ResilientPattern) Metadata() map[string]any {
	return map[string]any{"recovery_metrics": p.stats.Export()}
}

// RecoveryStats exposes the pattern's aggregated recovery history.
func (p *ResilientPattern) RecoveryStats() *RecoveryStats { return p.stats }

// FromDefinition builds the variant the definition declares.
func FromDefinition(def *Definition) Pattern {
	switch def.Variant {
	case types.VariantAdaptive:
		return NewAdaptive(def)
	case types.VariantResilient:
		return NewResilient(def)
	default:
		return NewBase(def)
	}
}
