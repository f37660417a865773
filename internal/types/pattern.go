package types

// PatternCategory groups patterns by what they describe.
type PatternCategory string

const (
	CategorySyntax        PatternCategory = "syntax"
	CategorySemantics     PatternCategory = "semantics"
	CategoryStructure     PatternCategory = "structure"
	CategoryDocumentation PatternCategory = "documentation"
	CategoryCodePatterns  PatternCategory = "code_patterns"
	CategoryLearning      PatternCategory = "learning"
	CategoryBestPractices PatternCategory = "best_practices"
	CategoryCommonIssues  PatternCategory = "common_issues"
	CategoryUserPatterns  PatternCategory = "user_patterns"
)

// FeedsFeature maps a pattern category to the feature bucket it fills.
// The mapping is total: every feature category has at least one source
// category, and every pattern category lands in exactly one bucket.
func (c PatternCategory) FeedsFeature() FeatureCategory {
	switch c {
	case CategorySyntax:
		return FeatureSyntax
	case CategoryStructure:
		return FeatureStructure
	case CategoryDocumentation:
		return FeatureDocumentation
	default:
		return FeatureSemantics
	}
}

// PatternPurpose states why a pattern exists.
type PatternPurpose string

const (
	PurposeUnderstanding PatternPurpose = "understanding"
	PurposeLearning      PatternPurpose = "learning"
	PurposeValidation    PatternPurpose = "validation"
	PurposeGeneration    PatternPurpose = "generation"
)

// PatternVariant is the sealed set of pattern behaviors.
type PatternVariant uint8

const (
	VariantBase PatternVariant = iota
	VariantAdaptive
	VariantResilient
)

func (v PatternVariant) String() string {
	switch v {
	case VariantAdaptive:
		return "adaptive"
	case VariantResilient:
		return "resilient"
	default:
		return "base"
	}
}

// RelationKind classifies a directed pattern relationship.
type RelationKind string

const (
	RelationUses         RelationKind = "uses"
	RelationContains     RelationKind = "contains"
	RelationComplements  RelationKind = "complements"
	RelationImplements   RelationKind = "implements"
	RelationReferences   RelationKind = "references"
	RelationDependsOn    RelationKind = "depends_on"
	RelationAppliesTo    RelationKind = "applies_to"
	RelationReferencedBy RelationKind = "referenced_by"
)

// PatternRelationship links two patterns by name. Names, never
// references: the relationship graph is allowed to contain cycles.
type PatternRelationship struct {
	SourcePattern string       `json:"source_pattern"`
	TargetPattern string       `json:"target_pattern"`
	Relation      RelationKind `json:"relation"`
	Confidence    float64      `json:"confidence"`
}

// MatchStrategy names the path that produced a set of matches.
type MatchStrategy string

const (
	StrategyPrimary          MatchStrategy = "primary"
	StrategyAdapted          MatchStrategy = "adapted"
	StrategyFallbackPatterns MatchStrategy = "fallback_patterns"
	StrategyRegexFallback    MatchStrategy = "regex_fallback"
	StrategyPartialMatch     MatchStrategy = "partial_match"
)

// StrategyWeight scales pattern confidence by how the match was found.
func StrategyWeight(s MatchStrategy) float64 {
	switch s {
	case StrategyPrimary:
		return 1.0
	case StrategyAdapted:
		return 0.9
	case StrategyFallbackPatterns:
		return 0.8
	case StrategyRegexFallback:
		return 0.7
	case StrategyPartialMatch:
		return 0.6
	default:
		return 0.0
	}
}

// CaptureSpan is one named sub-match: a node or text span.
type CaptureSpan struct {
	Name       string `json:"name"`
	Text       string `json:"text"`
	StartPoint Point  `json:"start_point"`
	EndPoint   Point  `json:"end_point"`
	StartByte  uint   `json:"start_byte"`
	EndByte    uint   `json:"end_byte"`
	NodeKind   string `json:"node_kind,omitempty"`
}

// PatternMatch is one result of running a pattern over a source file.
// All spans reference a single parse of a single file.
type PatternMatch struct {
	PatternName      string                   `json:"pattern_name"`
	Captures         map[string][]CaptureSpan `json:"captures"`
	Text             string                   `json:"text"`
	StartPoint       Point                    `json:"start_point"`
	EndPoint         Point                    `json:"end_point"`
	StartByte        uint                     `json:"start_byte"`
	EndByte          uint                     `json:"end_byte"`
	PredicateResults map[string]bool          `json:"predicate_results,omitempty"`
	Features         map[string]any           `json:"features,omitempty"`
	Strategy         MatchStrategy            `json:"strategy"`
	Confidence       float64                  `json:"confidence"`
	Cancelled        bool                     `json:"cancelled,omitempty"`
}

// Capture returns the first capture span for a name, if any.
func (m *PatternMatch) Capture(name string) (CaptureSpan, bool) {
	spans := m.Captures[name]
	if len(spans) == 0 {
		return CaptureSpan{}, false
	}
	return spans[0], true
}

// QueryMetrics records one grammar query execution.
type QueryMetrics struct {
	QueryTimeMicros    int64 `json:"query_time_micros"`
	NodeCount          int   `json:"node_count"`
	CaptureCount       int   `json:"capture_count"`
	ExceededMatchLimit bool  `json:"exceeded_match_limit"`
	ExceededTimeLimit  bool  `json:"exceeded_time_limit"`
}

// QueryLimits bounds one grammar query execution. Limits are soft:
// exceeding either flags the metric and returns what accumulated.
type QueryLimits struct {
	TimeoutMicros uint64
	MatchLimit    uint32
	// ByteRange scopes execution when End > Start.
	ByteRangeStart uint
	ByteRangeEnd   uint
}

// DefaultQueryLimits mirrors the grammar backend's defaults.
func DefaultQueryLimits() QueryLimits {
	return QueryLimits{TimeoutMicros: 50_000, MatchLimit: 1024}
}
