package types

import "fmt"

// Point is a zero-based (row, column) position in source text.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// Less orders points lexicographically (row first, then column).
func (p Point) Less(other Point) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Column < other.Column
}

// LessEq reports p <= other lexicographically.
func (p Point) LessEq(other Point) bool {
	return p == other || p.Less(other)
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// FileType categorizes what a file is, independent of its language.
type FileType uint8

const (
	FileTypeCode FileType = iota
	FileTypeDoc
	FileTypeConfig
	FileTypeData
	FileTypeBinary
	FileTypeUnknown
)

func (f FileType) String() string {
	switch f {
	case FileTypeCode:
		return "code"
	case FileTypeDoc:
		return "doc"
	case FileTypeConfig:
		return "config"
	case FileTypeData:
		return "data"
	case FileTypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParserKind identifies which parser family handles a language.
type ParserKind uint8

const (
	ParserKindUnknown ParserKind = iota
	ParserKindGrammar
	ParserKindHandwritten
)

func (k ParserKind) String() string {
	switch k {
	case ParserKindGrammar:
		return "grammar"
	case ParserKindHandwritten:
		return "handwritten"
	default:
		return "unknown"
	}
}

// Canonical language ids with special meaning.
const (
	LanguageUnknown   = "unknown"
	LanguagePlaintext = "plaintext"
	// LanguageWildcard marks a pattern as applicable to every language.
	// Only base patterns may use it.
	LanguageWildcard = "*"
)

// FileClassification is the classifier's verdict for a single file.
// Immutable once produced.
type FileClassification struct {
	Path               string     `json:"path"`
	LanguageID         string     `json:"language_id"`
	FileType           FileType   `json:"file_type"`
	ParserKind         ParserKind `json:"parser_kind"`
	FallbackParserKind ParserKind `json:"fallback_parser_kind,omitempty"`
	Confidence         float64    `json:"confidence"`
	IsBinary           bool       `json:"is_binary"`
}

// LanguageCapability describes what backends and file type a language has.
type LanguageCapability struct {
	LanguageID            string
	HasGrammarBackend     bool
	HasHandwrittenBackend bool
	FallbackKind          ParserKind
	FileType              FileType
}

// LanguageInfo is the diagnostic view of a supported language.
type LanguageInfo struct {
	LanguageID  string     `json:"language_id"`
	ParserKind  ParserKind `json:"parser_kind"`
	Extensions  []string   `json:"extensions,omitempty"`
	FileType    FileType   `json:"file_type"`
	HasFallback bool       `json:"has_fallback"`
}

// DiagnosticKind distinguishes parse diagnostics.
type DiagnosticKind uint8

const (
	DiagnosticError DiagnosticKind = iota
	DiagnosticMissing
)

func (d DiagnosticKind) String() string {
	if d == DiagnosticMissing {
		return "missing"
	}
	return "error"
}

// Diagnostic is a single parse problem with its source span.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Start   Point          `json:"start"`
	End     Point          `json:"end"`
	Message string         `json:"message,omitempty"`
}

// Block is a contiguous, structurally meaningful source region.
type Block struct {
	Content    string         `json:"content"`
	StartPoint Point          `json:"start_point"`
	EndPoint   Point          `json:"end_point"`
	Kind       string         `json:"kind"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Confidence float64        `json:"confidence"`
}

// ComplexityMetrics aggregates the structural complexity of a parse tree.
type ComplexityMetrics struct {
	Cyclomatic           int     `json:"cyclomatic"`
	Cognitive            int     `json:"cognitive"`
	HalsteadVolume       float64 `json:"halstead_volume"`
	HalsteadDifficulty   float64 `json:"halstead_difficulty"`
	HalsteadEffort       float64 `json:"halstead_effort"`
	MaintainabilityIndex float64 `json:"maintainability_index"`
	NodeCount            int     `json:"node_count"`
	MaxDepth             int     `json:"max_depth"`
	LinesOfCode          int     `json:"lines_of_code"`
}

// Documentation collects doc-oriented findings from a parse.
type Documentation struct {
	Docstrings  []DocEntry `json:"docstrings,omitempty"`
	Comments    []DocEntry `json:"comments,omitempty"`
	Annotations []DocEntry `json:"annotations,omitempty"`
	Terms       []string   `json:"terms,omitempty"`
}

// DocEntry is one extracted documentation fragment.
type DocEntry struct {
	Text  string `json:"text"`
	Start Point  `json:"start"`
	End   Point  `json:"end"`
	Kind  string `json:"kind,omitempty"`
}

// FeatureBucket holds typed feature records for one category.
type FeatureBucket map[string][]FeatureRecord

// FeatureRecord is one extracted feature instance.
type FeatureRecord struct {
	Name       string         `json:"name,omitempty"`
	Text       string         `json:"text,omitempty"`
	StartPoint Point          `json:"start_point"`
	EndPoint   Point          `json:"end_point"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ExtractedFeatures is the full feature-extraction result for a file.
type ExtractedFeatures struct {
	Syntax        FeatureBucket     `json:"syntax"`
	Structure     FeatureBucket     `json:"structure"`
	Semantics     FeatureBucket     `json:"semantics"`
	Documentation Documentation     `json:"documentation"`
	Metrics       ComplexityMetrics `json:"metrics"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	Diagnostics   []string          `json:"diagnostics,omitempty"`
}

// NewExtractedFeatures returns a result with all buckets allocated.
func NewExtractedFeatures() *ExtractedFeatures {
	return &ExtractedFeatures{
		Syntax:    make(FeatureBucket),
		Structure: make(FeatureBucket),
		Semantics: make(FeatureBucket),
		Metadata:  make(map[string]any),
	}
}

// FeatureCategory names the four feature buckets.
type FeatureCategory uint8

const (
	FeatureSyntax FeatureCategory = iota
	FeatureStructure
	FeatureSemantics
	FeatureDocumentation
)

func (c FeatureCategory) String() string {
	switch c {
	case FeatureSyntax:
		return "syntax"
	case FeatureStructure:
		return "structure"
	case FeatureSemantics:
		return "semantics"
	default:
		return "documentation"
	}
}
