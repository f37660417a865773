// Package classify combines language detection with parser
// availability into immutable FileClassification records.
package classify

import (
	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/langmap"
	"github.com/standardbeagle/polyscan/internal/types"
)

// MaxBinarySniffBytes bounds the cheap binary check.
const MaxBinarySniffBytes = 1024

// binaryThreshold is the fraction of non-text bytes above which the
// content is treated as binary.
const binaryThreshold = 0.30

// Classifier produces FileClassifications. Deterministic for a given
// (path, content, registry snapshot).
type Classifier struct {
	mapper   *langmap.Mapper
	registry langmap.Registry
}

// New builds a classifier over a mapper and backend registry.
func New(mapper *langmap.Mapper, registry langmap.Registry) *Classifier {
	return &Classifier{mapper: mapper, registry: registry}
}

// Classify maps (path, optional content) to a FileClassification.
// Never fails: unknown inputs land on plaintext with confidence 0.
func (c *Classifier) Classify(path string, content []byte) types.FileClassification {
	if IsBinaryData(content) {
		debug.Classify("binary content", "path", path)
		return types.FileClassification{
			Path:       path,
			LanguageID: types.LanguageUnknown,
			FileType:   types.FileTypeBinary,
			ParserKind: types.ParserKindUnknown,
			Confidence: 1.0,
			IsBinary:   true,
		}
	}

	languageID, confidence := c.mapper.Detect(path, content)

	cls := types.FileClassification{
		Path:       path,
		LanguageID: languageID,
		FileType:   c.mapper.FileTypeOf(languageID),
		Confidence: confidence,
	}

	if languageID == types.LanguageUnknown {
		cls.ParserKind = types.ParserKindUnknown
		return cls
	}

	// Handwritten backends win even when a grammar exists: they carry
	// domain knowledge the grammar cannot. The losing kind becomes the
	// fallback when both are present.
	hasHandwritten := c.registry != nil && c.registry.HasHandwrittenBackend(languageID)
	hasGrammar := c.registry != nil && c.registry.HasGrammarBackend(languageID)
	switch {
	case hasHandwritten && hasGrammar:
		cls.ParserKind = types.ParserKindHandwritten
		cls.FallbackParserKind = types.ParserKindGrammar
	case hasHandwritten:
		cls.ParserKind = types.ParserKindHandwritten
	case hasGrammar:
		cls.ParserKind = types.ParserKindGrammar
	default:
		cls.ParserKind = types.ParserKindUnknown
	}

	debug.Classify("classified", "path", path,
		"language", cls.LanguageID, "parser", cls.ParserKind, "confidence", cls.Confidence)
	return cls
}

// IsBinaryData applies the cheap binary sniff: a NUL byte, or more
// than 30% of bytes outside the readable set
// {0x09, 0x0A, 0x0D, 0x20-0x7E, 0xC0-0xFD}, marks content binary.
func IsBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if len(data) > MaxBinarySniffBytes {
		data = data[:MaxBinarySniffBytes]
	}

	nonText := 0
	for _, b := range data {
		if b == 0x00 {
			return true
		}
		if !isTextByte(b) {
			nonText++
		}
	}
	return float64(nonText)/float64(len(data)) > binaryThreshold
}

func isTextByte(b byte) bool {
	switch {
	case b == 0x09 || b == 0x0A || b == 0x0D:
		return true
	case b >= 0x20 && b <= 0x7E:
		return true
	case b >= 0xC0 && b <= 0xFD:
		return true
	}
	return false
}
