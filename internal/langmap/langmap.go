// Package langmap resolves file paths and content prefixes to
// canonical language ids. Every language mention elsewhere in the
// engine resolves through this package; the tables it interprets are
// data and can be replaced at runtime.
package langmap

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/standardbeagle/polyscan/internal/types"
)

// MaxSniffBytes bounds how much content detection will look at.
const MaxSniffBytes = 4096

// Tables is the full replaceable data set the mapper interprets.
type Tables struct {
	Extensions map[string]string
	Aliases    map[string]string
	Filenames  map[string]string
	FileTypes  map[string]types.FileType
}

// DefaultTables returns a deep copy of the built-in tables.
func DefaultTables() Tables {
	return Tables{
		Extensions: copyTable(defaultExtensionTable),
		Aliases:    copyTable(defaultAliasTable),
		Filenames:  copyTable(defaultFilenameTable),
		FileTypes:  copyFileTypes(defaultFileTypeTable),
	}
}

func copyTable(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyFileTypes(src map[string]types.FileType) map[string]types.FileType {
	dst := make(map[string]types.FileType, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Registry answers whether backends exist for a language. The parser
// layer registers itself here so the mapper stays dependency-free.
type Registry interface {
	HasGrammarBackend(languageID string) bool
	HasHandwrittenBackend(languageID string) bool
}

// Mapper maps paths and content to canonical language ids.
// Detection never fails: unknown inputs map to plaintext.
type Mapper struct {
	mu       sync.RWMutex
	tables   Tables
	registry Registry
}

// NewMapper builds a mapper over the default tables.
func NewMapper(registry Registry) *Mapper {
	return &Mapper{tables: DefaultTables(), registry: registry}
}

// ReplaceTables swaps the data tables wholesale. Safe for concurrent
// use with Detect.
func (m *Mapper) ReplaceTables(t Tables) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = t
}

// Normalize resolves aliases and casing to a canonical language id.
func (m *Mapper) Normalize(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	if id == "" {
		return types.LanguageUnknown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if canonical, ok := m.tables.Aliases[id]; ok {
		return canonical
	}
	return id
}

// Detect returns the canonical language id and detection confidence
// for a path, optionally consulting up to MaxSniffBytes of content.
func (m *Mapper) Detect(path string, contentPrefix []byte) (string, float64) {
	m.mu.RLock()
	tables := m.tables
	m.mu.RUnlock()

	base := strings.ToLower(filepath.Base(path))
	if id, ok := tables.Filenames[base]; ok {
		return id, 1.0
	}

	if ext := extensionOf(base); ext != "" {
		if id, ok := tables.Extensions[ext]; ok {
			return id, 0.95
		}
	}

	if len(contentPrefix) > 0 {
		if id, conf := sniffContent(contentPrefix); id != "" {
			return id, conf
		}
	}

	return types.LanguagePlaintext, 0.0
}

// Capability returns the language's capability descriptor, consulting
// the registry for backend availability.
func (m *Mapper) Capability(languageID string) types.LanguageCapability {
	id := m.Normalize(languageID)
	capability := types.LanguageCapability{
		LanguageID: id,
		FileType:   m.FileTypeOf(id),
	}
	if m.registry != nil {
		capability.HasGrammarBackend = m.registry.HasGrammarBackend(id)
		capability.HasHandwrittenBackend = m.registry.HasHandwrittenBackend(id)
	}
	if capability.HasHandwrittenBackend && capability.HasGrammarBackend {
		capability.FallbackKind = types.ParserKindGrammar
	}
	return capability
}

// FileTypeOf returns the file type for a language id.
func (m *Mapper) FileTypeOf(languageID string) types.FileType {
	id := m.Normalize(languageID)
	if id == types.LanguageUnknown {
		return types.FileTypeUnknown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ft, ok := m.tables.FileTypes[id]; ok {
		return ft
	}
	return types.FileTypeCode
}

// ExtensionsOf lists the registered extensions for a language id, in
// stable order. Diagnostic use only.
func (m *Mapper) ExtensionsOf(languageID string) []string {
	id := m.Normalize(languageID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var exts []string
	for ext, lang := range m.tables.Extensions {
		if lang == id {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// Languages returns all language ids the tables know, sorted.
func (m *Mapper) Languages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, id := range m.tables.Extensions {
		seen[id] = struct{}{}
	}
	for _, id := range m.tables.Filenames {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func extensionOf(base string) string {
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return base[idx+1:]
}

// sniffContent applies shebang and first-line magic sniffers. Each
// sniffer yields (id, confidence); the best confidence wins and ties
// resolve in table order.
func sniffContent(prefix []byte) (string, float64) {
	if len(prefix) > MaxSniffBytes {
		prefix = prefix[:MaxSniffBytes]
	}
	firstLine := prefix
	if idx := strings.IndexByte(string(prefix), '\n'); idx >= 0 {
		firstLine = prefix[:idx]
	}
	line := strings.TrimSpace(string(firstLine))

	bestID, bestConf := "", 0.0

	if interp := shebangInterpreter(line); interp != "" {
		for _, entry := range defaultShebangTable {
			if entry.interpreter == interp && entry.confidence > bestConf {
				bestID, bestConf = entry.languageID, entry.confidence
			}
		}
	}

	lower := strings.ToLower(line)
	for _, entry := range firstLineMagic {
		if strings.HasPrefix(lower, entry.prefix) && entry.confidence > bestConf {
			bestID, bestConf = entry.languageID, entry.confidence
		}
	}

	return bestID, bestConf
}

// shebangInterpreter extracts the interpreter basename from a shebang
// line, seeing through /usr/bin/env indirection.
func shebangInterpreter(line string) string {
	if !strings.HasPrefix(line, "#!") {
		return ""
	}
	fields := strings.Fields(line[2:])
	if len(fields) == 0 {
		return ""
	}
	interp := filepath.Base(fields[0])
	if interp == "env" && len(fields) > 1 {
		interp = filepath.Base(fields[1])
	}
	return interp
}
