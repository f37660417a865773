package parser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/polyscan/internal/debug"
	pserr "github.com/standardbeagle/polyscan/internal/errors"
	"github.com/standardbeagle/polyscan/internal/types"
)

// GrammarBackend wraps the tree-sitter library: one loaded language
// binding per language, one compiled query object per
// (language, query-source-hash). Both caches share one read-write
// lock; cache hits take only the read lock.
type GrammarBackend struct {
	mu        sync.RWMutex
	languages map[string]*tree_sitter.Language
	queries   map[queryKey]*compiledQuery
}

type queryKey struct {
	language   string
	sourceHash uint64
}

type compiledQuery struct {
	query *tree_sitter.Query
	err   error
}

// NewGrammarBackend creates an empty backend; grammars load on demand.
func NewGrammarBackend() *GrammarBackend {
	return &GrammarBackend{
		languages: make(map[string]*tree_sitter.Language),
		queries:   make(map[queryKey]*compiledQuery),
	}
}

// Language returns the loaded binding for a language id, loading it
// on first use.
func (b *GrammarBackend) Language(languageID string) (*tree_sitter.Language, error) {
	b.mu.RLock()
	if lang, ok := b.languages[languageID]; ok {
		b.mu.RUnlock()
		return lang, nil
	}
	b.mu.RUnlock()

	loader, ok := grammarBindings[languageID]
	if !ok {
		return nil, pserr.NewUnsupportedLanguage(languageID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if lang, ok := b.languages[languageID]; ok {
		return lang, nil
	}
	lang := loader()
	if lang == nil {
		return nil, pserr.NewParserUnavailable(languageID, fmt.Errorf("grammar binding returned nil"))
	}
	b.languages[languageID] = lang
	return lang, nil
}

// CompileQuery compiles a query for a language, caching by source
// hash. A compile failure is cached too so an invalid pattern is
// marked once per run rather than retried per file.
func (b *GrammarBackend) CompileQuery(languageID, source string) (*tree_sitter.Query, error) {
	key := queryKey{language: languageID, sourceHash: xxhash.Sum64String(source)}

	b.mu.RLock()
	if cached, ok := b.queries[key]; ok {
		b.mu.RUnlock()
		return cached.query, cached.err
	}
	b.mu.RUnlock()

	lang, err := b.Language(languageID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cached, ok := b.queries[key]; ok {
		return cached.query, cached.err
	}

	query, qerr := tree_sitter.NewQuery(lang, source)
	entry := &compiledQuery{query: query}
	if qerr != nil {
		entry.query = nil
		entry.err = fmt.Errorf("query compile: %w", qerr)
	} else if query == nil {
		entry.err = fmt.Errorf("query compile returned nil for %s", languageID)
	}
	b.queries[key] = entry
	return entry.query, entry.err
}

// Close releases every cached query and language handle.
func (b *GrammarBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, cq := range b.queries {
		if cq.query != nil {
			cq.query.Close()
		}
		delete(b.queries, key)
	}
	b.languages = make(map[string]*tree_sitter.Language)
}

// GrammarParser is one language's parser instance. Not safe for
// concurrent Parse calls; the dispatcher pools instances instead.
type GrammarParser struct {
	language string
	backend  *GrammarBackend
	parser   *tree_sitter.Parser
}

// NewGrammarParser constructs a parser for a language, loading the
// grammar if needed.
func (b *GrammarBackend) NewGrammarParser(languageID string) (*GrammarParser, error) {
	lang, err := b.Language(languageID)
	if err != nil {
		return nil, err
	}
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		parser.Close()
		return nil, pserr.NewParserUnavailable(languageID, err)
	}
	return &GrammarParser{language: languageID, backend: b, parser: parser}, nil
}

func (p *GrammarParser) Language() string       { return p.language }
func (p *GrammarParser) Kind() types.ParserKind { return types.ParserKindGrammar }

// Parse produces a GrammarTree. Parse never panics outward: the
// tree-sitter C library can fault on adversarial input, so failures
// degrade to an unsuccessful result.
func (p *GrammarParser) Parse(ctx context.Context, source []byte) (result *ParseResult, err error) {
	if ctx != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	defer func() {
		if r := recover(); r != nil {
			debug.Parse("tree-sitter panic", "language", p.language, "panic", r)
			result = &ParseResult{Success: false, Errors: []types.Diagnostic{{
				Kind:    types.DiagnosticError,
				Message: fmt.Sprintf("parser panic: %v", r),
			}}}
			err = nil
		}
	}()

	// The tree-sitter C library mutates input buffers via CGO; copy
	// so callers keep their bytes immutable.
	buffer := make([]byte, len(source))
	copy(buffer, source)

	tree := p.parser.Parse(buffer, nil)
	if tree == nil {
		return &ParseResult{Success: false, Errors: []types.Diagnostic{{
			Kind:    types.DiagnosticError,
			Message: "parse returned no tree",
		}}}, nil
	}

	gt := &GrammarTree{language: p.language, inner: tree, source: buffer}
	diags := collectDiagnostics(gt.Root())
	return &ParseResult{Tree: gt, Success: len(diags) == 0, Errors: diags}, nil
}

// Cleanup releases the underlying parser.
func (p *GrammarParser) Cleanup() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// collectDiagnostics walks the tree for error and missing nodes.
func collectDiagnostics(root Node) []types.Diagnostic {
	var diags []types.Diagnostic
	WalkTree(root, func(n Node, depth int) bool {
		if !n.HasError() {
			return false
		}
		kind := n.Kind()
		switch {
		case kind == "ERROR":
			diags = append(diags, types.Diagnostic{
				Kind:    types.DiagnosticError,
				Start:   n.StartPoint(),
				End:     n.EndPoint(),
				Message: "syntax error",
			})
			return false
		case isMissingNode(n):
			diags = append(diags, types.Diagnostic{
				Kind:    types.DiagnosticMissing,
				Start:   n.StartPoint(),
				End:     n.EndPoint(),
				Message: fmt.Sprintf("missing %s", kind),
			})
			return false
		}
		return true
	})
	return diags
}

func isMissingNode(n Node) bool {
	g, ok := n.(grammarNode)
	return ok && g.inner.IsMissing()
}

// RawCapture is one named capture from a grammar query execution.
type RawCapture struct {
	Name       string
	NodeKind   string
	StartPoint types.Point
	EndPoint   types.Point
	StartByte  uint
	EndByte    uint
	Text       string
}

// RawMatch is one grammar query match before pattern-level shaping.
type RawMatch struct {
	PatternIndex uint
	Captures     []RawCapture
}

// RunQuery executes a compiled query against a tree under soft
// limits. Exceeding a limit flags the metric and returns whatever
// matches accumulated; it never errors.
func (b *GrammarBackend) RunQuery(ctx context.Context, tree *GrammarTree, query *tree_sitter.Query, limits types.QueryLimits) ([]RawMatch, types.QueryMetrics) {
	var metrics types.QueryMetrics

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	if limits.MatchLimit > 0 {
		qc.SetMatchLimit(uint(limits.MatchLimit))
	}
	if limits.TimeoutMicros > 0 {
		qc.SetTimeoutMicros(limits.TimeoutMicros)
	}
	if limits.ByteRangeEnd > limits.ByteRangeStart {
		qc.SetByteRange(limits.ByteRangeStart, limits.ByteRangeEnd)
	}

	source := tree.Source()
	root := tree.Inner().RootNode()
	captureNames := query.CaptureNames()

	start := time.Now()
	var matches []RawMatch
	qm := qc.Matches(query, root, source)
	for {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		match := qm.Next()
		if match == nil {
			break
		}
		raw := RawMatch{PatternIndex: uint(match.PatternIndex)}
		for _, c := range match.Captures {
			node := c.Node
			sp := node.StartPosition()
			ep := node.EndPosition()
			capture := RawCapture{
				Name:       captureNames[c.Index],
				NodeKind:   node.Kind(),
				StartPoint: types.Point{Row: uint32(sp.Row), Column: uint32(sp.Column)},
				EndPoint:   types.Point{Row: uint32(ep.Row), Column: uint32(ep.Column)},
				StartByte:  node.StartByte(),
				EndByte:    node.EndByte(),
			}
			if capture.EndByte <= uint(len(source)) && capture.StartByte <= capture.EndByte {
				capture.Text = string(source[capture.StartByte:capture.EndByte])
			}
			raw.Captures = append(raw.Captures, capture)
			metrics.CaptureCount++
		}
		matches = append(matches, raw)
	}
	elapsed := time.Since(start)

	metrics.QueryTimeMicros = elapsed.Microseconds()
	metrics.NodeCount = int(root.DescendantCount())
	metrics.ExceededMatchLimit = qc.DidExceedMatchLimit()
	if limits.TimeoutMicros > 0 && uint64(elapsed.Microseconds()) >= limits.TimeoutMicros {
		metrics.ExceededTimeLimit = true
	}
	return matches, metrics
}
