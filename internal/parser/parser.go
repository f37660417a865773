// Package parser routes file classifications to concrete parser
// backends and manages their lifecycles. Grammar parsers are pooled
// per language; handwritten backends register factories.
package parser

import (
	"context"
	"sort"
	"sync"

	pserr "github.com/standardbeagle/polyscan/internal/errors"
	"github.com/standardbeagle/polyscan/internal/types"
)

// Parser is the polymorphic capability both backends implement.
type Parser interface {
	Language() string
	Kind() types.ParserKind
	Parse(ctx context.Context, source []byte) (*ParseResult, error)
	Cleanup()
}

// CustomFactory builds a handwritten parser for a language.
type CustomFactory func(languageID string) Parser

// Dispatcher owns the parser pool and the backend registries.
// Creation of a language's first parser is guarded by a per-language
// lock; once created, checkouts are pool operations.
type Dispatcher struct {
	grammar *GrammarBackend

	customMu  sync.RWMutex
	factories map[string]CustomFactory
	// fallbackFactories hold handwritten backends used only when the
	// primary backend cannot be constructed; they never influence
	// classification preference.
	fallbackFactories map[string]CustomFactory

	poolMu sync.Mutex
	pools  map[poolKey]*languagePool
}

type poolKey struct {
	language string
	kind     types.ParserKind
}

type languagePool struct {
	once sync.Once
	err  error
	pool sync.Pool
}

// NewDispatcher builds a dispatcher over a fresh grammar backend.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		grammar:           NewGrammarBackend(),
		factories:         make(map[string]CustomFactory),
		fallbackFactories: make(map[string]CustomFactory),
		pools:             make(map[poolKey]*languagePool),
	}
}

// Grammar exposes the grammar backend for query execution.
func (d *Dispatcher) Grammar() *GrammarBackend { return d.grammar }

// RegisterCustom registers a handwritten backend factory for a
// language, replacing any previous registration.
func (d *Dispatcher) RegisterCustom(languageID string, factory CustomFactory) {
	d.customMu.Lock()
	defer d.customMu.Unlock()
	d.factories[languageID] = factory
}

// RegisterCustomFallback registers a handwritten backend that only
// serves as a fallback when the language's primary backend fails to
// construct.
func (d *Dispatcher) RegisterCustomFallback(languageID string, factory CustomFactory) {
	d.customMu.Lock()
	defer d.customMu.Unlock()
	d.fallbackFactories[languageID] = factory
}

// HasGrammarBackend implements langmap.Registry.
func (d *Dispatcher) HasGrammarBackend(languageID string) bool {
	return HasGrammar(languageID)
}

// HasHandwrittenBackend implements langmap.Registry.
func (d *Dispatcher) HasHandwrittenBackend(languageID string) bool {
	d.customMu.RLock()
	defer d.customMu.RUnlock()
	_, ok := d.factories[languageID]
	return ok
}

// GetParser resolves a classification to a parser, walking the
// fallback chain: requested kind, declared fallback kind, plaintext.
// The returned parser must be handed back via Release.
func (d *Dispatcher) GetParser(classification types.FileClassification) (Parser, error) {
	kinds := []types.ParserKind{classification.ParserKind}
	if classification.FallbackParserKind != types.ParserKindUnknown {
		kinds = append(kinds, classification.FallbackParserKind)
	}

	var lastErr error
	for _, kind := range kinds {
		p, err := d.checkout(classification.LanguageID, kind)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}

	// Registered fallback-only handwritten backend, then plaintext.
	d.customMu.RLock()
	fallback, hasFallback := d.fallbackFactories[classification.LanguageID]
	d.customMu.RUnlock()
	if hasFallback && lastErr != nil {
		return fallback(classification.LanguageID), nil
	}

	if p, err := d.checkout(types.LanguagePlaintext, types.ParserKindHandwritten); err == nil {
		return p, nil
	}

	if lastErr == nil {
		lastErr = pserr.NewUnsupportedLanguage(classification.LanguageID)
	}
	return nil, lastErr
}

// Release returns a parser to its pool for reuse.
func (d *Dispatcher) Release(p Parser) {
	if p == nil {
		return
	}
	key := poolKey{language: p.Language(), kind: p.Kind()}
	d.poolMu.Lock()
	lp, ok := d.pools[key]
	d.poolMu.Unlock()
	if ok {
		lp.pool.Put(p)
	} else {
		p.Cleanup()
	}
}

func (d *Dispatcher) checkout(languageID string, kind types.ParserKind) (Parser, error) {
	switch kind {
	case types.ParserKindGrammar:
		if !HasGrammar(languageID) {
			return nil, pserr.NewUnsupportedLanguage(languageID)
		}
	case types.ParserKindHandwritten:
		if !d.HasHandwrittenBackend(languageID) {
			return nil, pserr.NewUnsupportedLanguage(languageID)
		}
	default:
		return nil, pserr.NewUnsupportedLanguage(languageID)
	}

	lp := d.poolFor(poolKey{language: languageID, kind: kind})

	// First construction happens exactly once per (language, kind);
	// it also warms the pool's New function for later checkouts.
	lp.once.Do(func() {
		first, err := d.construct(languageID, kind)
		if err != nil {
			lp.err = err
			return
		}
		lp.pool.New = func() any {
			p, newErr := d.construct(languageID, kind)
			if newErr != nil {
				return nil
			}
			return p
		}
		lp.pool.Put(first)
	})
	if lp.err != nil {
		return nil, lp.err
	}

	if got := lp.pool.Get(); got != nil {
		return got.(Parser), nil
	}
	return d.construct(languageID, kind)
}

func (d *Dispatcher) poolFor(key poolKey) *languagePool {
	d.poolMu.Lock()
	defer d.poolMu.Unlock()
	lp, ok := d.pools[key]
	if !ok {
		lp = &languagePool{}
		d.pools[key] = lp
	}
	return lp
}

func (d *Dispatcher) construct(languageID string, kind types.ParserKind) (Parser, error) {
	switch kind {
	case types.ParserKindGrammar:
		return d.grammar.NewGrammarParser(languageID)
	case types.ParserKindHandwritten:
		d.customMu.RLock()
		factory, ok := d.factories[languageID]
		d.customMu.RUnlock()
		if !ok {
			return nil, pserr.NewUnsupportedLanguage(languageID)
		}
		return factory(languageID), nil
	}
	return nil, pserr.NewUnsupportedLanguage(languageID)
}

// SupportedLanguages lists every language either backend can parse,
// sorted, for diagnostics and learner bootstrapping.
func (d *Dispatcher) SupportedLanguages() []string {
	seen := make(map[string]struct{})
	for _, id := range GrammarLanguages() {
		seen[id] = struct{}{}
	}
	d.customMu.RLock()
	for id := range d.factories {
		seen[id] = struct{}{}
	}
	d.customMu.RUnlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cleanup drains the pools and releases grammar resources. The
// dispatcher is unusable afterwards; tests construct fresh ones.
func (d *Dispatcher) Cleanup() {
	d.poolMu.Lock()
	for key, lp := range d.pools {
		for {
			got := lp.pool.Get()
			if got == nil {
				break
			}
			got.(Parser).Cleanup()
		}
		delete(d.pools, key)
	}
	d.poolMu.Unlock()
	d.grammar.Close()
}
