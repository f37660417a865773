package pattern

import (
	"container/list"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// regexComplexityMarkers match constructs the standard library engine
// rejects; patterns using them route to the backtracking engine.
var regexComplexityMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\(\?[=!]`),         // lookahead
	regexp.MustCompile(`\(\?<[=!]`),        // lookbehind
	regexp.MustCompile(`\\[1-9]`),          // backreference
	regexp.MustCompile(`\(\?>`),            // atomic group
	regexp.MustCompile(`[*+?]\+`),          // possessive quantifier
	regexp.MustCompile(`\(\?\(`),           // conditional
	regexp.MustCompile(`\(\?R\)|\(\?0\)`),  // recursion
}

// classifyRegex reports whether a pattern needs the backtracking
// engine. Simple patterns run on the linear-time standard engine.
func classifyRegex(pattern string) bool {
	for _, marker := range regexComplexityMarkers {
		if marker.MatchString(pattern) {
			return true
		}
	}
	return false
}

// compiledRegex is either a standard or backtracking compilation.
type compiledRegex struct {
	pattern string
	std     *regexp.Regexp
	back    *regexp2.Regexp
	err     error
}

// RegexCache LRU-caches compiled regex fallbacks, routing each
// pattern to the engine that can execute it.
type RegexCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	maxSize  int
	timeout  time.Duration

	hits   int64
	misses int64
}

// NewRegexCache creates a cache bounded to maxSize compilations.
func NewRegexCache(maxSize int, matchTimeout time.Duration) *RegexCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &RegexCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		timeout: matchTimeout,
	}
}

// Get compiles (or returns the cached compilation of) a pattern.
func (c *RegexCache) Get(pattern string) (*compiledRegex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[pattern]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		cr := elem.Value.(*compiledRegex)
		return cr, cr.err
	}
	c.misses++

	cr := &compiledRegex{pattern: pattern}
	if classifyRegex(pattern) {
		re, err := regexp2.Compile(pattern, regexp2.Multiline)
		if err != nil {
			cr.err = err
		} else {
			if c.timeout > 0 {
				re.MatchTimeout = c.timeout
			}
			cr.back = re
		}
	} else {
		re, err := regexp.Compile("(?m)" + pattern)
		if err != nil {
			cr.err = err
		} else {
			cr.std = re
		}
	}

	elem := c.lru.PushFront(cr)
	c.entries[pattern] = elem
	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*compiledRegex).pattern)
	}
	return cr, cr.err
}

// Stats reports hit/miss counts.
func (c *RegexCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// regexSpan is one raw regex match with named group spans in byte
// offsets.
type regexSpan struct {
	start, end int
	groups     map[string][]groupSpan
}

type groupSpan struct {
	name       string
	start, end int
}

// execute runs the compiled regex over source and returns byte-offset
// spans. The backtracking engine reports rune offsets, which are
// translated back to bytes.
func (cr *compiledRegex) execute(source []byte) []regexSpan {
	switch {
	case cr.std != nil:
		return cr.executeStd(source)
	case cr.back != nil:
		return cr.executeBack(source)
	}
	return nil
}

func (cr *compiledRegex) executeStd(source []byte) []regexSpan {
	names := cr.std.SubexpNames()
	var spans []regexSpan
	for _, idx := range cr.std.FindAllSubmatchIndex(source, -1) {
		span := regexSpan{start: idx[0], end: idx[1], groups: make(map[string][]groupSpan)}
		for gi, name := range names {
			if gi == 0 || name == "" {
				continue
			}
			s, e := idx[2*gi], idx[2*gi+1]
			if s < 0 {
				continue
			}
			span.groups[name] = append(span.groups[name], groupSpan{name: name, start: s, end: e})
		}
		spans = append(spans, span)
	}
	return spans
}

func (cr *compiledRegex) executeBack(source []byte) []regexSpan {
	text := string(source)
	runes := []rune(text)
	// rune index -> byte offset, one extra slot for end-of-input.
	runeToByte := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		runeToByte[i] = off
		off += len(string(r))
	}
	runeToByte[len(runes)] = off

	toByte := func(runeIdx int) int {
		if runeIdx < 0 {
			return 0
		}
		if runeIdx >= len(runeToByte) {
			return runeToByte[len(runeToByte)-1]
		}
		return runeToByte[runeIdx]
	}

	var spans []regexSpan
	m, err := cr.back.FindStringMatch(text)
	for err == nil && m != nil {
		span := regexSpan{
			start:  toByte(m.Index),
			end:    toByte(m.Index + m.Length),
			groups: make(map[string][]groupSpan),
		}
		for _, g := range m.Groups() {
			if g.Name == "" || g.Name == "0" || len(g.Captures) == 0 {
				continue
			}
			if _, numeric := numericGroupName(g.Name); numeric {
				continue
			}
			for _, capture := range g.Captures {
				span.groups[g.Name] = append(span.groups[g.Name], groupSpan{
					name:  g.Name,
					start: toByte(capture.Index),
					end:   toByte(capture.Index + capture.Length),
				})
			}
		}
		spans = append(spans, span)
		m, err = cr.back.FindNextMatch(m)
	}
	return spans
}

func numericGroupName(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	n := 0
	for _, r := range name {
		if !strings.ContainsRune("0123456789", r) {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
