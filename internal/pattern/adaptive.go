package pattern

import (
	"context"
	"strings"

	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// denseNodeThreshold is the tree size above which optional
// subpatterns are promoted: in trees this dense, optional constructs
// are empirically present.
const denseNodeThreshold = 500

// runAdaptive performs the single-shot rewrite and re-execution for
// the adaptive variant. Rewrites that fail to compile revert; a
// successful rewrite is recorded on the pattern and visible as
// metadata.adapted.
func (e *Engine) runAdaptive(ctx context.Context, p *AdaptivePattern, source []byte, tree parser.Tree, qm types.QueryMetrics) []types.PatternMatch {
	def := p.Definition()

	if _, _, alreadyAdapted := p.adaptedState(); !alreadyAdapted {
		newQuery := def.Query
		newRegex := def.Regex

		gt, isGrammar := tree.(*parser.GrammarTree)
		if isGrammar && def.Query != "" && qm.NodeCount > denseNodeThreshold {
			candidate := promoteOptionalQuantifiers(def.Query)
			if candidate != def.Query {
				if _, err := e.dispatch.Grammar().CompileQuery(gt.Language(), candidate); err == nil {
					newQuery = candidate
				} else {
					debug.Match("adaptation reverted", "pattern", p.Name(), "error", err)
				}
			}
		}

		if def.Regex != "" {
			candidate := retuneWhitespace(def.Regex, detectIndentStyle(source))
			if candidate != def.Regex {
				if _, err := e.regexes.Get(candidate); err == nil {
					newRegex = candidate
				}
			}
		}

		// Only actual rewrites are recorded; an unchanged expression
		// stays empty so re-execution skips it.
		adaptedQuery, adaptedRegex := "", ""
		if newQuery != def.Query {
			adaptedQuery = newQuery
		}
		if newRegex != def.Regex {
			adaptedRegex = newRegex
		}
		if adaptedQuery != "" || adaptedRegex != "" {
			p.recordAdaptation(adaptedQuery, adaptedRegex)
		}
	}

	// Re-run with the adapted expressions, when any.
	if aq, ar, adapted := p.adaptedState(); adapted {
		if gt, ok := tree.(*parser.GrammarTree); ok && aq != "" {
			matches, _ := e.runQuery(ctx, p, aq, gt, e.limits)
			if len(matches) > 0 {
				tagStrategy(matches, types.StrategyAdapted)
				return matches
			}
		}
		if ar != "" {
			matches := e.runRegex(ctx, p, ar, source, types.StrategyAdapted)
			if len(matches) > 0 {
				return matches
			}
		}
	}

	// Behavior matrix: on empty, an adaptive pattern with a regex
	// fallback tries it.
	if def.Regex != "" {
		return e.runRegex(ctx, p, def.Regex, source, types.StrategyRegexFallback)
	}
	return nil
}

func tagStrategy(matches []types.PatternMatch, s types.MatchStrategy) {
	for i := range matches {
		matches[i].Strategy = s
	}
}

// promoteOptionalQuantifiers drops `?` quantifiers that follow a
// closing paren or bracket in a structural query, requiring the
// optional subpattern. Quantifiers inside strings and predicates are
// left alone.
func promoteOptionalQuantifiers(query string) string {
	var sb strings.Builder
	sb.Grow(len(query))
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '"' && (i == 0 || query[i-1] != '\\') {
			inString = !inString
		}
		if c == '?' && !inString && i > 0 && (query[i-1] == ')' || query[i-1] == ']') {
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// indentStyle is the detected dominant indentation of a source file.
type indentStyle struct {
	usesTabs bool
	width    int
}

// detectIndentStyle samples leading whitespace across lines.
func detectIndentStyle(source []byte) indentStyle {
	tabLines, spaceLines := 0, 0
	widthVotes := map[int]int{}

	lineStart := 0
	for i := 0; i <= len(source); i++ {
		if i != len(source) && source[i] != '\n' {
			continue
		}
		line := source[lineStart:i]
		lineStart = i + 1
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '\t':
			tabLines++
		case ' ':
			spaces := 0
			for _, b := range line {
				if b != ' ' {
					break
				}
				spaces++
			}
			if spaces > 0 && spaces < len(line) {
				spaceLines++
				for _, w := range []int{2, 4, 8} {
					if spaces%w == 0 {
						widthVotes[w]++
						break
					}
				}
			}
		}
	}

	style := indentStyle{usesTabs: tabLines > spaceLines}
	best := 0
	for w, votes := range widthVotes {
		if votes > best || (votes == best && w > style.width) {
			best = votes
			style.width = w
		}
	}
	return style
}

// retuneWhitespace rewrites `\s+` classes in a regex fallback to
// match the detected code style.
func retuneWhitespace(regex string, style indentStyle) string {
	if !strings.Contains(regex, `\s+`) {
		return regex
	}
	if style.usesTabs {
		return strings.ReplaceAll(regex, `\s+`, `[\t]+`)
	}
	if style.width > 0 {
		return strings.ReplaceAll(regex, `\s+`, `[ \t]+`)
	}
	return regex
}
