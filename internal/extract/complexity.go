package extract

import (
	"math"
	"strings"

	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// branchingKinds are node kinds that add a cyclomatic decision point.
var branchingKinds = map[string]struct{}{
	"if_statement": {}, "elif_clause": {}, "else_if_clause": {},
	"for_statement": {}, "for_in_statement": {}, "for_range_loop": {},
	"while_statement": {}, "do_statement": {},
	"case_clause": {}, "case_statement": {}, "switch_case": {},
	"expression_case": {}, "type_case": {},
	"catch_clause": {}, "except_clause": {}, "rescue_clause": {},
	"conditional_expression": {}, "ternary_expression": {},
	"binary_expression": {}, // counted only for && / || below
	"boolean_operator": {},
	"match_arm": {}, "when_entry": {},
}

// shortCircuitOps add decision points inside binary expressions.
var shortCircuitOps = []string{"&&", "||", " and ", " or "}

// nestingKinds increase the cognitive-complexity nesting multiplier.
var nestingKinds = map[string]struct{}{
	"if_statement": {}, "for_statement": {}, "for_in_statement": {},
	"while_statement": {}, "do_statement": {}, "switch_statement": {},
	"try_statement": {}, "catch_clause": {}, "match_statement": {},
}

// operatorKinds feed the Halstead operator tally.
var operatorKinds = map[string]struct{}{
	"binary_expression": {}, "unary_expression": {}, "assignment_expression": {},
	"assignment": {}, "augmented_assignment": {}, "update_expression": {},
	"call_expression": {}, "call": {}, "boolean_operator": {},
	"comparison_operator": {}, "selector_expression": {},
}

// operandKinds feed the Halstead operand tally.
var operandKinds = map[string]struct{}{
	"identifier": {}, "field_identifier": {}, "property_identifier": {},
	"type_identifier": {}, "number": {}, "integer": {}, "float": {},
	"string": {}, "string_literal": {}, "interpreted_string_literal": {},
	"raw_string_literal": {}, "rune_literal": {}, "true": {}, "false": {},
	"nil": {}, "none": {}, "null": {},
}

// ComputeComplexity walks a tree once and derives the full metric
// record. Works for both backends; handwritten trees simply have
// fewer recognized kinds.
func ComputeComplexity(tree parser.Tree, source []byte) types.ComplexityMetrics {
	metrics := types.ComplexityMetrics{Cyclomatic: 1}

	uniqueOperators := make(map[string]struct{})
	uniqueOperands := make(map[string]struct{})
	totalOperators, totalOperands := 0, 0

	parser.WalkTree(tree.Root(), func(n parser.Node, depth int) bool {
		metrics.NodeCount++
		if depth > metrics.MaxDepth {
			metrics.MaxDepth = depth
		}

		kind := n.Kind()
		if _, ok := branchingKinds[kind]; ok {
			if kind == "binary_expression" {
				text := n.Text(source)
				for _, op := range shortCircuitOps {
					if strings.Contains(text, op) {
						metrics.Cyclomatic++
						break
					}
				}
			} else {
				metrics.Cyclomatic++
			}
		}

		if _, ok := nestingKinds[kind]; ok {
			// Cognitive complexity: each nesting construct costs its
			// depth in enclosing nesting constructs plus one.
			metrics.Cognitive += 1 + nestingDepthAbove(depth)
		}

		if _, ok := operatorKinds[kind]; ok {
			uniqueOperators[kind] = struct{}{}
			totalOperators++
		}
		if _, ok := operandKinds[kind]; ok {
			uniqueOperands[n.Text(source)] = struct{}{}
			totalOperands++
		}
		return true
	})

	metrics.LinesOfCode = countLines(source)
	fillHalstead(&metrics, len(uniqueOperators), len(uniqueOperands), totalOperators, totalOperands)
	fillMaintainability(&metrics)
	return metrics
}

// nestingDepthAbove approximates enclosing nesting cost from tree
// depth. Tree depth overcounts (blocks, bodies), so scale down.
func nestingDepthAbove(depth int) int {
	if depth <= 2 {
		return 0
	}
	return (depth - 2) / 2
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	lines := 1
	for _, b := range source {
		if b == '\n' {
			lines++
		}
	}
	if source[len(source)-1] == '\n' {
		lines--
	}
	return lines
}

func fillHalstead(m *types.ComplexityMetrics, n1, n2, bigN1, bigN2 int) {
	vocabulary := n1 + n2
	length := bigN1 + bigN2
	if vocabulary == 0 || length == 0 {
		return
	}
	m.HalsteadVolume = float64(length) * math.Log2(float64(vocabulary))
	if n2 > 0 {
		m.HalsteadDifficulty = float64(n1) / 2 * float64(bigN2) / float64(n2)
	}
	m.HalsteadEffort = m.HalsteadVolume * m.HalsteadDifficulty
}

// fillMaintainability computes the classic maintainability index,
// clamped to [0, 100].
func fillMaintainability(m *types.ComplexityMetrics) {
	volume := m.HalsteadVolume
	if volume <= 0 {
		volume = 1
	}
	loc := m.LinesOfCode
	if loc <= 0 {
		loc = 1
	}
	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(m.Cyclomatic) - 16.2*math.Log(float64(loc))
	mi = mi * 100 / 171
	if mi < 0 {
		mi = 0
	}
	if mi > 100 {
		mi = 100
	}
	m.MaintainabilityIndex = mi
}
