package extract

import (
	"strings"

	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// blockKinds are node kinds that delimit a structurally meaningful
// region per language, each mapped to the block kind it emits.
var blockKinds = map[string]map[string]string{
	"go": {
		"function_declaration": "function",
		"method_declaration":   "method",
		"type_declaration":     "type",
	},
	"python": {
		"function_definition": "function",
		"class_definition":    "class",
	},
	"javascript": {
		"function_declaration": "function",
		"method_definition":    "method",
		"class_declaration":    "class",
		"arrow_function":       "function",
	},
	"typescript": {
		"function_declaration": "function",
		"method_definition":    "method",
		"class_declaration":    "class",
		"interface_declaration": "interface",
	},
	"c": {
		"function_definition": "function",
		"struct_specifier":    "struct",
	},
	"cpp": {
		"function_definition": "function",
		"struct_specifier":    "struct",
		"class_specifier":     "class",
		"namespace_definition": "namespace",
	},
	"rust": {
		"function_item": "function",
		"impl_item":     "impl",
		"struct_item":   "struct",
		"trait_item":    "trait",
	},
	"java": {
		"method_declaration": "method",
		"class_declaration":  "class",
	},
	"csharp": {
		"method_declaration": "method",
		"class_declaration":  "class",
	},
	// Handwritten backends register their block kinds here too.
	"ini": {
		"section": "section",
	},
	"markdown": {
		"heading":    "heading",
		"code_block": "code_block",
	},
	"json": {
		"object": "object",
		"array":  "array",
	},
	"yaml": {
		"mapping":  "mapping",
		"sequence": "sequence",
	},
	"env": {
		"variable": "variable",
	},
	"plaintext": {
		"paragraph": "paragraph",
	},
}

// ExtractBlocks visits named children of a tree and emits the blocks
// the language's kind table declares. Grammar and handwritten trees
// share the walk; only the tables differ. Every named node is
// traversed — blocks nest under wrappers (decorated definitions,
// declaration lists) the tables don't enumerate.
func ExtractBlocks(languageID string, source []byte, tree parser.Tree) []types.Block {
	kinds, ok := blockKinds[languageID]
	if !ok {
		kinds = map[string]string{}
	}

	var blocks []types.Block
	parser.WalkTree(tree.Root(), func(n parser.Node, depth int) bool {
		if !n.IsNamed() {
			return false
		}
		if blockName, isBlock := kinds[n.Kind()]; isBlock {
			block := types.Block{
				Content:    n.Text(source),
				StartPoint: n.StartPoint(),
				EndPoint:   n.EndPoint(),
				Kind:       blockName,
				Confidence: 1.0,
			}
			if md := n.Metadata(); len(md) > 0 {
				block.Metadata = md
			}
			blocks = append(blocks, block)
		}
		return true
	})
	return blocks
}

// ApproximateBlock recovers a block around a regex-only match by
// scanning forward for the matching closing delimiter or a dedent.
// Confidence is fixed at 0.7: the boundary is heuristic.
func ApproximateBlock(source []byte, startByte uint, kind string) types.Block {
	text := string(source)
	if int(startByte) > len(text) {
		startByte = uint(len(text))
	}

	openIdx := strings.IndexAny(text[startByte:], "{:")
	var endByte int
	if openIdx >= 0 && text[int(startByte)+openIdx] == '{' {
		endByte = matchDelimiter(text, int(startByte)+openIdx, '{', '}')
	} else {
		endByte = dedentEnd(text, int(startByte))
	}
	if endByte <= int(startByte) {
		endByte = len(text)
	}

	lines := newBlockLineIndex(source)
	return types.Block{
		Content:    text[startByte:endByte],
		StartPoint: lines.pointAt(int(startByte)),
		EndPoint:   lines.pointAt(endByte),
		Kind:       kind,
		Confidence: 0.7,
	}
}

// matchDelimiter scans forward from an opening delimiter to its
// balanced close, ignoring string contents naively.
func matchDelimiter(text string, openIdx int, open, close byte) int {
	depth := 0
	inString := byte(0)
	for i := openIdx; i < len(text); i++ {
		c := text[i]
		if inString != 0 {
			if c == inString && (i == 0 || text[i-1] != '\\') {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			inString = c
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(text)
}

// dedentEnd finds where indentation returns to at or below the
// starting line's level.
func dedentEnd(text string, startByte int) int {
	lineStart := strings.LastIndexByte(text[:startByte], '\n') + 1
	baseIndent := indentWidth(text[lineStart:])

	idx := strings.IndexByte(text[startByte:], '\n')
	if idx < 0 {
		return len(text)
	}
	pos := startByte + idx + 1
	lastContent := len(text)
	for pos < len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text) - pos
		}
		line := text[pos : pos+end]
		if strings.TrimSpace(line) != "" {
			if indentWidth(line) <= baseIndent {
				return pos
			}
			lastContent = pos + end
		}
		pos += end + 1
	}
	return lastContent
}

func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

type blockLineIndex struct {
	offsets []int
}

func newBlockLineIndex(source []byte) *blockLineIndex {
	offsets := []int{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &blockLineIndex{offsets: offsets}
}

func (l *blockLineIndex) pointAt(byteOffset int) types.Point {
	row := 0
	for i, off := range l.offsets {
		if off > byteOffset {
			break
		}
		row = i
	}
	return types.Point{Row: uint32(row), Column: uint32(byteOffset - l.offsets[row])}
}
