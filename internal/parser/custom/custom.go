// Package custom holds the handwritten parser backends: line-oriented
// and recursive-descent scanners for formats where bespoke logic
// beats a grammar. Every backend emits the uniform CustomTree shape
// and never panics on malformed input; errors attach to the nearest
// enclosing node.
package custom

import (
	"context"
	"strings"

	"github.com/standardbeagle/polyscan/internal/parser"
	"github.com/standardbeagle/polyscan/internal/types"
)

// ParseFunc turns source bytes into a custom root node. There is no
// error return: implementations attach errors to nodes and return a
// usable tree.
type ParseFunc func(source []byte) *types.CustomNode

// Backend adapts a ParseFunc to the parser.Parser capability.
type Backend struct {
	language string
	parse    ParseFunc
}

// NewBackend wraps a parse function for a language.
func NewBackend(language string, parse ParseFunc) *Backend {
	return &Backend{language: language, parse: parse}
}

func (b *Backend) Language() string       { return b.language }
func (b *Backend) Kind() types.ParserKind { return types.ParserKindHandwritten }
func (b *Backend) Cleanup()               {}

func (b *Backend) Parse(ctx context.Context, source []byte) (*parser.ParseResult, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	root := b.parse(source)
	tree := parser.NewCustomTree(b.language, root)
	var diags []types.Diagnostic
	root.Walk(func(n *types.CustomNode, depth int) bool {
		if n.Error != "" {
			diags = append(diags, types.Diagnostic{
				Kind:    types.DiagnosticError,
				Start:   n.StartPoint,
				End:     n.EndPoint,
				Message: n.Error,
			})
		}
		return true
	})
	return &parser.ParseResult{Tree: tree, Success: len(diags) == 0, Errors: diags}, nil
}

// RegisterAll wires every handwritten backend into a dispatcher.
// Primary registrations drive classification preference; fallback
// registrations only serve when a grammar fails to construct.
func RegisterAll(d *parser.Dispatcher) {
	primary := map[string]ParseFunc{
		"ini":       ParseINI,
		"env":       ParseEnv,
		"json":      ParseJSON,
		"yaml":      ParseYAML,
		"markdown":  ParseMarkdown,
		"plaintext": ParsePlaintext,
	}
	for language, fn := range primary {
		fn := fn
		d.RegisterCustom(language, func(languageID string) parser.Parser {
			return NewBackend(languageID, fn)
		})
	}

	d.RegisterCustomFallback("javascript", func(languageID string) parser.Parser {
		return NewBackend(languageID, ParseJavaScriptFallback)
	})
}

// lineDoc indexes source lines for position bookkeeping shared by the
// line-oriented scanners.
type lineDoc struct {
	source []byte
	lines  []string
	// offsets[i] is the byte offset of line i's first character.
	offsets []uint
}

func newLineDoc(source []byte) *lineDoc {
	text := string(source)
	lines := strings.Split(text, "\n")
	offsets := make([]uint, len(lines))
	var off uint
	for i, line := range lines {
		offsets[i] = off
		off += uint(len(line)) + 1
	}
	return &lineDoc{source: source, lines: lines, offsets: offsets}
}

func (d *lineDoc) lineCount() int { return len(d.lines) }

func (d *lineDoc) line(i int) string { return d.lines[i] }

// span builds the point and byte range for columns [startCol, endCol)
// of line i.
func (d *lineDoc) span(i, startCol, endCol int) (types.Point, types.Point, uint, uint) {
	start := types.Point{Row: uint32(i), Column: uint32(startCol)}
	end := types.Point{Row: uint32(i), Column: uint32(endCol)}
	return start, end, d.offsets[i] + uint(startCol), d.offsets[i] + uint(endCol)
}

// lineNode creates a node covering columns [startCol, endCol) of line i.
func (d *lineDoc) lineNode(kind string, i, startCol, endCol int) *types.CustomNode {
	start, end, sb, eb := d.span(i, startCol, endCol)
	n := types.NewCustomNode(kind, start, end)
	n.StartByte, n.EndByte = sb, eb
	return n
}

// docEnd returns the end point of the whole document.
func (d *lineDoc) docEnd() types.Point {
	last := d.lineCount() - 1
	return types.Point{Row: uint32(last), Column: uint32(len(d.lines[last]))}
}

// rootNode creates a document-spanning node.
func (d *lineDoc) rootNode(kind string) *types.CustomNode {
	n := types.NewCustomNode(kind, types.Point{}, d.docEnd())
	n.EndByte = uint(len(d.source))
	return n
}

// extendTo widens a node's end to cover another node.
func extendTo(parent, child *types.CustomNode) {
	if parent.EndPoint.Less(child.EndPoint) {
		parent.EndPoint = child.EndPoint
	}
	if child.EndByte > parent.EndByte {
		parent.EndByte = child.EndByte
	}
}
