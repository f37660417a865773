package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/polyscan/internal/types"
)

// Node is the uniform view over grammar and handwritten tree nodes.
// Handles are valid only for the lifetime of the owning Tree.
type Node interface {
	Kind() string
	StartPoint() types.Point
	EndPoint() types.Point
	StartByte() uint
	EndByte() uint
	IsNamed() bool
	HasError() bool
	ChildCount() int
	Child(i int) Node
	// Text slices the node's span out of the given source.
	Text(source []byte) string
	// Metadata returns handwritten-node metadata; nil for grammar nodes.
	Metadata() map[string]any
}

// Tree is the discriminated union over the two backends. A Tree
// exclusively owns its node storage; Close releases it and
// invalidates every Node handle obtained from it.
type Tree interface {
	Kind() types.ParserKind
	Language() string
	Root() Node
	HasError() bool
	Close()
}

// ParseResult is the uniform outcome both backends yield.
type ParseResult struct {
	Tree    Tree
	Success bool
	Errors  []types.Diagnostic
}

// GrammarTree owns a tree-sitter tree handle.
type GrammarTree struct {
	language string
	inner    *tree_sitter.Tree
	// source is the defensively copied buffer the tree was parsed
	// from; node byte ranges index into it.
	source []byte
	closed bool
}

func (t *GrammarTree) Kind() types.ParserKind { return types.ParserKindGrammar }
func (t *GrammarTree) Language() string       { return t.language }

func (t *GrammarTree) Root() Node {
	return grammarNode{inner: t.inner.RootNode()}
}

func (t *GrammarTree) HasError() bool {
	return t.inner.RootNode().HasError()
}

// Source returns the buffer the tree was parsed from.
func (t *GrammarTree) Source() []byte { return t.source }

// Inner exposes the raw tree for query execution.
func (t *GrammarTree) Inner() *tree_sitter.Tree { return t.inner }

func (t *GrammarTree) Close() {
	if !t.closed {
		t.inner.Close()
		t.closed = true
	}
}

type grammarNode struct {
	inner *tree_sitter.Node
}

func (n grammarNode) Kind() string { return n.inner.Kind() }

func (n grammarNode) StartPoint() types.Point {
	p := n.inner.StartPosition()
	return types.Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}

func (n grammarNode) EndPoint() types.Point {
	p := n.inner.EndPosition()
	return types.Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}

func (n grammarNode) StartByte() uint { return n.inner.StartByte() }
func (n grammarNode) EndByte() uint   { return n.inner.EndByte() }
func (n grammarNode) IsNamed() bool   { return n.inner.IsNamed() }
func (n grammarNode) HasError() bool  { return n.inner.HasError() }

func (n grammarNode) ChildCount() int { return int(n.inner.ChildCount()) }

func (n grammarNode) Child(i int) Node {
	child := n.inner.Child(uint(i))
	if child == nil {
		return nil
	}
	return grammarNode{inner: child}
}

func (n grammarNode) Text(source []byte) string {
	start, end := n.inner.StartByte(), n.inner.EndByte()
	if start > end || end > uint(len(source)) {
		return ""
	}
	return string(source[start:end])
}

func (n grammarNode) Metadata() map[string]any { return nil }

// CustomTree owns a handwritten backend's node records.
type CustomTree struct {
	language string
	root     *types.CustomNode
}

// NewCustomTree wraps a handwritten root node.
func NewCustomTree(language string, root *types.CustomNode) *CustomTree {
	return &CustomTree{language: language, root: root}
}

func (t *CustomTree) Kind() types.ParserKind { return types.ParserKindHandwritten }
func (t *CustomTree) Language() string       { return t.language }
func (t *CustomTree) Root() Node             { return customNode{inner: t.root} }
func (t *CustomTree) HasError() bool         { return t.root.HasError() }
func (t *CustomTree) Close()                 {}

// RootRecord exposes the raw custom node for extractors.
func (t *CustomTree) RootRecord() *types.CustomNode { return t.root }

type customNode struct {
	inner *types.CustomNode
}

func (n customNode) Kind() string             { return n.inner.Kind }
func (n customNode) StartPoint() types.Point  { return n.inner.StartPoint }
func (n customNode) EndPoint() types.Point    { return n.inner.EndPoint }
func (n customNode) StartByte() uint          { return n.inner.StartByte }
func (n customNode) EndByte() uint            { return n.inner.EndByte }
func (n customNode) IsNamed() bool            { return true }
func (n customNode) HasError() bool           { return n.inner.HasError() }
func (n customNode) ChildCount() int          { return len(n.inner.Children) }
func (n customNode) Metadata() map[string]any { return n.inner.Metadata }

func (n customNode) Child(i int) Node {
	if i < 0 || i >= len(n.inner.Children) {
		return nil
	}
	return customNode{inner: n.inner.Children[i]}
}

func (n customNode) Text(source []byte) string {
	if n.inner.EndByte > n.inner.StartByte && n.inner.EndByte <= uint(len(source)) {
		return string(source[n.inner.StartByte:n.inner.EndByte])
	}
	return ""
}

// WalkTree visits every node depth-first, tracking depth. The visit
// callback returns false to prune a subtree.
func WalkTree(root Node, visit func(n Node, depth int) bool) {
	walkNode(root, 0, visit)
}

func walkNode(n Node, depth int, visit func(Node, int) bool) {
	if n == nil || !visit(n, depth) {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		walkNode(n.Child(i), depth+1, visit)
	}
}
