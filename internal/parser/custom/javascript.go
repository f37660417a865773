package custom

import (
	"fmt"

	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"

	"github.com/standardbeagle/polyscan/internal/types"
)

// ParseJavaScriptFallback parses JavaScript with go-fAST, the pure-Go
// parser, for deployments where the grammar backend cannot load. It
// surfaces declarations and nesting rather than a full token tree;
// go-fAST rejects ES modules and TypeScript, in which case the error
// lands on the root and the tree degrades to a single block.
func ParseJavaScriptFallback(source []byte) *types.CustomNode {
	doc := newLineDoc(source)
	root := doc.rootNode("program")

	program, err := parser.ParseFile(string(source))
	if err != nil {
		root.Error = fmt.Sprintf("go-fast: %v", err)
		return root
	}

	v := &jsVisitor{doc: doc}
	for _, stmt := range program.Body {
		v.visitStatement(stmt.Stmt, root)
	}
	return root
}

type jsVisitor struct {
	doc *lineDoc
}

// nodeAt builds a node spanning from a byte offset to the end of that
// offset's line. go-fAST exposes start offsets only; the line end is
// the closest honest bound for a fallback backend.
func (v *jsVisitor) nodeAt(kind string, idx int) *types.CustomNode {
	if idx < 0 {
		idx = 0
	}
	if idx > len(v.doc.source) {
		idx = len(v.doc.source)
	}
	row, col := 0, idx
	for i, off := range v.doc.offsets {
		if uint(idx) >= off && idx-int(off) <= len(v.doc.lines[i]) {
			row, col = i, idx-int(off)
		}
	}
	node := v.doc.lineNode(kind, row, col, len(v.doc.line(row)))
	return node
}

func (v *jsVisitor) visitStatement(stmt ast.Stmt, parent *types.CustomNode) {
	if stmt == nil {
		return
	}

	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		if s.Function == nil || s.Function.Name == nil {
			return
		}
		node := v.nodeAt("function_declaration", int(s.Function.Function))
		node.Metadata["name"] = s.Function.Name.Name
		node.Metadata["async"] = s.Function.Async
		node.Metadata["generator"] = s.Function.Generator
		parent.AddChild(node)
		if s.Function.Body != nil {
			for _, bodyStmt := range s.Function.Body.List {
				v.visitStatement(bodyStmt.Stmt, node)
			}
		}

	case *ast.ClassDeclaration:
		if s.Class == nil || s.Class.Name == nil {
			return
		}
		node := v.nodeAt("class_declaration", int(s.Class.Class))
		node.Metadata["name"] = s.Class.Name.Name
		parent.AddChild(node)
		for _, element := range s.Class.Body {
			v.visitClassElement(element.Element, node)
		}

	case *ast.VariableDeclaration:
		for _, decl := range s.List {
			if decl.Target == nil || decl.Target.Target == nil {
				continue
			}
			name := bindingName(decl.Target.Target)
			if name == "" {
				continue
			}
			kind := "variable_declaration"
			if decl.Initializer != nil && decl.Initializer.Expr != nil {
				switch decl.Initializer.Expr.(type) {
				case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
					kind = "function_declaration"
				}
			}
			node := v.nodeAt(kind, int(s.Idx))
			node.Metadata["name"] = name
			parent.AddChild(node)
		}

	case *ast.BlockStatement:
		for _, bodyStmt := range s.List {
			v.visitStatement(bodyStmt.Stmt, parent)
		}
	}
}

func (v *jsVisitor) visitClassElement(element ast.Element, parent *types.CustomNode) {
	if element == nil {
		return
	}
	switch e := element.(type) {
	case *ast.MethodDefinition:
		if e.Key == nil || e.Key.Expr == nil {
			return
		}
		name := expressionName(e.Key.Expr)
		if name == "" {
			return
		}
		node := v.nodeAt("method_definition", int(e.Idx))
		node.Metadata["name"] = name
		node.Metadata["static"] = e.Static
		parent.AddChild(node)
	case *ast.FieldDefinition:
		if e.Key == nil || e.Key.Expr == nil {
			return
		}
		name := expressionName(e.Key.Expr)
		if name == "" {
			return
		}
		node := v.nodeAt("field_definition", int(e.Idx))
		node.Metadata["name"] = name
		node.Metadata["static"] = e.Static
		parent.AddChild(node)
	}
}

func bindingName(target ast.Target) string {
	if ident, ok := target.(*ast.Identifier); ok {
		return ident.Name
	}
	return ""
}

func expressionName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.PrivateIdentifier:
		if e.Identifier != nil {
			return "#" + e.Identifier.Name
		}
	case *ast.StringLiteral:
		return e.Value
	}
	return ""
}
