package custom

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/polyscan/internal/types"
)

// ParseYAML builds a CustomTree from the yaml.v3 node tree, which
// preserves line/column positions and comments. Decode errors attach
// to the root; yaml.v3 reports positions 1-based, ours are 0-based.
func ParseYAML(source []byte) *types.CustomNode {
	doc := newLineDoc(source)
	root := doc.rootNode("yaml_file")

	var parsed yaml.Node
	if err := yaml.Unmarshal(source, &parsed); err != nil {
		root.Error = fmt.Sprintf("yaml: %v", err)
		return root
	}
	if parsed.Kind == 0 {
		return root // empty document
	}

	child := convertYAMLNode(&parsed, doc)
	if child != nil {
		root.AddChild(child)
	}
	return root
}

func convertYAMLNode(n *yaml.Node, doc *lineDoc) *types.CustomNode {
	kind := yamlKindName(n.Kind)
	start := yamlPoint(n)
	node := types.NewCustomNode(kind, start, start)
	if n.Line > 0 && n.Line <= doc.lineCount() {
		node.StartByte = doc.offsets[n.Line-1] + uint(n.Column-1)
	}

	if n.Value != "" {
		node.Metadata["value"] = n.Value
		node.EndPoint = types.Point{Row: start.Row, Column: start.Column + uint32(len(n.Value))}
		node.EndByte = node.StartByte + uint(len(n.Value))
	} else {
		node.EndPoint = start
		node.EndByte = node.StartByte
	}
	if n.Tag != "" && n.Tag != "!!str" && n.Tag != "!!map" && n.Tag != "!!seq" {
		node.Metadata["tag"] = n.Tag
	}
	if n.Anchor != "" {
		node.Metadata["anchor"] = n.Anchor
	}
	if n.HeadComment != "" {
		node.Metadata["head_comment"] = n.HeadComment
	}
	if n.LineComment != "" {
		node.Metadata["line_comment"] = n.LineComment
	}
	if n.FootComment != "" {
		node.Metadata["foot_comment"] = n.FootComment
	}

	switch n.Kind {
	case yaml.MappingNode:
		// Content alternates key, value.
		for i := 0; i+1 < len(n.Content); i += 2 {
			pair := types.NewCustomNode("pair", yamlPoint(n.Content[i]), yamlPoint(n.Content[i]))
			key := convertYAMLNode(n.Content[i], doc)
			value := convertYAMLNode(n.Content[i+1], doc)
			pair.StartByte = key.StartByte
			pair.Metadata["key"] = n.Content[i].Value
			pair.AddChild(key)
			pair.AddChild(value)
			extendTo(pair, key)
			extendTo(pair, value)
			node.AddChild(pair)
			extendTo(node, pair)
		}
	default:
		for _, c := range n.Content {
			child := convertYAMLNode(c, doc)
			node.AddChild(child)
			extendTo(node, child)
		}
	}
	return node
}

func yamlPoint(n *yaml.Node) types.Point {
	row, col := n.Line, n.Column
	if row > 0 {
		row--
	}
	if col > 0 {
		col--
	}
	return types.Point{Row: uint32(row), Column: uint32(col)}
}

func yamlKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
