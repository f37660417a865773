package custom

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/polyscan/internal/types"
)

var (
	iniCommentRe  = regexp.MustCompile(`^[;#]\s?(.*)$`)
	iniSectionRe  = regexp.MustCompile(`^\[([^\]]+)\]`)
	iniPropertyRe = regexp.MustCompile(`^([^=:\s][^=:]*?)\s*[=:]\s*(.*)$`)
)

// ParseINI scans INI/properties content into sections, properties and
// comments. Leading comment blocks attach to the node that follows
// them so documentation extraction can pair them up.
func ParseINI(source []byte) *types.CustomNode {
	doc := newLineDoc(source)
	root := doc.rootNode("ini_file")

	var currentSection *types.CustomNode
	var commentBlock []*types.CustomNode

	attachComments := func(n *types.CustomNode) {
		if len(commentBlock) > 0 {
			texts := make([]string, len(commentBlock))
			for i, c := range commentBlock {
				texts[i], _ = c.Metadata["text"].(string)
			}
			n.Metadata["comments"] = texts
			commentBlock = nil
		}
	}

	for i := 0; i < doc.lineCount(); i++ {
		raw := doc.line(i)
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))

		if m := iniCommentRe.FindStringSubmatch(trimmed); m != nil {
			node := doc.lineNode("comment", i, indent, len(raw))
			node.Metadata["text"] = strings.TrimSpace(m[1])
			commentBlock = append(commentBlock, node)
			root.AddChild(node)
			continue
		}

		if m := iniSectionRe.FindStringSubmatch(trimmed); m != nil {
			node := doc.lineNode("section", i, indent, len(raw))
			node.Metadata["name"] = strings.TrimSpace(m[1])
			attachComments(node)
			root.AddChild(node)
			currentSection = node
			continue
		}

		if m := iniPropertyRe.FindStringSubmatch(trimmed); m != nil {
			node := doc.lineNode("property", i, indent, len(raw))
			node.Metadata["key"] = strings.TrimSpace(m[1])
			node.Metadata["value"] = strings.TrimSpace(m[2])
			attachComments(node)
			if currentSection != nil {
				currentSection.AddChild(node)
				extendTo(currentSection, node)
			} else {
				root.AddChild(node)
			}
			continue
		}

		// Not comment, section, or property: keep scanning but mark
		// the malformed line on its own node.
		node := doc.lineNode("line", i, 0, len(raw))
		node.Error = "unrecognized ini line"
		if currentSection != nil {
			currentSection.AddChild(node)
			extendTo(currentSection, node)
		} else {
			root.AddChild(node)
		}
	}

	return root
}
