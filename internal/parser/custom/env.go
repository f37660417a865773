package custom

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/polyscan/internal/types"
)

var (
	envCommentRe = regexp.MustCompile(`^#\s?(.*)$`)
	envAssignRe  = regexp.MustCompile(`^(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)
)

// ParseEnv scans dotenv content: assignments, export prefixes,
// comments, and quoted values.
func ParseEnv(source []byte) *types.CustomNode {
	doc := newLineDoc(source)
	root := doc.rootNode("env_file")

	for i := 0; i < doc.lineCount(); i++ {
		raw := doc.line(i)
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		if m := envCommentRe.FindStringSubmatch(trimmed); m != nil {
			node := doc.lineNode("comment", i, 0, len(raw))
			node.Metadata["text"] = strings.TrimSpace(m[1])
			root.AddChild(node)
			continue
		}

		if m := envAssignRe.FindStringSubmatch(trimmed); m != nil {
			node := doc.lineNode("variable", i, 0, len(raw))
			node.Metadata["key"] = m[1]
			value := strings.TrimSpace(m[2])
			quoted := false
			if len(value) >= 2 {
				if (value[0] == '"' && value[len(value)-1] == '"') ||
					(value[0] == '\'' && value[len(value)-1] == '\'') {
					value = value[1 : len(value)-1]
					quoted = true
				}
			}
			node.Metadata["value"] = value
			node.Metadata["quoted"] = quoted
			node.Metadata["exported"] = strings.HasPrefix(trimmed, "export ")
			root.AddChild(node)
			continue
		}

		node := doc.lineNode("line", i, 0, len(raw))
		node.Error = "unrecognized env line"
		root.AddChild(node)
	}

	return root
}
