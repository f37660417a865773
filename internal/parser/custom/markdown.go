package custom

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/polyscan/internal/types"
)

var (
	mdHeadingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	mdFenceRe     = regexp.MustCompile("^```\\s*([A-Za-z0-9_+-]*)\\s*$")
	mdListItemRe  = regexp.MustCompile(`^(\s*)([-*+]|\d+\.)\s+(.*)$`)
	mdBlockquoteRe = regexp.MustCompile(`^>\s?(.*)$`)
)

// ParseMarkdown scans markdown into headings, fenced code blocks,
// list items, blockquotes and paragraphs. Whole-document structure
// only; inline emphasis stays in the paragraph text.
func ParseMarkdown(source []byte) *types.CustomNode {
	doc := newLineDoc(source)
	root := doc.rootNode("markdown_document")

	var paragraph *types.CustomNode
	flushParagraph := func() {
		if paragraph != nil {
			root.AddChild(paragraph)
			paragraph = nil
		}
	}

	for i := 0; i < doc.lineCount(); i++ {
		raw := doc.line(i)
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" {
			flushParagraph()
			continue
		}

		if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			node := doc.lineNode("heading", i, 0, len(raw))
			node.Metadata["level"] = len(m[1])
			node.Metadata["text"] = strings.TrimSpace(m[2])
			root.AddChild(node)
			continue
		}

		if m := mdFenceRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			node := doc.lineNode("code_block", i, 0, len(raw))
			if m[1] != "" {
				node.Metadata["language"] = strings.ToLower(m[1])
			}
			var body []string
			closed := false
			j := i + 1
			for ; j < doc.lineCount(); j++ {
				if mdFenceRe.MatchString(strings.TrimSpace(doc.line(j))) {
					closed = true
					break
				}
				body = append(body, doc.line(j))
			}
			node.Metadata["content"] = strings.Join(body, "\n")
			if closed {
				end := doc.lineNode("fence", j, 0, len(doc.line(j)))
				extendTo(node, end)
				i = j
			} else {
				node.Error = "unterminated code fence"
				last := doc.lineNode("fence", doc.lineCount()-1, 0, len(doc.line(doc.lineCount()-1)))
				extendTo(node, last)
				i = doc.lineCount()
			}
			root.AddChild(node)
			continue
		}

		if m := mdListItemRe.FindStringSubmatch(raw); m != nil {
			flushParagraph()
			node := doc.lineNode("list_item", i, len(m[1]), len(raw))
			node.Metadata["marker"] = m[2]
			node.Metadata["text"] = strings.TrimSpace(m[3])
			node.Metadata["ordered"] = strings.HasSuffix(m[2], ".")
			root.AddChild(node)
			continue
		}

		if m := mdBlockquoteRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			node := doc.lineNode("blockquote", i, 0, len(raw))
			node.Metadata["text"] = strings.TrimSpace(m[1])
			root.AddChild(node)
			continue
		}

		if paragraph == nil {
			paragraph = doc.lineNode("paragraph", i, 0, len(raw))
			paragraph.Metadata["text"] = trimmed
		} else {
			line := doc.lineNode("line", i, 0, len(raw))
			extendTo(paragraph, line)
			paragraph.Metadata["text"] = paragraph.Metadata["text"].(string) + "\n" + trimmed
		}
	}
	flushParagraph()

	return root
}

// ParsePlaintext treats the whole input as a single block with
// paragraph children split on blank lines.
func ParsePlaintext(source []byte) *types.CustomNode {
	doc := newLineDoc(source)
	root := doc.rootNode("plaintext_file")

	var paragraph *types.CustomNode
	flush := func() {
		if paragraph != nil {
			root.AddChild(paragraph)
			paragraph = nil
		}
	}

	for i := 0; i < doc.lineCount(); i++ {
		raw := doc.line(i)
		if strings.TrimSpace(raw) == "" {
			flush()
			continue
		}
		if paragraph == nil {
			paragraph = doc.lineNode("paragraph", i, 0, len(raw))
		} else {
			extendTo(paragraph, doc.lineNode("line", i, 0, len(raw)))
		}
	}
	flush()

	return root
}
