package custom

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/polyscan/internal/types"
)

// Every handwritten backend must satisfy the shared node invariants:
// start <= end everywhere, children in source order, no panics.
func checkTreeInvariants(t *testing.T, root *types.CustomNode) {
	t.Helper()
	root.Walk(func(n *types.CustomNode, depth int) bool {
		assert.True(t, n.StartPoint.LessEq(n.EndPoint),
			"node %s start %v after end %v", n.Kind, n.StartPoint, n.EndPoint)
		var prev types.Point
		for i, c := range n.Children {
			if i > 0 {
				assert.True(t, prev.LessEq(c.StartPoint),
					"children of %s out of order at %d", n.Kind, i)
			}
			prev = c.StartPoint
		}
		return true
	})
}

func TestParseINISectionsAndComments(t *testing.T) {
	source := "; top comment\n[db]\nhost=localhost\nport=5432\n"
	root := ParseINI([]byte(source))
	checkTreeInvariants(t, root)

	require.GreaterOrEqual(t, len(root.Children), 2)
	comment := root.Children[0]
	assert.Equal(t, "comment", comment.Kind)
	assert.Equal(t, uint32(0), comment.StartPoint.Row)
	assert.Equal(t, "top comment", comment.Metadata["text"])

	section := root.Children[1]
	assert.Equal(t, "section", section.Kind)
	assert.Equal(t, "db", section.Metadata["name"])
	require.Len(t, section.Children, 2)
	assert.Equal(t, "property", section.Children[0].Kind)
	assert.Equal(t, "host", section.Children[0].Metadata["key"])
	assert.Equal(t, "localhost", section.Children[0].Metadata["value"])
	assert.Equal(t, "port", section.Children[1].Metadata["key"])

	// Leading comment block attaches to the section that follows it.
	comments, ok := section.Metadata["comments"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"top comment"}, comments)
}

// Round-trip: the node line structure reproduces the original lines.
func TestParseINIRoundTripLineStructure(t *testing.T) {
	source := "; top comment\n[db]\nhost=localhost\nport=5432\n"
	lines := strings.Split(source, "\n")
	root := ParseINI([]byte(source))

	root.Walk(func(n *types.CustomNode, depth int) bool {
		if n.Kind == "comment" || n.Kind == "property" {
			row := int(n.StartPoint.Row)
			require.Less(t, row, len(lines))
			rendered := source[n.StartByte:n.EndByte]
			assert.Equal(t, strings.TrimRight(lines[row][n.StartPoint.Column:], "\n"), rendered)
		}
		return true
	})
}

func TestParseINIMalformedLineAttachesError(t *testing.T) {
	root := ParseINI([]byte("[ok]\n=====\nkey=value\n"))
	assert.True(t, root.HasError())
	// Parsing continued past the malformed line.
	found := false
	root.Walk(func(n *types.CustomNode, depth int) bool {
		if n.Kind == "property" && n.Metadata["key"] == "key" {
			found = true
		}
		return true
	})
	assert.True(t, found)
}

func TestParseJSONNestedStructure(t *testing.T) {
	source := `{"items":[1,2,3],"name":"kit"}`
	root := ParseJSON([]byte(source))
	checkTreeInvariants(t, root)
	assert.False(t, root.HasError())

	require.Len(t, root.Children, 1)
	object := root.Children[0]
	assert.Equal(t, "object", object.Kind)
	assert.Equal(t, uint(0), object.StartByte)
	assert.Equal(t, uint(len(source)), object.EndByte)

	require.Len(t, object.Children, 2)
	items := object.Children[0]
	assert.Equal(t, "items", items.Metadata["key"])
	array := items.Children[1]
	assert.Equal(t, "array", array.Kind)
	// The array's byte range lies strictly inside the object's.
	assert.Greater(t, array.StartByte, object.StartByte)
	assert.Less(t, array.EndByte, object.EndByte)
	assert.Len(t, array.Children, 3)

	name := object.Children[1]
	assert.Equal(t, "name", name.Metadata["key"])
	assert.Equal(t, "kit", name.Children[1].Metadata["value"])
}

func TestParseJSONMalformed(t *testing.T) {
	root := ParseJSON([]byte(`{"a": [1, 2`))
	assert.True(t, root.HasError())

	root = ParseJSON([]byte(""))
	assert.True(t, root.HasError())

	root = ParseJSON([]byte(`{"a":1} trailing`))
	assert.True(t, root.HasError())
}

func TestParseEnv(t *testing.T) {
	source := "# database\nexport DB_HOST=localhost\nSECRET=\"hush now\"\n"
	root := ParseEnv([]byte(source))
	checkTreeInvariants(t, root)

	require.Len(t, root.Children, 3)
	assert.Equal(t, "comment", root.Children[0].Kind)
	host := root.Children[1]
	assert.Equal(t, "DB_HOST", host.Metadata["key"])
	assert.Equal(t, true, host.Metadata["exported"])
	secret := root.Children[2]
	assert.Equal(t, "hush now", secret.Metadata["value"])
	assert.Equal(t, true, secret.Metadata["quoted"])
}

func TestParseMarkdown(t *testing.T) {
	source := "# Title\n\nSome intro text.\n\n```go\nfunc main() {}\n```\n\n- item one\n- item two\n"
	root := ParseMarkdown([]byte(source))
	checkTreeInvariants(t, root)

	var kinds []string
	for _, c := range root.Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []string{"heading", "paragraph", "code_block", "list_item", "list_item"}, kinds)

	heading := root.Children[0]
	assert.Equal(t, 1, heading.Metadata["level"])
	assert.Equal(t, "Title", heading.Metadata["text"])

	code := root.Children[2]
	assert.Equal(t, "go", code.Metadata["language"])
	assert.Equal(t, "func main() {}", code.Metadata["content"])
}

func TestParseMarkdownUnterminatedFence(t *testing.T) {
	root := ParseMarkdown([]byte("```python\nx = 1\n"))
	assert.True(t, root.HasError())
}

func TestParseYAML(t *testing.T) {
	source := "name: kit\nitems:\n  - 1\n  - 2\n"
	root := ParseYAML([]byte(source))
	checkTreeInvariants(t, root)
	assert.False(t, root.HasError())

	var pairKeys []string
	root.Walk(func(n *types.CustomNode, depth int) bool {
		if n.Kind == "pair" {
			pairKeys = append(pairKeys, n.Metadata["key"].(string))
		}
		return true
	})
	assert.Equal(t, []string{"name", "items"}, pairKeys)
}

func TestParseYAMLMalformed(t *testing.T) {
	root := ParseYAML([]byte("a: [unclosed\nb: }\n"))
	assert.True(t, root.HasError())
}

func TestParsePlaintextParagraphs(t *testing.T) {
	root := ParsePlaintext([]byte("first paragraph\nstill first\n\nsecond paragraph\n"))
	require.Len(t, root.Children, 2)
	assert.Equal(t, uint32(0), root.Children[0].StartPoint.Row)
	assert.Equal(t, uint32(3), root.Children[1].StartPoint.Row)
}

func TestBackendParseNeverPanicsAndReportsDiagnostics(t *testing.T) {
	backend := NewBackend("ini", ParseINI)
	result, err := backend.Parse(context.Background(), []byte("@@@garbage@@@\n===\n"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.NotNil(t, result.Tree)
}

func TestParseJavaScriptFallback(t *testing.T) {
	source := "function greet(who) { return 'hi ' + who; }\nclass Kit { meow() { return 1; } }\n"
	root := ParseJavaScriptFallback([]byte(source))
	checkTreeInvariants(t, root)

	var names []string
	root.Walk(func(n *types.CustomNode, depth int) bool {
		if name, ok := n.Metadata["name"].(string); ok {
			names = append(names, n.Kind+":"+name)
		}
		return true
	})
	assert.Contains(t, names, "function_declaration:greet")
	assert.Contains(t, names, "class_declaration:Kit")
	assert.Contains(t, names, "method_definition:meow")
}
