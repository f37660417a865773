package classify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/polyscan/internal/langmap"
	"github.com/standardbeagle/polyscan/internal/types"
)

type fakeRegistry struct {
	grammar     map[string]bool
	handwritten map[string]bool
}

func (f fakeRegistry) HasGrammarBackend(id string) bool     { return f.grammar[id] }
func (f fakeRegistry) HasHandwrittenBackend(id string) bool { return f.handwritten[id] }

func newTestClassifier(reg fakeRegistry) *Classifier {
	return New(langmap.NewMapper(reg), reg)
}

func TestIsBinaryData(t *testing.T) {
	assert.False(t, IsBinaryData(nil))
	assert.False(t, IsBinaryData([]byte("plain ascii text\nwith lines\n")))
	assert.True(t, IsBinaryData([]byte{0x89, 'P', 'N', 'G', 0x00, 0x1A}))
	// >30% of bytes outside the readable set, no NUL.
	junk := bytes.Repeat([]byte{0x01, 0x02, 'a'}, 100)
	assert.True(t, IsBinaryData(junk))
	// Mostly readable with a little control noise stays text.
	mostly := append(bytes.Repeat([]byte("readable "), 50), 0x07)
	assert.False(t, IsBinaryData(mostly))
}

func TestClassifyBinary(t *testing.T) {
	c := newTestClassifier(fakeRegistry{})
	cls := c.Classify("blob.bin", []byte{0x00, 0x01, 0x02})
	assert.True(t, cls.IsBinary)
	assert.Equal(t, types.FileTypeBinary, cls.FileType)
	assert.Equal(t, types.ParserKindUnknown, cls.ParserKind)
}

func TestClassifyPythonWithGrammar(t *testing.T) {
	c := newTestClassifier(fakeRegistry{grammar: map[string]bool{"python": true}})
	cls := c.Classify("a.py", []byte("def hello(x, y):\n    return x + y\n"))
	assert.Equal(t, "python", cls.LanguageID)
	assert.Equal(t, types.FileTypeCode, cls.FileType)
	assert.Equal(t, types.ParserKindGrammar, cls.ParserKind)
	assert.GreaterOrEqual(t, cls.Confidence, 0.95)
	assert.False(t, cls.IsBinary)
}

// Handwritten backends win even when a grammar exists; the grammar
// becomes the fallback.
func TestClassifyPrefersHandwritten(t *testing.T) {
	c := newTestClassifier(fakeRegistry{
		grammar:     map[string]bool{"json": true},
		handwritten: map[string]bool{"json": true},
	})
	cls := c.Classify("data.json", []byte(`{"a":1}`))
	assert.Equal(t, types.ParserKindHandwritten, cls.ParserKind)
	assert.Equal(t, types.ParserKindGrammar, cls.FallbackParserKind)
}

func TestClassifyUnknownInvariant(t *testing.T) {
	// language unknown implies parser kind unknown
	c := newTestClassifier(fakeRegistry{})
	cls := c.Classify("mystery.zzz", nil)
	if cls.LanguageID == types.LanguageUnknown {
		assert.Equal(t, types.ParserKindUnknown, cls.ParserKind)
	}
	// plaintext without a registered backend also has no parser
	assert.Equal(t, types.ParserKindUnknown, cls.ParserKind)
}

func TestClassifyDeterministic(t *testing.T) {
	c := newTestClassifier(fakeRegistry{grammar: map[string]bool{"go": true}})
	content := []byte("package main\n\nfunc main() {}\n")
	first := c.Classify("main.go", content)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Classify("main.go", content))
	}
}
