package langmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/polyscan/internal/types"
)

type fakeRegistry struct {
	grammar     map[string]bool
	handwritten map[string]bool
}

func (f fakeRegistry) HasGrammarBackend(id string) bool     { return f.grammar[id] }
func (f fakeRegistry) HasHandwrittenBackend(id string) bool { return f.handwritten[id] }

func TestDetectByExtension(t *testing.T) {
	m := NewMapper(nil)
	tests := []struct {
		path string
		want string
		conf float64
	}{
		{"a.py", "python", 0.95},
		{"src/deep/main.go", "go", 0.95},
		{"x.tsx", "typescript", 0.95},
		{"conf.yml", "yaml", 0.95},
		{"settings.INI", "ini", 0.95},
		{"notes.markdown", "markdown", 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, conf := m.Detect(tt.path, nil)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.conf, conf)
		})
	}
}

func TestDetectSpecialFilenames(t *testing.T) {
	m := NewMapper(nil)
	tests := []struct {
		path string
		want string
	}{
		{"Dockerfile", "dockerfile"},
		{"some/dir/Makefile", "make"},
		{"go.mod", "gomod"},
		{"requirements.txt", "requirements"},
		{".env", "env"},
		{"setup.cfg", "ini"},
	}
	for _, tt := range tests {
		id, conf := m.Detect(tt.path, nil)
		assert.Equal(t, tt.want, id, tt.path)
		assert.Equal(t, 1.0, conf, tt.path)
	}
}

func TestDetectShebangAndMagic(t *testing.T) {
	m := NewMapper(nil)

	id, conf := m.Detect("script", []byte("#!/usr/bin/env python3\nprint('x')\n"))
	assert.Equal(t, "python", id)
	assert.InDelta(t, 0.9, conf, 0.01)

	id, _ = m.Detect("run", []byte("#!/bin/bash\necho hi\n"))
	assert.Equal(t, "bash", id)

	id, _ = m.Detect("data", []byte(`<?xml version="1.0"?><root/>`))
	assert.Equal(t, "xml", id)
}

func TestDetectFallsBackToPlaintext(t *testing.T) {
	m := NewMapper(nil)
	id, conf := m.Detect("mystery.zzz", nil)
	assert.Equal(t, types.LanguagePlaintext, id)
	assert.Equal(t, 0.0, conf)
}

func TestDetectIsDeterministic(t *testing.T) {
	m := NewMapper(nil)
	for i := 0; i < 10; i++ {
		id, conf := m.Detect("a.py", []byte("def f():\n    pass\n"))
		assert.Equal(t, "python", id)
		assert.Equal(t, 0.95, conf)
	}
}

func TestNormalizeAliases(t *testing.T) {
	m := NewMapper(nil)
	assert.Equal(t, "cpp", m.Normalize("C++"))
	assert.Equal(t, "javascript", m.Normalize("js"))
	assert.Equal(t, "ini", m.Normalize("properties"))
	assert.Equal(t, "go", m.Normalize("golang"))
	assert.Equal(t, types.LanguageUnknown, m.Normalize("  "))
	// Unlisted names pass through lower-cased.
	assert.Equal(t, "zig", m.Normalize("Zig"))
}

func TestCapabilityConsultsRegistry(t *testing.T) {
	reg := fakeRegistry{
		grammar:     map[string]bool{"python": true, "javascript": true},
		handwritten: map[string]bool{"ini": true, "javascript": true},
	}
	m := NewMapper(reg)

	py := m.Capability("python")
	assert.True(t, py.HasGrammarBackend)
	assert.False(t, py.HasHandwrittenBackend)
	assert.Equal(t, types.ParserKindUnknown, py.FallbackKind)

	js := m.Capability("javascript")
	assert.True(t, js.HasGrammarBackend)
	assert.True(t, js.HasHandwrittenBackend)
	assert.Equal(t, types.ParserKindGrammar, js.FallbackKind)

	ini := m.Capability("ini")
	assert.Equal(t, types.FileTypeConfig, ini.FileType)
}

func TestFileTypes(t *testing.T) {
	m := NewMapper(nil)
	assert.Equal(t, types.FileTypeCode, m.FileTypeOf("python"))
	assert.Equal(t, types.FileTypeConfig, m.FileTypeOf("yaml"))
	assert.Equal(t, types.FileTypeDoc, m.FileTypeOf("markdown"))
	assert.Equal(t, types.FileTypeData, m.FileTypeOf("json"))
	assert.Equal(t, types.FileTypeUnknown, m.FileTypeOf(types.LanguageUnknown))
}

func TestReplaceTables(t *testing.T) {
	m := NewMapper(nil)
	tables := DefaultTables()
	tables.Extensions["zzz"] = "mylang"
	m.ReplaceTables(tables)

	id, _ := m.Detect("file.zzz", nil)
	assert.Equal(t, "mylang", id)
}

func TestExtensionsOfSorted(t *testing.T) {
	m := NewMapper(nil)
	exts := m.ExtensionsOf("cpp")
	assert.Contains(t, exts, "cpp")
	assert.Contains(t, exts, "hpp")
	for i := 1; i < len(exts); i++ {
		assert.Less(t, exts[i-1], exts[i])
	}
}

func TestApplyOverlay(t *testing.T) {
	m := NewMapper(nil)
	m.ApplyOverlay(&Overlay{
		Extensions: map[string]string{"qml": "qml", "txt": ""},
		Aliases:    map[string]string{"q": "qml"},
		FileTypes:  map[string]string{"qml": "code"},
	})

	id, _ := m.Detect("ui.qml", nil)
	assert.Equal(t, "qml", id)
	assert.Equal(t, "qml", m.Normalize("q"))
	// Deleted extension falls back to content/plaintext detection.
	id, _ = m.Detect("notes.txt", nil)
	assert.Equal(t, types.LanguagePlaintext, id)
}
