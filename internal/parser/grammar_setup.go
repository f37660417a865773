package parser

import (
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammarBindings maps canonical language ids to their compiled
// grammar loaders. Loading is deferred until a parser is first
// requested for the language.
var grammarBindings = map[string]func() *tree_sitter.Language{
	"go": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_go.Language())
	},
	"python": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_python.Language())
	},
	"javascript": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	},
	"typescript": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	},
	"java": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_java.Language())
	},
	"c": func() *tree_sitter.Language {
		// The cpp grammar is a superset of C and parses both.
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	},
	"cpp": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	},
	"csharp": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	},
	"rust": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_rust.Language())
	},
	"php": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	},
	"zig": func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_zig.Language())
	},
}

// HasGrammar reports whether a compiled grammar exists for a language.
func HasGrammar(languageID string) bool {
	_, ok := grammarBindings[languageID]
	return ok
}

// GrammarLanguages lists every language with a compiled grammar.
func GrammarLanguages() []string {
	ids := make([]string, 0, len(grammarBindings))
	for id := range grammarBindings {
		ids = append(ids, id)
	}
	return ids
}
