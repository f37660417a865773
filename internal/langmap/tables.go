package langmap

import "github.com/standardbeagle/polyscan/internal/types"

// The tables below are data, not code: Mapper copies them at
// construction and supports wholesale replacement at runtime so
// deployments can reload them without rebuilding.

// defaultExtensionTable maps a file extension (no dot, lower-case) to
// its canonical language id. Many-to-one by design.
var defaultExtensionTable = map[string]string{
	// Systems
	"c": "c", "h": "c",
	"cpp": "cpp", "hpp": "cpp", "cc": "cpp", "cxx": "cpp", "hh": "cpp", "hxx": "cpp",
	"rs": "rust",
	"go": "go",
	"zig": "zig",

	// JVM
	"java": "java",
	"kt":   "kotlin", "kts": "kotlin",
	"scala": "scala",

	// Scripting
	"py": "python", "pyi": "python", "pyw": "python",
	"rb": "ruby", "rake": "ruby", "gemspec": "ruby",
	"php": "php", "phtml": "php",
	"lua": "lua",
	"pl":  "perl", "pm": "perl",
	"sh": "bash", "bash": "bash", "zsh": "bash",

	// Web
	"js": "javascript", "jsx": "javascript", "mjs": "javascript", "cjs": "javascript",
	"ts": "typescript", "tsx": "typescript", "mts": "typescript",
	"html": "html", "htm": "html", "xhtml": "html",
	"css": "css",
	"cs":  "csharp",
	"swift": "swift",
	"dart":  "dart",

	// Data & config
	"json": "json", "jsonc": "json",
	"yaml": "yaml", "yml": "yaml",
	"toml": "toml",
	"ini":  "ini", "cfg": "ini", "conf": "ini", "properties": "ini",
	"env": "env",
	"xml": "xml", "svg": "xml",
	"csv": "csv",
	"sql": "sql",

	// Docs
	"md": "markdown", "markdown": "markdown",
	"rst": "restructuredtext", "rest": "restructuredtext",
	"adoc": "asciidoc", "asciidoc": "asciidoc",
	"txt": "plaintext", "text": "plaintext",
}

// defaultAliasTable collapses alternate spellings onto canonical ids.
var defaultAliasTable = map[string]string{
	"c++":        "cpp",
	"cplusplus":  "cpp",
	"c#":         "csharp",
	"cs":         "csharp",
	"js":         "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"py":         "python",
	"python3":    "python",
	"rb":         "ruby",
	"sh":         "bash",
	"shell":      "bash",
	"zsh":        "bash",
	"yml":        "yaml",
	"golang":     "go",
	"rs":         "rust",
	"md":         "markdown",
	"properties": "ini",
	"dotenv":     "env",
	"text":       "plaintext",
}

// defaultFilenameTable maps exact basenames (case-insensitive) to
// language ids. Checked before extensions.
var defaultFilenameTable = map[string]string{
	"dockerfile":     "dockerfile",
	"containerfile":  "dockerfile",
	"makefile":       "make",
	"gnumakefile":    "make",
	"cmakelists.txt": "cmake",
	"go.mod":         "gomod",
	"go.sum":         "gosum",
	"package.json":   "json",
	"tsconfig.json":  "json",
	"composer.json":  "json",
	"cargo.toml":     "toml",
	"pyproject.toml": "toml",
	"gemfile":        "ruby",
	"rakefile":       "ruby",
	"requirements.txt": "requirements",
	".gitignore":     "gitignore",
	".gitattributes": "gitattributes",
	".editorconfig":  "editorconfig",
	".env":           "env",
	".npmrc":         "ini",
	".flake8":        "ini",
	"setup.cfg":      "ini",
	"license":        "plaintext",
	"readme":         "markdown",
}

// defaultFileTypeTable maps a language id to its file type. Languages
// missing here default to code.
var defaultFileTypeTable = map[string]types.FileType{
	"json":             types.FileTypeData,
	"xml":              types.FileTypeData,
	"csv":              types.FileTypeData,
	"yaml":             types.FileTypeConfig,
	"toml":             types.FileTypeConfig,
	"ini":              types.FileTypeConfig,
	"env":              types.FileTypeConfig,
	"editorconfig":     types.FileTypeConfig,
	"gitignore":        types.FileTypeConfig,
	"gitattributes":    types.FileTypeConfig,
	"dockerfile":       types.FileTypeConfig,
	"gomod":            types.FileTypeConfig,
	"gosum":            types.FileTypeConfig,
	"requirements":     types.FileTypeConfig,
	"cmake":            types.FileTypeConfig,
	"make":             types.FileTypeConfig,
	"markdown":         types.FileTypeDoc,
	"restructuredtext": types.FileTypeDoc,
	"asciidoc":         types.FileTypeDoc,
	"plaintext":        types.FileTypeDoc,
}

// defaultShebangTable maps shebang interpreter basenames to language
// ids, in published tie-break order.
var defaultShebangTable = []shebangEntry{
	{"python", "python", 0.9},
	{"python3", "python", 0.9},
	{"node", "javascript", 0.9},
	{"deno", "typescript", 0.85},
	{"bash", "bash", 0.9},
	{"sh", "bash", 0.85},
	{"zsh", "bash", 0.85},
	{"ruby", "ruby", 0.9},
	{"perl", "perl", 0.9},
	{"php", "php", 0.9},
}

type shebangEntry struct {
	interpreter string
	languageID  string
	confidence  float64
}

// firstLineMagic holds content sniffers beyond shebangs, applied in
// declared order; the highest confidence wins, ties broken by order.
var firstLineMagic = []magicEntry{
	{"<?xml", "xml", 0.9},
	{"<?php", "php", 0.9},
	{"<!doctype html", "html", 0.85},
	{"<html", "html", 0.8},
	{"{", "json", 0.3},
	{"---", "yaml", 0.4},
	{"# ", "markdown", 0.2},
}

type magicEntry struct {
	prefix     string
	languageID string
	confidence float64
}
