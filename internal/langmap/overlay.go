package langmap

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/polyscan/internal/types"
)

// Overlay is a partial table set loaded from a data file. Entries
// merge over the built-in tables; an empty string value deletes the
// built-in entry.
type Overlay struct {
	Extensions map[string]string `toml:"extensions"`
	Aliases    map[string]string `toml:"aliases"`
	Filenames  map[string]string `toml:"filenames"`
	FileTypes  map[string]string `toml:"filetypes"`
}

// LoadOverlay reads a TOML table overlay from disk.
func LoadOverlay(path string) (*Overlay, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var o Overlay
	if err := toml.Unmarshal(content, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ApplyOverlay merges an overlay into the active tables. Safe for
// concurrent use with Detect.
func (m *Mapper) ApplyOverlay(o *Overlay) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merge := func(dst, src map[string]string) {
		for k, v := range src {
			if v == "" {
				delete(dst, k)
				continue
			}
			dst[k] = v
		}
	}
	merge(m.tables.Extensions, o.Extensions)
	merge(m.tables.Aliases, o.Aliases)
	merge(m.tables.Filenames, o.Filenames)

	for lang, name := range o.FileTypes {
		if name == "" {
			delete(m.tables.FileTypes, lang)
			continue
		}
		m.tables.FileTypes[lang] = parseFileType(name)
	}
}

func parseFileType(name string) types.FileType {
	switch name {
	case "code":
		return types.FileTypeCode
	case "doc":
		return types.FileTypeDoc
	case "config":
		return types.FileTypeConfig
	case "data":
		return types.FileTypeData
	case "binary":
		return types.FileTypeBinary
	default:
		return types.FileTypeUnknown
	}
}
