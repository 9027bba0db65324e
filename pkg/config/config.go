package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

const (
	ConfigDelimiter string = "."

	FormatJSON string = "json"
	FormatYAML string = "yaml"
)

// LoadFile parses a json or yaml document from disk, picking the parser by
// file extension.
func LoadFile(path string) (*koanf.Koanf, error) {
	k := koanf.New(ConfigDelimiter)
	if err := k.Load(file.Provider(path), parserFor(FormatOf(path, nil))); err != nil {
		return nil, fmt.Errorf("unable to load %s: %w", path, err)
	}
	return k, nil
}

// LoadBytes parses an in-memory document, e.g. a value read from etcd.
func LoadBytes(content []byte, format string) (*koanf.Koanf, error) {
	k := koanf.New(ConfigDelimiter)
	if err := k.Load(rawbytes.Provider(content), parserFor(format)); err != nil {
		return nil, fmt.Errorf("unable to parse %s document: %w", format, err)
	}
	return k, nil
}

// FormatOf decides the document format from the name's extension, falling
// back to sniffing the content when the extension says nothing.
func FormatOf(name string, content []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		return FormatYAML
	}
	return FormatJSON
}

func parserFor(format string) koanf.Parser {
	if format == FormatYAML {
		return yaml.Parser()
	}
	return json.Parser()
}
