package lockfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Parser reads a lockfile from disk and builds the dependency graph.
// Implementations live in the pnpm and npm subpackages; jsonParser handles
// previously exported graph documents.
type Parser interface {
	// Parse reads the lockfile at path and returns the linked graph.
	Parse(path string) (*Graph, error)
	// Supports reports whether this parser handles the given filename.
	Supports(filename string) bool
	// Type returns the lockfile type identifier (e.g., "pnpm", "npm").
	Type() string
}

// Detect finds a parser that supports the given file path.
// Returns an error if no parser matches.
func Detect(path string, parsers ...Parser) (Parser, error) {
	name := filepath.Base(path)
	for _, p := range parsers {
		if p.Supports(name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unsupported lockfile: %s", name)
}

// JSONParser returns a parser for graph documents previously written with
// [Export]. It matches any .json filename except package-lock.json, which
// belongs to the npm parser.
func JSONParser() Parser { return jsonParser{} }

type jsonParser struct{}

func (jsonParser) Type() string { return "graph-json" }

func (jsonParser) Supports(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".json") && lower != "package-lock.json"
}

func (jsonParser) Parse(path string) (*Graph, error) {
	return ImportFile(path)
}
