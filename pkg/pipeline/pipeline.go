// Package pipeline provides the core load → analyze → render flow shared by
// the CLI and the HTTP server.
//
// A [Runner] detects the lockfile format, parses it into a graph (with
// content-hash caching), runs the peer-dependency influence search, and
// renders results. Centralizing this logic keeps CLI and API behavior
// identical and gives both the same cache and observability hooks.
package pipeline

import (
	"github.com/matzehuels/peertrace/pkg/lockfile"
	"github.com/matzehuels/peertrace/pkg/lockfile/npm"
	"github.com/matzehuels/peertrace/pkg/lockfile/pnpm"
)

// Output formats for analysis results.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// DefaultParsers returns the lockfile parsers in detection order: pnpm and
// npm lockfiles, then previously exported graph documents.
func DefaultParsers() []lockfile.Parser {
	return []lockfile.Parser{pnpm.New(), npm.New(), lockfile.JSONParser()}
}
