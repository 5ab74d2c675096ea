// Package npm parses package-lock.json files (lockfile v2/v3) into lockfile
// graphs.
//
// The "packages" map keys installation paths ("", "node_modules/react",
// "node_modules/a/node_modules/b"), so dependency names resolve by walking up
// the node_modules hierarchy the way the npm loader does. npm lockfiles carry
// no transitivePeerDependencies annotation; the parser computes the sets with
// [lockfile.Graph.ComputeTransitivePeers] after linking.
package npm

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

// Parser parses package-lock.json files.
type Parser struct{}

// New creates an npm lockfile parser.
func New() *Parser { return &Parser{} }

func (*Parser) Type() string { return "npm" }

func (*Parser) Supports(name string) bool {
	return strings.EqualFold(name, "package-lock.json")
}

// Parse reads the lockfile at path and returns the linked graph.
func (p *Parser) Parse(path string) (*lockfile.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseBytes(data)
}

// ParseBytes parses lockfile content already in memory.
func (p *Parser) ParseBytes(data []byte) (*lockfile.Graph, error) {
	var lock lockJSON
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse package-lock: %w", err)
	}
	if lock.Packages == nil {
		return nil, fmt.Errorf("package-lock version %d has no packages map (lockfile v2+ required)", lock.LockfileVersion)
	}

	paths := make([]string, 0, len(lock.Packages))
	for path := range lock.Packages {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	g := lockfile.New()
	keyOf := make(map[string]string, len(paths)) // install path -> entry key

	for _, path := range paths {
		pkg := lock.Packages[path]
		if pkg.Link {
			continue // workspace symlink; the target has its own record
		}
		name := pkg.Name
		if name == "" {
			name = nameFromPath(path)
		}
		key := name + "@" + pkg.Version
		isRoot := path == ""
		if isRoot {
			if name == "" {
				name = lock.Name
			}
			key = name
			if key == "" {
				key = "."
			}
		}
		keyOf[path] = key
		if _, exists := g.Entry(key); exists {
			continue // same name@version hoisted to several paths
		}
		if err := g.Add(lockfile.Entry{
			Key:      key,
			Name:     name,
			Version:  pkg.Version,
			Importer: isRoot,
			Dev:      pkg.Dev,
		}); err != nil {
			return nil, err
		}
	}

	for _, path := range paths {
		key, ok := keyOf[path]
		if !ok {
			continue
		}
		entry, _ := g.Entry(key)
		if len(entry.Dependencies) > 0 {
			continue // already populated from an equivalent path
		}
		pkg := lock.Packages[path]
		entry.Dependencies = append(entry.Dependencies, edges(pkg.Dependencies, lockfile.KindProd, path, keyOf, nil)...)
		entry.Dependencies = append(entry.Dependencies, edges(pkg.DevDependencies, lockfile.KindDev, path, keyOf, nil)...)
		entry.Dependencies = append(entry.Dependencies, edges(pkg.OptionalDependencies, lockfile.KindOptional, path, keyOf, nil)...)
		entry.Dependencies = append(entry.Dependencies, edges(pkg.PeerDependencies, lockfile.KindPeer, path, keyOf, pkg.PeerDependenciesMeta)...)
	}

	g.Link()
	g.ComputeTransitivePeers()
	return g, nil
}

// =============================================================================
// JSON Layout
// =============================================================================

type lockJSON struct {
	Name            string                 `json:"name"`
	LockfileVersion int                    `json:"lockfileVersion"`
	Packages        map[string]packageJSON `json:"packages"`
}

type packageJSON struct {
	Name                 string              `json:"name"`
	Version              string              `json:"version"`
	Dev                  bool                `json:"dev"`
	Link                 bool                `json:"link"`
	Dependencies         map[string]string   `json:"dependencies"`
	DevDependencies      map[string]string   `json:"devDependencies"`
	OptionalDependencies map[string]string   `json:"optionalDependencies"`
	PeerDependencies     map[string]string   `json:"peerDependencies"`
	PeerDependenciesMeta map[string]peerMeta `json:"peerDependenciesMeta"`
}

type peerMeta struct {
	Optional bool `json:"optional"`
}

// =============================================================================
// Edge Construction
// =============================================================================

func edges(specs map[string]string, kind lockfile.DepKind, from string, keyOf map[string]string, meta map[string]peerMeta) []lockfile.Dependency {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []lockfile.Dependency
	for _, name := range names {
		out = append(out, lockfile.Dependency{
			Name:     name,
			Spec:     specs[name],
			Kind:     kind,
			Optional: meta[name].Optional,
			To:       resolvePath(from, name, keyOf),
		})
	}
	return out
}

// resolvePath finds the entry that an install at `from` sees for `name`,
// walking up the node_modules hierarchy: the nearest enclosing scope that
// contains node_modules/<name> wins, mirroring Node's resolution order.
func resolvePath(from, name string, keyOf map[string]string) string {
	scope := from
	for {
		candidate := "node_modules/" + name
		if scope != "" {
			candidate = scope + "/node_modules/" + name
		}
		if key, ok := keyOf[candidate]; ok {
			return key
		}
		if scope == "" {
			return ""
		}
		i := strings.LastIndex(scope, "node_modules/")
		if i <= 0 {
			scope = ""
			continue
		}
		scope = strings.TrimSuffix(scope[:i], "/")
	}
}

// nameFromPath extracts the package name from an install path: the portion
// after the last "node_modules/", which keeps scoped names intact.
func nameFromPath(path string) string {
	if i := strings.LastIndex(path, "node_modules/"); i >= 0 {
		return path[i+len("node_modules/"):]
	}
	return path
}

var _ lockfile.Parser = (*Parser)(nil)
