// Package pnpm parses pnpm-lock.yaml files into lockfile graphs.
//
// Both lockfile layouts in current use are supported: v6, where package
// records under "packages" carry their dependency maps inline, and v9, where
// "packages" holds per-version metadata (peerDependencies and their meta) and
// "snapshots" holds the resolved dependency edges. Peer-suffixed keys such as
// "react-redux@8.1.2(react@18.2.0)" identify distinct resolutions and are
// preserved as entry keys; the suffix also supplies the resolved targets of
// the entry's peer dependency edges. The transitivePeerDependencies
// annotation is carried through verbatim.
package pnpm

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

// Parser parses pnpm-lock.yaml files.
type Parser struct{}

// New creates a pnpm lockfile parser.
func New() *Parser { return &Parser{} }

func (*Parser) Type() string { return "pnpm" }

func (*Parser) Supports(name string) bool {
	return strings.EqualFold(name, "pnpm-lock.yaml") || strings.EqualFold(name, "pnpm-lock.yml")
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
	var lock lockYAML
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse pnpm-lock: %w", err)
	}

	records := collectRecords(lock)
	g := lockfile.New()

	// Importers first so workspace roots lead the entry order.
	importerPaths := sortedKeys(lock.Importers)
	for _, dir := range importerPaths {
		if err := g.Add(lockfile.Entry{Key: dir, Name: dir, Importer: true}); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rec := records[key]
		base, _ := splitPeerSuffix(key)
		name, version := splitNameVersion(base)
		if err := g.Add(lockfile.Entry{
			Key:             key,
			Name:            name,
			Version:         version,
			Dev:             rec.dev,
			TransitivePeers: nameSet(rec.transitive),
		}); err != nil {
			return nil, err
		}
	}

	idx := newKeyIndex(keys)

	for _, dir := range importerPaths {
		entry, _ := g.Entry(dir)
		imp := lock.Importers[dir]
		entry.Dependencies = append(entry.Dependencies, importerEdges(imp.Dependencies, lockfile.KindProd, idx)...)
		entry.Dependencies = append(entry.Dependencies, importerEdges(imp.DevDependencies, lockfile.KindDev, idx)...)
		entry.Dependencies = append(entry.Dependencies, importerEdges(imp.OptionalDependencies, lockfile.KindOptional, idx)...)
	}

	for _, key := range keys {
		rec := records[key]
		entry, _ := g.Entry(key)
		_, suffix := splitPeerSuffix(key)
		peerTargets := suffixTargets(suffix, idx)

		// Snapshot dependency maps repeat resolved peers; those names belong
		// to the peer edges below, not to prod edges.
		entry.Dependencies = append(entry.Dependencies, packageEdges(rec.deps, lockfile.KindProd, idx, rec.peers)...)
		entry.Dependencies = append(entry.Dependencies, packageEdges(rec.optional, lockfile.KindOptional, idx, rec.peers)...)

		for _, name := range sortedKeys(rec.peers) {
			to := peerTargets[name]
			if to == "" {
				if v, ok := rec.deps[name]; ok {
					to = idx.resolve(name, v)
				}
			}
			entry.Dependencies = append(entry.Dependencies, lockfile.Dependency{
				Name:     name,
				Spec:     rec.peers[name],
				Kind:     lockfile.KindPeer,
				Optional: rec.peerMeta[name].Optional,
				To:       to,
			})
		}
	}

	g.Link()
	return g, nil
}

// =============================================================================
// YAML Layout
// =============================================================================

type lockYAML struct {
	LockfileVersion any                     `yaml:"lockfileVersion"`
	Importers       map[string]importerYAML `yaml:"importers"`
	Packages        map[string]packageYAML  `yaml:"packages"`
	Snapshots       map[string]snapshotYAML `yaml:"snapshots"`
}

type importerYAML struct {
	Dependencies         map[string]depRefYAML `yaml:"dependencies"`
	DevDependencies      map[string]depRefYAML `yaml:"devDependencies"`
	OptionalDependencies map[string]depRefYAML `yaml:"optionalDependencies"`
}

// depRefYAML accepts both the {specifier, version} object form and the plain
// scalar form used by older layouts.
type depRefYAML struct {
	Specifier string
	Version   string
}

func (d *depRefYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Version = node.Value
		return nil
	}
	var obj struct {
		Specifier string `yaml:"specifier"`
		Version   string `yaml:"version"`
	}
	if err := node.Decode(&obj); err != nil {
		return err
	}
	d.Specifier = obj.Specifier
	d.Version = obj.Version
	return nil
}

type packageYAML struct {
	Dependencies               map[string]string       `yaml:"dependencies"`
	OptionalDependencies       map[string]string       `yaml:"optionalDependencies"`
	PeerDependencies           map[string]string       `yaml:"peerDependencies"`
	PeerDependenciesMeta       map[string]peerMetaYAML `yaml:"peerDependenciesMeta"`
	TransitivePeerDependencies []string                `yaml:"transitivePeerDependencies"`
	Dev                        bool                    `yaml:"dev"`
}

type snapshotYAML struct {
	Dependencies               map[string]string `yaml:"dependencies"`
	OptionalDependencies       map[string]string `yaml:"optionalDependencies"`
	TransitivePeerDependencies []string          `yaml:"transitivePeerDependencies"`
}

type peerMetaYAML struct {
	Optional bool `yaml:"optional"`
}

// record is the layout-independent view of one package entry.
type record struct {
	deps       map[string]string
	optional   map[string]string
	peers      map[string]string
	peerMeta   map[string]peerMetaYAML
	transitive []string
	dev        bool
}

// collectRecords merges the two layouts into one record map keyed by the
// normalized (no leading slash) entry key. With snapshots present (v9), edges
// come from the snapshot and peer metadata from the matching package record;
// otherwise (v6) everything comes from the package record itself.
func collectRecords(lock lockYAML) map[string]record {
	records := make(map[string]record)
	if len(lock.Snapshots) > 0 {
		for key, snap := range lock.Snapshots {
			key = strings.TrimPrefix(key, "/")
			base, _ := splitPeerSuffix(key)
			meta := lock.Packages[base]
			records[key] = record{
				deps:       snap.Dependencies,
				optional:   snap.OptionalDependencies,
				peers:      meta.PeerDependencies,
				peerMeta:   meta.PeerDependenciesMeta,
				transitive: snap.TransitivePeerDependencies,
			}
		}
		return records
	}
	for key, pkg := range lock.Packages {
		key = strings.TrimPrefix(key, "/")
		records[key] = record{
			deps:       pkg.Dependencies,
			optional:   pkg.OptionalDependencies,
			peers:      pkg.PeerDependencies,
			peerMeta:   pkg.PeerDependenciesMeta,
			transitive: pkg.TransitivePeerDependencies,
			dev:        pkg.Dev,
		}
	}
	return records
}

// =============================================================================
// Edge Construction
// =============================================================================

func importerEdges(refs map[string]depRefYAML, kind lockfile.DepKind, idx *keyIndex) []lockfile.Dependency {
	var edges []lockfile.Dependency
	for _, name := range sortedKeys(refs) {
		ref := refs[name]
		spec := ref.Specifier
		if spec == "" {
			spec = ref.Version
		}
		edges = append(edges, lockfile.Dependency{
			Name: name,
			Spec: spec,
			Kind: kind,
			To:   idx.resolve(name, ref.Version),
		})
	}
	return edges
}

func packageEdges(refs map[string]string, kind lockfile.DepKind, idx *keyIndex, skip map[string]string) []lockfile.Dependency {
	var edges []lockfile.Dependency
	for _, name := range sortedKeys(refs) {
		if _, isPeer := skip[name]; isPeer {
			continue
		}
		version := refs[name]
		edges = append(edges, lockfile.Dependency{
			Name: name,
			Spec: version,
			Kind: kind,
			To:   idx.resolve(name, version),
		})
	}
	return edges
}

// suffixTargets maps peer dependency names to resolved entry keys using the
// components of a peer suffix like "(react@18.2.0)(redux@4.2.1)".
func suffixTargets(suffix string, idx *keyIndex) map[string]string {
	targets := make(map[string]string)
	for _, component := range suffixComponents(suffix) {
		name, version := splitNameVersion(component)
		if name == "" {
			continue
		}
		if key := idx.resolve(name, version); key != "" {
			targets[name] = key
		}
	}
	return targets
}

// =============================================================================
// Key Index
// =============================================================================

// keyIndex resolves "name + version value" pairs to entry keys. Version
// values in dependency maps usually match the target key's version part
// exactly (including any peer suffix); when they don't, the index falls back
// to the sole key sharing the same base "name@version".
type keyIndex struct {
	exact  map[string]bool
	byBase map[string][]string
}

func newKeyIndex(keys []string) *keyIndex {
	idx := &keyIndex{
		exact:  make(map[string]bool, len(keys)),
		byBase: make(map[string][]string),
	}
	for _, key := range keys {
		idx.exact[key] = true
		base, _ := splitPeerSuffix(key)
		idx.byBase[base] = append(idx.byBase[base], key)
	}
	return idx
}

func (idx *keyIndex) resolve(name, version string) string {
	if version == "" || strings.HasPrefix(version, "link:") {
		return ""
	}
	if strings.HasPrefix(version, "/") {
		// Aliased dependency: the value is a full dep path.
		candidate := strings.TrimPrefix(version, "/")
		if idx.exact[candidate] {
			return candidate
		}
		return ""
	}
	candidate := name + "@" + version
	if idx.exact[candidate] {
		return candidate
	}
	base, _ := splitPeerSuffix(candidate)
	if keys := idx.byBase[base]; len(keys) == 1 {
		return keys[0]
	}
	return ""
}

// =============================================================================
// Key Parsing
// =============================================================================

// splitPeerSuffix splits "react-redux@8.1.2(react@18.2.0)" into the base dep
// path and the raw suffix (leading paren included). No suffix yields base
// unchanged and an empty suffix.
func splitPeerSuffix(key string) (base, suffix string) {
	if i := strings.IndexByte(key, '('); i >= 0 {
		return key[:i], key[i:]
	}
	return key, ""
}

// suffixComponents returns the top-level parenthesized components of a peer
// suffix. Nested parentheses stay inside their component.
func suffixComponents(suffix string) []string {
	var components []string
	depth, start := 0, 0
	for i := 0; i < len(suffix); i++ {
		switch suffix[i] {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				components = append(components, suffix[start:i])
			}
		}
	}
	return components
}

// splitNameVersion splits "name@version" dep paths, handling scoped names
// like "@types/react@18.2.0". A trailing peer suffix stays attached to the
// version part.
func splitNameVersion(path string) (name, version string) {
	base, suffix := splitPeerSuffix(path)
	i := strings.LastIndexByte(base, '@')
	if i <= 0 {
		return path, ""
	}
	return base[:i], base[i+1:] + suffix
}

// =============================================================================
// Helpers
// =============================================================================

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

var _ lockfile.Parser = (*Parser)(nil)
