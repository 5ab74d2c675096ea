package lockfile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEntryKey is returned by [Graph.Add] when the entry key is empty.
	// All entries must have non-empty identifiers.
	ErrInvalidEntryKey = errors.New("entry key must not be empty")

	// ErrDuplicateEntryKey is returned by [Graph.Add] when an entry with the
	// same key already exists in the graph. Entry keys must be unique.
	ErrDuplicateEntryKey = errors.New("duplicate entry key")

	// ErrUnknownEntry is returned by lookups and by [Graph.Validate] when a
	// dependency edge or referrer back-edge references a key that is not in
	// the graph.
	ErrUnknownEntry = errors.New("unknown entry")

	// ErrAsymmetricReferrer is returned by [Graph.Validate] when a referrer
	// back-edge has no matching forward dependency edge, or a resolved forward
	// edge is missing from the target's referrer index. This indicates a
	// corrupt or incompletely-annotated graph.
	ErrAsymmetricReferrer = errors.New("referrer back-edge without matching dependency edge")
)

// DepKind classifies a dependency edge.
type DepKind int

const (
	// KindProd is a regular runtime dependency.
	KindProd DepKind = iota
	// KindDev is a development-only dependency.
	KindDev
	// KindOptional is an optional dependency that may be absent.
	KindOptional
	// KindPeer is a peer dependency: the consuming package expects its host
	// to supply a compatible version rather than bundling its own.
	KindPeer
)

// String returns the lockfile-facing name of the kind.
func (k DepKind) String() string {
	switch k {
	case KindDev:
		return "dev"
	case KindOptional:
		return "optional"
	case KindPeer:
		return "peer"
	default:
		return "prod"
	}
}

// Dependency is a directed edge from an entry to one of its dependencies.
// For peer dependencies, Spec holds the declared range and Optional reports
// whether the peer is marked optional in the manifest.
type Dependency struct {
	Name     string  // package name as declared
	Spec     string  // declared version or range
	Kind     DepKind // prod, dev, optional, or peer
	Optional bool    // peer marked optional via peerDependenciesMeta
	To       string  // resolved target entry key, empty if unresolved
}

// Entry is a resolved package installation: one node in the lockfile graph.
//
// Dependencies are the entry's outgoing edges. Referrer back-edges are not
// stored on the entry; they live in the graph's referrer index and are purely
// navigational (lookup keys, not owning references), so the ownership
// structure stays acyclic even when the logical graph has cycles.
type Entry struct {
	Key     string // stable identifier, e.g. "react-dom@18.2.0(react@18.2.0)"
	Name    string // package name
	Version string // resolved version

	Importer bool // workspace root or importer project, not a registry package
	Dev      bool // installed only for development

	Dependencies []Dependency

	// TransitivePeers holds names of peer dependencies the entry re-exports
	// transitively without declaring them itself. pnpm records this set in
	// the lockfile; for formats that don't, see [Graph.ComputeTransitivePeers].
	TransitivePeers map[string]bool
}

// DisplayLabel returns "name@version" when both are known, otherwise the key.
func (e *Entry) DisplayLabel() string {
	if e.Name != "" && e.Version != "" {
		return e.Name + "@" + e.Version
	}
	return e.Key
}

// Dep returns the dependency edge with the given name and true, or nil and
// false if the entry declares no such dependency.
func (e *Entry) Dep(name string) (*Dependency, bool) {
	for i := range e.Dependencies {
		if e.Dependencies[i].Name == name {
			return &e.Dependencies[i], true
		}
	}
	return nil, false
}

// Declares reports whether the entry declares a dependency edge with the
// given name, of any kind.
func (e *Entry) Declares(name string) bool {
	_, ok := e.Dep(name)
	return ok
}

// PeerDeps returns the entry's peer-kind dependency edges in declaration order.
func (e *Entry) PeerDeps() []*Dependency {
	var peers []*Dependency
	for i := range e.Dependencies {
		if e.Dependencies[i].Kind == KindPeer {
			peers = append(peers, &e.Dependencies[i])
		}
	}
	return peers
}

// Graph is an immutable-by-convention dependency graph built from a lockfile.
// Entries are owned by the graph and indexed by key; dependency edges and
// referrer back-edges reference entries by key only.
//
// The graph is constructed once by a parser or importer and must not be
// mutated while a traversal is in flight. Graph is not safe for concurrent
// mutation; concurrent reads are fine.
type Graph struct {
	entries   map[string]*Entry
	order     []string            // insertion order for deterministic iteration
	referrers map[string][]string // entry key -> keys of entries depending on it
}

// New creates an empty lockfile graph.
func New() *Graph {
	return &Graph{
		entries:   make(map[string]*Entry),
		referrers: make(map[string][]string),
	}
}

// Add inserts an entry into the graph. Returns ErrInvalidEntryKey if the key
// is empty or ErrDuplicateEntryKey if the key is already present. The entry's
// TransitivePeers map is initialized if nil.
func (g *Graph) Add(e Entry) error {
	if e.Key == "" {
		return ErrInvalidEntryKey
	}
	if _, exists := g.entries[e.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntryKey, e.Key)
	}
	if e.TransitivePeers == nil {
		e.TransitivePeers = make(map[string]bool)
	}
	entry := &e
	g.entries[entry.Key] = entry
	g.order = append(g.order, entry.Key)
	return nil
}

// Entry returns the entry with the given key and true, or nil and false.
// The returned pointer refers to the graph-owned entry.
func (g *Graph) Entry(key string) (*Entry, bool) {
	e, ok := g.entries[key]
	return e, ok
}

// Entries returns all entries in insertion order.
func (g *Graph) Entries() []*Entry {
	out := make([]*Entry, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.entries[key])
	}
	return out
}

// Importers returns the workspace/importer root entries in insertion order.
func (g *Graph) Importers() []*Entry {
	var roots []*Entry
	for _, key := range g.order {
		if e := g.entries[key]; e.Importer {
			roots = append(roots, e)
		}
	}
	return roots
}

// Len returns the number of entries in the graph.
func (g *Graph) Len() int { return len(g.entries) }

// EdgeCount returns the total number of dependency edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, e := range g.entries {
		n += len(e.Dependencies)
	}
	return n
}

// Referrers returns the keys of entries that depend on the given entry, in
// the order their forward edges were linked. The returned slice is a
// read-only view into the referrer index.
func (g *Graph) Referrers(key string) []string { return g.referrers[key] }

// Link rebuilds the referrer index from the forward dependency edges.
// Parsers call this once after all entries are added; the resulting index is
// symmetric with the forward edges by construction. Unresolved edges
// (empty To) and edges to unknown keys are skipped.
func (g *Graph) Link() {
	g.referrers = make(map[string][]string, len(g.entries))
	for _, key := range g.order {
		for _, d := range g.entries[key].Dependencies {
			if d.To == "" {
				continue
			}
			if _, ok := g.entries[d.To]; !ok {
				continue
			}
			g.referrers[d.To] = append(g.referrers[d.To], key)
		}
	}
}

// SetReferrers replaces the referrer index wholesale. This is used by the
// JSON importer, which carries an explicit index; call Validate afterwards to
// check referential symmetry against the forward edges.
func (g *Graph) SetReferrers(refs map[string][]string) {
	g.referrers = make(map[string][]string, len(refs))
	for key, list := range refs {
		g.referrers[key] = append([]string(nil), list...)
	}
}

// Validate checks graph integrity:
//
//  1. Every resolved dependency edge points at an existing entry.
//  2. Referential symmetry: every referrer back-edge corresponds to a forward
//     dependency edge from that referrer, and every resolved forward edge is
//     present in the target's referrer index.
//
// Violations indicate a corrupt or incompletely-annotated graph and are
// reported as errors rather than silently ignored. Graphs built via Link
// satisfy (2) by construction; Validate matters for imported graphs.
func (g *Graph) Validate() error {
	for _, key := range g.order {
		for _, d := range g.entries[key].Dependencies {
			if d.To == "" {
				continue
			}
			if _, ok := g.entries[d.To]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrUnknownEntry, key, d.To)
			}
			if !containsKey(g.referrers[d.To], key) {
				return fmt.Errorf("%w: edge %s -> %s not indexed", ErrAsymmetricReferrer, key, d.To)
			}
		}
	}
	for target, refs := range g.referrers {
		if _, ok := g.entries[target]; !ok {
			return fmt.Errorf("%w: referrer index names %s", ErrUnknownEntry, target)
		}
		for _, ref := range refs {
			src, ok := g.entries[ref]
			if !ok {
				return fmt.Errorf("%w: referrer %s of %s", ErrUnknownEntry, ref, target)
			}
			if !dependsOn(src, target) {
				return fmt.Errorf("%w: %s listed as referrer of %s", ErrAsymmetricReferrer, ref, target)
			}
		}
	}
	return nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func dependsOn(e *Entry, target string) bool {
	for _, d := range e.Dependencies {
		if d.To == target {
			return true
		}
	}
	return false
}
