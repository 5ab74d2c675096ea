package lockfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// =============================================================================
// Serialization Format
// =============================================================================

// Document is the canonical JSON form of a lockfile graph. It is used for
// `parse -o` output, API responses, report storage, and the parsed-graph
// cache. The format round-trips: export → import → export is stable.
type Document struct {
	Entries   []EntryDoc          `json:"entries" bson:"entries"`
	Referrers map[string][]string `json:"referrers,omitempty" bson:"referrers,omitempty"`
}

// EntryDoc is the serialized form of an [Entry].
type EntryDoc struct {
	Key             string   `json:"key" bson:"key"`
	Name            string   `json:"name,omitempty" bson:"name,omitempty"`
	Version         string   `json:"version,omitempty" bson:"version,omitempty"`
	Importer        bool     `json:"importer,omitempty" bson:"importer,omitempty"`
	Dev             bool     `json:"dev,omitempty" bson:"dev,omitempty"`
	Dependencies    []DepDoc `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	TransitivePeers []string `json:"transitive_peers,omitempty" bson:"transitive_peers,omitempty"`
}

// DepDoc is the serialized form of a [Dependency] edge.
type DepDoc struct {
	Name     string `json:"name" bson:"name"`
	Spec     string `json:"spec,omitempty" bson:"spec,omitempty"`
	Kind     string `json:"kind,omitempty" bson:"kind,omitempty"`
	Optional bool   `json:"optional,omitempty" bson:"optional,omitempty"`
	To       string `json:"to,omitempty" bson:"to,omitempty"`
}

// =============================================================================
// Export
// =============================================================================

// ToDocument converts a graph to its serialization format. Entries keep
// insertion order; transitive-peer sets are sorted for deterministic output.
func ToDocument(g *Graph) Document {
	doc := Document{Entries: make([]EntryDoc, 0, g.Len())}
	for _, e := range g.Entries() {
		ed := EntryDoc{
			Key:      e.Key,
			Name:     e.Name,
			Version:  e.Version,
			Importer: e.Importer,
			Dev:      e.Dev,
		}
		for _, d := range e.Dependencies {
			ed.Dependencies = append(ed.Dependencies, DepDoc{
				Name:     d.Name,
				Spec:     d.Spec,
				Kind:     d.Kind.String(),
				Optional: d.Optional,
				To:       d.To,
			})
		}
		for name := range e.TransitivePeers {
			ed.TransitivePeers = append(ed.TransitivePeers, name)
		}
		sort.Strings(ed.TransitivePeers)
		doc.Entries = append(doc.Entries, ed)
	}
	if len(g.referrers) > 0 {
		doc.Referrers = make(map[string][]string, len(g.referrers))
		for key, refs := range g.referrers {
			doc.Referrers[key] = append([]string(nil), refs...)
		}
	}
	return doc
}

// Export writes a graph as indented JSON to w.
func Export(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal converts a graph to JSON bytes.
func Marshal(g *Graph) ([]byte, error) {
	return json.MarshalIndent(ToDocument(g), "", "  ")
}

// ExportFile writes a graph to a JSON file at path, overwriting if it exists.
func ExportFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Export(g, f)
}

// =============================================================================
// Import
// =============================================================================

// FromDocument converts a serialized document back into a graph. When the
// document carries an explicit referrer index it is installed and checked
// with [Graph.Validate]; otherwise the index is derived via [Graph.Link].
func FromDocument(doc Document) (*Graph, error) {
	g := New()
	for _, ed := range doc.Entries {
		e := Entry{
			Key:             ed.Key,
			Name:            ed.Name,
			Version:         ed.Version,
			Importer:        ed.Importer,
			Dev:             ed.Dev,
			TransitivePeers: make(map[string]bool, len(ed.TransitivePeers)),
		}
		for _, d := range ed.Dependencies {
			e.Dependencies = append(e.Dependencies, Dependency{
				Name:     d.Name,
				Spec:     d.Spec,
				Kind:     kindFromString(d.Kind),
				Optional: d.Optional,
				To:       d.To,
			})
		}
		for _, name := range ed.TransitivePeers {
			e.TransitivePeers[name] = true
		}
		if err := g.Add(e); err != nil {
			return nil, fmt.Errorf("add entry %s: %w", ed.Key, err)
		}
	}
	if doc.Referrers == nil {
		g.Link()
		return g, nil
	}
	g.SetReferrers(doc.Referrers)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Import decodes a JSON graph document from r.
func Import(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(doc)
}

// Unmarshal decodes a JSON graph document from bytes.
func Unmarshal(data []byte) (*Graph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(doc)
}

// ImportFile reads a JSON graph document from a file.
func ImportFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Import(f)
}

func kindFromString(s string) DepKind {
	switch s {
	case "dev":
		return KindDev
	case "optional":
		return KindOptional
	case "peer":
		return KindPeer
	default:
		return KindProd
	}
}
