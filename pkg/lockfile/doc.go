// Package lockfile models a resolved package-manager lockfile as an in-memory
// dependency graph.
//
// A [Graph] owns a table of [Entry] values keyed by a stable identifier
// (typically "name@version", with pnpm peer suffixes preserved). Forward
// [Dependency] edges live on the entries; referrer back-edges live in a
// graph-level index and are navigational only. The graph is built once by a
// parser (see the pnpm and npm subpackages) or by [Import], then treated as
// read-only by traversals such as the influence search.
//
// # Construction
//
//	g := lockfile.New()
//	g.Add(lockfile.Entry{Key: "react@18.2.0", Name: "react", Version: "18.2.0"})
//	...
//	g.Link() // derive the referrer index from forward edges
//
// Graphs that arrive with an explicit referrer index (JSON import) should be
// checked with [Graph.Validate], which enforces referential symmetry between
// forward edges and back-edges.
package lockfile
