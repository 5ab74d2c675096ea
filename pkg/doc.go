// Package pkg provides the core libraries for Peertrace peer dependency analysis.
//
// # Overview
//
// Peertrace parses JavaScript lockfiles into dependency graphs and traces a
// peer dependency edge back through the graph to the packages whose
// declarations determine which version gets installed. The pkg directory is
// organized into four main areas:
//
//  1. [lockfile] - Graph model and per-format lockfile parsers
//  2. [influence] - The influencer search and constraint evaluation
//  3. [render] - DOT/SVG visualization of influence subgraphs
//  4. [pipeline] - Orchestration (detect → parse → analyze → render)
//
// # Architecture
//
// The typical data flow through Peertrace:
//
//	pnpm-lock.yaml / package-lock.json / graph.json
//	         ↓
//	    [lockfile] package (parse + link referrer index)
//	         ↓
//	    [influence] package (DFS over referrers, partition results)
//	         ↓
//	    [render] package (DOT generation, in-process SVG)
//	         ↓
//	    text/JSON/DOT/SVG output
//
// # Quick Start
//
// Load a lockfile and trace one peer dependency edge:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/peertrace/pkg/influence"
//	    "github.com/matzehuels/peertrace/pkg/pipeline"
//	)
//
//	// 1. Parse the lockfile (cached by content hash)
//	r := pipeline.NewRunner(nil, nil)
//	loaded, _ := r.Load(context.Background(), "pnpm-lock.yaml")
//
//	// 2. Trace the edge
//	res, _ := r.Analyze(context.Background(), loaded.Graph,
//	    "react-redux@8.1.3(react@18.2.0)", "react")
//
//	// 3. Inspect the partitions
//	for _, e := range res.Determinants {
//	    fmt.Println(e.DisplayLabel())
//	}
//
// # Main Packages
//
// [lockfile] - Entry/Dependency/Graph model with an insertion-ordered entry
// table and a derived referrer back-edge index, transitive peer propagation,
// and a JSON interchange document. Subpackages parse pnpm (v6/v9) and npm
// (v2/v3) lockfiles.
//
// [influence] - The influencer search: determinants declare the dependency
// and fix its version, transitive referrers pass the constraint through.
// Constraint evaluation checks declared ranges against the resolved version.
//
// [render] - Graphviz DOT output styled per role, with in-process SVG
// rendering (no graphviz installation required).
//
// [pipeline] - Runner shared by the CLI and the HTTP API: format detection,
// cached parsing, analysis, rendering.
//
// [cache] - File, Redis, and null cache backends keyed by content hash.
//
// [errors] - Coded errors for CLI/API boundaries and input validation.
//
// [observability] - Instrumentation hooks for parse, analysis, and cache
// events.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/influence/...    # Specific package
//
// Integration tests for the Redis cache and the MongoDB report store are
// guarded by PEERTRACE_TEST_REDIS and PEERTRACE_TEST_MONGO.
//
// [lockfile]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/lockfile
// [influence]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/influence
// [render]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/peertrace/pkg/buildinfo
package pkg
