// Package influence traces which ancestors of a lockfile entry constrain the
// resolved version of one of its peer dependencies.
//
// Given a selected entry and one of its peer-kind dependency edges, [Find]
// walks the referrer back-edges of the graph and partitions the ancestors it
// reaches into determinants (entries that directly declare the dependency
// name, fixing its version) and transitive referrers (entries that pass the
// peer constraint through without declaring it). Referrers that do neither
// indicate an inconsistently annotated graph and are surfaced as diagnostics
// without aborting the search.
//
// The search is pure with respect to the graph: it performs no I/O, never
// mutates entries, and runs in time proportional to the reachable referrer
// edges. Callers embedding it in a concurrent host must not mutate the graph
// while a search is in flight.
package influence
