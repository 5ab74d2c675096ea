package lockfile

// ComputeTransitivePeers fills the TransitivePeers set of every entry by
// fixed-point propagation over resolved dependency edges.
//
// An entry transitively carries a peer name when one of its resolved
// dependencies either declares that name as a peer dependency or carries it
// transitively itself, and the entry does not resolve the name through a
// dependency edge of its own. This reproduces the annotation pnpm writes as
// transitivePeerDependencies; it is needed for formats (npm) that omit it.
//
// Propagation is monotone, so the fixed point exists and the loop terminates
// even when the dependency relation has cycles. Existing set contents are
// preserved and extended, never removed.
func (g *Graph) ComputeTransitivePeers() {
	for changed := true; changed; {
		changed = false
		for _, key := range g.order {
			e := g.entries[key]
			for _, d := range e.Dependencies {
				if d.To == "" {
					continue
				}
				target, ok := g.entries[d.To]
				if !ok {
					continue
				}
				for _, peer := range target.PeerDeps() {
					if g.propagate(e, peer.Name) {
						changed = true
					}
				}
				for name := range target.TransitivePeers {
					if g.propagate(e, name) {
						changed = true
					}
				}
			}
		}
	}
}

// propagate adds name to e's transitive-peer set unless e declares the name
// itself (a declared peer is its own, not a transitive one; any other edge
// resolves the name locally). Returns true when the set grew.
func (g *Graph) propagate(e *Entry, name string) bool {
	if e.TransitivePeers[name] {
		return false
	}
	if e.Declares(name) {
		return false
	}
	e.TransitivePeers[name] = true
	return true
}
