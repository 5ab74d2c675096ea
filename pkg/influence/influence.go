package influence

import (
	"errors"
	"fmt"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

var (
	// ErrUnknownEntry is returned by [Find] when the selected entry key is
	// not present in the graph.
	ErrUnknownEntry = errors.New("unknown entry")

	// ErrUnknownDependency is returned by [Find] when the selected entry has
	// no dependency edge with the given name.
	ErrUnknownDependency = errors.New("entry declares no such dependency")

	// ErrNotPeerDependency is returned by [Find] when the selected dependency
	// edge is not peer-kind. The search is only defined for peer dependencies
	// and performs no traversal in this case.
	ErrNotPeerDependency = errors.New("dependency is not a peer dependency")
)

// Role classifies how an ancestor entry influences a peer dependency's
// resolved version.
type Role int

const (
	// RoleDeterminant marks an ancestor that directly declares the traced
	// dependency name, fixing its version.
	RoleDeterminant Role = iota
	// RoleTransitiveReferrer marks an ancestor that passes the peer
	// constraint through without declaring the name itself.
	RoleTransitiveReferrer
)

// String returns the display name of the role.
func (r Role) String() string {
	if r == RoleDeterminant {
		return "determinant"
	}
	return "transitive"
}

// Diagnostic records a graph-consistency warning: a referrer reachable
// through the dependency chain that neither declares the traced name nor
// records it in its transitive-peer set. This is reachable for legitimately
// malformed lockfiles, so it is reported and the search continues.
type Diagnostic struct {
	Entry string `json:"entry"` // key of the inconsistent referrer
	Name  string `json:"name"`  // traced dependency name
}

// String formats the diagnostic for logging.
func (d Diagnostic) String() string {
	return fmt.Sprintf("entry %s reached while tracing %s but carries no matching dependency or transitive peer", d.Entry, d.Name)
}

// Result holds the outcome of an influencer search, partitioned by role.
// Order within each partition is insertion order of discovery.
type Result struct {
	Entry string // selected entry key
	Name  string // traced peer dependency name

	Determinants        []*lockfile.Entry
	TransitiveReferrers []*lockfile.Entry
	Diagnostics         []Diagnostic
}

// Options configures a search. The zero value is valid.
type Options struct {
	// Logger receives consistency diagnostics as they are found. Nil disables
	// logging; diagnostics are always collected on the result either way.
	Logger func(msg string, args ...any)
}

// Find determines which ancestors of the selected entry are responsible for
// constraining the resolved version of one of its peer dependencies.
//
// The search walks referrer back-edges with an explicit stack (no recursion)
// and a visited set seeded with the selected entry, so it terminates on
// cyclic referrer relations and visits each entry at most once. For every
// referrer reached:
//
//   - if it declares a dependency edge named depName, it is a Determinant and
//     its own referrers are not expanded;
//   - otherwise, if depName is in its transitive-peer set, it is a
//     TransitiveReferrer and the search continues through its referrers;
//   - otherwise the graph annotation is inconsistent: a Diagnostic is
//     recorded and the search still continues through its referrers.
//
// The graph is never mutated. The only precondition failure modes are the
// typed errors above, returned before any traversal; an entry with no
// referrers yields two empty partitions and a nil error.
func Find(g *lockfile.Graph, entryKey, depName string, opts Options) (*Result, error) {
	selected, ok := g.Entry(entryKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, entryKey)
	}
	dep, ok := selected.Dep(depName)
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownDependency, entryKey, depName)
	}
	if dep.Kind != lockfile.KindPeer {
		return nil, fmt.Errorf("%w: %s -> %s is %s", ErrNotPeerDependency, entryKey, depName, dep.Kind)
	}

	res := &Result{Entry: entryKey, Name: depName}
	visited := map[string]bool{entryKey: true}
	stack := []string{entryKey}

	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, refKey := range g.Referrers(key) {
			if visited[refKey] {
				continue
			}
			visited[refKey] = true

			ref, ok := g.Entry(refKey)
			if !ok {
				// Dangling back-edge; Validate would have caught this.
				continue
			}

			switch {
			case ref.Declares(depName):
				res.Determinants = append(res.Determinants, ref)
			case ref.TransitivePeers[depName]:
				res.TransitiveReferrers = append(res.TransitiveReferrers, ref)
				stack = append(stack, refKey)
			default:
				diag := Diagnostic{Entry: refKey, Name: depName}
				res.Diagnostics = append(res.Diagnostics, diag)
				if opts.Logger != nil {
					opts.Logger("graph inconsistency: %s", diag)
				}
				stack = append(stack, refKey)
			}
		}
	}

	return res, nil
}
