package lockfile

import (
	"errors"
	"testing"
)

// buildGraph adds entries and links the referrer index, failing the test on
// any Add error.
func buildGraph(t *testing.T, entries ...Entry) *Graph {
	t.Helper()
	g := New()
	for _, e := range entries {
		if err := g.Add(e); err != nil {
			t.Fatalf("Add(%s): %v", e.Key, err)
		}
	}
	g.Link()
	return g
}

func TestAddRejectsEmptyKey(t *testing.T) {
	g := New()
	if err := g.Add(Entry{}); !errors.Is(err, ErrInvalidEntryKey) {
		t.Errorf("Add with empty key = %v, want ErrInvalidEntryKey", err)
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	g := New()
	if err := g.Add(Entry{Key: "react@18.2.0"}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := g.Add(Entry{Key: "react@18.2.0"}); !errors.Is(err, ErrDuplicateEntryKey) {
		t.Errorf("second Add = %v, want ErrDuplicateEntryKey", err)
	}
}

func TestEntriesPreserveInsertionOrder(t *testing.T) {
	g := buildGraph(t,
		Entry{Key: "zebra@1.0.0"},
		Entry{Key: "alpha@1.0.0"},
		Entry{Key: "mid@1.0.0"},
	)

	want := []string{"zebra@1.0.0", "alpha@1.0.0", "mid@1.0.0"}
	got := g.Entries()
	if len(got) != len(want) {
		t.Fatalf("Entries() returned %d entries, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Key != want[i] {
			t.Errorf("Entries()[%d] = %s, want %s", i, e.Key, want[i])
		}
	}
}

func TestLinkBuildsSymmetricReferrers(t *testing.T) {
	g := buildGraph(t,
		Entry{Key: "app", Importer: true, Dependencies: []Dependency{
			{Name: "react", Spec: "^18.0.0", Kind: KindProd, To: "react@18.2.0"},
			{Name: "react-dom", Spec: "^18.0.0", Kind: KindProd, To: "react-dom@18.2.0"},
		}},
		Entry{Key: "react@18.2.0", Name: "react", Version: "18.2.0"},
		Entry{Key: "react-dom@18.2.0", Name: "react-dom", Version: "18.2.0", Dependencies: []Dependency{
			{Name: "react", Spec: "^18.2.0", Kind: KindPeer, To: "react@18.2.0"},
		}},
	)

	refs := g.Referrers("react@18.2.0")
	if len(refs) != 2 || refs[0] != "app" || refs[1] != "react-dom@18.2.0" {
		t.Errorf("Referrers(react@18.2.0) = %v, want [app react-dom@18.2.0]", refs)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate after Link: %v", err)
	}
}

func TestLinkSkipsUnresolvedAndUnknownEdges(t *testing.T) {
	g := buildGraph(t,
		Entry{Key: "app", Dependencies: []Dependency{
			{Name: "local", Kind: KindProd, To: ""},          // unresolved
			{Name: "ghost", Kind: KindProd, To: "ghost@1.0"}, // not in graph
		}},
	)
	if n := len(g.Referrers("ghost@1.0")); n != 0 {
		t.Errorf("unknown target got %d referrers, want 0", n)
	}
}

func TestValidateDetectsAsymmetry(t *testing.T) {
	tests := []struct {
		name string
		refs map[string][]string
		want error
	}{
		{
			name: "back-edge without forward edge",
			refs: map[string][]string{"b@1.0.0": {"a@1.0.0", "c@1.0.0"}},
			want: ErrAsymmetricReferrer,
		},
		{
			name: "forward edge missing from index",
			refs: map[string][]string{},
			want: ErrAsymmetricReferrer,
		},
		{
			name: "referrer index names unknown entry",
			refs: map[string][]string{"nope@0.0.0": {"a@1.0.0"}},
			want: ErrUnknownEntry,
		},
		{
			name: "unknown referrer key",
			refs: map[string][]string{"b@1.0.0": {"a@1.0.0", "nope@0.0.0"}},
			want: ErrUnknownEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t,
				Entry{Key: "a@1.0.0", Dependencies: []Dependency{
					{Name: "b", Kind: KindProd, To: "b@1.0.0"},
				}},
				Entry{Key: "b@1.0.0"},
				Entry{Key: "c@1.0.0"},
			)
			g.SetReferrers(tt.refs)
			if err := g.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateDetectsDanglingForwardEdge(t *testing.T) {
	g := buildGraph(t,
		Entry{Key: "a@1.0.0", Dependencies: []Dependency{
			{Name: "b", Kind: KindProd, To: "b@1.0.0"},
		}},
	)
	// Link skipped the unknown target; install an index that references it.
	g.SetReferrers(map[string][]string{})
	if err := g.Validate(); !errors.Is(err, ErrUnknownEntry) {
		t.Errorf("Validate() = %v, want ErrUnknownEntry", err)
	}
}

func TestEntryLookups(t *testing.T) {
	e := &Entry{
		Key:     "react-dom@18.2.0(react@18.2.0)",
		Name:    "react-dom",
		Version: "18.2.0",
		Dependencies: []Dependency{
			{Name: "loose-envify", Spec: "^1.1.0", Kind: KindProd},
			{Name: "react", Spec: "^18.2.0", Kind: KindPeer},
		},
	}

	if !e.Declares("react") {
		t.Error("Declares(react) = false, want true")
	}
	if e.Declares("redux") {
		t.Error("Declares(redux) = true, want false")
	}

	dep, ok := e.Dep("react")
	if !ok || dep.Kind != KindPeer {
		t.Errorf("Dep(react) = %+v, %v; want peer edge", dep, ok)
	}

	peers := e.PeerDeps()
	if len(peers) != 1 || peers[0].Name != "react" {
		t.Errorf("PeerDeps() = %v, want [react]", peers)
	}

	if got := e.DisplayLabel(); got != "react-dom@18.2.0" {
		t.Errorf("DisplayLabel() = %s, want react-dom@18.2.0", got)
	}
	bare := &Entry{Key: "apps/web"}
	if got := bare.DisplayLabel(); got != "apps/web" {
		t.Errorf("DisplayLabel() without name = %s, want key", got)
	}
}

func TestDepKindString(t *testing.T) {
	tests := []struct {
		kind DepKind
		want string
	}{
		{KindProd, "prod"},
		{KindDev, "dev"},
		{KindOptional, "optional"},
		{KindPeer, "peer"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("DepKind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestImportersAndCounts(t *testing.T) {
	g := buildGraph(t,
		Entry{Key: ".", Importer: true},
		Entry{Key: "react@18.2.0", Dependencies: []Dependency{
			{Name: "loose-envify", Kind: KindProd, To: "loose-envify@1.4.0"},
		}},
		Entry{Key: "loose-envify@1.4.0"},
		Entry{Key: "apps/web", Importer: true},
	)

	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	imps := g.Importers()
	if len(imps) != 2 || imps[0].Key != "." || imps[1].Key != "apps/web" {
		t.Errorf("Importers() = %v, want [. apps/web] in insertion order", imps)
	}
}
