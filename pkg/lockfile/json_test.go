package lockfile

import (
	"errors"
	"path/filepath"
	"testing"
)

func graphFixture(t *testing.T) *Graph {
	t.Helper()
	return buildGraph(t,
		Entry{Key: "app", Name: "app", Importer: true, Dependencies: []Dependency{
			{Name: "react-dom", Spec: "^18.2.0", Kind: KindProd, To: "react-dom@18.2.0(react@18.2.0)"},
			{Name: "react", Spec: "^18.2.0", Kind: KindProd, To: "react@18.2.0"},
		}},
		Entry{Key: "react@18.2.0", Name: "react", Version: "18.2.0"},
		Entry{Key: "react-dom@18.2.0(react@18.2.0)", Name: "react-dom", Version: "18.2.0",
			Dependencies: []Dependency{
				{Name: "react", Spec: "^18.2.0", Kind: KindPeer, To: "react@18.2.0"},
			},
			TransitivePeers: map[string]bool{},
		},
	)
}

func TestDocumentRoundTrip(t *testing.T) {
	g := graphFixture(t)

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if back.Len() != g.Len() {
		t.Fatalf("round trip changed entry count: %d != %d", back.Len(), g.Len())
	}
	for i, want := range g.Entries() {
		got := back.Entries()[i]
		if got.Key != want.Key {
			t.Errorf("entry %d key = %s, want %s (order must survive)", i, got.Key, want.Key)
		}
		if len(got.Dependencies) != len(want.Dependencies) {
			t.Errorf("entry %s edge count = %d, want %d", got.Key, len(got.Dependencies), len(want.Dependencies))
		}
	}

	dom, _ := back.Entry("react-dom@18.2.0(react@18.2.0)")
	dep, ok := dom.Dep("react")
	if !ok || dep.Kind != KindPeer || dep.To != "react@18.2.0" {
		t.Errorf("peer edge did not survive round trip: %+v", dep)
	}

	refs := back.Referrers("react@18.2.0")
	if len(refs) != 2 {
		t.Errorf("Referrers(react@18.2.0) = %v, want 2 entries", refs)
	}
	if err := back.Validate(); err != nil {
		t.Errorf("Validate after round trip: %v", err)
	}
}

func TestFromDocumentValidatesExplicitReferrers(t *testing.T) {
	doc := Document{
		Entries: []EntryDoc{
			{Key: "a@1.0.0", Dependencies: []DepDoc{{Name: "b", Kind: "prod", To: "b@1.0.0"}}},
			{Key: "b@1.0.0"},
		},
		// b's referrer list omits a: asymmetric.
		Referrers: map[string][]string{"b@1.0.0": {}},
	}
	if _, err := FromDocument(doc); !errors.Is(err, ErrAsymmetricReferrer) {
		t.Errorf("FromDocument with asymmetric index = %v, want ErrAsymmetricReferrer", err)
	}
}

func TestFromDocumentLinksWhenIndexAbsent(t *testing.T) {
	doc := Document{
		Entries: []EntryDoc{
			{Key: "a@1.0.0", Dependencies: []DepDoc{{Name: "b", Kind: "prod", To: "b@1.0.0"}}},
			{Key: "b@1.0.0"},
		},
	}
	g, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if refs := g.Referrers("b@1.0.0"); len(refs) != 1 || refs[0] != "a@1.0.0" {
		t.Errorf("derived referrers = %v, want [a@1.0.0]", refs)
	}
}

func TestExportImportFile(t *testing.T) {
	g := graphFixture(t)
	path := filepath.Join(t.TempDir(), "graph.json")

	if err := ExportFile(g, path); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	back, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if back.Len() != g.Len() {
		t.Errorf("file round trip entry count = %d, want %d", back.Len(), g.Len())
	}
}

func TestDetect(t *testing.T) {
	jp := JSONParser()

	p, err := Detect("/some/dir/graph.json", jp)
	if err != nil || p.Type() != "graph-json" {
		t.Errorf("Detect(graph.json) = %v, %v; want graph-json parser", p, err)
	}

	if _, err := Detect("package-lock.json", jp); err == nil {
		t.Error("JSONParser must not claim package-lock.json")
	}
	if _, err := Detect("Gemfile.lock", jp); err == nil {
		t.Error("Detect should fail for unsupported files")
	}
}
