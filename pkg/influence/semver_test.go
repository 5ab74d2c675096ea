package influence

import (
	"testing"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

func TestConstraints(t *testing.T) {
	g := canonicalGraph(t)
	res, err := Find(g, "plugin@1.0.0", "react", Options{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	cons := res.Constraints("18.2.0")
	if len(cons) != 2 {
		t.Fatalf("Constraints returned %d entries, want one per determinant", len(cons))
	}

	byEntry := map[string]Constraint{}
	for _, c := range cons {
		byEntry[c.Entry] = c
	}

	// x wants exactly 18.2.0, z wants ^18.1.0: both admit the resolution.
	for entry, wantRange := range map[string]string{"x@1.0.0": "18.2.0", "z@1.0.0": "^18.1.0"} {
		c, ok := byEntry[entry]
		if !ok {
			t.Fatalf("no constraint for %s", entry)
		}
		if c.Range != wantRange {
			t.Errorf("%s range = %s, want %s", entry, c.Range, wantRange)
		}
		if !c.Known || !c.Satisfied {
			t.Errorf("%s = %+v, want known and satisfied", entry, c)
		}
	}

	cons = res.Constraints("17.0.2")
	for _, c := range cons {
		if c.Satisfied {
			t.Errorf("%s should not admit 17.0.2 (range %s)", c.Entry, c.Range)
		}
	}
}

func TestConstraintsUnparseableRange(t *testing.T) {
	g := testGraph(t,
		lockfile.Entry{Key: "plugin@1.0.0", Dependencies: []lockfile.Dependency{
			{Name: "react", Spec: "*", Kind: lockfile.KindPeer},
		}},
		lockfile.Entry{Key: "ws@1.0.0", Dependencies: []lockfile.Dependency{
			{Name: "plugin", Kind: lockfile.KindProd, To: "plugin@1.0.0"},
			{Name: "react", Spec: "workspace:*", Kind: lockfile.KindProd},
		}},
	)
	res, err := Find(g, "plugin@1.0.0", "react", Options{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	cons := res.Constraints("18.2.0")
	if len(cons) != 1 {
		t.Fatalf("Constraints = %v, want one entry", cons)
	}
	if cons[0].Known {
		t.Errorf("workspace: range should degrade to Known=false, got %+v", cons[0])
	}
}

func TestConstraintsUnparseableVersion(t *testing.T) {
	g := canonicalGraph(t)
	res, err := Find(g, "plugin@1.0.0", "react", Options{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	for _, c := range res.Constraints("not-a-version") {
		if c.Known {
			t.Errorf("unparseable resolved version should yield Known=false, got %+v", c)
		}
	}
}
