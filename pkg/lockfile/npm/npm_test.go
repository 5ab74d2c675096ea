package npm

import (
	"testing"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

const lockV3 = `{
  "name": "demo-app",
  "version": "1.0.0",
  "lockfileVersion": 3,
  "packages": {
    "": {
      "name": "demo-app",
      "version": "1.0.0",
      "dependencies": {
        "react": "^18.2.0",
        "react-dom": "^18.2.0",
        "wrapper": "^1.0.0"
      }
    },
    "node_modules/loose-envify": {
      "version": "1.4.0"
    },
    "node_modules/react": {
      "version": "18.2.0",
      "dependencies": {
        "loose-envify": "^1.1.0"
      }
    },
    "node_modules/react-dom": {
      "version": "18.2.0",
      "dependencies": {
        "loose-envify": "^1.1.0"
      },
      "peerDependencies": {
        "react": "^18.2.0"
      }
    },
    "node_modules/wrapper": {
      "version": "1.0.0",
      "dependencies": {
        "loose-envify": "^1.0.0",
        "plugin": "^2.0.0"
      }
    },
    "node_modules/wrapper/node_modules/loose-envify": {
      "version": "1.4.0"
    },
    "node_modules/wrapper/node_modules/plugin": {
      "version": "2.0.0",
      "peerDependencies": {
        "react": ">=17"
      },
      "peerDependenciesMeta": {
        "react": {
          "optional": true
        }
      }
    }
  }
}`

func TestParseV3(t *testing.T) {
	g, err := New().ParseBytes([]byte(lockV3))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	root, ok := g.Entry("demo-app")
	if !ok || !root.Importer {
		t.Fatal("root entry demo-app missing or not an importer")
	}

	dom, _ := g.Entry("react-dom@18.2.0")
	if dom == nil {
		t.Fatal("react-dom entry missing")
	}
	peer, ok := dom.Dep("react")
	if !ok || peer.Kind != lockfile.KindPeer || peer.To != "react@18.2.0" {
		t.Errorf("react-dom react edge = %+v, want peer edge to react@18.2.0", peer)
	}

	// Nested install: plugin sees react by walking up the node_modules tree.
	plugin, _ := g.Entry("plugin@2.0.0")
	if plugin == nil {
		t.Fatal("nested plugin entry missing")
	}
	pp, ok := plugin.Dep("react")
	if !ok || pp.To != "react@18.2.0" {
		t.Errorf("plugin react edge = %+v, want resolved through hierarchy walk", pp)
	}
	if !pp.Optional {
		t.Error("peerDependenciesMeta optional flag lost")
	}

	// Hoisted duplicates collapse onto one entry.
	if len(g.Referrers("loose-envify@1.4.0")) != 3 {
		t.Errorf("Referrers(loose-envify@1.4.0) = %v, want react, react-dom, and wrapper",
			g.Referrers("loose-envify@1.4.0"))
	}
}

func TestParseV3ComputesTransitivePeers(t *testing.T) {
	g, err := New().ParseBytes([]byte(lockV3))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}

	// wrapper doesn't declare react but depends on plugin, which declares it
	// as a peer: the computed set must record that.
	wrapper, _ := g.Entry("wrapper@1.0.0")
	if wrapper == nil || !wrapper.TransitivePeers["react"] {
		t.Error("wrapper should carry react in its computed transitive-peer set")
	}

	// The root declares react itself, so propagation stops there.
	root, _ := g.Entry("demo-app")
	if root.TransitivePeers["react"] {
		t.Error("root declares react; it must not appear as transitive")
	}
}

func TestParseRejectsLegacyLockfiles(t *testing.T) {
	legacy := `{"name": "old", "lockfileVersion": 1, "dependencies": {}}`
	if _, err := New().ParseBytes([]byte(legacy)); err == nil {
		t.Error("lockfile v1 without packages map should be rejected")
	}
}

func TestSupports(t *testing.T) {
	p := New()
	if !p.Supports("package-lock.json") || !p.Supports("PACKAGE-LOCK.JSON") {
		t.Error("Supports(package-lock.json) should be true")
	}
	if p.Supports("pnpm-lock.yaml") {
		t.Error("Supports(pnpm-lock.yaml) should be false")
	}
}

func TestResolvePath(t *testing.T) {
	keyOf := map[string]string{
		"node_modules/react":                          "react@18.2.0",
		"node_modules/a":                              "a@1.0.0",
		"node_modules/a/node_modules/react":           "react@17.0.2",
		"node_modules/a/node_modules/b":               "b@1.0.0",
		"node_modules/a/node_modules/b/node_modules/c": "c@1.0.0",
	}

	tests := []struct {
		from, name, want string
	}{
		{"", "react", "react@18.2.0"},
		{"node_modules/a", "react", "react@17.0.2"},                             // shadowed copy wins
		{"node_modules/a/node_modules/b", "react", "react@17.0.2"},              // found one level up
		{"node_modules/a/node_modules/b/node_modules/c", "react", "react@17.0.2"},
		{"node_modules/a", "missing", ""},
	}
	for _, tt := range tests {
		if got := resolvePath(tt.from, tt.name, keyOf); got != tt.want {
			t.Errorf("resolvePath(%q, %q) = %q, want %q", tt.from, tt.name, got, tt.want)
		}
	}
}

func TestNameFromPath(t *testing.T) {
	tests := []struct{ path, want string }{
		{"node_modules/react", "react"},
		{"node_modules/@types/react", "@types/react"},
		{"node_modules/a/node_modules/b", "b"},
	}
	for _, tt := range tests {
		if got := nameFromPath(tt.path); got != tt.want {
			t.Errorf("nameFromPath(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}
