package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/peertrace/pkg/cache"
	"github.com/matzehuels/peertrace/pkg/errors"
)

const sampleLock = `
lockfileVersion: '9.0'

importers:
  .:
    dependencies:
      react:
        specifier: ^18.2.0
        version: 18.2.0
      react-dom:
        specifier: ^18.2.0
        version: 18.2.0(react@18.2.0)

packages:
  react@18.2.0: {}
  react-dom@18.2.0:
    peerDependencies:
      react: ^18.2.0

snapshots:
  react@18.2.0: {}
  react-dom@18.2.0(react@18.2.0):
    dependencies:
      react: 18.2.0
`

func writeLock(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pnpm-lock.yaml")
	if err := os.WriteFile(path, []byte(sampleLock), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesAndCaches(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil)
	ctx := context.Background()
	path := writeLock(t)

	first, err := r.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Cached {
		t.Error("first load should not be cached")
	}
	if first.ParserType != "pnpm" {
		t.Errorf("ParserType = %s, want pnpm", first.ParserType)
	}
	if first.Graph.Len() != 3 {
		t.Errorf("Len = %d, want 3 (importer + 2 packages)", first.Graph.Len())
	}

	second, err := r.Load(ctx, path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !second.Cached {
		t.Error("second load of unchanged lockfile should hit the cache")
	}
	if second.ContentHash != first.ContentHash {
		t.Error("content hash changed between identical loads")
	}
	if second.Graph.Len() != first.Graph.Len() {
		t.Error("cached graph differs from parsed graph")
	}
}

func TestLoadRecoversFromCorruptCacheEntry(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil)
	ctx := context.Background()
	path := writeLock(t)

	first, err := r.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	key := cache.GraphKey(first.ContentHash, first.ParserType)
	if err := fc.Set(ctx, key, []byte("corrupt"), cache.DefaultTTL); err != nil {
		t.Fatal(err)
	}

	second, err := r.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load with corrupt cache: %v", err)
	}
	if second.Cached {
		t.Error("corrupt cache entry should force a fresh parse")
	}
}

func TestLoadErrors(t *testing.T) {
	r := NewRunner(nil, nil)
	ctx := context.Background()

	_, err := r.Load(ctx, filepath.Join(t.TempDir(), "pnpm-lock.yaml"))
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("missing file code = %s, want FILE_NOT_FOUND", errors.GetCode(err))
	}

	bad := filepath.Join(t.TempDir(), "Gemfile.lock")
	if werr := os.WriteFile(bad, []byte("x"), 0644); werr != nil {
		t.Fatal(werr)
	}
	_, err = r.Load(ctx, bad)
	if errors.GetCode(err) != errors.ErrCodeInvalidLockfile {
		t.Errorf("unsupported file code = %s, want INVALID_LOCKFILE", errors.GetCode(err))
	}
}

func TestAnalyze(t *testing.T) {
	r := NewRunner(nil, nil)
	ctx := context.Background()
	loaded, err := r.Load(ctx, writeLock(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	res, err := r.Analyze(ctx, loaded, "react-dom@18.2.0(react@18.2.0)", "react")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Determinants) != 1 || res.Determinants[0].Key != "." {
		t.Errorf("Determinants = %v, want the importer", res.Determinants)
	}
}

func TestAnalyzeCachesResults(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil)
	ctx := context.Background()
	loaded, err := r.Load(ctx, writeLock(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	first, err := r.Analyze(ctx, loaded, "react-dom@18.2.0(react@18.2.0)", "react")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	key := cache.AnalysisKey(loaded.ContentHash, "react-dom@18.2.0(react@18.2.0)", "react")
	if _, hit, _ := fc.Get(ctx, key); !hit {
		t.Fatal("analysis result should be stored under its analysis key")
	}

	second, err := r.Analyze(ctx, loaded, "react-dom@18.2.0(react@18.2.0)", "react")
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if len(second.Determinants) != len(first.Determinants) ||
		second.Determinants[0].Key != first.Determinants[0].Key {
		t.Errorf("cached result differs: %v vs %v", second.Determinants, first.Determinants)
	}

	// A corrupt entry must fall back to a fresh search.
	if err := fc.Set(ctx, key, []byte("corrupt"), cache.DefaultTTL); err != nil {
		t.Fatal(err)
	}
	third, err := r.Analyze(ctx, loaded, "react-dom@18.2.0(react@18.2.0)", "react")
	if err != nil {
		t.Fatalf("Analyze with corrupt cache: %v", err)
	}
	if len(third.Determinants) != 1 || third.Determinants[0].Key != "." {
		t.Errorf("Determinants after corrupt entry = %v, want the importer", third.Determinants)
	}
}

func TestAnalyzeErrorCodes(t *testing.T) {
	r := NewRunner(nil, nil)
	ctx := context.Background()
	loaded, err := r.Load(ctx, writeLock(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name     string
		entryKey string
		depName  string
		want     errors.Code
	}{
		{"unknown entry", "nope@1.0.0", "react", errors.ErrCodeEntryNotFound},
		{"unknown dep", "react-dom@18.2.0(react@18.2.0)", "redux", errors.ErrCodeNotFound},
		{"not a peer", ".", "react", errors.ErrCodeNotPeerDependency},
		{"invalid entry key", "bad\x00key", "react", errors.ErrCodeInvalidEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Analyze(ctx, loaded, tt.entryKey, tt.depName)
			if errors.GetCode(err) != tt.want {
				t.Errorf("code = %s, want %s", errors.GetCode(err), tt.want)
			}
		})
	}
}

func TestRenderDOT(t *testing.T) {
	r := NewRunner(nil, nil)
	ctx := context.Background()
	loaded, err := r.Load(ctx, writeLock(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := r.Analyze(ctx, loaded, "react-dom@18.2.0(react@18.2.0)", "react")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	dot := r.RenderDOT(ctx, loaded.Graph, res)
	if !strings.Contains(dot, "digraph influence") {
		t.Errorf("unexpected DOT output:\n%s", dot)
	}
}

func TestDefaultParsers(t *testing.T) {
	types := map[string]bool{}
	for _, p := range DefaultParsers() {
		types[p.Type()] = true
	}
	for _, want := range []string{"pnpm", "npm", "graph-json"} {
		if !types[want] {
			t.Errorf("DefaultParsers missing %s", want)
		}
	}
}
