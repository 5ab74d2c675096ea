package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Analysis hooks
	a := NoopAnalysisHooks{}
	a.OnParseStart(ctx, "pnpm", "pnpm-lock.yaml")
	a.OnParseComplete(ctx, "pnpm", "pnpm-lock.yaml", 100, time.Second, nil)
	a.OnAnalyzeStart(ctx, "react-dom@18.2.0(react@18.2.0)", "react")
	a.OnAnalyzeComplete(ctx, "react-dom@18.2.0(react@18.2.0)", "react", 2, 3, 0, time.Second, nil)
	a.OnRenderStart(ctx, "svg")
	a.OnRenderComplete(ctx, "svg", time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "graph")
	c.OnCacheMiss(ctx, "graph")
	c.OnCacheSet(ctx, "graph", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Analysis().(NoopAnalysisHooks); !ok {
		t.Error("Analysis() should return NoopAnalysisHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customAnalysis := &testAnalysisHooks{}
	SetAnalysisHooks(customAnalysis)
	if Analysis() != customAnalysis {
		t.Error("SetAnalysisHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Nil is ignored
	SetAnalysisHooks(nil)
	if Analysis() != customAnalysis {
		t.Error("SetAnalysisHooks(nil) should keep existing hooks")
	}

	// Reset restores defaults
	Reset()
	if _, ok := Analysis().(NoopAnalysisHooks); !ok {
		t.Error("Reset should restore NoopAnalysisHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset should restore NoopCacheHooks")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	hooks := &testAnalysisHooks{}
	SetAnalysisHooks(hooks)

	ctx := context.Background()
	Analysis().OnParseStart(ctx, "npm", "package-lock.json")
	Analysis().OnAnalyzeComplete(ctx, "app", "react", 1, 2, 0, time.Millisecond, nil)

	if hooks.parseStarts != 1 {
		t.Errorf("parseStarts = %d, want 1", hooks.parseStarts)
	}
	if hooks.analyzeCompletes != 1 {
		t.Errorf("analyzeCompletes = %d, want 1", hooks.analyzeCompletes)
	}
}

// testAnalysisHooks counts received events.
type testAnalysisHooks struct {
	NoopAnalysisHooks
	parseStarts      int
	analyzeCompletes int
}

func (h *testAnalysisHooks) OnParseStart(context.Context, string, string) {
	h.parseStarts++
}

func (h *testAnalysisHooks) OnAnalyzeComplete(context.Context, string, string, int, int, int, time.Duration, error) {
	h.analyzeCompletes++
}

type testCacheHooks struct {
	NoopCacheHooks
}
