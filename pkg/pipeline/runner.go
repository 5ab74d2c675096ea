package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peertrace/pkg/cache"
	"github.com/matzehuels/peertrace/pkg/errors"
	"github.com/matzehuels/peertrace/pkg/influence"
	"github.com/matzehuels/peertrace/pkg/lockfile"
	"github.com/matzehuels/peertrace/pkg/observability"
	"github.com/matzehuels/peertrace/pkg/render"
)

// Runner executes pipeline stages with shared caching and logging.
type Runner struct {
	cache   cache.Cache
	logger  *log.Logger
	parsers []lockfile.Parser
}

// NewRunner creates a pipeline runner. A nil cache disables caching and a
// nil logger discards log output. Custom parsers may be supplied; the
// default set handles pnpm, npm, and exported graph documents.
func NewRunner(c cache.Cache, logger *log.Logger, parsers ...lockfile.Parser) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	return &Runner{cache: c, logger: logger, parsers: parsers}
}

// LoadResult holds a parsed lockfile graph together with its provenance.
type LoadResult struct {
	Graph       *lockfile.Graph
	ContentHash string // SHA-256 of the lockfile bytes; cache identity
	ParserType  string // parser that produced the graph
	Cached      bool   // graph came from the cache
}

// Load reads, detects, and parses the lockfile at path. Parsed graphs are
// cached by content hash, so reloading an unchanged lockfile skips parsing.
func (r *Runner) Load(ctx context.Context, path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read lockfile %s", path)
	}

	parser, err := lockfile.Detect(path, r.parsers...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "detect format of %s", path)
	}

	res := &LoadResult{
		ContentHash: cache.Hash(data),
		ParserType:  parser.Type(),
	}
	key := cache.GraphKey(res.ContentHash, parser.Type())

	if cached, hit, cerr := r.cache.Get(ctx, key); cerr == nil && hit {
		if g, uerr := lockfile.Unmarshal(cached); uerr == nil {
			observability.Cache().OnCacheHit(ctx, "graph")
			res.Graph = g
			res.Cached = true
			return res, nil
		}
		// Unreadable cache entry; fall through to a fresh parse.
		_ = r.cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "graph")

	observability.Analysis().OnParseStart(ctx, parser.Type(), path)
	start := time.Now()
	g, err := parser.Parse(path)
	observability.Analysis().OnParseComplete(ctx, parser.Type(), path, graphLen(g), time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "parse %s", path)
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeGraphCorrupt, err, "validate %s", path)
	}

	if encoded, merr := lockfile.Marshal(g); merr == nil {
		if serr := r.cache.Set(ctx, key, encoded, cache.DefaultTTL); serr == nil {
			observability.Cache().OnCacheSet(ctx, "graph", len(encoded))
		}
	}

	res.Graph = g
	return res, nil
}

// Analyze runs the influence search for one peer dependency edge and maps
// precondition failures to coded errors for the CLI and API boundaries.
// Consistency diagnostics are logged as warnings and kept on the result.
// Successful results are cached under the lockfile's content hash, so
// repeating a query against an unchanged lockfile skips the traversal.
func (r *Runner) Analyze(ctx context.Context, loaded *LoadResult, entryKey, depName string) (*influence.Result, error) {
	if err := errors.ValidateEntryKey(entryKey); err != nil {
		return nil, err
	}
	if err := errors.ValidateDependencyName(depName); err != nil {
		return nil, err
	}

	g := loaded.Graph
	key := cache.AnalysisKey(loaded.ContentHash, entryKey, depName)
	if loaded.ContentHash != "" {
		if data, hit, cerr := r.cache.Get(ctx, key); cerr == nil && hit {
			if res, ok := decodeAnalysis(g, data); ok {
				observability.Cache().OnCacheHit(ctx, "analysis")
				return res, nil
			}
			// Unreadable or stale entry; fall through to a fresh search.
			_ = r.cache.Delete(ctx, key)
		}
		observability.Cache().OnCacheMiss(ctx, "analysis")
	}

	observability.Analysis().OnAnalyzeStart(ctx, entryKey, depName)
	start := time.Now()
	res, err := influence.Find(g, entryKey, depName, influence.Options{
		Logger: func(msg string, args ...any) { r.logger.Warnf(msg, args...) },
	})
	var nd, nt, nx int
	if res != nil {
		nd, nt, nx = len(res.Determinants), len(res.TransitiveReferrers), len(res.Diagnostics)
	}
	observability.Analysis().OnAnalyzeComplete(ctx, entryKey, depName, nd, nt, nx, time.Since(start), err)
	if err != nil {
		return nil, codedAnalyzeError(err, entryKey, depName)
	}

	if loaded.ContentHash != "" {
		if data, merr := encodeAnalysis(res); merr == nil {
			if serr := r.cache.Set(ctx, key, data, cache.DefaultTTL); serr == nil {
				observability.Cache().OnCacheSet(ctx, "analysis", len(data))
			}
		}
	}
	return res, nil
}

// analysisDoc is the cached form of an influence result. Entries are stored
// as graph keys and rehydrated on read; the content hash in the cache key
// guarantees the graph they point into is the same one.
type analysisDoc struct {
	Entry        string                 `json:"entry"`
	Name         string                 `json:"name"`
	Determinants []string               `json:"determinants"`
	Transitive   []string               `json:"transitive_referrers"`
	Diagnostics  []influence.Diagnostic `json:"diagnostics,omitempty"`
}

func encodeAnalysis(res *influence.Result) ([]byte, error) {
	doc := analysisDoc{
		Entry:        res.Entry,
		Name:         res.Name,
		Determinants: make([]string, 0, len(res.Determinants)),
		Transitive:   make([]string, 0, len(res.TransitiveReferrers)),
		Diagnostics:  res.Diagnostics,
	}
	for _, e := range res.Determinants {
		doc.Determinants = append(doc.Determinants, e.Key)
	}
	for _, e := range res.TransitiveReferrers {
		doc.Transitive = append(doc.Transitive, e.Key)
	}
	return json.Marshal(doc)
}

func decodeAnalysis(g *lockfile.Graph, data []byte) (*influence.Result, bool) {
	var doc analysisDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	res := &influence.Result{Entry: doc.Entry, Name: doc.Name, Diagnostics: doc.Diagnostics}
	for _, key := range doc.Determinants {
		e, ok := g.Entry(key)
		if !ok {
			return nil, false
		}
		res.Determinants = append(res.Determinants, e)
	}
	for _, key := range doc.Transitive {
		e, ok := g.Entry(key)
		if !ok {
			return nil, false
		}
		res.TransitiveReferrers = append(res.TransitiveReferrers, e)
	}
	return res, true
}

// RenderDOT renders the influence subgraph as Graphviz DOT.
func (r *Runner) RenderDOT(ctx context.Context, g *lockfile.Graph, res *influence.Result) string {
	observability.Analysis().OnRenderStart(ctx, FormatDOT)
	start := time.Now()
	dot := render.ToDOT(g, res)
	observability.Analysis().OnRenderComplete(ctx, FormatDOT, time.Since(start), nil)
	return dot
}

// RenderSVG renders the influence subgraph as SVG via in-process Graphviz.
func (r *Runner) RenderSVG(ctx context.Context, g *lockfile.Graph, res *influence.Result) ([]byte, error) {
	observability.Analysis().OnRenderStart(ctx, FormatSVG)
	start := time.Now()
	svg, err := render.RenderSVG(render.ToDOT(g, res))
	observability.Analysis().OnRenderComplete(ctx, FormatSVG, time.Since(start), err)
	return svg, err
}

func codedAnalyzeError(err error, entryKey, depName string) error {
	switch {
	case stderrors.Is(err, influence.ErrUnknownEntry):
		return errors.Wrap(errors.ErrCodeEntryNotFound, err, "entry %s not in graph", entryKey)
	case stderrors.Is(err, influence.ErrUnknownDependency):
		return errors.Wrap(errors.ErrCodeNotFound, err, "%s declares no dependency %s", entryKey, depName)
	case stderrors.Is(err, influence.ErrNotPeerDependency):
		return errors.Wrap(errors.ErrCodeNotPeerDependency, err, "%s -> %s is not a peer dependency", entryKey, depName)
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, "analyze %s -> %s", entryKey, depName)
	}
}

func graphLen(g *lockfile.Graph) int {
	if g == nil {
		return 0
	}
	return g.Len()
}
