package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/peertrace/pkg/errors"
	"github.com/matzehuels/peertrace/pkg/influence"
	"github.com/matzehuels/peertrace/pkg/lockfile"
	"github.com/matzehuels/peertrace/pkg/pipeline"
)

// maxUploadBytes bounds lockfile uploads. Large monorepo lockfiles run to a
// few megabytes; 32 MiB leaves generous headroom.
const maxUploadBytes = 32 << 20

// Server is the peertrace HTTP API.
type Server struct {
	store  Store
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// New creates a server backed by the given report store and pipeline runner.
func New(store Store, runner *pipeline.Runner, logger *log.Logger) *Server {
	s := &Server{store: store, runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Post("/", s.handleCreateReport)
		r.Get("/{id}", s.handleGetReport)
		r.Delete("/{id}", s.handleDeleteReport)
		r.Get("/{id}/influencers", s.handleInfluencers)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reportSummary is the API view of a stored report, omitting the full graph.
type reportSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ParserType  string    `json:"parser_type"`
	ContentHash string    `json:"content_hash"`
	Entries     int       `json:"entries"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func summarize(r *Report) reportSummary {
	return reportSummary{
		ID:          r.ID,
		Filename:    r.Filename,
		ParserType:  r.ParserType,
		ContentHash: r.ContentHash,
		Entries:     len(r.Graph.Entries),
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// handleCreateReport accepts a multipart lockfile upload (field "lockfile"),
// parses it, and stores the graph under a fresh report ID.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("lockfile")
	if err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing lockfile upload (multipart field %q)", "lockfile"))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if err := errors.ValidateLockfileFilename(filename); err != nil {
		writeError(w, err)
		return
	}

	// The detector and parsers work on paths, so stage the upload in a
	// temp directory under its original name.
	dir, err := os.MkdirTemp("", "peertrace-upload-*")
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "stage upload"))
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filename)
	out, err := os.Create(path)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "stage upload"))
		return
	}
	if _, err := out.ReadFrom(file); err != nil {
		out.Close()
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "stage upload"))
		return
	}
	out.Close()

	loaded, err := s.runner.Load(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}

	report := NewReport(filename, loaded.ParserType, loaded.ContentHash, lockfile.ToDocument(loaded.Graph))
	if err := s.store.Set(r.Context(), report); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "store report"))
		return
	}

	s.logger.Info("report created",
		"id", report.ID, "file", filename, "parser", loaded.ParserType, "entries", loaded.Graph.Len())
	writeJSON(w, http.StatusCreated, summarize(report))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(report))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "delete report"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// influencerResponse is the API view of an influence search.
type influencerResponse struct {
	Entry               string           `json:"entry"`
	Dependency          string           `json:"dependency"`
	Determinants        []entryRef       `json:"determinants"`
	TransitiveReferrers []entryRef       `json:"transitive_referrers"`
	Diagnostics         []diagnosticJSON `json:"diagnostics,omitempty"`
}

type entryRef struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Spec    string `json:"spec,omitempty"` // declared range, determinants only
}

type diagnosticJSON struct {
	Entry   string `json:"entry"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// handleInfluencers runs the influence search for ?entry=&dep= against a
// stored report. With ?format=dot or svg the rendered graph is returned
// instead of JSON.
func (s *Server) handleInfluencers(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}

	entryKey := r.URL.Query().Get("entry")
	depName := r.URL.Query().Get("dep")
	if entryKey == "" || depName == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "entry and dep query parameters are required"))
		return
	}

	g, err := lockfile.FromDocument(report.Graph)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeGraphCorrupt, err, "rebuild graph for report %s", report.ID))
		return
	}

	loaded := &pipeline.LoadResult{
		Graph:       g,
		ContentHash: report.ContentHash,
		ParserType:  report.ParserType,
	}
	res, err := s.runner.Analyze(r.Context(), loaded, entryKey, depName)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", pipeline.FormatJSON:
		writeJSON(w, http.StatusOK, toInfluencerResponse(res, depName))
	case pipeline.FormatDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		fmt.Fprint(w, s.runner.RenderDOT(r.Context(), g, res))
	case pipeline.FormatSVG:
		svg, err := s.runner.RenderSVG(r.Context(), g, res)
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(svg)
	default:
		writeError(w, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format))
	}
}

func toInfluencerResponse(res *influence.Result, depName string) influencerResponse {
	out := influencerResponse{
		Entry:               res.Entry,
		Dependency:          res.Name,
		Determinants:        make([]entryRef, 0, len(res.Determinants)),
		TransitiveReferrers: make([]entryRef, 0, len(res.TransitiveReferrers)),
	}
	for _, e := range res.Determinants {
		ref := entryRef{Key: e.Key, Name: e.Name, Version: e.Version}
		if d, ok := e.Dep(depName); ok {
			ref.Spec = d.Spec
		}
		out.Determinants = append(out.Determinants, ref)
	}
	for _, e := range res.TransitiveReferrers {
		out.TransitiveReferrers = append(out.TransitiveReferrers, entryRef{Key: e.Key, Name: e.Name, Version: e.Version})
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticJSON{Entry: d.Entry, Name: d.Name, Message: d.String()})
	}
	return out
}

// loadReport fetches the report named in the URL, writing the error response
// on failure.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*Report, bool) {
	id := chi.URLParam(r, "id")
	report, err := s.store.Get(r.Context(), id)
	if stderrors.Is(err, ErrReportNotFound) {
		writeError(w, errors.New(errors.ErrCodeReportNotFound, "report %s not found", id))
		return nil, false
	}
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "load report %s", id))
		return nil, false
	}
	return report, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps coded errors to HTTP status codes and emits a JSON body
// with the stable code and a user-facing message.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidLockfile, errors.ErrCodeInvalidEntry,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath, errors.ErrCodeNotPeerDependency:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeEntryNotFound, errors.ErrCodeFileNotFound,
		errors.ErrCodeReportNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnsupported:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": errors.UserMessage(err),
	})
}
