// Package server exposes lockfile analysis as an HTTP API.
//
// Uploaded lockfiles become reports: parsed graphs stored under a UUID so
// repeated influence queries against the same lockfile skip re-parsing. The
// Store interface has an in-memory backend for development and a MongoDB
// backend for deployments that need reports to survive restarts.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

// ErrReportNotFound is returned when a report ID does not exist.
var ErrReportNotFound = errors.New("report not found")

// DefaultReportTTL bounds how long reports are retained.
const DefaultReportTTL = 24 * time.Hour

// Report is a stored lockfile analysis session.
type Report struct {
	ID          string             `json:"id" bson:"_id"`
	Filename    string             `json:"filename" bson:"filename"`
	ParserType  string             `json:"parser_type" bson:"parser_type"`
	ContentHash string             `json:"content_hash" bson:"content_hash"`
	Graph       lockfile.Document  `json:"graph" bson:"graph"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at" bson:"expires_at"`
}

// IsExpired reports whether the report has exceeded its TTL.
func (r *Report) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// NewReport builds a report with a fresh UUID and the default TTL.
func NewReport(filename, parserType, contentHash string, doc lockfile.Document) *Report {
	now := time.Now().UTC()
	return &Report{
		ID:          uuid.NewString(),
		Filename:    filename,
		ParserType:  parserType,
		ContentHash: contentHash,
		Graph:       doc,
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultReportTTL),
	}
}

// Store is the interface for report storage backends.
type Store interface {
	// Get retrieves a report by ID. Returns ErrReportNotFound for unknown
	// or expired reports.
	Get(ctx context.Context, id string) (*Report, error)

	// Set stores a report.
	Set(ctx context.Context, report *Report) error

	// Delete removes a report. Deleting an unknown report is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// MemoryStore is an in-memory report store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report)}
}

// Get retrieves a report by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Report, error) {
	s.mu.RLock()
	r, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrReportNotFound
	}
	if r.IsExpired() {
		s.mu.Lock()
		delete(s.reports, id)
		s.mu.Unlock()
		return nil, ErrReportNotFound
	}
	return r, nil
}

// Set stores a report.
func (s *MemoryStore) Set(_ context.Context, report *Report) error {
	s.mu.Lock()
	s.reports[report.ID] = report
	s.mu.Unlock()
	return nil
}

// Delete removes a report.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.reports, id)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
