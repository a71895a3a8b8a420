// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gsps-archiver/internal/catalog"
	"github.com/tomtom215/gsps-archiver/internal/deadletter"
)

const (
	defaultListLimit = 100
	readyTimeout     = 2 * time.Second
)

// Catalog is the read side of the dataset catalog.
type Catalog interface {
	Get(ctx context.Context, globalID string) (*catalog.Dataset, error)
	List(ctx context.Context, f catalog.Filter) ([]catalog.Dataset, error)
	Ping(ctx context.Context) error
}

// DeadLetters is the read side of the dead-letter store.
type DeadLetters interface {
	List(ctx context.Context, limit int) ([]*deadletter.Entry, error)
	Count(ctx context.Context) (int, error)
}

// Handler serves the ops endpoints.
type Handler struct {
	catalog     Catalog
	deadLetters DeadLetters
}

// NewHandler creates a handler. Either dependency may be nil; the matching
// routes then answer 503.
func NewHandler(cat Catalog, dlq DeadLetters) *Handler {
	return &Handler{catalog: cat, deadLetters: dlq}
}

type datasetQuery struct {
	Platform string `validate:"omitempty,max=128"`
	Limit    int    `validate:"min=1,max=1000"`
}

type deadLetterQuery struct {
	Limit int `validate:"min=1,max=1000"`
}

// DeadLetterSummary describes a retained session without its rows.
type DeadLetterSummary struct {
	ID            string     `json:"id"`
	Glider        string     `json:"glider"`
	Start         string     `json:"start"`
	Segment       string     `json:"segment,omitempty"`
	Rows          int        `json:"rows"`
	Stage         string     `json:"stage"`
	LastError     string     `json:"last_error"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

func summarize(e *deadletter.Entry) DeadLetterSummary {
	s := DeadLetterSummary{
		ID:        e.ID,
		Stage:     e.Stage,
		LastError: e.LastError,
		Attempts:  e.Attempts,
		CreatedAt: e.CreatedAt,
	}
	if e.Buffer != nil {
		s.Glider = e.Buffer.Platform
		s.Start = e.Buffer.Start
		s.Segment = e.Buffer.Segment
		s.Rows = len(e.Buffer.Rows)
	}
	if !e.LastAttemptAt.IsZero() {
		t := e.LastAttemptAt
		s.LastAttemptAt = &t
	}
	return s
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &Response{
		Status:   "success",
		Data:     map[string]string{"status": "ok"},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// Readyz reports whether the catalog and dead-letter store answer.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{"catalog": "ok", "deadletter": "ok"}
	ready := true

	if h.catalog == nil {
		checks["catalog"] = "disabled"
	} else if err := h.catalog.Ping(ctx); err != nil {
		checks["catalog"] = err.Error()
		ready = false
	}

	if h.deadLetters == nil {
		checks["deadletter"] = "disabled"
	} else if _, err := h.deadLetters.Count(ctx); err != nil {
		checks["deadletter"] = err.Error()
		ready = false
	}

	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, &Response{
			Status:   "error",
			Data:     checks,
			Metadata: Metadata{Timestamp: time.Now().UTC()},
			Error:    &Error{Code: CodeUnavailable, Message: "Dependencies not ready"},
		})
		return
	}
	respondJSON(w, http.StatusOK, &Response{
		Status:   "success",
		Data:     checks,
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// ListDatasets returns catalogued datasets, optionally for one platform.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.catalog == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Catalog is disabled", nil)
		return
	}

	limit, ok := parseIntParam(r, "limit", defaultListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, CodeValidation, "limit must be an integer", nil)
		return
	}
	q := datasetQuery{Platform: r.URL.Query().Get("platform"), Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &Response{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	datasets, err := h.catalog.List(r.Context(), catalog.Filter{Platform: q.Platform, Limit: q.Limit})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeQuery, "Failed to list datasets", err)
		return
	}
	if datasets == nil {
		datasets = []catalog.Dataset{}
	}
	respondData(w, datasets, len(datasets), started)
}

// GetDataset returns one dataset by global id.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.catalog == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Catalog is disabled", nil)
		return
	}

	id := chi.URLParam(r, "id")
	ds, err := h.catalog.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Dataset not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeQuery, "Failed to load dataset", err)
		return
	}
	respondData(w, ds, 1, started)
}

// ListDeadLetters returns summaries of retained sessions.
func (h *Handler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deadLetters == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Dead-letter store is disabled", nil)
		return
	}

	limit, ok := parseIntParam(r, "limit", defaultListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, CodeValidation, "limit must be an integer", nil)
		return
	}
	q := deadLetterQuery{Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &Response{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	entries, err := h.deadLetters.List(r.Context(), q.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeQuery, "Failed to list dead letters", err)
		return
	}
	out := make([]DeadLetterSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	respondData(w, out, len(out), started)
}
