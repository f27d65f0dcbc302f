package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/David-Botos/retail-ingress/pkg/transfer"
)

// pinger reports whether the destination database is reachable
type pinger interface {
	PingContext(ctx context.Context) error
}

// runState holds the summary of the most recent run
type runState struct {
	mu   sync.RWMutex
	last *transfer.RunSummary
}

func (s *runState) set(summary *transfer.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = summary
}

func (s *runState) get() *transfer.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

type datasetView struct {
	Dataset     string   `json:"dataset"`
	Destination string   `json:"destination"`
	Success     bool     `json:"success"`
	Verified    bool     `json:"verified"`
	Extracted   int64    `json:"rows_extracted"`
	Dropped     int64    `json:"rows_dropped"`
	Loaded      int64    `json:"rows_loaded"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

type runView struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  string        `json:"duration"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Datasets  []datasetView `json:"datasets"`
}

func newRunView(s *transfer.RunSummary) runView {
	v := runView{
		RunID:     s.RunID,
		StartedAt: s.StartTime,
		Duration:  s.Duration.String(),
		Succeeded: s.SucceededDatasets,
		Failed:    s.FailedDatasets,
		Datasets:  make([]datasetView, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		dv := datasetView{
			Dataset:     string(r.Dataset),
			Destination: r.Destination,
			Success:     r.Success,
			Verified:    r.Verified,
			Extracted:   r.RowsExtracted,
			Dropped:     r.RowsDropped,
			Loaded:      r.RowsLoaded,
			Diagnostics: r.Diagnostics,
		}
		for _, e := range r.Errors {
			dv.Errors = append(dv.Errors, e.String())
		}
		v.Datasets = append(v.Datasets, dv)
	}
	return v
}

func newRouter(reg *prometheus.Registry, state *runState, db pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs/last", func(w http.ResponseWriter, _ *http.Request) {
		last := state.get()
		if last == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run has completed yet"})
			return
		}
		writeJSON(w, http.StatusOK, newRunView(last))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
