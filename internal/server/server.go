// Package server exposes Prometheus metrics and run status over HTTP while solves run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/optima/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics, /healthz and the run API.
type Server struct {
	runs     *RunManager
	records  store.Store
	gatherer prometheus.Gatherer
	addr     string
	server   *http.Server
}

// NewServer creates a server. records may be nil when nothing is persisted.
func NewServer(addr string, runs *RunManager, records store.Store, gatherer prometheus.Gatherer) *Server {
	if runs == nil {
		runs = NewRunManager()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		runs:     runs,
		records:  records,
		gatherer: gatherer,
		addr:     addr,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start blocks serving requests until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleRuns handles GET /api/v1/runs: live runs of this process plus stored records.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"live": s.runs.List(),
	}
	if s.records != nil {
		infos, err := s.records.ListRecords()
		if err != nil {
			slog.Error("Failed to list run records", "error", err)
			http.Error(w, "Failed to list run records", http.StatusInternalServerError)
			return
		}
		response["stored"] = infos
	}

	writeJSON(w, response)
}

// handleRunWithID handles GET /api/v1/runs/:id and /api/v1/runs/:id/trace.
func (s *Server) handleRunWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/runs/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	runID := parts[0]

	if len(parts) > 1 && parts[1] == "trace" {
		s.handleTrace(w, runID)
		return
	}

	if run, ok := s.runs.Get(runID); ok {
		writeJSON(w, run)
		return
	}
	if s.records == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	record, err := s.records.LoadRecord(runID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	} else if err != nil {
		slog.Error("Failed to load run record", "run_id", runID, "error", err)
		http.Error(w, "Failed to load run record", http.StatusInternalServerError)
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleTrace(w http.ResponseWriter, runID string) {
	fs, ok := s.records.(*store.FSStore)
	if !ok {
		http.Error(w, "Traces unavailable", http.StatusNotFound)
		return
	}
	entries, err := store.ReadTrace(fs.BaseDir(), runID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Trace not found", http.StatusNotFound)
		return
	} else if err != nil {
		slog.Error("Failed to read trace", "run_id", runID, "error", err)
		http.Error(w, "Failed to read trace", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
