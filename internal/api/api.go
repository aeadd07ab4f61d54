// Package api exposes a small operational HTTP surface: health, run
// status, daily counters, and a manual trigger for each cycle.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/engine"
	"github.com/wltan/buskersync/internal/logger"
	"github.com/wltan/buskersync/internal/store"
)

type Server struct {
	httpServer *http.Server
	store      *store.Store
	engine     *engine.Engine
	loc        *time.Location
}

func New(addr string, st *store.Store, eng *engine.Engine, loc *time.Location) *Server {
	s := &Server{store: st, engine: eng, loc: loc}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/scrape", s.handleScrape)
	mux.HandleFunc("/sync", s.handleSync)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the route table. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	logger.Info("status server listening", logger.Fields{"addr": s.httpServer.Addr})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}

	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Checks["redis"] = err.Error()
	} else {
		resp.Checks["redis"] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

type statusResponse struct {
	LastRun      *store.RunMetadata `json:"last_run"`
	Summary      store.Summary      `json:"summary"`
	RecentErrors []store.ErrorEntry `json:"recent_errors"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		LastRun:      s.store.LastRun(r.Context()),
		Summary:      s.store.Summarize(r.Context()),
		RecentErrors: s.store.RecentErrors(r.Context(), 10),
	}
	writeJSON(w, http.StatusOK, resp)
}

type metricsResponse struct {
	Date         string           `json:"date"`
	Counters     map[string]int64 `json:"counters"`
	TimelineSize int64            `json:"timeline_size"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	today := clock.Now(s.loc).Format(clock.DateLayout)
	resp := metricsResponse{
		Date:         today,
		Counters:     s.store.MetricsFor(r.Context(), today),
		TimelineSize: s.store.TimelineSize(r.Context()),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := s.engine.RunScrape(r.Context())
	code := http.StatusOK
	if result.Status == engine.StatusError {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := s.engine.RunSync(r.Context())
	code := http.StatusOK
	if result.Status == engine.StatusError {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("response encode failed", nil, err)
	}
}
