// Package server exposes the runner over HTTP: event submission, run
// inspection, and attestation lookup.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/op/go-logging"

	"chainci/internal/core"
	"chainci/internal/ledger"
	"chainci/internal/storage"
)

var lg = logging.MustGetLogger("chainci")

type Server struct {
	runner *core.Runner
}

func New(runner *core.Runner) *Server {
	return &Server{runner: runner}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ping", s.handlePing)
	r.Post("/events", s.handleSubmitEvent)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{runID}", s.handleGetRun)
	r.Get("/runs/{runID}/steps", s.handleListSteps)
	r.Get("/ledger/verify", s.handleVerifyLedger)
	r.Get("/attest/{address}", s.handleResolveAttestation)

	return r
}

// ListenAndServe runs the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	lg.Infof("listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("."))
}

// handleSubmitEvent starts a run for a matching repository event. The
// run executes in the background; the response carries its id.
func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var ev core.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	runID, err := s.runner.StartRun(ev)
	if errors.Is(err, core.ErrNoMatch) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go func() {
		if err := s.runner.ExecuteRun(context.Background(), runID); err != nil {
			lg.Errorf("run %s: %v", runID, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     runID,
		"status": storage.StatusPending,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runner.Store.ListRuns()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Store.GetRun(chi.URLParam(r, "runID"))
	if errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.runner.Store.GetRun(runID); errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	steps, err := s.runner.Store.ListSteps(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if steps == nil {
		steps = []storage.StepResult{}
	}
	respondJSON(w, http.StatusOK, steps)
}

func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Ledger.Verify(); err != nil {
		http.Error(w, "ledger verification failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"entries": s.runner.Ledger.Len(),
	})
}

func (s *Server) handleResolveAttestation(w http.ResponseWriter, r *http.Request) {
	entry, err := s.runner.Ledger.Resolve(chi.URLParam(r, "address"))
	if errors.Is(err, ledger.ErrNotFound) {
		http.Error(w, "attestation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lg.Errorf("encode response: %v", err)
	}
}
