// Package health is the ambient liveness/readiness HTTP surface (§4.8).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type statusResponse struct {
	Status string `json:"status"`
}

func writeStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{Status: status})
}

// Healthz always reports ok once the process is up; it does not probe
// dependencies.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, "ok")
}

// Ready reports ready once the listener and persistence gateway have both
// started; wired through readyFunc by the caller (§4.8).
func Ready(readyFunc func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !readyFunc() {
			w.WriteHeader(http.StatusServiceUnavailable)
			writeStatus(w, "starting")
			return
		}
		writeStatus(w, "ready")
	}
}

// Server is the minimal chi-routed HTTP server exposing /healthz and
// /readyz, mirroring the teacher's own health.go handlers.
type Server struct {
	httpServer *http.Server
}

func NewServer(addr string, readyFunc func() bool) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", Healthz)
	r.Get("/readyz", Ready(readyFunc))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
