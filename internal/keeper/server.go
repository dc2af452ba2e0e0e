package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// tickRunner is the slice of Service the HTTP trigger needs.
type tickRunner interface {
	Tick(ctx context.Context) (TickReport, error)
}

// Server exposes the keeper over HTTP: a bearer-token protected cron trigger
// for deployments driven by an external scheduler, plus health and metrics.
type Server struct {
	service tickRunner
	tokens  []string
	logger  *slog.Logger
	http    *http.Server

	// serializes externally triggered ticks against each other
	tickMu sync.Mutex
}

func NewServer(service tickRunner, listenAddr string, tokens []string, logger *slog.Logger) *Server {
	s := &Server{
		service: service,
		tokens:  tokens,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/cron/tick", s.handleTick)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 6 * time.Minute, // must outlast a full tick deadline
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	s.logger.Info("keeper http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	report, err := s.service.Tick(r.Context())
	if err != nil {
		s.logger.Error("triggered tick failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"report":  report,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// authorized checks the bearer token. With no tokens configured the trigger
// is open; that matches running without an external scheduler in dev.
func (s *Server) authorized(r *http.Request) bool {
	if len(s.tokens) == 0 {
		return true
	}
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	raw = strings.TrimSpace(raw)
	for _, token := range s.tokens {
		if raw == token {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
