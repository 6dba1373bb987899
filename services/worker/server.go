package worker

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dealmungchi/freegameworker/logger"
)

// CommandTokenHeader carries the shared secret for the run command
const CommandTokenHeader = "X-Command-Token"

// Server exposes the persistent-mode command surface over HTTP
type Server struct {
	worker *Worker
	token  string
	addr   string
	// runCtx scopes triggered runs to the server lifetime rather than the request
	runCtx context.Context
}

// NewServer creates a command server. An empty token disables authentication.
func NewServer(addr, token string, w *Worker) *Server {
	return &Server{
		worker: w,
		token:  token,
		addr:   addr,
		runCtx: context.Background(),
	}
}

type commandResponse struct {
	RunID     string   `json:"run_id"`
	Announced int      `json:"announced"`
	New       int      `json:"new"`
	Failed    int      `json:"failed"`
	Shared    bool     `json:"shared,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Message   string   `json:"message"`
}

type healthResponse struct {
	Status  string  `json:"status"`
	LastRun *Result `json:"last_run,omitempty"`
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /freegames", s.handleFreeGames)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleFreeGames(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(CommandTokenHeader)), []byte(s.token)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid command token"})
		return
	}

	logger.ForWorker().Info().Str("remote", r.RemoteAddr).Msg("Run requested")
	result, shared := s.worker.Trigger(s.runCtx)

	writeJSON(w, http.StatusOK, commandResponse{
		RunID:     result.RunID,
		Announced: result.Announced,
		New:       result.New,
		Failed:    result.Failed,
		Shared:    shared,
		Warnings:  result.Warnings,
		Message:   result.Message(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if last, ok := s.worker.LastRun(); ok {
		resp.LastRun = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.runCtx = ctx
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.ForWorker().Info().Str("addr", s.addr).Msg("Command server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ForWorker().Warn().Err(err).Msg("Failed to write response")
	}
}
