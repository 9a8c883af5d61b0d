// Package server exposes the code review agent over HTTP: an embedded
// single-page UI, a streaming POST /review endpoint, a health check,
// and a listing of recent reviews.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"reviewd/internal/config"
	"reviewd/internal/store"
	"reviewd/internal/stream"
)

// Agent produces a full review text for a code snippet.
type Agent interface {
	Review(ctx context.Context, code string) (string, error)
	Model() string
}

// ReviewStore persists completed reviews and serves the content-hash
// cache. A nil store disables both.
type ReviewStore interface {
	Save(ctx context.Context, r *store.Review) error
	FindByHash(ctx context.Context, codeSHA string, maxAge time.Duration) (*store.Review, error)
	Recent(ctx context.Context, limit int) ([]store.SummaryRow, error)
}

// API holds the handlers and their dependencies.
type API struct {
	agent   Agent
	store   ReviewStore
	cfg     *config.Config
	logger  *slog.Logger
	limiter *ipLimiter
}

// NewAPI wires the handlers. store may be nil.
func NewAPI(agent Agent, st ReviewStore, cfg *config.Config, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		agent:  agent,
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.RateLimitRPS > 0 {
		a.limiter = newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return a
}

// Handler returns the full middleware-wrapped handler.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleIndex)
	mux.HandleFunc("/review", a.handleReview)
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/reviews", a.handleReviews)

	var h http.Handler = mux
	h = a.rateLimitMiddleware(h)
	h = a.logMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *API) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	a.logger.Info("server listening", "addr", addr, "model", a.agent.Model())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		a.logger.Info("server stopped")
		return nil
	case err := <-errs:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// streamOptions builds the emitter options from config.
func (a *API) streamOptions(flush func()) stream.Options {
	return stream.Options{
		ChunkSize: a.cfg.ChunkSize,
		Delay:     a.cfg.ChunkDelayDuration(),
		Flush:     flush,
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errStr, message string) {
	writeJSON(w, status, apiError{Error: errStr, Message: message, Code: status})
}
