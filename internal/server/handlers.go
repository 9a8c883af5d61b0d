package server

import (
	"context"
	_ "embed"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reviewd/internal/review"
	"reviewd/internal/store"
	"reviewd/internal/stream"
)

//go:embed index.html
var indexHTML []byte

// saveTimeout bounds the best-effort persistence after a stream ends.
const saveTimeout = 5 * time.Second

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Code Review Assistant",
		"model":   a.agent.Model(),
	})
}

func (a *API) handleReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "review history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := a.store.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error("failed to list reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list reviews")
		return
	}
	if rows == nil {
		rows = []store.SummaryRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": rows})
}

// handleReview runs a review and streams it back as server-sent events.
// Errors that occur before the stream starts are plain JSON; once
// streaming has begun they become error frames on the stream.
func (a *API) handleReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	code := r.FormValue("code")
	if strings.TrimSpace(code) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	emitter := stream.NewEmitter(w, a.streamOptions(flusher.Flush))
	ctx := r.Context()
	sha := store.HashCode(code)

	// Replay a recent review of identical code without a model call.
	if cached := a.cachedReview(ctx, sha); cached != nil {
		a.logger.Info("serving cached review", "code_sha", sha, "review_id", cached.ID)
		if err := emitter.StreamSections(ctx, cached.Sections()); err != nil {
			a.logger.Warn("stream aborted", "error", err)
		}
		return
	}

	start := time.Now()
	text, err := a.agent.Review(ctx, code)
	if err != nil {
		a.logger.Error("review failed", "code_sha", sha, "error", err)
		_ = emitter.Error(err)
		return
	}

	result := review.Parse(text)
	if len(result.Missing) > 0 {
		a.logger.Warn("review is missing sections",
			"code_sha", sha, "missing", result.Missing)
	}

	if err := emitter.StreamSections(ctx, result); err != nil {
		a.logger.Warn("stream aborted", "error", err)
		return
	}

	a.saveReview(sha, result, time.Since(start))
}

func (a *API) cachedReview(ctx context.Context, sha string) *store.Review {
	if a.store == nil {
		return nil
	}
	ttl := a.cfg.CacheTTLDuration()
	if ttl <= 0 {
		return nil
	}
	cached, err := a.store.FindByHash(ctx, sha, ttl)
	if err != nil {
		a.logger.Warn("cache lookup failed", "code_sha", sha, "error", err)
		return nil
	}
	return cached
}

// saveReview persists a completed review. Best effort: the stream has
// already been delivered, so failures only log. Uses a background
// context because the request context is often canceled by now.
func (a *API) saveReview(sha string, result review.Result, took time.Duration) {
	if a.store == nil {
		return
	}

	rec := &store.Review{
		Model:      a.agent.Model(),
		CodeSHA:    sha,
		DurationMS: took.Milliseconds(),
	}
	rec.SetSections(result)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.store.Save(ctx, rec); err != nil {
		a.logger.Warn("failed to save review", "code_sha", sha, "error", err)
		return
	}
	a.logger.Info("review saved", "review_id", rec.ID, "code_sha", sha,
		"duration_ms", rec.DurationMS)
}
