package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewd/internal/config"
	"reviewd/internal/store"
	"reviewd/internal/stream"
)

const cannedReview = `## SECURITY ANALYSIS
No injection risks found.

## PERFORMANCE ANALYSIS
Linear time throughout.

## READABILITY ANALYSIS
Names are clear.

## COMPREHENSIVE SUMMARY
Overall Code Quality Score: 9/10`

type fakeAgent struct {
	text  string
	err   error
	calls int
}

func (f *fakeAgent) Review(ctx context.Context, code string) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeAgent) Model() string { return "test-model" }

type fakeStore struct {
	saved  []*store.Review
	cached *store.Review
	rows   []store.SummaryRow
}

func (f *fakeStore) Save(ctx context.Context, r *store.Review) error {
	r.ID = "saved-id"
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeStore) FindByHash(ctx context.Context, codeSHA string, maxAge time.Duration) (*store.Review, error) {
	return f.cached, nil
}

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]store.SummaryRow, error) {
	return f.rows, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ChunkDelay = "1ms"
	require.NoError(t, cfg.Normalize())
	return cfg
}

func newTestAPI(t *testing.T, agent Agent, st ReviewStore, cfg *config.Config) *API {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}
	return NewAPI(agent, st, cfg, slog.New(slog.DiscardHandler))
}

func postReview(t *testing.T, handler http.Handler, code string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"code": {code}}
	req := httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeFrames(t *testing.T, body string) []stream.Frame {
	t.Helper()
	var frames []stream.Frame
	for _, part := range strings.Split(body, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		require.True(t, strings.HasPrefix(part, "data: "), "unexpected SSE line: %q", part)
		var f stream.Frame
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(part, "data: ")), &f))
		frames = append(frames, f)
	}
	return frames
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, &fakeAgent{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Code Review Assistant", body["service"])
	assert.Equal(t, "test-model", body["model"])
}

func TestIndex(t *testing.T) {
	api := newTestAPI(t, &fakeAgent{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Code Review Assistant")

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewStreamsFourSections(t *testing.T) {
	agent := &fakeAgent{text: cannedReview}
	st := &fakeStore{}
	api := newTestAPI(t, agent, st, nil)

	rec := postReview(t, api.Handler(), "print('hi')")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	frames := decodeFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)

	// Terminal frame and monotonic sequence numbers.
	assert.Equal(t, stream.EventComplete, frames[len(frames)-1].Type)
	for i, f := range frames {
		assert.Equal(t, i, f.Seq)
	}

	// All four sections open and close, in order.
	var startOrder []string
	for _, f := range frames {
		if f.Type == stream.EventSectionStart {
			startOrder = append(startOrder, f.Section)
		}
	}
	assert.Equal(t, []string{"security", "performance", "readability", "summary"}, startOrder)

	// Content made it through intact.
	var security string
	for _, f := range frames {
		if f.Type == stream.EventContent && f.Section == "security" {
			security += f.Content
		}
	}
	assert.Equal(t, "No injection risks found.", security)

	// The review was persisted.
	require.Len(t, st.saved, 1)
	assert.Equal(t, "test-model", st.saved[0].Model)
	assert.Equal(t, store.HashCode("print('hi')"), st.saved[0].CodeSHA)
}

func TestReviewEmptyCode(t *testing.T) {
	api := newTestAPI(t, &fakeAgent{}, nil, nil)

	rec := postReview(t, api.Handler(), "   ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "code is required")
}

func TestReviewMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t, &fakeAgent{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/review", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReviewAgentErrorBecomesErrorFrame(t *testing.T) {
	agent := &fakeAgent{err: errors.New("model unavailable")}
	api := newTestAPI(t, agent, nil, nil)

	rec := postReview(t, api.Handler(), "x = 1")
	require.Equal(t, http.StatusOK, rec.Code, "stream already started; error rides the stream")

	frames := decodeFrames(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, stream.EventError, frames[0].Type)
	assert.Contains(t, frames[0].Message, "model unavailable")
}

func TestReviewServedFromCache(t *testing.T) {
	agent := &fakeAgent{text: cannedReview}
	cached := &store.Review{ID: "cached-id", Security: "cached security body"}
	cfg := testConfig(t)
	cfg.CacheTTL = "1h"
	require.NoError(t, cfg.Normalize())
	api := newTestAPI(t, agent, &fakeStore{cached: cached}, cfg)

	rec := postReview(t, api.Handler(), "cached code")
	frames := decodeFrames(t, rec.Body.String())

	assert.Zero(t, agent.calls, "cache hit never calls the model")
	assert.Equal(t, stream.EventComplete, frames[len(frames)-1].Type)

	var security string
	for _, f := range frames {
		if f.Type == stream.EventContent && f.Section == "security" {
			security += f.Content
		}
	}
	assert.Equal(t, "cached security body", security)
}

func TestReviewsListing(t *testing.T) {
	st := &fakeStore{rows: []store.SummaryRow{{ID: "r1", Model: "m", Sections: 4}}}
	api := newTestAPI(t, &fakeAgent{}, st, nil)

	req := httptest.NewRequest(http.MethodGet, "/reviews?limit=5", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r1"`)

	req = httptest.NewRequest(http.MethodGet, "/reviews?limit=zero", nil)
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewsWithoutStore(t *testing.T) {
	api := newTestAPI(t, &fakeAgent{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	api := newTestAPI(t, &fakeAgent{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	require.NoError(t, cfg.Normalize())
	api := newTestAPI(t, &fakeAgent{}, nil, cfg)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client has its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
