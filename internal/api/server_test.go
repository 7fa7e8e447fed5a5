package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailcourier/internal/config"
)

// stubProbe reports a fixed health result.
type stubProbe struct {
	name string
	err  error
}

func (p *stubProbe) Name() string                    { return p.name }
func (p *stubProbe) Check(ctx context.Context) error { return p.err }

func newTestServer(t *testing.T, probes ...HealthProbe) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(&config.Config{}, logger)
	require.NoError(t, err)
	srv.HealthProbes = probes
	srv.MountRoutes(NewEmailHandler(&fakeReader{}, &fakeSweeper{}, logger))
	return srv
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewServer(nil, logger)
	assert.Error(t, err)

	_, err = NewServer(&config.Config{}, nil)
	assert.Error(t, err)
}

func TestHandleHealth_AllProbesHealthy(t *testing.T) {
	srv := newTestServer(t, &stubProbe{name: "database"})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["database"].Status)
}

func TestHandleHealth_FailingProbeReturns503(t *testing.T) {
	srv := newTestServer(t,
		&stubProbe{name: "database", err: errors.New("connection refused")},
		&stubProbe{name: "queue"},
	)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["database"].Status)
	assert.Contains(t, resp.Components["database"].Message, "connection refused")
	assert.Equal(t, "healthy", resp.Components["queue"].Status)
}

func TestHandleHealth_NoProbes(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDMiddleware_PropagatesHeader(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/emails/stats", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/v1/emails/stats")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRecoverer_PanicReturns500(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error.Code)
}
