package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"interviewer/internal/config"
	srt "interviewer/internal/utils/sort"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func buildApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.controller.Shutdown(ctx)
		a.close()
	})
	return a
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	cfg := loadConfig(t)
	a := buildApp(t, cfg)
	r := newRouter(cfg, a, zaptest.NewLogger(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/candidates", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"candidates":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "interviewer_http_requests_total")
}

func TestBuildWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t)
	cfg.Store.Driver = "redis"
	cfg.Redis.Address = mr.Addr()

	a := buildApp(t, cfg)
	list, err := a.controller.ListCandidates(context.Background(), srt.Query{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBuildFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadConfig(t)
	cfg.Store.Driver = "redis"
	cfg.Redis.Address = addr

	_, err := build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
