package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"txproxy/internal/app"
	"txproxy/internal/config"
	"txproxy/internal/core/apperror"
	"txproxy/internal/infrastructure/http/v1/middleware"
	"txproxy/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Healthy(context.Context) error { return s.err }

func newTestRouter(t *testing.T, db stubPinger) (http.Handler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := RouterConfig{
		Runner:      app.NewRunner(config.Defaults(), nil),
		ManagerName: "local",
		Logger:      logger.NewWithCore(core),
	}
	if db != (stubPinger{}) {
		cfg.Database = db
	}
	return NewRouter(cfg), logs
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(middleware.HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRouter_RunScenario(t *testing.T) {
	h, logs := newTestRouter(t, stubPinger{})

	rec, body := do(t, h, http.MethodPost, "/api/v1/scenarios/self-invocation/run")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderTraceID))

	assert.Equal(t, "self-invocation", body["scenario"])
	assert.Equal(t, false, body["active_after"])
	obs := body["observations"].([]any)
	require.Len(t, obs, 2)
	assert.Equal(t, "Internal", obs[1].(map[string]any)["method"])
	assert.Equal(t, false, obs[1].(map[string]any)["tx_active"])

	// the request logger reaches the service bodies
	txInfo := logs.FilterMessage("tx info").All()
	require.Len(t, txInfo, 2)
	assert.Equal(t, "req-42", txInfo[0].ContextMap()["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("http request").Len())
}

func TestRouter_DelegationScenario(t *testing.T) {
	h, _ := newTestRouter(t, stubPinger{})

	rec, body := do(t, h, http.MethodPost, "/api/v1/scenarios/delegation/run")
	require.Equal(t, http.StatusOK, rec.Code)
	obs := body["observations"].([]any)
	require.Len(t, obs, 2)
	assert.Equal(t, true, obs[1].(map[string]any)["tx_active"])
}

func TestRouter_UnknownScenario(t *testing.T) {
	h, _ := newTestRouter(t, stubPinger{})

	rec, body := do(t, h, http.MethodPost, "/api/v1/scenarios/nope/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])
}

func TestRouter_ListScenarios(t *testing.T) {
	h, _ := newTestRouter(t, stubPinger{})

	rec, body := do(t, h, http.MethodGet, "/api/v1/scenarios")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["scenarios"], len(app.Scenarios()))
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t, stubPinger{})
	rec, body := do(t, h, http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	h, _ = newTestRouter(t, stubPinger{err: errors.New("down")})
	rec, body = do(t, h, http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", body["status"])

	rec, _ = do(t, h, http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}
