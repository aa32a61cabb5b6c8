package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trabamex/mir-bff-go/internal/infra/observability"
)

func loggedRouter(level zapcore.Level) (http.Handler, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	r := chi.NewRouter()
	r.Use(observability.ZapLoggerMiddleware(zap.New(core)))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/broken/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(r chi.Router) {
		r.Get("/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
			observability.SetUserID(r.Context(), "user-42")
			w.WriteHeader(http.StatusNotFound)
		})
		r.Get("/plans", func(w http.ResponseWriter, r *http.Request) {})
	})
	return r, logs
}

func serve(h http.Handler, path string) {
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestZapLoggerMiddleware_RouteAndUser(t *testing.T) {
	h, logs := loggedRouter(zapcore.InfoLevel)
	serve(h, "/v1/orders/6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)

	fields := e.ContextMap()
	assert.Equal(t, "/v1/orders/{orderId}", fields["route"])
	assert.Equal(t, "/v1/orders/6ba7b810-9dad-11d1-80b4-00c04fd430c8", fields["path"])
	assert.Equal(t, "user-42", fields["user_id"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
}

func TestZapLoggerMiddleware_AnonymousOmitsUser(t *testing.T) {
	h, logs := loggedRouter(zapcore.InfoLevel)
	serve(h, "/v1/plans")

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, e.Level)
	assert.EqualValues(t, http.StatusOK, e.ContextMap()["status"])
	_, hasUser := e.ContextMap()["user_id"]
	assert.False(t, hasUser)
}

func TestZapLoggerMiddleware_QuietsHealthChecks(t *testing.T) {
	h, logs := loggedRouter(zapcore.InfoLevel)
	serve(h, "/healthz")
	serve(h, "/ping")

	// /ping is unmatched here and answers 404, which is still logged
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/ping", logs.All()[0].ContextMap()["path"])
	assert.Equal(t, "unmatched", logs.All()[0].ContextMap()["route"])

	serve(h, "/broken/healthz")
	assert.Equal(t, 2, logs.Len(), "only exact health paths are quiet")

	debug, debugLogs := loggedRouter(zapcore.DebugLevel)
	serve(debug, "/healthz")
	require.Equal(t, 1, debugLogs.Len())
	assert.Equal(t, zapcore.DebugLevel, debugLogs.All()[0].Level)
}

func TestNewLogger_Levels(t *testing.T) {
	assert.True(t, observability.NewLogger("debug").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, observability.NewLogger("info").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, observability.NewLogger("WARN").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, observability.NewLogger("nonsense").Core().Enabled(zapcore.InfoLevel))
}
