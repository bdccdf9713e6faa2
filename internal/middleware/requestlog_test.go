package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/serroba/linkshort/internal/middleware"
	"github.com/serroba/linkshort/internal/telemetry"
	"github.com/serroba/linkshort/internal/telemetry/telemetrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupRouter(t *testing.T, recorder *telemetrytest.Recorder, logger *zap.Logger) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	router.Use(middleware.RequestTelemetry(recorder, logger))
	router.Get("/shorturls/{shortcode}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return router
}

func TestRequestTelemetry(t *testing.T) {
	t.Run("emits incoming request event", func(t *testing.T) {
		recorder := &telemetrytest.Recorder{}
		router := setupRouter(t, recorder, zap.NewNop())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shorturls/abc123?ref=mail", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, recorder.Events(), 1)
		assert.Equal(t, telemetry.Event{
			Stack:   telemetry.StackBackend,
			Level:   telemetry.LevelInfo,
			Package: telemetry.PackageMiddleware,
			Message: "Incoming request: GET /shorturls/abc123?ref=mail",
		}, recorder.Last())
	})

	t.Run("emits for unrouted requests too", func(t *testing.T) {
		recorder := &telemetrytest.Recorder{}
		router := setupRouter(t, recorder, zap.NewNop())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/nowhere", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Incoming request: DELETE /nowhere", recorder.Last().Message)
	})

	t.Run("logs first IP from X-Forwarded-For", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		router := setupRouter(t, &telemetrytest.Recorder{}, zap.New(core))

		req := httptest.NewRequest(http.MethodGet, "/shorturls/abc123", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1, 172.16.0.1")
		router.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "192.168.1.1", logs.All()[0].ContextMap()["client_ip"])
	})

	t.Run("logs X-Real-IP when no forwarded chain", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		router := setupRouter(t, &telemetrytest.Recorder{}, zap.New(core))

		req := httptest.NewRequest(http.MethodGet, "/shorturls/abc123", nil)
		req.Header.Set("X-Real-IP", "10.1.1.1")
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "10.1.1.1", logs.All()[0].ContextMap()["client_ip"])
	})

	t.Run("falls back to remote address", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		router := setupRouter(t, &telemetrytest.Recorder{}, zap.New(core))

		req := httptest.NewRequest(http.MethodGet, "/shorturls/abc123", nil)
		req.RemoteAddr = "203.0.113.9:51234"
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "203.0.113.9", logs.All()[0].ContextMap()["client_ip"])
	})
}
