package container_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linkshort/internal/container"
	"github.com/serroba/linkshort/internal/messaging"
	"github.com/serroba/linkshort/internal/metrics"
	"github.com/serroba/linkshort/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptions_ShortLinkBase(t *testing.T) {
	t.Run("derives base from port", func(t *testing.T) {
		opts := &container.Options{Port: 3000}

		assert.Equal(t, "http://localhost:3000", opts.ShortLinkBase())
	})

	t.Run("prefers explicit base url", func(t *testing.T) {
		opts := &container.Options{Port: 3000, BaseURL: "https://sho.rt"}

		assert.Equal(t, "https://sho.rt", opts.ShortLinkBase())
	})
}

func TestApplyEnvAliases(t *testing.T) {
	t.Run("copies PORT to SERVICE_PORT", func(t *testing.T) {
		t.Setenv("PORT", "4000")
		t.Setenv("SERVICE_PORT", "")
		require.NoError(t, os.Unsetenv("SERVICE_PORT"))

		require.NoError(t, container.ApplyEnvAliases())

		assert.Equal(t, "4000", os.Getenv("SERVICE_PORT"))
	})

	t.Run("keeps explicit SERVICE_PORT", func(t *testing.T) {
		t.Setenv("PORT", "4000")
		t.Setenv("SERVICE_PORT", "5000")

		require.NoError(t, container.ApplyEnvAliases())

		assert.Equal(t, "5000", os.Getenv("SERVICE_PORT"))
	})
}

func TestLoadForwarderOptions(t *testing.T) {
	t.Run("uses defaults", func(t *testing.T) {
		opts, err := container.LoadForwarderOptions()

		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, opts.CollectorTimeout)
		assert.Equal(t, "linkshort-forwarder", opts.ConsumerGroup)
		assert.Equal(t, ":9091", opts.MetricsAddr)
	})

	t.Run("reads environment", func(t *testing.T) {
		t.Setenv("COLLECTOR_URL", "http://collector.local/logs")
		t.Setenv("COLLECTOR_TIMEOUT", "250ms")

		opts, err := container.LoadForwarderOptions()

		require.NoError(t, err)
		assert.Equal(t, "http://collector.local/logs", opts.CollectorURL)
		assert.Equal(t, 250*time.Millisecond, opts.CollectorTimeout)
	})
}

func TestServerWiring_InProcess(t *testing.T) {
	collected := make(chan map[string]string, 16)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		collected <- body

		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	opts := &container.Options{
		Port:            3000,
		CodeLength:      6,
		DefaultValidity: 30,
		MaxAttempts:     10,
		CollectorURL:    collector.URL,
		MaxInFlight:     16,
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	do.ProvideValue(injector, zap.NewNop())
	container.MetricsPackage(injector)
	container.TelemetryPackage(injector)
	container.RegistryPackage(injector)
	container.HTTPPackage(injector)

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)
	require.NoError(t, group.Start(t.Context()))

	router := do.MustInvoke[*chi.Mux](injector)
	_ = do.MustInvoke[huma.API](injector)

	req := httptest.NewRequest(http.MethodPost, "/shorturls", strings.NewReader(`{"url":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "http://localhost:3000/shorturls/")

	messages := map[string]bool{}

	for len(messages) < 2 {
		select {
		case body := <-collected:
			messages[body["message"]] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for telemetry, got %v", messages)
		}
	}

	assert.True(t, messages["Incoming request: POST /shorturls"])

	metricsResp := httptest.NewRecorder()
	router.ServeHTTP(metricsResp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsResp.Body.String(), "linkshort_links_created_total 1")

	healthResp := httptest.NewRecorder()
	router.ServeHTTP(healthResp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, healthResp.Body.String(), `"links":1`)

	require.NoError(t, injector.Shutdown())
}

func newInProcessTelemetry(t *testing.T, collectorURL string, maxInFlight int) *do.Injector {
	t.Helper()

	injector := do.New()
	do.ProvideValue(injector, &container.Options{
		CollectorURL: collectorURL,
		MaxInFlight:  maxInFlight,
	})
	do.ProvideValue(injector, zap.NewNop())
	container.MetricsPackage(injector)
	container.TelemetryPackage(injector)

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)
	require.NoError(t, group.Start(t.Context()))

	return injector
}

func telemetryCount(t *testing.T, m *metrics.Metrics, outcome string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "linkshort_telemetry_events_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}

func TestTelemetry_InProcessBound(t *testing.T) {
	release := make(chan struct{})
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-release:
		case <-time.After(200 * time.Millisecond):
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	injector := newInProcessTelemetry(t, collector.URL, 4)
	emitter := do.MustInvoke[*telemetry.Emitter](injector)
	m := do.MustInvoke[*metrics.Metrics](injector)

	before := runtime.NumGoroutine()

	for i := range 200 {
		emitter.Emit(telemetry.LevelInfo, telemetry.PackageService, fmt.Sprintf("event %d", i))
	}

	assert.Less(t, runtime.NumGoroutine()-before, 50, "goroutines must stay bounded by the in-flight limit")
	assert.GreaterOrEqual(t, telemetryCount(t, m, metrics.TelemetryDropped), 150.0)

	close(release)
	require.NoError(t, injector.Shutdown())
	assert.LessOrEqual(t, telemetryCount(t, m, metrics.TelemetryDelivered), 50.0)
}

func TestTelemetry_InProcessShutdownDelivers(t *testing.T) {
	collected := make(chan string, 16)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		time.Sleep(10 * time.Millisecond)
		collected <- body["message"]

		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	injector := newInProcessTelemetry(t, collector.URL, 16)
	emitter := do.MustInvoke[*telemetry.Emitter](injector)

	for i := range 10 {
		emitter.Emit(telemetry.LevelInfo, telemetry.PackageServer, fmt.Sprintf("event %d", i))
	}

	require.NoError(t, injector.Shutdown())

	assert.Len(t, collected, 10, "every accepted event reaches the collector before shutdown returns")
}

func TestForwarderPackage_MetricsServer(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, &container.ForwarderOptions{
		RedisAddr:     "localhost:6379",
		ConsumerGroup: "linkshort-forwarder",
		MetricsAddr:   ":0",
	})
	do.ProvideValue(injector, zap.NewNop())
	container.MetricsPackage(injector)
	container.ForwarderPackage(injector)

	m := do.MustInvoke[*metrics.Metrics](injector)
	m.TelemetryEvent(metrics.TelemetryDelivered)

	server := do.MustInvoke[*container.MetricsServer](injector)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `linkshort_telemetry_events_total{outcome="delivered"} 1`)

	require.NoError(t, injector.Shutdown())
}
