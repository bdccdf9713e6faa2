package container

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linkshort/internal/messaging"
	"github.com/serroba/linkshort/internal/metrics"
	"github.com/serroba/linkshort/internal/telemetry"
	"go.uber.org/zap"
)

// ForwarderOptions configures the telemetry forwarder process.
type ForwarderOptions struct {
	RedisAddr        string        `env:"REDIS_ADDR"        envDefault:"localhost:6379"`
	CollectorURL     string        `env:"COLLECTOR_URL"     envDefault:"http://20.244.56.144/evaluation-service/logs"`
	CollectorTimeout time.Duration `env:"COLLECTOR_TIMEOUT" envDefault:"5s"`
	ConsumerGroup    string        `env:"CONSUMER_GROUP"    envDefault:"linkshort-forwarder"`
	LogFormat        string        `env:"LOG_FORMAT"        envDefault:"console"`
	MetricsAddr      string        `env:"METRICS_ADDR"      envDefault:":9091"`
}

// MetricsServer serves the forwarder's Prometheus metrics.
type MetricsServer struct {
	server *http.Server
}

// Handler returns the metrics router.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe serves until Shutdown is called.
func (s *MetricsServer) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown stops the server, waiting briefly for open scrapes.
func (s *MetricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// LoadForwarderOptions reads the forwarder configuration from the environment.
func LoadForwarderOptions() (*ForwarderOptions, error) {
	opts := &ForwarderOptions{}
	if err := env.Parse(opts); err != nil {
		return nil, err
	}

	return opts, nil
}

// ApplyEnvAliases maps plain PORT onto humacli's SERVICE_PORT unless the
// latter is set explicitly.
func ApplyEnvAliases() error {
	port, ok := os.LookupEnv("PORT")
	if !ok || port == "" {
		return nil
	}

	if _, set := os.LookupEnv("SERVICE_PORT"); set {
		return nil
	}

	return os.Setenv("SERVICE_PORT", port)
}

// ForwarderPackage provides a consumer group that reads telemetry events
// from the Redis stream and posts them to the collector.
func ForwarderPackage(injector *do.Injector) {
	opts := do.MustInvoke[*ForwarderOptions](injector)

	do.Provide(injector, func(_ *do.Injector) (*redisClient, error) {
		return newRedisClient(opts.RedisAddr), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		client := do.MustInvoke[*redisClient](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: opts.ConsumerGroup,
		}, messaging.NewLoggerAdapter(logger))
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(telemetry.NewForwardingConsumer(
			subscriber,
			telemetry.NewCollector(opts.CollectorURL, opts.CollectorTimeout),
			logger,
			do.MustInvoke[*metrics.Metrics](i),
		))

		return group, nil
	})

	do.Provide(injector, func(i *do.Injector) (*MetricsServer, error) {
		router := chi.NewMux()
		router.Method(http.MethodGet, "/metrics", do.MustInvoke[*metrics.Metrics](i).Handler())

		return &MetricsServer{server: &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}}, nil
	})
}
