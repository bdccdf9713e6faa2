package container

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/linkshort/internal/handlers"
	"github.com/serroba/linkshort/internal/health"
	"github.com/serroba/linkshort/internal/messaging"
	"github.com/serroba/linkshort/internal/metrics"
	"github.com/serroba/linkshort/internal/middleware"
	"github.com/serroba/linkshort/internal/shortener"
	"github.com/serroba/linkshort/internal/store"
	"github.com/serroba/linkshort/internal/telemetry"
	"go.uber.org/zap"
)

// Options configures the server. humacli maps each field to a flag and to a
// SERVICE_* environment variable.
type Options struct {
	Port            int    `default:"3000"                                         help:"Port to listen on"                                             short:"p"`
	BaseURL         string `default:""                                             help:"Base address of short links (default http://localhost:<port>)"`
	CodeLength      int    `default:"6"                                            help:"Length of generated short codes"                               short:"c"`
	DefaultValidity int    `default:"30"                                           help:"Validity of short links in minutes when not requested"`
	MaxAttempts     int    `default:"10"                                           help:"Code generation attempts before giving up"`
	CollectorURL    string `default:"http://20.244.56.144/evaluation-service/logs" help:"Log collector endpoint"`
	RedisAddr       string `default:""                                             help:"Redis address for the telemetry stream; empty keeps telemetry in-process" short:"r"`
	MaxInFlight     int    `default:"256"                                          help:"Maximum concurrent telemetry deliveries"`
	LogFormat       string `default:"console"                                      help:"Log format: console or json"`
}

// ShortLinkBase returns the base address embedded in short links.
func (o *Options) ShortLinkBase() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// InProcessTelemetry reports whether telemetry stays inside the server.
func (o *Options) InProcessTelemetry() bool {
	return o.RedisAddr == ""
}

// redisClient lets the injector close the client on shutdown.
type redisClient struct {
	*redis.Client
}

func (c *redisClient) Shutdown() error {
	return c.Close()
}

func newRedisClient(addr string) *redisClient {
	return &redisClient{Client: redis.NewClient(&redis.Options{Addr: addr})}
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector, format string) {
	do.Provide(injector, func(_ *do.Injector) (*zap.Logger, error) {
		return NewLogger(format)
	})
}

// NewLogger builds a zap logger; "json" selects the production encoder.
func NewLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}

// MetricsPackage provides the Prometheus metrics.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// TelemetryPackage provides the telemetry emitter and its transport: an
// in-process channel with a local forwarder, or a Redis stream read by the
// separate forwarder process.
func TelemetryPackage(injector *do.Injector) {
	opts := do.MustInvoke[*Options](injector)

	if opts.InProcessTelemetry() {
		do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
			logger := do.MustInvoke[*zap.Logger](i)

			// Publish waits for the forwarder's ack, so an emitter slot stays
			// taken until the collector has answered.
			return gochannel.NewGoChannel(gochannel.Config{
				OutputChannelBuffer:            int64(opts.MaxInFlight),
				BlockPublishUntilSubscriberAck: true,
			}, messaging.NewLoggerAdapter(logger)), nil
		})

		do.Provide(injector, func(i *do.Injector) (message.Publisher, error) {
			return do.MustInvoke[*gochannel.GoChannel](i), nil
		})

		do.Provide(injector, func(_ *do.Injector) (health.Checker, error) {
			return health.InProcessChecker{}, nil
		})

		do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
			logger := do.MustInvoke[*zap.Logger](i)
			m := do.MustInvoke[*metrics.Metrics](i)
			pubSub := do.MustInvoke[*gochannel.GoChannel](i)

			group := messaging.NewConsumerGroup(pubSub, logger)
			group.Add(telemetry.NewForwardingConsumer(
				pubSub,
				telemetry.NewCollector(opts.CollectorURL, telemetry.DefaultCollectorTimeout),
				logger,
				m,
			))

			return group, nil
		})
	} else {
		do.Provide(injector, func(_ *do.Injector) (*redisClient, error) {
			return newRedisClient(opts.RedisAddr), nil
		})

		do.Provide(injector, func(i *do.Injector) (message.Publisher, error) {
			client := do.MustInvoke[*redisClient](i)
			logger := do.MustInvoke[*zap.Logger](i)

			return redisstream.NewPublisher(redisstream.PublisherConfig{
				Client:     client.Client,
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			}, messaging.NewLoggerAdapter(logger))
		})

		do.Provide(injector, func(i *do.Injector) (health.Checker, error) {
			return health.NewRedisChecker(do.MustInvoke[*redisClient](i).Client), nil
		})
	}

	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		return messaging.NewPublisherGroup(do.MustInvoke[message.Publisher](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*telemetry.Emitter, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return telemetry.NewEmitter(
			telemetry.StackBackend,
			messaging.NewPublishFunc[telemetry.Event](group.Publisher(), telemetry.TopicLogs),
			opts.MaxInFlight,
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*metrics.Metrics](i),
		), nil
	})
}

// RegistryPackage provides the link store and service.
func RegistryPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*store.MemoryStore, error) {
		return store.NewMemoryStore(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		generator, err := shortener.NewCodeGenerator(opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("code generator: %w", err)
		}

		return shortener.NewService(
			do.MustInvoke[*store.MemoryStore](i),
			generator,
			do.MustInvoke[*telemetry.Emitter](i),
			do.MustInvoke[*metrics.Metrics](i),
			shortener.Config{
				BaseURL:         opts.ShortLinkBase(),
				DefaultValidity: time.Duration(opts.DefaultValidity) * time.Minute,
				MaxAttempts:     opts.MaxAttempts,
			},
		), nil
	})
}

// HTTPPackage provides the router and the huma API with all routes registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(middleware.RequestTelemetry(
			do.MustInvoke[*telemetry.Emitter](i),
			do.MustInvoke[*zap.Logger](i),
		))
		router.Method(http.MethodGet, "/metrics", do.MustInvoke[*metrics.Metrics](i).Handler())

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		api := humachi.New(router, huma.DefaultConfig("Link Shortener", "1.0.0"))

		emitter := do.MustInvoke[*telemetry.Emitter](i)
		logger := do.MustInvoke[*zap.Logger](i)

		handlers.RegisterRoutes(api, handlers.NewLinkHandler(
			do.MustInvoke[*shortener.Service](i),
			emitter,
			logger,
		))
		health.RegisterRoutes(api, health.NewHandler(
			do.MustInvoke[health.Checker](i),
			do.MustInvoke[*store.MemoryStore](i),
		))

		return api, nil
	})
}
