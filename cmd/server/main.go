package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linkshort/internal/container"
	"github.com/serroba/linkshort/internal/messaging"
	"github.com/serroba/linkshort/internal/telemetry"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector, options.LogFormat)
	container.MetricsPackage(injector)
	container.TelemetryPackage(injector)
	container.RegistryPackage(injector)
	container.HTTPPackage(injector)
}

func main() {
	if err := container.ApplyEnvAliases(); err != nil {
		log.Fatalf("apply env aliases: %v", err)
	}

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var (
			server *http.Server
			cancel context.CancelFunc
		)

		hooks.OnStart(func() {
			var ctx context.Context

			ctx, cancel = context.WithCancel(context.Background())

			// The local forwarder is invoked first so it is shut down last.
			// The emitter shuts down before the shared channel is closed and
			// waits until the forwarder has acked every in-flight event.
			if options.InProcessTelemetry() {
				group := do.MustInvoke[*messaging.ConsumerGroup](injector)
				if err := group.Start(ctx); err != nil {
					logger.Fatal("failed to start telemetry forwarder", zap.Error(err))
				}
			}

			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			emitter := do.MustInvoke[*telemetry.Emitter](injector)

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("base_url", options.ShortLinkBase()),
				zap.Bool("in_process_telemetry", options.InProcessTelemetry()),
			)
			emitter.Emit(telemetry.LevelInfo, telemetry.PackageServer,
				fmt.Sprintf("Server is running on port %d", options.Port))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
			defer stop()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			if cancel != nil {
				cancel()
			}

			logger.Info("shutdown complete")
			_ = logger.Sync()
		})
	})

	cli.Run()
}
