package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/serroba/linkshort/internal/container"
	"github.com/serroba/linkshort/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	opts, err := container.LoadForwarderOptions()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector, opts.LogFormat)
	container.MetricsPackage(injector)
	container.ForwarderPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start telemetry forwarder", zap.Error(err))
	}

	metricsServer := do.MustInvoke[*container.MetricsServer](injector)

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("forwarding telemetry",
		zap.String("redis_addr", opts.RedisAddr),
		zap.String("collector_url", opts.CollectorURL),
		zap.String("metrics_addr", opts.MetricsAddr),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	_ = logger.Sync()
}
