package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labwise-dev/labwise-go/internal/execution/drive"
	"github.com/labwise-dev/labwise-go/internal/execution/graph"
	"github.com/labwise-dev/labwise-go/internal/experiment"
	"github.com/labwise-dev/labwise-go/internal/logserver"
	"github.com/labwise-dev/labwise-go/internal/operator"
	"github.com/labwise-dev/labwise-go/internal/platform/env"
	"github.com/labwise-dev/labwise-go/internal/platform/httpserver"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("LABWISE_HTTP_ADDR", ":8000")
	shutdownTimeout, err := env.Duration("LABWISE_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	logServerURL := env.String("LABWISE_LOG_SERVER_URL", "http://log_server:8000")
	workers, err := env.Int("LABWISE_EXECUTOR_WORKERS", 1)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	workMin, err := env.Duration("LABWISE_WORK_DURATION_MIN", 1*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	workMax, err := env.Duration("LABWISE_WORK_DURATION_MAX", 3*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	storeCfg, err := storage.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid storage config", "error", err)
		os.Exit(2)
	}
	store, err := storage.New(storeCfg)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(2)
	}
	if minioStore, ok := store.(*storage.MinioWriter); ok {
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := minioStore.EnsureBucket(startupCtx, storeCfg.Region); err != nil {
			cancel()
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
		cancel()
	}
	logger.Info("storage initialized", "mode", store.Mode())

	logClient, err := logserver.NewHTTPClient(logServerURL)
	if err != nil {
		logger.Error("invalid log server config", "error", err)
		os.Exit(2)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	builder := graph.NewBuilder(logClient, operator.RandomSelector(rng))
	driver := drive.New(logClient, store, logger,
		drive.WithSampler(drive.UniformSampler(rng, workMin, workMax)),
		drive.WithWorkers(workers),
	)

	svc, err := experiment.New(logClient, store, logger, builder, driver)
	if err != nil {
		logger.Error("service init failed", "error", err)
		os.Exit(2)
	}

	api := newLabAPI(logger, svc)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("lab-server"))
	checks := []httpserver.ReadinessCheck{}
	if minioStore, ok := store.(*storage.MinioWriter); ok {
		checks = append(checks, httpserver.ReadinessCheck{
			Name: "object_store",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return minioStore.CheckBucket(checkCtx)
			},
		})
	}
	mux.HandleFunc("/readyz", httpserver.ReadyzWithChecks("lab-server", checks...))
	api.register(mux)

	handler := httpserver.Wrap(logger, mux)
	if err := httpserver.Run(ctx, logger, httpserver.Config{
		Service:         "lab-server",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}, handler); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
