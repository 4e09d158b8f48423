// Package app wires configuration, storage, services and servers together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"clinic-scheduling-api/internal/auth"
	"clinic-scheduling-api/internal/config"
	"clinic-scheduling-api/internal/handler"
	"clinic-scheduling-api/internal/logger"
	"clinic-scheduling-api/internal/metrics"
	"clinic-scheduling-api/internal/middleware"
	"clinic-scheduling-api/internal/rpc"
	"clinic-scheduling-api/internal/scheduling"
	"clinic-scheduling-api/internal/store"
	"clinic-scheduling-api/internal/telemetry"
)

const (
	serviceName     = "clinic-scheduling-api"
	shutdownTimeout = 15 * time.Second
)

// Run is the process entry point. args is os.Args[1:].
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	cfg, err := config.Load()
	if err != nil {
		logger.SetupDefault(w, serviceName, slog.LevelInfo)
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.SetupDefault(w, serviceName, cfg.LogLevel)
	log.Info("starting", slog.String("command", string(cmd)), slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()

	if err := backend.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if cmd == CommandMigrate {
		log.Info("database migrations completed successfully")
		return nil
	}
	return serve(ctx, cfg, log, backend)
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, backend store.Backend) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
	}
	users := store.NewCachedUsers(backend, rdb, cfg.UserCacheTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	authSvc := auth.NewService(users, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL))
	schedSvc := scheduling.NewService(backend, scheduling.WithRecorder(collector))

	checks := []handler.ReadyCheck{{Name: "db", Check: backend.Ping}}
	if rdb != nil {
		checks = append(checks, handler.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Auth:           authSvc,
		Scheduling:     schedSvc,
		Logger:         log,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		ReadyChecks:    checks,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.Recovery,
			rpc.Logging(log),
			middleware.AuthInterceptor(authSvc, rpc.OpenMethods...),
		),
	)
	rpc.Register(grpcSrv, rpc.NewServer(authSvc, schedSvc))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	errc := make(chan error, 2)
	go func() {
		log.Info("http server starting", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		log.Info("grpc server starting", slog.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errc:
		log.Error("server failed", slog.Any("error", runErr))
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() { grpcSrv.GracefulStop(); close(done) }()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error("http shutdown", slog.Any("error", err))
	}
	select {
	case <-done:
	case <-sctx.Done():
		grpcSrv.Stop()
	}

	log.Info("stopped")
	return runErr
}
