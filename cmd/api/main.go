package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/db"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/logger"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/metrics"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/middleware"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
)

// backend bundles the repositories of one storage engine with its
// lifecycle hooks.
type backend struct {
	name  string
	users data.UserRepository
	msgs  data.MessageRepository
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// openBackend picks MongoDB, SQLite or memory from the configuration.
func openBackend(ctx context.Context, cfg config.ServerConfig) (*backend, error) {
	switch cfg.Backend() {
	case "mongo":
		dbClient, err := db.New(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		// Ensure indexes exist
		if err := dbClient.CreateIndexes(ctx); err != nil {
			_ = dbClient.Close(ctx)
			return nil, err
		}
		return &backend{
			name:  "mongo",
			users: data.NewUsersStore(dbClient.UsersCollection()),
			msgs:  data.NewMessagesStore(dbClient.MessagesCollection()),
			ping:  dbClient.Ping,
			close: dbClient.Close,
		}, nil

	case "sqlite":
		store, err := data.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{
			name:  "sqlite",
			users: store,
			msgs:  store,
			ping:  store.Ping,
			close: func(context.Context) error { return store.Close() },
		}, nil

	default:
		store := data.NewMemoryStore()
		return &backend{
			name:  "memory",
			users: store,
			msgs:  store,
			ping:  func(context.Context) error { return nil },
			close: func(context.Context) error { return nil },
		}, nil
	}
}

// newGRPCServer assembles the interceptor chain: logging/metrics -> fault
// injection -> rate limiter.
func newGRPCServer(cfg config.ServerConfig, log *slog.Logger, m *metrics.Server, limiter *middleware.LimiterStore, roll func() float64) *grpc.Server {
	writes := map[string]bool{remote.AddMessageMethod: true}

	return grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingUnaryInterceptor(log, m),
		faultUnaryInterceptor(cfg.FailRate, writes, roll, m),
		middleware.RateLimitUnaryInterceptor(limiter, writes, middleware.UserKey),
	))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Read configuration from .env, CONFIG_FILE and environment
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	ctx := context.Background()

	store, err := openBackend(ctx, cfg.Server)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Server.Backend(), err)
	}
	defer func() {
		_ = store.close(context.Background())
	}()
	log.Info("storage ready", "backend", store.name)

	if _, err := seedUsers(ctx, store.users, cfg.Server.SeedUsers, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServer(reg)

	// Small burst lets a client flush a couple of quick retries
	limiterStore := middleware.NewLimiterStore(cfg.Server.RateLimitRPM, 3, 1*time.Minute)
	defer limiterStore.Stop()

	grpcServer := newGRPCServer(cfg.Server, log, serverMetrics, limiterStore, rand.Float64)
	registerService(grpcServer, newServer(store.users, store.msgs, log))

	// Listen and serve
	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:           newHTTPRouter(reg, store.ping),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", "addr", listenAddr, "fail_rate", cfg.Server.FailRate)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server exit: %w", err)
		}
	}()
	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server exit: %w", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err = <-errCh:
		log.Error("server failed", "error", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return err
}
