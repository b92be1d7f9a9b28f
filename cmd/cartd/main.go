package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/luminoshop/cartsync/api/controllers"
	"github.com/luminoshop/cartsync/api/routes"
	"github.com/luminoshop/cartsync/internal/engine"
	"github.com/luminoshop/cartsync/internal/snapshot"
	"github.com/luminoshop/cartsync/internal/upstream"
	"github.com/luminoshop/cartsync/internal/workflows"
	"github.com/luminoshop/cartsync/pkg/broadcast"
	"github.com/luminoshop/cartsync/pkg/config"
	"github.com/luminoshop/cartsync/pkg/enums"
	"github.com/luminoshop/cartsync/pkg/logger"
	"github.com/luminoshop/cartsync/pkg/metrics"
	"github.com/luminoshop/cartsync/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	var closers []func() error
	pingers := map[string]controllers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
		pingers["redis"] = redisClient
	}

	store, err := buildSnapshotStore(cfg, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to open snapshot store", err)
		os.Exit(1)
	}

	var bus broadcast.Bus
	if redisClient != nil {
		redisBus, err := broadcast.NewRedisBus(context.Background(), redisClient, cfg.Broadcast.RedisChannel, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to subscribe badge channel", err)
			os.Exit(1)
		}
		bus = redisBus
	} else {
		bus = broadcast.NewMemoryBus()
	}
	closers = append(closers, bus.Close)

	mirror := snapshot.NewAdapter(snapshot.AdapterParams{
		Store:          store,
		Bus:            bus,
		DebounceWindow: cfg.Broadcast.DebounceWindow,
		Logger:         logg,
		Metrics:        engineMetrics,
	})

	upstreamClient, err := upstream.NewClient(cfg.Upstream, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build upstream client", err)
		os.Exit(1)
	}

	eng, err := engine.New(engine.Params{
		API:     upstreamClient,
		Mirror:  mirror,
		Logger:  logg,
		Metrics: engineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to start cart engine", err)
		os.Exit(1)
	}
	closers = append(closers, eng.Close)

	promos, err := workflows.NewPromoController(eng)
	if err != nil {
		logg.Error(context.Background(), "failed to build promo controller", err)
		os.Exit(1)
	}
	emailCtrl, err := workflows.NewEmailCartController(eng)
	if err != nil {
		logg.Error(context.Background(), "failed to build email controller", err)
		os.Exit(1)
	}
	handoff, err := workflows.NewCheckoutHandoff(eng)
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout handoff", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"backend":  cfg.Snapshot.Backend,
		"debounce": cfg.Broadcast.DebounceWindow.String(),
	})
	logg.Info(ctx, "starting cartd")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Engine:   eng,
			Promos:   promos,
			Email:    emailCtrl,
			Handoff:  handoff,
			Pingers:  pingers,
			Registry: registry,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "cartd stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}

	var closeErr error
	for i := len(closers) - 1; i >= 0; i-- {
		closeErr = multierr.Append(closeErr, closers[i]())
	}
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
		os.Exit(1)
	}
}

func buildSnapshotStore(cfg *config.Config, redisClient *redis.Client) (snapshot.Store, error) {
	backend, err := cfg.Snapshot.ParseBackend()
	if err != nil {
		return nil, err
	}
	switch backend {
	case enums.SnapshotBackendRedis:
		return snapshot.NewRedisStore(redisClient, cfg.Snapshot.ProfileID)
	case enums.SnapshotBackendMemory:
		return snapshot.NewMemoryStore(), nil
	default:
		return snapshot.NewSQLiteStore(cfg.Snapshot.SQLitePath, cfg.Snapshot.ProfileID)
	}
}
