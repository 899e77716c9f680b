// Package main is the entry point for the memory match server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mentesana/memoria/internal/events"
	"github.com/mentesana/memoria/internal/infra/cache"
	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/network"
	"github.com/mentesana/memoria/internal/platform/config"
	"github.com/mentesana/memoria/internal/platform/logger"
	"github.com/mentesana/memoria/internal/platform/metrics"
	"github.com/mentesana/memoria/internal/session"
)

const (
	persistTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	appLogger := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load configuration: " + err.Error())
		os.Exit(1)
	}
	appLogger.SetDebug(cfg.Log.Debug)
	appLogger.Info("Starting memory match server...")

	appLogger.Infof("Opening %s storage...", cfg.Storage.Driver)
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.MaxOpenConns)
	if err != nil {
		appLogger.Error("Failed to initialize storage: " + err.Error())
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.Get()

	var results storage.ResultRepository = store.Results
	if cfg.Cache.Enabled() {
		appLogger.Infof("Connecting to Redis at %s...", cfg.Cache.RedisAddr)
		client, err := cache.NewGoRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			// The leaderboard still works straight from storage.
			appLogger.Warn("Redis unavailable, leaderboard cache disabled: " + err.Error())
		} else {
			defer client.Close()
			results = cache.NewCachedResultRepository(results, cache.NewLeaderboardCache(client, cfg.Cache.TTL), collector, appLogger)
		}
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(storage.NewEventPersister(store.Events, persistTimeout))
	eventLog.OnPersistError(func(e events.GameEvent, err error) {
		appLogger.Errorf("Failed to persist event %s (%s) of game %s: %v", e.ID, e.Type, e.GameID, err)
	})

	sessions := session.NewManager(session.Deps{
		EventLog:          eventLog,
		Results:           results,
		Metrics:           collector,
		Logger:            appLogger,
		DefaultDifficulty: cfg.Game.Difficulty(),
		RevealDelay:       cfg.Game.RevealDelay,
	})

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(appLogger, collector)
	go hub.Run(ctx)

	replay := network.NewReplayHandler(eventLog, storage.NewReconstructor(store.Events), results, appLogger)
	server := network.NewServer(hub, sessions, results, replay, collector, appLogger, cfg.Server.AllowedOrigins)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Infof("HTTP API & WS Server listening on %s", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed: " + err.Error())
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("HTTP shutdown: " + err.Error())
	}
	cancel()
	sessions.CloseAll()
	eventLog.Close()
	appLogger.Info("Server stopped")
}
