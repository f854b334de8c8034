package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"postforum/cache"
	"postforum/config"
	"postforum/database"
	"postforum/handlers"
	"postforum/logger"
	"postforum/query"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	boot, _ := zap.NewProduction()
	config.LoadEnv(boot)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	db, err := database.InitDB(cfg.Database.Path, zapLogger)
	if err != nil {
		zapLogger.Fatal("Database initialization failed", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []query.Option
	if cfg.Redis.Address != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Warn("Redis unavailable, recent votes are not cached", zap.Error(err))
		} else {
			defer client.Close()
			opts = append(opts, query.WithCache(cache.NewRecentVotes(client, cfg.Redis.TTL)))
		}
	}
	store := query.NewStore(db, zapLogger, opts...)

	hub := handlers.NewThreadHub(zapLogger)
	go hub.Run(ctx)

	h, err := handlers.New(store, zapLogger, cfg.Forum, hub)
	if err != nil {
		zapLogger.Fatal("Handler initialization failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("listening", zap.String("addr", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Fatal("Server failed", zap.Error(err))
	}
}
