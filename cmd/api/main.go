package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/pkg/cache"
	"github.com/noah-isme/family-calendar-api/pkg/config"
	"github.com/noah-isme/family-calendar-api/pkg/database"
	"github.com/noah-isme/family-calendar-api/pkg/logger"
)

// @title Family Calendar API
// @version 1.0.0
// @description Shared family calendar with recurring events, digests and iCalendar feeds
// @BasePath /api
// @schemes http https

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database); err != nil {
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres unavailable", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis unavailable", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	app, err := newApp(cfg, db, redisClient, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to assemble application", "error", err)
	}

	app.scheduler.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.scheduler.Stop(shutdownCtx); err != nil {
		logr.Sugar().Warnw("digest scheduler did not stop cleanly", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
