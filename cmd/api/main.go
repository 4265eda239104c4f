package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicedash/internal/audit"
	"voicedash/internal/auth"
	"voicedash/internal/config"
	"voicedash/internal/events"
	"voicedash/internal/httpapi"
	"voicedash/internal/mirror"
	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
	"voicedash/internal/reporting"
	"voicedash/internal/syncer"
	"voicedash/internal/webhook"
	"voicedash/pkg/logger"
	"voicedash/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	store := mirror.NewPostgresStore(db)
	if err := store.EnsureSchema(rootCtx); err != nil {
		log.Error("mirror schema init failed", "err", err)
		os.Exit(1)
	}

	platform := remote.NewHTTPClient(remote.HTTPClientConfig{
		BaseURL:      cfg.Platform.BaseURL,
		APIKey:       cfg.Platform.APIKey,
		PlatformName: cfg.Platform.Name,
	}, log)

	// Mirror changes fan out to connected dashboards and onto the Redis
	// bus for any other listeners.
	hub := events.NewHub(log)
	emitter := events.Multi{hub, events.NewRedisEmitter(rdb, log)}

	rec := reconcile.New(store, platform, emitter, log)
	webhooks := webhook.NewRouter(rec, log)

	scheduler := syncer.NewScheduler(rec, platform, store, nil, syncer.Options{
		Cooldown:    cfg.Sync.Cooldown,
		Pagesize:    cfg.Sync.Pagesize,
		PageCeiling: cfg.Sync.PageCeiling,
		Watchdog:    cfg.Sync.Watchdog,
		CronSpec:    cfg.Sync.CronSpec,
	}, log)
	scheduler.UseDistributedGuard(rdb)
	if err := scheduler.StartCron(); err != nil {
		log.Error("sync cron init failed", "err", err)
		os.Exit(1)
	}
	defer scheduler.StopCron()

	auditSvc := audit.NewService(audit.NewMemoryRepo())
	reports := reporting.NewService(store)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:         authManager,
		Store:        store,
		Scheduler:    scheduler,
		Rec:          rec,
		Webhooks:     webhooks,
		Hub:          hub,
		Audit:        auditSvc,
		Reports:      reports,
		PlatformName: cfg.Platform.Name,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
