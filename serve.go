package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/charsheet/api/rest"
	"github.com/kasuganosora/charsheet/api/sse"
	"github.com/kasuganosora/charsheet/audit"
	"github.com/kasuganosora/charsheet/backend"
	"github.com/kasuganosora/charsheet/cache"
	dbadapter "github.com/kasuganosora/charsheet/db"
	"github.com/kasuganosora/charsheet/host"
	mw "github.com/kasuganosora/charsheet/middleware"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"github.com/kasuganosora/charsheet/scheduler"
	"github.com/kasuganosora/charsheet/view"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterIdle     = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.OpenAndMigrate(cfg.Database)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Hooks ----
	hc := hook.NewHookCenter()
	auditSvc.Register(hc)

	// ---- Sheets ----
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	views := view.NewManager(client, hc, cfg.View.IdleTTL, logger)
	views.Register(hc)
	views.Schedule(sched, cfg.View.PruneInterval)

	// ---- Host ----
	integration := host.NewIntegration(
		host.NewPubSubPlatform(pubsub),
		host.NewRegistry(c, cfg.Host.RegistryTTL),
		hc, cfg.Host, logger)

	sseH := sse.NewHandler(pubsub, logger)
	sseH.Register(hc)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	tmpl, err := apirest.LoadTemplates()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	limiter := mw.NewRateLimiter(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
	sched.AddTicker("ratelimit.sweep", time.Minute, func(context.Context) {
		limiter.Sweep(limiterIdle)
	})

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(limiter.Middleware())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sheetH := apirest.NewSheetHandler(views, auditSvc, cfg.Server.DefaultCharacter)
	hostH := apirest.NewHostHandler(integration, c, cfg.Security)

	r.GET("/", sheetH.Page)
	r.GET("/character/:id", sheetH.Page)

	api := r.Group("/api")
	{
		charG := api.Group("/characters/:id")
		charG.GET("/sheet", sheetH.Sheet)
		charG.DELETE("/sheet", sheetH.Unmount)
		charG.GET("/render", sheetH.Render)
		charG.PUT("/stats/:code", sheetH.UpdateStat)
		charG.POST("/equip", sheetH.Equip)
		charG.GET("/history", sheetH.History)

		hostG := api.Group("/host")
		hostG.Use(mw.IPWhitelist(cfg.Security.AllowedIPs, logger))
		hostG.POST("/session", hostH.Session)
		hostG.DELETE("/session", mw.Auth(cfg.Security, c), hostH.EndSession)
		hostG.POST("/context-menu", mw.Auth(cfg.Security, c), hostH.ContextMenu)
		hostG.POST("/restore", mw.Auth(cfg.Security, c), hostH.Restore)
		hostG.GET("/popovers", mw.Auth(cfg.Security, c), hostH.Popovers)
	}

	// ---- SSE ----
	r.GET("/sse", mw.Auth(cfg.Security, c), sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
