package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/cache"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/handler"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/metrics"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/storage"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "run schema migration before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	zapLogger.Info("Starting compliance service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return err
	}
	if autoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	rdb := initRedis(cfg.Redis)
	defer rdb.Close()
	if err := rdb.Ping(cmd.Context()).Err(); err != nil {
		// 缓存不可用时降级为直接计算
		zapLogger.Warn("Redis unavailable, score cache disabled", zap.Error(err))
	}

	store, err := storage.NewEvidenceStore(storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to init evidence store: %w", err)
	}
	if store.Configured() {
		if err := store.EnsureBucket(cmd.Context()); err != nil {
			zapLogger.Warn("Ensure evidence bucket failed", zap.Error(err))
		}
	} else {
		zapLogger.Warn("MinIO not configured, evidence uploads disabled")
	}

	hub := events.NewHub(zapLogger)

	services := service.NewServices(db, zapLogger, service.Options{
		ActionSLA:           cfg.Compliance.ActionSLA,
		UnansweredIsFailure: cfg.Compliance.UnansweredIsFailure,
	})
	services.SetPublisher(hub)
	services.SetScoreCache(cache.NewScoreCache(rdb, cfg.Compliance.ScoreCacheTTL))
	services.SetEvidenceStore(store)

	handlers := handler.NewHandlers(services, hub)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	// SSE 流不压缩
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

	registerRoutes(router, handlers, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE 长连接
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
	return nil
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB, rdb *redis.Client) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "ok"}
		status := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		// redis 只影响得分缓存，不影响就绪
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "degraded"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	api := r.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))
	h.RegisterRoutes(api)
}
