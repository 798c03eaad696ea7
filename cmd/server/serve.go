package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/config"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/handler"
	"github.com/habittracker/internal/router"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer closeDB(log)

	gin.SetMode(cfg.GinMode)
	if cfg.JWTSecret == config.DefaultJWTSecret && gin.Mode() == gin.ReleaseMode {
		log.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	revoker, closeRevoker := newRevoker(cfg, log)
	defer closeRevoker()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration)
	api := handler.NewAPI(db.DB, tokens, revoker, log)

	// 设置并运行 Gin 服务器
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router.SetupRouter(api, cfg, log),
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.ListenAddr), zap.String("db_driver", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	log.Info("HTTP server stopped")
	return nil
}

// newRevoker 配置了 REDIS_ADDR 时使用 Redis 保存吊销列表，否则退回进程内存
func newRevoker(cfg config.AppConfig, log *zap.Logger) (auth.Revoker, func()) {
	if cfg.RedisAddr == "" {
		log.Info("token revocation uses in-memory store")
		return auth.NewMemoryRevoker(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis ping failed, revocation checks will fail open", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		log.Info("token revocation uses redis", zap.String("addr", cfg.RedisAddr))
	}

	return auth.NewRedisRevoker(rdb, log), func() {
		if err := rdb.Close(); err != nil {
			log.Warn("close redis failed", zap.Error(err))
		}
	}
}
