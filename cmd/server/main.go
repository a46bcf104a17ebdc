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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aptcare/backend/config"
	"aptcare/backend/internal/api/handler"
	"aptcare/backend/internal/api/router"
	"aptcare/backend/internal/queue"
	"aptcare/backend/internal/repository"
	"aptcare/backend/internal/service"
	"aptcare/backend/pkg/database"
	"aptcare/backend/pkg/jwt"
	applogger "aptcare/backend/pkg/logger"
	"aptcare/backend/pkg/metrics"
	"aptcare/backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

// API 进程：排班与派单接口
func main() {
	cfg, err := config.Load(os.Getenv("APTCARE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("服务器已关闭")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	if _, err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}

	// Redis 不可用时 Token 黑名单与限流关闭，派单主流程不受影响
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流不可用", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	m := metrics.New()
	notifier := queue.NewNotifier(&cfg.Redis, &cfg.Queue, m, logger)
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("关闭通知队列失败", zap.Error(err))
		}
	}()

	svc := service.NewService(cfg, repository.NewRepository(db), notifier, m, logger)
	var blacklist handler.TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}

	engine, err := router.Setup(cfg, handler.NewHandler(svc, blacklist), jwt.NewManager(&cfg.Auth), rdb, m, logger)
	if err != nil {
		return fmt.Errorf("初始化路由失败: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP 服务器已启动",
			zap.String("addr", srv.Addr),
			zap.String("timezone", cfg.Scheduling.Timezone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("开始优雅关闭")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
