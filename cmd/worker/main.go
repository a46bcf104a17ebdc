package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aptcare/backend/config"
	"aptcare/backend/internal/queue"
	"aptcare/backend/internal/repository"
	"aptcare/backend/internal/service"
	"aptcare/backend/pkg/database"
	applogger "aptcare/backend/pkg/logger"
	"aptcare/backend/pkg/metrics"
)

// worker 进程：消费通知任务，并按 cron 投递周期维护任务
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

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	// 维护计划生成的报修单同样需要发通知
	m := metrics.New()
	notifier := queue.NewNotifier(&cfg.Redis, &cfg.Queue, m, logger)
	defer notifier.Close()

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, notifier, m, logger)

	worker := queue.NewWorker(&cfg.Redis, &cfg.Queue, repo, svc.Maintenance, logger)
	scheduler, err := queue.NewScheduler(&cfg.Redis, &cfg.Queue, cfg.Scheduling.Location(), logger)
	if err != nil {
		logger.Fatal("初始化调度器失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })

	logger.Info("worker 已启动", zap.String("queue", cfg.Queue.Name), zap.String("maintenance_cron", cfg.Queue.MaintenanceCron))
	if err := g.Wait(); err != nil {
		logger.Error("worker 异常退出", zap.Error(err))
	}
	logger.Info("worker 已关闭")
}
