package service

import (
	"context"
	"testing"
	"time"

	"aptcare/backend/internal/model"
)

func (f *fixture) addSchedule(name, techniqueID string, frequencyDays int, nextRun time.Time) *model.MaintenanceSchedule {
	ms := &model.MaintenanceSchedule{
		ScheduleID:          f.store.nextID("ms"),
		Name:                name,
		TechniqueID:         techniqueID,
		RequiredTechnicians: 1,
		EstimatedDuration:   45,
		FrequencyDays:       frequencyDays,
		PreferredStart:      "09:00",
		NextRunAt:           nextRun,
		IsActive:            true,
	}
	ms.Version = 1
	f.store.schedules[ms.ScheduleID] = ms
	return ms
}

// staleScheduleRepo 返回过期版本号，模拟另一实例已处理同一计划
type staleScheduleRepo struct {
	*mockMaintenanceScheduleRepo
}

func (r staleScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]model.MaintenanceSchedule, error) {
	due, err := r.mockMaintenanceScheduleRepo.ListDue(ctx, now)
	for i := range due {
		due[i].Version--
	}
	return due, err
}

func requestsOfSchedule(f *fixture, scheduleID string) []*model.RepairRequest {
	var result []*model.RepairRequest
	for _, id := range f.store.requestOrder {
		r := f.store.requests[id]
		if r.MaintenanceScheduleID != nil && *r.MaintenanceScheduleID == scheduleID {
			result = append(result, r)
		}
	}
	return result
}

func TestMaintenanceService_GenerateDue(t *testing.T) {
	f := newFixture()
	tq := f.addTechnique("电梯")
	tech := f.addTechnician("甲", tq)
	f.addShift(tech, at(2024, 5, 20, 0, 0), "08:00", "18:00", model.WorkSlotNotStarted)
	ms := f.addSchedule("电梯保养", tq, 7, at(2024, 5, 20, 0, 0))
	ctx := context.Background()

	n, err := f.maintenance.GenerateDue(ctx, f.clock)
	if err != nil || n != 1 {
		t.Fatalf("期望生成 1 个维护任务，实际 %d, err=%v", n, err)
	}

	reqs := requestsOfSchedule(f, ms.ScheduleID)
	if len(reqs) != 1 {
		t.Fatalf("期望 1 张维护报修单，实际 %d", len(reqs))
	}
	if reqs[0].Title != "电梯保养（2024-05-20）" || reqs[0].RequesterID != f.manager.UserID {
		t.Errorf("报修单标题或提交人不符，实际 %+v", reqs[0])
	}

	var appt *model.Appointment
	for _, a := range f.store.appointments {
		if a.RequestID == reqs[0].RequestID {
			appt = a
		}
	}
	if appt == nil {
		t.Fatal("应生成预约")
	}
	if !appt.StartTime.Equal(at(2024, 5, 20, 9, 0)) || !appt.EndTime.Equal(at(2024, 5, 20, 9, 45)) {
		t.Errorf("预约应为 09:00–09:45，实际 %v – %v", appt.StartTime, appt.EndTime)
	}
	if got := f.apptStatus(appt.AppointmentID); got != model.AppointmentAssigned {
		t.Errorf("维护预约应自动分配，实际 %s", got)
	}

	stored := f.store.schedules[ms.ScheduleID]
	if !stored.NextRunAt.Equal(at(2024, 5, 27, 0, 0)) || stored.Version != 2 {
		t.Errorf("下次执行时间应推进一个周期，实际 %v (version %d)", stored.NextRunAt, stored.Version)
	}

	// 未到期不重复生成
	if n, err := f.maintenance.GenerateDue(ctx, f.clock); err != nil || n != 0 {
		t.Errorf("同一周期不应重复生成，实际 %d, err=%v", n, err)
	}
}

func TestMaintenanceService_MissedPeriodsNotBackfilled(t *testing.T) {
	f := newFixture()
	tq := f.addTechnique("消防")
	ms := f.addSchedule("消防巡检", tq, 7, at(2024, 5, 1, 0, 0))
	creator := f.addUser("赵主管", model.RoleManager)
	ms.CreatedBy = &creator

	n, err := f.maintenance.GenerateDue(context.Background(), f.clock)
	if err != nil || n != 1 {
		t.Fatalf("错过多个周期也只生成 1 个任务，实际 %d, err=%v", n, err)
	}
	if got := f.store.schedules[ms.ScheduleID].NextRunAt; !got.Equal(at(2024, 5, 22, 0, 0)) {
		t.Errorf("下次执行时间应为 now 之后的首个周期点，实际 %v", got)
	}
	if reqs := requestsOfSchedule(f, ms.ScheduleID); len(reqs) != 1 || reqs[0].RequesterID != creator {
		t.Errorf("提交人应为计划创建人，实际 %+v", reqs)
	}
}

func TestMaintenanceService_SkipsInvalidAndInactive(t *testing.T) {
	f := newFixture()
	tq := f.addTechnique("水泵")
	broken := f.addSchedule("水泵保养", tq, 0, at(2024, 5, 19, 0, 0))
	inactive := f.addSchedule("停用计划", tq, 7, at(2024, 5, 19, 0, 0))
	inactive.IsActive = false
	ok := f.addSchedule("水箱清洗", tq, 30, at(2024, 5, 19, 0, 0))

	n, err := f.maintenance.GenerateDue(context.Background(), f.clock)
	if err != nil || n != 1 {
		t.Fatalf("单个计划失败不影响其余计划，实际 %d, err=%v", n, err)
	}
	if len(requestsOfSchedule(f, broken.ScheduleID)) != 0 || len(requestsOfSchedule(f, inactive.ScheduleID)) != 0 {
		t.Error("无效或停用的计划不应生成报修单")
	}
	if len(requestsOfSchedule(f, ok.ScheduleID)) != 1 {
		t.Error("有效计划应生成报修单")
	}
}

func TestMaintenanceService_OptimisticLockSkipped(t *testing.T) {
	f := newFixture()
	tq := f.addTechnique("电梯")
	ms := f.addSchedule("电梯保养", tq, 7, at(2024, 5, 20, 0, 0))
	f.repo.MaintenanceSchedule = staleScheduleRepo{&mockMaintenanceScheduleRepo{f.store}}

	n, err := f.maintenance.GenerateDue(context.Background(), f.clock)
	if err != nil {
		t.Fatalf("版本冲突不应返回错误: %v", err)
	}
	if n != 0 {
		t.Errorf("版本冲突的计划不计入生成数量，实际 %d", n)
	}
	if got := f.store.schedules[ms.ScheduleID]; !got.NextRunAt.Equal(at(2024, 5, 20, 0, 0)) || got.Version != 1 {
		t.Errorf("冲突时不应推进计划，实际 %v (version %d)", got.NextRunAt, got.Version)
	}
}
