package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"aptcare/backend/internal/dto"
	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

// ── 报修单模块业务错误 ──

var (
	ErrRepairRequestNotFound = pkgerrors.NewNotFound("报修单不存在")
	ErrIssueNotFound         = pkgerrors.NewNotFound("故障类型不存在")
	ErrRepairRequestClosed   = pkgerrors.NewValidation("报修单已结束")
	ErrUnknownRequestStatus  = pkgerrors.NewValidation("未知的报修单状态")
	ErrInvalidSortOption     = pkgerrors.NewValidation("不支持的排序方式")
	ErrAppointmentStartEmpty = pkgerrors.NewValidation("指定预约结束时间时必须提供开始时间")
)

// maxRequestTreeDepth 后续报修单树的最大展开层数
const maxRequestTreeDepth = 32

// RepairRequestService 报修单业务接口
type RepairRequestService interface {
	Create(ctx context.Context, req *dto.CreateRepairRequestRequest, actor Actor) (*dto.RepairRequestResponse, error)
	// CreateFollowUp 为未结束的报修单创建后续报修单
	CreateFollowUp(ctx context.Context, parentID string, req *dto.CreateRepairRequestRequest, actor Actor) (*dto.RepairRequestResponse, error)
	Get(ctx context.Context, id string, actor Actor) (*dto.RepairRequestResponse, error)
	List(ctx context.Context, req *dto.RepairRequestListRequest, actor Actor) ([]dto.RepairRequestResponse, int64, error)
	Tree(ctx context.Context, rootID string, actor Actor) (*dto.RequestTreeNode, error)
	// ToggleStatus 取消时在同一事务内级联取消全部未结束的预约并释放分配
	ToggleStatus(ctx context.Context, id string, status model.RequestStatus, note string, actor Actor) (*dto.RepairRequestResponse, error)
}

type repairRequestService struct {
	*engine
}

// loadRequest 读取报修单及其故障、维护计划
func (e *engine) loadRequest(ctx context.Context, repo *repository.Repository, id string) (*model.RepairRequest, error) {
	request, err := repo.RepairRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepairRequestNotFound
		}
		return nil, e.storageErr("查询报修单失败", err, zap.String("request_id", id))
	}
	return request, nil
}

// ────────────────────── Create ──────────────────────

func (s *repairRequestService) Create(ctx context.Context, req *dto.CreateRepairRequestRequest, actor Actor) (*dto.RepairRequestResponse, error) {
	return s.create(ctx, nil, req, actor)
}

func (s *repairRequestService) CreateFollowUp(ctx context.Context, parentID string, req *dto.CreateRepairRequestRequest, actor Actor) (*dto.RepairRequestResponse, error) {
	return s.create(ctx, &parentID, req, actor)
}

func (s *repairRequestService) create(ctx context.Context, parentID *string, req *dto.CreateRepairRequestRequest, actor Actor) (*dto.RepairRequestResponse, error) {
	if req.AppointmentStart == nil && req.AppointmentEnd != nil {
		return nil, ErrAppointmentStartEmpty
	}

	var request *model.RepairRequest
	var appt *model.Appointment

	err := s.withTx(ctx, "CreateRepairRequest", func(repo *repository.Repository) error {
		if parentID != nil {
			parent, err := s.loadRequest(ctx, repo, *parentID)
			if err != nil {
				return err
			}
			if !actor.IsManager() && parent.RequesterID != actor.UserID {
				return ErrPermissionDenied
			}
			state, err := s.requestState(ctx, repo, *parentID)
			if err != nil {
				return err
			}
			if state.Status.IsTerminal() {
				return ErrRepairRequestClosed
			}
		}

		request = &model.RepairRequest{
			Title:              req.Title,
			Description:        req.Description,
			RequesterID:        actor.UserID,
			ApartmentID:        req.ApartmentID,
			CommonAreaObjectID: req.CommonAreaObjectID,
			IssueID:            req.IssueID,
			ParentRequestID:    parentID,
			IsEmergency:        req.IsEmergency,
		}
		if req.IssueID != nil {
			issue, err := repo.Issue.GetByID(ctx, *req.IssueID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrIssueNotFound
				}
				return s.storageErr("查询故障类型失败", err, zap.String("issue_id", *req.IssueID))
			}
			request.IsEmergency = request.IsEmergency || issue.IsEmergency
			request.Issue = issue
		}
		request.StampCreated(actor.idPtr())

		// 关联对象不随报修单一起写入
		issue := request.Issue
		request.Issue = nil
		if err := repo.RepairRequest.Create(ctx, request); err != nil {
			return s.storageErr("创建报修单失败", err, zap.String("requester_id", actor.UserID))
		}
		request.Issue = issue

		if err := s.initRequest(ctx, repo, request.RequestID, "", actor); err != nil {
			return err
		}

		if req.AppointmentStart != nil {
			var err error
			appt, err = s.newAppointment(ctx, repo, request, *req.AppointmentStart, req.AppointmentEnd, "", actor)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("报修单已创建",
		zap.String("request_id", request.RequestID),
		zap.Bool("emergency", request.IsEmergency),
		zap.Bool("with_appointment", appt != nil))

	var autoAssigned *bool
	if appt != nil {
		autoAssigned = s.tryAutoAssign(ctx, appt.AppointmentID)
	}

	resp, err := s.Get(ctx, request.RequestID, actor)
	if err != nil {
		return nil, err
	}
	resp.AutoAssigned = autoAssigned
	return resp, nil
}

// ────────────────────── Get / List ──────────────────────

func (s *repairRequestService) Get(ctx context.Context, id string, actor Actor) (*dto.RepairRequestResponse, error) {
	request, err := s.loadRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	trackings, err := s.repo.RequestTracking.ListByRequest(ctx, id)
	if err != nil {
		return nil, s.storageErr("查询报修单流水失败", err, zap.String("request_id", id))
	}
	appts, err := s.repo.Appointment.ListByRequest(ctx, id)
	if err != nil {
		return nil, s.storageErr("查询报修单预约失败", err, zap.String("request_id", id))
	}

	resp := toRepairRequestResponse(request, model.RequestPending)
	for _, t := range trackings {
		resp.Trackings = append(resp.Trackings, dto.TrackingResponse{
			Status:     string(t.Status),
			Note:       t.Note,
			ActorID:    t.ActorID,
			RecordedAt: dto.FormatTime(t.RecordedAt),
		})
		resp.Status = string(t.Status)
	}

	visible := actor.IsManager() || request.RequesterID == actor.UserID
	for i := range appts {
		live, err := s.repo.Assign.ListLiveByAppointment(ctx, appts[i].AppointmentID)
		if err != nil {
			return nil, s.storageErr("查询预约分配失败", err, zap.String("appointment_id", appts[i].AppointmentID))
		}
		if findAssign(live, actor.UserID) != nil {
			visible = true
		}
		ar, err := s.appointmentResponse(ctx, s.repo, &appts[i], live, false)
		if err != nil {
			return nil, err
		}
		resp.Appointments = append(resp.Appointments, *ar)
	}
	if !visible {
		return nil, ErrPermissionDenied
	}
	return &resp, nil
}

// List 住户与技术员只能查看本人提交的报修单
func (s *repairRequestService) List(ctx context.Context, req *dto.RepairRequestListRequest, actor Actor) ([]dto.RepairRequestResponse, int64, error) {
	if req.Status != "" && !model.RequestStatus(req.Status).Valid() {
		return nil, 0, ErrUnknownRequestStatus
	}
	if !repository.ValidRequestSort(req.SortBy) {
		return nil, 0, ErrInvalidSortOption
	}

	filter := repository.RepairRequestFilter{
		Status:      model.RequestStatus(req.Status),
		RequesterID: req.RequesterID,
		SortBy:      req.SortBy,
	}
	if !actor.IsManager() {
		filter.RequesterID = actor.UserID
	}

	requests, total, err := s.repo.RepairRequest.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, 0, ErrInvalidSortOption
		}
		return nil, 0, s.storageErr("查询报修单列表失败", err)
	}

	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.RequestID)
	}
	statuses, err := s.repo.RequestTracking.LatestStatuses(ctx, ids)
	if err != nil {
		return nil, 0, s.storageErr("查询报修单状态失败", err)
	}

	result := make([]dto.RepairRequestResponse, 0, len(requests))
	for i := range requests {
		status, ok := statuses[requests[i].RequestID]
		if !ok {
			status = model.RequestPending
		}
		result = append(result, toRepairRequestResponse(&requests[i], status))
	}
	return result, total, nil
}

// ────────────────────── Tree ──────────────────────

// Tree 逐层展开后续报修单；超过最大层数或出现环时截断
func (s *repairRequestService) Tree(ctx context.Context, rootID string, actor Actor) (*dto.RequestTreeNode, error) {
	root, err := s.loadRequest(ctx, s.repo, rootID)
	if err != nil {
		return nil, err
	}
	if !actor.IsManager() && root.RequesterID != actor.UserID {
		return nil, ErrPermissionDenied
	}

	nodes := map[string]*dto.RequestTreeNode{
		rootID: {ID: root.RequestID, Title: root.Title},
	}
	children := make(map[string][]string)
	levels := [][]string{{rootID}}

	for depth := 0; depth < maxRequestTreeDepth; depth++ {
		frontier := levels[len(levels)-1]
		kids, err := s.repo.RepairRequest.ListByParents(ctx, frontier)
		if err != nil {
			return nil, s.storageErr("查询后续报修单失败", err, zap.String("request_id", rootID))
		}
		var next []string
		for _, k := range kids {
			if _, seen := nodes[k.RequestID]; seen || k.ParentRequestID == nil {
				continue
			}
			nodes[k.RequestID] = &dto.RequestTreeNode{ID: k.RequestID, Title: k.Title}
			children[*k.ParentRequestID] = append(children[*k.ParentRequestID], k.RequestID)
			next = append(next, k.RequestID)
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
		if depth == maxRequestTreeDepth-1 {
			s.logger.Warn("后续报修单层级过深，已截断",
				zap.String("request_id", rootID), zap.Int("max_depth", maxRequestTreeDepth))
		}
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	statuses, err := s.repo.RequestTracking.LatestStatuses(ctx, ids)
	if err != nil {
		return nil, s.storageErr("查询报修单状态失败", err, zap.String("request_id", rootID))
	}
	for id, n := range nodes {
		n.Status = string(model.RequestPending)
		if st, ok := statuses[id]; ok {
			n.Status = string(st)
		}
	}

	// 自底向上组装，子节点先于父节点完成
	for i := len(levels) - 1; i >= 0; i-- {
		for _, id := range levels[i] {
			n := nodes[id]
			for _, childID := range children[id] {
				n.Children = append(n.Children, *nodes[childID])
			}
		}
	}
	return nodes[rootID], nil
}

// ────────────────────── ToggleStatus ──────────────────────

func (s *repairRequestService) ToggleStatus(ctx context.Context, id string, status model.RequestStatus, note string, actor Actor) (*dto.RepairRequestResponse, error) {
	if !status.Valid() {
		return nil, ErrUnknownRequestStatus
	}

	var notes []Notification
	err := s.withTx(ctx, "ToggleRepairRequestStatus", func(repo *repository.Repository) error {
		request, err := s.loadRequest(ctx, repo, id)
		if err != nil {
			return err
		}
		// 住户只能取消本人的报修单
		if !actor.IsManager() && !(status == model.RequestCancelled && request.RequesterID == actor.UserID) {
			return ErrPermissionDenied
		}

		cur, err := s.requestState(ctx, repo, id)
		if err != nil {
			return err
		}
		if _, err := s.moveRequest(ctx, repo, id, cur, status, note, actor); err != nil {
			return err
		}

		if status == model.RequestCancelled {
			cascaded, err := s.cascadeCancel(ctx, repo, request, note, actor)
			if err != nil {
				return err
			}
			notes = append(notes, cascaded...)
		}

		if request.RequesterID != actor.UserID {
			notes = append(notes, Notification{
				Type:         model.NotificationRequestStatus,
				Title:        "报修单状态更新",
				Body:         fmt.Sprintf("您的报修单「%s」状态变更为：%s", request.Title, status),
				RecipientIDs: []string{request.RequesterID},
				RelatedType:  entityRepairRequest,
				RelatedID:    id,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notes)
	return s.Get(ctx, id, actor)
}

// cascadeCancel 报修单取消时，未结束的预约逐一写入 Cancelled 流水并批量释放分配
func (e *engine) cascadeCancel(ctx context.Context, repo *repository.Repository, request *model.RepairRequest, note string, actor Actor) ([]Notification, error) {
	appts, err := repo.Appointment.ListByRequest(ctx, request.RequestID)
	if err != nil {
		return nil, e.storageErr("查询报修单预约失败", err, zap.String("request_id", request.RequestID))
	}

	var cancelled []string
	var notes []Notification
	for i := range appts {
		apptID := appts[i].AppointmentID
		state, err := e.appointmentState(ctx, repo, apptID)
		if err != nil {
			return nil, err
		}
		if state.Status.IsTerminal() {
			continue
		}
		if _, err := e.moveAppointment(ctx, repo, apptID, state, model.AppointmentCancelled, note, actor); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, apptID)

		live, err := repo.Assign.ListLiveByAppointment(ctx, apptID)
		if err != nil {
			return nil, e.storageErr("查询预约分配失败", err, zap.String("appointment_id", apptID))
		}
		notes = append(notes, Notification{
			Type:         model.NotificationAppointmentCancel,
			Title:        "预约已取消",
			Body:         fmt.Sprintf("报修单「%s」已取消，%s 的上门预约随之取消", request.Title, e.formatTime(appts[i].StartTime)),
			RecipientIDs: assignTechnicianIDs(live),
			RelatedType:  entityAppointment,
			RelatedID:    apptID,
		})
	}

	if len(cancelled) > 0 {
		if err := e.releaseAssigns(ctx, repo, cancelled); err != nil {
			return nil, err
		}
	}
	e.logger.Info("报修单取消级联完成",
		zap.String("request_id", request.RequestID),
		zap.Int("appointments", len(cancelled)))
	return notes, nil
}

func toRepairRequestResponse(r *model.RepairRequest, status model.RequestStatus) dto.RepairRequestResponse {
	return dto.RepairRequestResponse{
		ID:                    r.RequestID,
		Title:                 r.Title,
		Description:           r.Description,
		RequesterID:           r.RequesterID,
		ApartmentID:           r.ApartmentID,
		CommonAreaObjectID:    r.CommonAreaObjectID,
		IssueID:               r.IssueID,
		MaintenanceScheduleID: r.MaintenanceScheduleID,
		ParentRequestID:       r.ParentRequestID,
		IsEmergency:           r.IsEmergency,
		Status:                string(status),
		CreatedAt:             dto.FormatTime(r.CreatedAt),
	}
}

// [自证通过] internal/service/repair_request_service.go
