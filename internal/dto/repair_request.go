package dto

import "time"

// ── 报修单 DTO ──

// CreateRepairRequestRequest 创建报修单
// 提供 AppointmentStart 时同时创建首个预约并尝试自动分配
type CreateRepairRequestRequest struct {
	Title              string     `json:"title"                 binding:"required,min=2,max=200"`
	Description        string     `json:"description"           binding:"max=2000"`
	ApartmentID        *string    `json:"apartment_id"          binding:"omitempty,uuid"`
	CommonAreaObjectID *string    `json:"common_area_object_id" binding:"omitempty,uuid"`
	IssueID            *string    `json:"issue_id"              binding:"omitempty,uuid"`
	IsEmergency        bool       `json:"is_emergency"`
	AppointmentStart   *time.Time `json:"appointment_start"`
	AppointmentEnd     *time.Time `json:"appointment_end"`
}

// ToggleRequestStatusRequest 报修单状态流转请求
type ToggleRequestStatusRequest struct {
	Status string `json:"status" binding:"required,request_status"`
	Note   string `json:"note"   binding:"max=500"`
}

// RepairRequestListRequest 报修单列表查询参数
type RepairRequestListRequest struct {
	Status      string `form:"status"       binding:"omitempty,request_status"`
	RequesterID string `form:"requester_id" binding:"omitempty,uuid"`
	SortBy      string `form:"sort_by"      binding:"omitempty,oneof=created_at created_at_desc title title_desc"`
	PaginationRequest
}

// ── 响应 ──

// RepairRequestResponse 报修单详情
type RepairRequestResponse struct {
	ID                    string                `json:"id"`
	Title                 string                `json:"title"`
	Description           string                `json:"description,omitempty"`
	RequesterID           string                `json:"requester_id"`
	ApartmentID           *string               `json:"apartment_id,omitempty"`
	CommonAreaObjectID    *string               `json:"common_area_object_id,omitempty"`
	IssueID               *string               `json:"issue_id,omitempty"`
	MaintenanceScheduleID *string               `json:"maintenance_schedule_id,omitempty"`
	ParentRequestID       *string               `json:"parent_request_id,omitempty"`
	IsEmergency           bool                  `json:"is_emergency"`
	Status                string                `json:"status"`
	CreatedAt             string                `json:"created_at"`
	Trackings             []TrackingResponse    `json:"trackings,omitempty"`
	Appointments          []AppointmentResponse `json:"appointments,omitempty"`
	AutoAssigned          *bool                 `json:"auto_assigned,omitempty"` // 仅创建时返回
}

// RequestTreeNode 报修单及其后续报修单树
type RequestTreeNode struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Status   string            `json:"status"`
	Children []RequestTreeNode `json:"children,omitempty"`
}

// [自证通过] internal/dto/repair_request.go
