package model

import (
	"time"

	"gorm.io/gorm"
)

// FocusSession 专注记录表 — 对应 focus_sessions，写入后不再修改
type FocusSession struct {
	FocusSessionID string    `gorm:"type:uuid;primaryKey"            json:"focus_session_id"`
	OwnerID        string    `gorm:"type:varchar(64);not null;index" json:"-"`
	Title          string    `gorm:"type:varchar(500);not null"      json:"title"`
	StartAt        time.Time `gorm:"not null"                        json:"start"`
	EndAt          time.Time `gorm:"not null"                        json:"end"`
	Mode           string    `gorm:"type:varchar(16);not null"       json:"mode"` // countdown | stopwatch
	Completed      bool      `gorm:"not null;default:false"          json:"completed"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (FocusSession) TableName() string { return "focus_sessions" }

// BeforeCreate 生成主键
func (f *FocusSession) BeforeCreate(*gorm.DB) error {
	newID(&f.FocusSessionID)
	return nil
}

// Duration 会话时长
func (f *FocusSession) Duration() time.Duration {
	return f.EndAt.Sub(f.StartAt)
}
