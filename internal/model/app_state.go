package model

import "time"

// AppState 应用级键值状态 — 对应 app_state
type AppState struct {
	StateKey   string    `gorm:"type:varchar(100);primaryKey" json:"state_key"`
	StateValue string    `gorm:"type:text;not null"           json:"state_value"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (AppState) TableName() string { return "app_state" }

// StateKeyLastCleanup 上次每日清理的日期（YYYY-MM-DD）
const StateKeyLastCleanup = "last_task_cleanup"
