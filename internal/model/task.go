package model

import "gorm.io/gorm"

// Task 待办表 — 对应 tasks
// Position 为列表内序号，接口按序号定位任务
type Task struct {
	TaskID    string `gorm:"type:uuid;primaryKey"          json:"task_id"`
	OwnerID   string `gorm:"type:varchar(64);not null;index" json:"-"`
	Position  int    `gorm:"not null"                      json:"position"`
	Text      string `gorm:"type:varchar(500);not null"    json:"text"`
	Completed bool   `gorm:"not null;default:false"        json:"completed"`
	IsLegacy  bool   `gorm:"not null;default:false"        json:"is_legacy"`
	BaseModel
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }

// BeforeCreate 生成主键
func (t *Task) BeforeCreate(*gorm.DB) error {
	newID(&t.TaskID)
	return nil
}
