package model

import (
	"gorm.io/gorm"

	"github.com/flyswxf/calendar/internal/calendar"
)

// Course 课程表 — 对应 courses
// WeekStart/WeekEnd/WeekParity 同时为空表示全学期
type Course struct {
	CourseID    string  `gorm:"type:uuid;primaryKey"            json:"course_id"`
	OwnerID     string  `gorm:"type:varchar(64);not null;index" json:"-"`
	Position    int     `gorm:"not null"                        json:"position"`
	Title       string  `gorm:"type:varchar(200);not null"      json:"title"`
	DayOfWeek   int     `gorm:"type:smallint;not null"          json:"day_of_week"` // 0-6，周日为 0
	StartMinute int     `gorm:"type:smallint;not null"          json:"start_minute"`
	EndMinute   int     `gorm:"type:smallint;not null"          json:"end_minute"`
	Location    string  `gorm:"type:varchar(200);not null;default:''" json:"location"`
	WeekStart   *int    `gorm:"type:smallint"                   json:"week_start,omitempty"`
	WeekEnd     *int    `gorm:"type:smallint"                   json:"week_end,omitempty"`
	WeekParity  *string `gorm:"type:varchar(8)"                 json:"week_parity,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// BeforeCreate 生成主键
func (c *Course) BeforeCreate(*gorm.DB) error {
	newID(&c.CourseID)
	return nil
}

// Weeks 周次范围，未设置时返回 nil
func (c *Course) Weeks() *calendar.WeekRange {
	if c.WeekStart == nil || c.WeekEnd == nil {
		return nil
	}
	parity := calendar.ParityAll
	if c.WeekParity != nil && *c.WeekParity != "" {
		parity = calendar.Parity(*c.WeekParity)
	}
	return &calendar.WeekRange{Start: *c.WeekStart, End: *c.WeekEnd, Parity: parity}
}

// SetWeeks 写入周次范围，nil 表示全学期
func (c *Course) SetWeeks(w *calendar.WeekRange) {
	if w == nil {
		c.WeekStart, c.WeekEnd, c.WeekParity = nil, nil, nil
		return
	}
	start, end := w.Start, w.End
	parity := string(w.Parity)
	if parity == "" {
		parity = string(calendar.ParityAll)
	}
	c.WeekStart, c.WeekEnd, c.WeekParity = &start, &end, &parity
}
