package dto

import "github.com/flyswxf/calendar/internal/calendar"

// ── 课程模块 DTO ──

// CreateCourseRequest 添加课程请求
// day 取值 0-6，周日为 0、周一为 1
type CreateCourseRequest struct {
	Title    string              `json:"title"    binding:"required,max=200"`
	Day      int                 `json:"day"      binding:"min=0,max=6"`
	Start    string              `json:"start"    binding:"required,hhmm"`
	End      string              `json:"end"      binding:"required,hhmm"`
	Location string              `json:"location" binding:"omitempty,max=200"`
	Weeks    *calendar.WeekRange `json:"weeks"`
}

// UpdateCourseRequest 更新课程请求
// ClearWeeks 为 true 时恢复为全学期
type UpdateCourseRequest struct {
	Title      *string             `json:"title"    binding:"omitempty,max=200"`
	Day        *int                `json:"day"      binding:"omitempty,min=0,max=6"`
	Start      *string             `json:"start"    binding:"omitempty,hhmm"`
	End        *string             `json:"end"      binding:"omitempty,hhmm"`
	Location   *string             `json:"location" binding:"omitempty,max=200"`
	Weeks      *calendar.WeekRange `json:"weeks"`
	ClearWeeks bool                `json:"clear_weeks"`
}

// ImportICSRequest ICS 导入请求（用于 URL 方式）
type ImportICSRequest struct {
	URL  string `json:"url"  form:"url"  binding:"omitempty,url"`
	Mode string `json:"mode" form:"mode" binding:"omitempty,oneof=replace append"`
}
