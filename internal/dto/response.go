package dto

import "time"

// ── 待办模块响应 ──

// TaskResponse 待办响应，index 为列表序号
type TaskResponse struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	IsLegacy  bool      `json:"is_legacy"`
	CreatedAt time.Time `json:"created_at"`
}

// CleanupResponse 每日清理结果
type CleanupResponse struct {
	Purged  int64  `json:"purged"`
	Flagged int64  `json:"flagged"`
	Date    string `json:"date"`
}

// ── 课程模块响应 ──

// WeeksResponse 周次范围
type WeeksResponse struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Parity string `json:"parity"`
	Text   string `json:"text"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Day       int            `json:"day"`
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Location  string         `json:"location"`
	Weeks     *WeeksResponse `json:"weeks,omitempty"`
	WeeksText string         `json:"weeks_text"`
}

// ImportICSResponse ICS 导入响应
type ImportICSResponse struct {
	ImportedCount int                   `json:"imported_count"`
	Mode          string                `json:"mode"`
	Events        []ImportedCourseEvent `json:"events"`
}

// ImportedCourseEvent 导入的课程事件
type ImportedCourseEvent struct {
	Name      string `json:"name"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Weeks     []int  `json:"weeks"`
	WeeksText string `json:"weeks_text"`
}

// ── 日历模块响应 ──

// WeekResponse 周视图
type WeekResponse struct {
	WeekStart       string        `json:"week_start"`
	WeekEnd         string        `json:"week_end"`
	WeekNumber      int           `json:"week_number"`
	Label           string        `json:"label"`
	PixelsPerMinute float64       `json:"pixels_per_minute"`
	DayStartMinute  int           `json:"day_start_minute"`
	DayEndMinute    int           `json:"day_end_minute"`
	Days            []DayResponse `json:"days"`
}

// DayResponse 单日视图
type DayResponse struct {
	Date    string          `json:"date"`
	Weekday int             `json:"weekday"`
	Label   string          `json:"label"`
	Today   bool            `json:"today"`
	NowLine *float64        `json:"now_line,omitempty"`
	Blocks  []BlockResponse `json:"blocks"`
}

// BlockResponse 可渲染的事件块，left/width 为占当天列宽的比例
type BlockResponse struct {
	Key        string  `json:"key"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	Location   string  `json:"location,omitempty"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	WeeksText  string  `json:"weeks_text,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
	Lane       int     `json:"lane"`
	TotalLanes int     `json:"total_lanes"`
	Top        float64 `json:"top"`
	Height     float64 `json:"height"`
	Left       float64 `json:"left"`
	Width      float64 `json:"width"`
}

// TermResponse 学期周次信息
type TermResponse struct {
	TermStart   string `json:"term_start"`
	CurrentWeek int    `json:"current_week"`
	Label       string `json:"label"`
}

// FocusSessionResponse 专注记录响应
type FocusSessionResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Mode            string    `json:"mode"`
	Completed       bool      `json:"completed"`
	DurationMinutes int       `json:"duration_minutes"`
}

// ── 计时器响应 ──

// TimerStatusResponse 计时器状态
type TimerStatusResponse struct {
	Mode             string     `json:"mode"`
	State            string     `json:"state"`
	Title            string     `json:"title"`
	TaskIndex        *int       `json:"task_index,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	ElapsedMs        int64      `json:"elapsed_ms"`
	RemainingMs      int64      `json:"remaining_ms"`
	CountdownMinutes int        `json:"countdown_minutes"`
	Display          string     `json:"display"`
}
