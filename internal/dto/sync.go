package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/flyswxf/calendar/internal/calendar"
)

// ── 远程同步快照 ──
//
// 字段沿用网页端本地存储的 camelCase 结构，便于直接互通。

// Snapshot /api/data 的请求与响应体，各字段为原样存储的 JSON 数组
type Snapshot struct {
	Tasks         json.RawMessage `json:"tasks"`
	Courses       json.RawMessage `json:"courses"`
	FocusSessions json.RawMessage `json:"focusSessions"`
}

// SnapshotTask 快照中的待办
type SnapshotTask struct {
	Text      string `json:"text" binding:"required,max=500"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"` // 毫秒时间戳
	IsLegacy  bool   `json:"isLegacy"`
}

// SnapshotCourse 快照中的课程，start/end 为 HH:MM
type SnapshotCourse struct {
	Title    string              `json:"title"`
	Day      FlexInt             `json:"day"`
	Start    string              `json:"start"`
	End      string              `json:"end"`
	Location string              `json:"location"`
	Weeks    *calendar.WeekRange `json:"weeks,omitempty"`
}

// SnapshotFocusSession 快照中的专注记录
type SnapshotFocusSession struct {
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Mode      string    `json:"mode"`
	Completed bool      `json:"completed"`
}

// FlexInt 兼容数字与数字字符串（网页端 select 的值为字符串）
type FlexInt int

// UnmarshalJSON 实现 json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// SyncResult 拉取/推送结果
type SyncResult struct {
	Tasks         int `json:"tasks"`
	Courses       int `json:"courses"`
	FocusSessions int `json:"focus_sessions"`
	Skipped       int `json:"skipped"`
}
