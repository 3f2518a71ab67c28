// Package calendar 周视图计算：周次推算、单双周可见性、时间轴定位与重叠分栏。
// 本包不做任何 I/O，输入为课程/专注记录，输出为可直接渲染的块坐标。
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 时间轴范围（分钟）
const (
	DayStartMinute = 7 * 60  // 07:00
	DayEndMinute   = 23 * 60 // 23:00
	MinutesPerDay  = 24 * 60
)

var (
	ErrInvalidTimeRange = errors.New("结束时间必须晚于开始时间")
	ErrInvalidClock     = errors.New("时间格式无效，应为 HH:MM")
	ErrInvalidWeekRange = errors.New("周次范围无效")
)

// Parity 单双周
type Parity string

const (
	ParityAll  Parity = "all"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// Valid 是否为合法取值
func (p Parity) Valid() bool {
	switch p {
	case ParityAll, ParityOdd, ParityEven:
		return true
	}
	return false
}

// WeekRange 课程生效的周次范围（闭区间）
type WeekRange struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Parity Parity `json:"parity"`
}

// Validate 校验周次范围
func (w WeekRange) Validate() error {
	if w.Start > w.End {
		return ErrInvalidWeekRange
	}
	if w.Parity != "" && !w.Parity.Valid() {
		return ErrInvalidWeekRange
	}
	return nil
}

// IsVisible 判断课程在第 week 周是否显示。weeks 为空表示全学期。
func IsVisible(weeks *WeekRange, week int) bool {
	if weeks == nil {
		return true
	}
	if week < weeks.Start || week > weeks.End {
		return false
	}
	switch weeks.Parity {
	case ParityOdd:
		return week%2 != 0
	case ParityEven:
		return week%2 == 0
	}
	return true
}

// Term 学期周次锚点
type Term struct {
	Start time.Time
}

// NewTerm 以 start 所在周的周一作为第 1 周
func NewTerm(start time.Time) Term {
	return Term{Start: MondayOf(start)}
}

// WeekNumberOf 计算 date 所在周的周次（1-based），开学前为 0 或负数
func (t Term) WeekNumberOf(date time.Time) int {
	days := daysBetween(MondayOf(t.Start), MondayOf(date.In(t.location())))
	return floorDiv(days, 7) + 1
}

// MondayOfWeek 返回第 week 周的周一
func (t Term) MondayOfWeek(week int) time.Time {
	return MondayOf(t.Start).AddDate(0, 0, (week-1)*7)
}

func (t Term) location() *time.Location {
	if t.Start.IsZero() {
		return time.Local
	}
	return t.Start.Location()
}

// MondayOf 返回 date 所在周周一的零点（沿用 date 的时区）
func MondayOf(date time.Time) time.Time {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	offset := int(day.Weekday())
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, -offset+1)
}

// daysBetween 按日历日计算天数差，不受夏令时影响
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ── 时间格式 ──

// ParseHM 将 "08:30" 解析为当日分钟数
func ParseHM(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, ErrInvalidClock
	}
	total := h*60 + m
	if total > MinutesPerDay {
		return 0, ErrInvalidClock
	}
	return total, nil
}

// FormatHM 将当日分钟数格式化为 "HH:MM"
func FormatHM(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// FormatHMS 毫秒转 "HH:MM:SS"，负数按 0 处理
func FormatHMS(ms int64) string {
	total := ms / 1000
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ValidateRange 校验 [start, end) 是否为合法的当日时间段
func ValidateRange(start, end int) error {
	if start < 0 || end > MinutesPerDay {
		return ErrInvalidClock
	}
	if end <= start {
		return ErrInvalidTimeRange
	}
	return nil
}

// WeeksText 周次范围的展示文本
func WeeksText(weeks *WeekRange) string {
	if weeks == nil {
		return "全学期"
	}
	suffix := ""
	switch weeks.Parity {
	case ParityOdd:
		suffix = "（单周）"
	case ParityEven:
		suffix = "（双周）"
	}
	return fmt.Sprintf("第%d-%d周%s", weeks.Start, weeks.End, suffix)
}

// WeekLabel 周次标签
func WeekLabel(week int) string {
	if week < 1 {
		return "开学前"
	}
	return fmt.Sprintf("第%d周", week)
}
