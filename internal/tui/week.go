package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/dto"
)

const dayColumnWidth = 28

// LoadSnapshot 读取网页端快照（与 /api/data 结构一致），返回课程与专注记录。
// 无效条目跳过，skipped 为跳过数量。
func LoadSnapshot(r io.Reader) (courses []calendar.Entry, records []calendar.FocusRecord, skipped int, err error) {
	var snap dto.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, nil, 0, fmt.Errorf("解析快照失败: %w", err)
	}

	if len(snap.Courses) > 0 && string(snap.Courses) != "null" {
		var list []dto.SnapshotCourse
		if err := json.Unmarshal(snap.Courses, &list); err != nil {
			return nil, nil, 0, fmt.Errorf("解析课程失败: %w", err)
		}
		for i, c := range list {
			start, err1 := calendar.ParseHM(c.Start)
			end, err2 := calendar.ParseHM(c.End)
			if err1 != nil || err2 != nil || calendar.ValidateRange(start, end) != nil ||
				strings.TrimSpace(c.Title) == "" || c.Day < 0 || c.Day > 6 {
				skipped++
				continue
			}
			courses = append(courses, calendar.Entry{
				Key:         fmt.Sprintf("course-%d", i),
				Kind:        calendar.KindCourse,
				Title:       c.Title,
				Location:    c.Location,
				Day:         time.Weekday(c.Day),
				StartMinute: start,
				EndMinute:   end,
				Weeks:       c.Weeks,
				Order:       i,
			})
		}
	}

	if len(snap.FocusSessions) > 0 && string(snap.FocusSessions) != "null" {
		var list []dto.SnapshotFocusSession
		if err := json.Unmarshal(snap.FocusSessions, &list); err != nil {
			return nil, nil, 0, fmt.Errorf("解析专注记录失败: %w", err)
		}
		for i, s := range list {
			if s.Start.IsZero() || s.End.Before(s.Start) {
				skipped++
				continue
			}
			records = append(records, calendar.FocusRecord{
				Key:       fmt.Sprintf("focus-%d", i),
				Title:     s.Title,
				Start:     s.Start,
				End:       s.End,
				Completed: s.Completed,
			})
		}
	}
	return courses, records, skipped, nil
}

// RenderWeek 把周视图渲染为七列文本
func RenderWeek(v calendar.WeekView) string {
	columns := make([]string, 0, len(v.Days))
	for _, d := range v.Days {
		lines := []string{dayHeaderStyle.Render(d.Label)}
		if len(d.Blocks) == 0 {
			lines = append(lines, mutedStyle.Render("（空）"))
		}
		for _, b := range d.Blocks {
			lines = append(lines, renderBlock(b))
		}

		style := dayStyle
		if d.Today {
			style = todayStyle
		}
		columns = append(columns, style.Render(strings.Join(lines, "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(v.Label),
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
	)
}

func renderBlock(b calendar.Block) string {
	indent := strings.Repeat("│", b.Lane)
	text := fmt.Sprintf("%s%s-%s %s", indent, b.Start, b.End, b.Entry.Title)
	if b.Entry.Location != "" {
		text += " @" + b.Entry.Location
	}

	switch {
	case b.Entry.Kind == calendar.KindCourse:
		return courseStyle.Render(text)
	case b.Entry.Completed != nil && *b.Entry.Completed:
		return focusDoneStyle.Render("✓ " + text)
	default:
		return focusStyle.Render("· " + text)
	}
}
