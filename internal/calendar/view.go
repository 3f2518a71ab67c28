package calendar

import (
	"fmt"
	"time"
)

var weekdayNames = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// FocusRecord 一次专注记录，按开始时刻所在日期放入周视图
type FocusRecord struct {
	Key       string
	Title     string
	Start     time.Time
	End       time.Time
	Completed bool
}

// Block 可直接渲染的事件块
type Block struct {
	Placement
	Position
	LeftFraction  float64
	WidthFraction float64
	Start         string
	End           string
}

// DayView 一天的渲染结果
type DayView struct {
	Date    time.Time
	Weekday time.Weekday
	Label   string
	Today   bool
	// NowLine 当前时间线的 top（仅今天且在时间轴范围内）
	NowLine *float64
	Blocks  []Block
}

// WeekView 一周的渲染结果，Days 从周一到周日
type WeekView struct {
	WeekStart       time.Time
	WeekEnd         time.Time
	WeekNumber      int
	Label           string
	PixelsPerMinute float64
	Days            [7]DayView
}

// BuildWeek 生成 anchor 所在周的完整视图
func BuildWeek(term Term, anchor time.Time, courses []Entry, sessions []FocusRecord, ppm float64, now time.Time) WeekView {
	loc := term.location()
	weekStart := MondayOf(anchor.In(loc))
	weekEnd := weekStart.AddDate(0, 0, 6)
	week := term.WeekNumberOf(weekStart)

	view := WeekView{
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		WeekNumber:      week,
		Label:           fmt.Sprintf("%s - %s （%s）", formatDateLabel(weekStart), formatDateLabel(weekEnd), WeekLabel(week)),
		PixelsPerMinute: ppm,
	}

	// 按星期分组：索引 0 为周一
	byDay := [7][]Entry{}
	for _, c := range courses {
		idx := dayIndex(c.Day)
		byDay[idx] = append(byDay[idx], c)
	}
	order := len(courses)
	for _, s := range sessions {
		start := s.Start.In(loc)
		day := dateOnly(start)
		if day.Before(weekStart) || day.After(weekEnd) {
			continue
		}
		completed := s.Completed
		entry := Entry{
			Key:         s.Key,
			Kind:        KindFocus,
			Title:       s.Title,
			Day:         start.Weekday(),
			StartMinute: start.Hour()*60 + start.Minute(),
			EndMinute:   sessionEndMinute(day, s.End.In(loc)),
			Completed:   &completed,
			Order:       order,
		}
		if entry.EndMinute < entry.StartMinute {
			entry.EndMinute = entry.StartMinute
		}
		order++
		idx := dayIndex(entry.Day)
		byDay[idx] = append(byDay[idx], entry)
	}

	localNow := now.In(loc)
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i)
		dv := DayView{
			Date:    date,
			Weekday: date.Weekday(),
			Label:   fmt.Sprintf("%s %d/%d", weekdayNames[i], int(date.Month()), date.Day()),
		}
		if !now.IsZero() && sameDate(date, localNow) {
			dv.Today = true
			minute := localNow.Hour()*60 + localNow.Minute()
			if minute >= DayStartMinute && minute <= DayEndMinute {
				top := float64(minute-DayStartMinute) * ppm
				dv.NowLine = &top
			}
		}
		for _, p := range LayoutDay(byDay[i], week) {
			dv.Blocks = append(dv.Blocks, toBlock(p, ppm))
		}
		view.Days[i] = dv
	}
	return view
}

func toBlock(p Placement, ppm float64) Block {
	total := p.TotalLanes
	if total < 1 {
		total = 1
	}
	width := 1.0 / float64(total)
	return Block{
		Placement:     p,
		Position:      PositionOf(p.Entry.StartMinute, p.Entry.EndMinute, ppm),
		LeftFraction:  float64(p.Lane) * width,
		WidthFraction: width,
		Start:         FormatHM(p.Entry.StartMinute),
		End:           FormatHM(p.Entry.EndMinute),
	}
}

// dayIndex 周一为 0，周日为 6
func dayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// sessionEndMinute 跨过午夜的记录截断到当天 24:00
func sessionEndMinute(day, end time.Time) int {
	if dateOnly(end).After(day) {
		return MinutesPerDay
	}
	return end.Hour()*60 + end.Minute()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func formatDateLabel(d time.Time) string {
	return d.Format("2006.01.02")
}
