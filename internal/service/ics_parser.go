package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/flyswxf/calendar/internal/calendar"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为课程列表。
//
// 设计决策：
//   - DTSTART/DTEND 确定星期几与起止分钟
//   - RRULE 确定重复模式 → 映射到学期周次
//   - 无 RRULE 的单次事件仅填对应周次
//   - 合并同 title+day+time 不同周次的事件（ICS 可能以多个单次事件表示同一课程）
//   - 周次列表折叠为 {start,end,parity}；不连续的周次取首尾范围
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize   = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout  = 30 * time.Second
	defaultTermWeeks = 25
)

// icsCourse ICS 解析中间结构
type icsCourse struct {
	Title       string
	Location    string
	Day         time.Weekday
	StartMinute int
	EndMinute   int
	Weeks       []int
}

// WeekRange 将周次列表折叠为周次范围
func (c icsCourse) WeekRange() *calendar.WeekRange {
	if len(c.Weeks) == 0 {
		return nil
	}
	weeks := append([]int(nil), c.Weeks...)
	sort.Ints(weeks)
	return &calendar.WeekRange{
		Start:  weeks[0],
		End:    weeks[len(weeks)-1],
		Parity: deriveParity(weeks),
	}
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容，周次相对 term 计算，超出 totalWeeks 的日期忽略
func ParseICS(reader io.Reader, term calendar.Term, totalWeeks int) ([]icsCourse, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if totalWeeks < 1 {
		totalWeeks = defaultTermWeeks
	}
	loc := term.Start.Location()

	// 阶段 1: 解析所有 VEVENT
	var events []icsCourse
	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp, term, totalWeeks, loc)
		if !ok {
			continue
		}
		events = append(events, evt)
	}

	// 阶段 2: 合并同课程的周次
	merged := mergeEvents(events)
	for i := range merged {
		sort.Ints(merged[i].Weeks)
	}
	return merged, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, term calendar.Term, totalWeeks int, loc *time.Location) (icsCourse, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return icsCourse{}, false
	}

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return icsCourse{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		durProp := evt.GetProperty(ics.ComponentPropertyDuration)
		if durProp == nil {
			return icsCourse{}, false
		}
		d, ok := parseICSDuration(durProp.Value)
		if !ok {
			return icsCourse{}, false
		}
		dtEnd = dtStart.Add(d)
	}

	startMinute := dtStart.Hour()*60 + dtStart.Minute()
	endMinute := startMinute + int(dtEnd.Sub(dtStart).Minutes())
	if calendar.ValidateRange(startMinute, endMinute) != nil {
		// 跨午夜或零时长的事件无法放入日视图
		return icsCourse{}, false
	}

	weeks := computeWeeks(evt, dtStart, term, totalWeeks, loc)
	if len(weeks) == 0 {
		return icsCourse{}, false
	}

	var location string
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		location = strings.TrimSpace(p.Value)
	}

	return icsCourse{
		Title:       strings.TrimSpace(summary.Value),
		Location:    location,
		Day:         dtStart.Weekday(),
		StartMinute: startMinute,
		EndMinute:   endMinute,
		Weeks:       weeks,
	}, true
}

// computeWeeks 根据 RRULE / EXDATE / 单次事件计算周次列表
func computeWeeks(evt *ics.VEvent, dtStart time.Time, term calendar.Term, totalWeeks int, loc *time.Location) []int {
	inTerm := func(t time.Time) (int, bool) {
		wk := term.WeekNumberOf(t)
		return wk, wk >= 1 && wk <= totalWeeks
	}

	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		if wk, ok := inTerm(dtStart); ok {
			return []int{wk}
		}
		return nil
	}

	rule := parseRRule(rruleProp.Value)
	if rule.freq != "WEEKLY" {
		if wk, ok := inTerm(dtStart); ok {
			return []int{wk}
		}
		return nil
	}

	exDates := parseExDates(evt, loc)

	interval := rule.interval
	if interval < 1 {
		interval = 1
	}

	var weeks []int
	weekSet := make(map[int]bool)

	maxDate := term.MondayOfWeek(totalWeeks + 1)
	current := dtStart
	for count := 0; ; count++ {
		if !rule.until.IsZero() && current.After(rule.until) {
			break
		}
		if rule.count > 0 && count >= rule.count {
			break
		}
		if !current.Before(maxDate) {
			break
		}

		if wk, ok := inTerm(current); ok {
			if !exDates[current.Format("20060102")] && !weekSet[wk] {
				weekSet[wk] = true
				weeks = append(weeks, wk)
			}
		}
		current = current.AddDate(0, 0, 7*interval)
	}
	return weeks
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
				if !t.IsZero() {
					// 仅日期的 UNTIL 包含当天
					t = t.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		}
	}
	return r
}

// parseICSDuration 解析 DURATION（仅支持 PT#H#M / P#D 形式）
func parseICSDuration(value string) (time.Duration, bool) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if !strings.HasPrefix(v, "P") {
		return 0, false
	}
	v = strings.TrimPrefix(v, "P")
	var total time.Duration
	if i := strings.Index(v, "D"); i >= 0 {
		var days int
		if _, err := fmt.Sscanf(v[:i], "%d", &days); err != nil {
			return 0, false
		}
		total += time.Duration(days) * 24 * time.Hour
		v = v[i+1:]
	}
	v = strings.TrimPrefix(v, "T")
	if v != "" {
		d, err := time.ParseDuration(strings.ToLower(v))
		if err != nil {
			return 0, false
		}
		total += d
	}
	return total, total > 0
}

// parseExDates 解析事件中所有 EXDATE
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, raw := range strings.Split(prop.Value, ",") {
			t, err := time.Parse("20060102T150405Z", raw)
			if err != nil {
				t, err = time.ParseInLocation("20060102T150405", raw, loc)
				if err != nil {
					t, err = time.ParseInLocation("20060102", raw, loc)
				}
			}
			if err == nil {
				exDates[t.In(loc).Format("20060102")] = true
			}
		}
	}
	return exDates
}

// mergeEvents 合并相同课程事件的周次，保持首次出现顺序
func mergeEvents(events []icsCourse) []icsCourse {
	type key struct {
		Title       string
		Day         time.Weekday
		StartMinute int
		EndMinute   int
	}
	merged := make(map[key]*icsCourse)
	order := []key{}

	for _, e := range events {
		k := key{Title: e.Title, Day: e.Day, StartMinute: e.StartMinute, EndMinute: e.EndMinute}
		existing, ok := merged[k]
		if !ok {
			cp := e
			cp.Weeks = append([]int(nil), e.Weeks...)
			merged[k] = &cp
			order = append(order, k)
			continue
		}
		weekSet := make(map[int]bool, len(existing.Weeks))
		for _, w := range existing.Weeks {
			weekSet[w] = true
		}
		for _, w := range e.Weeks {
			if !weekSet[w] {
				existing.Weeks = append(existing.Weeks, w)
			}
		}
		if existing.Location == "" {
			existing.Location = e.Location
		}
	}

	result := make([]icsCourse, 0, len(merged))
	for _, k := range order {
		result = append(result, *merged[k])
	}
	return result
}

// deriveParity 根据周次列表推导单双周
func deriveParity(weeks []int) calendar.Parity {
	if len(weeks) < 2 {
		return calendar.ParityAll
	}
	allOdd, allEven := true, true
	for _, w := range weeks {
		if w%2 == 0 {
			allOdd = false
		} else {
			allEven = false
		}
	}
	switch {
	case allOdd:
		return calendar.ParityOdd
	case allEven:
		return calendar.ParityEven
	}
	return calendar.ParityAll
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
