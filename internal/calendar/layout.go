package calendar

import (
	"sort"
	"time"
)

// MinBlockHeight 事件块最小高度（像素）
const MinBlockHeight = 18.0

// Kind 事件类型
type Kind string

const (
	KindCourse Kind = "course"
	KindFocus  Kind = "focus"
)

// Entry 待排版的一条日程（课程或专注记录）
type Entry struct {
	Key         string
	Kind        Kind
	Title       string
	Location    string
	Day         time.Weekday
	StartMinute int
	EndMinute   int
	Weeks       *WeekRange
	Completed   *bool
	// Order 稳定排序用的插入序号
	Order int
}

func (e Entry) overlaps(o Entry) bool {
	return e.StartMinute < o.EndMinute && o.StartMinute < e.EndMinute
}

// Placement 分栏结果
type Placement struct {
	Entry      Entry
	Lane       int
	TotalLanes int
}

// Position 垂直方向坐标（像素）
type Position struct {
	Top    float64
	Height float64
}

// PositionOf 计算时间块的 top/height。top 不为负，height 不做下边界裁剪。
func PositionOf(startMinute, endMinute int, pixelsPerMinute float64) Position {
	top := float64(startMinute-DayStartMinute) * pixelsPerMinute
	if top < 0 {
		top = 0
	}
	height := float64(endMinute-startMinute) * pixelsPerMinute
	if height < MinBlockHeight {
		height = MinBlockHeight
	}
	return Position{Top: top, Height: height}
}

// PixelsPerMinute 按视口宽度选择缩放比例
func PixelsPerMinute(viewportWidth int) float64 {
	switch {
	case viewportWidth > 0 && viewportWidth <= 480:
		return 35.0 / 60.0
	case viewportWidth > 0 && viewportWidth <= 768:
		return 40.0 / 60.0
	default:
		return 0.8
	}
}

// LayoutDay 对同一天的日程做可见性过滤与重叠分栏。
//
// 先按 (StartMinute, Order) 稳定排序，再把每条日程放入编号最小的、
// 与其已有日程均无 [start,end) 重叠的栏；都冲突时新开一栏。
// TotalLanes 取所在冲突组（传递重叠的连续区间）的栏数。
func LayoutDay(entries []Entry, week int) []Placement {
	visible := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !IsVisible(e.Weeks, week) {
			continue
		}
		visible = append(visible, e)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].StartMinute != visible[j].StartMinute {
			return visible[i].StartMinute < visible[j].StartMinute
		}
		return visible[i].Order < visible[j].Order
	})

	placements := make([]Placement, 0, len(visible))
	var lanes [][]Entry

	groupStart := 0
	groupEnd := -1
	groupLanes := 0
	closeGroup := func(upTo int) {
		for k := groupStart; k < upTo; k++ {
			placements[k].TotalLanes = groupLanes
		}
	}

	for _, e := range visible {
		// 与当前冲突组不相交则结束该组
		if len(placements) > 0 && e.StartMinute >= groupEnd {
			closeGroup(len(placements))
			groupStart = len(placements)
			groupLanes = 0
		}

		lane := 0
		for lane < len(lanes) {
			conflict := false
			for _, existing := range lanes[lane] {
				if e.overlaps(existing) {
					conflict = true
					break
				}
			}
			if !conflict {
				break
			}
			lane++
		}
		if lane == len(lanes) {
			lanes = append(lanes, nil)
		}
		lanes[lane] = append(lanes[lane], e)

		if lane+1 > groupLanes {
			groupLanes = lane + 1
		}
		groupEnd = max(groupEnd, e.EndMinute)
		placements = append(placements, Placement{Entry: e, Lane: lane})
	}
	closeGroup(len(placements))

	return placements
}
