package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/repository"
)

// ── 日历模块业务错误 ──

var (
	ErrCalendarInvalidDate = errors.New("日期格式无效，应为 YYYY-MM-DD")
)

// CalendarService 周视图业务接口
type CalendarService interface {
	// GetWeek 返回 date 所在周的视图，date 为空时取今天；viewport 为前端可视宽度（像素）
	GetWeek(ctx context.Context, ownerID, date string, viewport int) (*dto.WeekResponse, error)
	// Term 返回学期起点与当前周次
	Term(ctx context.Context) *dto.TermResponse
}

type calendarService struct {
	repo   *repository.Repository
	term   calendar.Term
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, term calendar.Term, logger *zap.Logger) CalendarService {
	return &calendarService{
		repo:   repo,
		term:   term,
		loc:    term.Start.Location(),
		now:    time.Now,
		logger: logger,
	}
}

func (s *calendarService) GetWeek(ctx context.Context, ownerID, date string, viewport int) (*dto.WeekResponse, error) {
	now := s.now().In(s.loc)
	anchor := now
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return nil, ErrCalendarInvalidDate
		}
		anchor = d
	}

	courses, err := s.repo.Course.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}

	weekStart := calendar.MondayOf(anchor)
	sessions, err := s.repo.FocusSession.ListBetween(ctx, ownerID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		s.logger.Error("查询专注记录失败", zap.Error(err))
		return nil, err
	}

	entries := make([]calendar.Entry, 0, len(courses))
	for i, c := range courses {
		entries = append(entries, calendar.Entry{
			Key:         c.CourseID,
			Kind:        calendar.KindCourse,
			Title:       c.Title,
			Location:    c.Location,
			Day:         time.Weekday(c.DayOfWeek),
			StartMinute: c.StartMinute,
			EndMinute:   c.EndMinute,
			Weeks:       c.Weeks(),
			Order:       i,
		})
	}
	records := make([]calendar.FocusRecord, 0, len(sessions))
	for _, fs := range sessions {
		records = append(records, calendar.FocusRecord{
			Key:       fs.FocusSessionID,
			Title:     fs.Title,
			Start:     fs.StartAt,
			End:       fs.EndAt,
			Completed: fs.Completed,
		})
	}

	ppm := calendar.PixelsPerMinute(viewport)
	view := calendar.BuildWeek(s.term, anchor, entries, records, ppm, now)
	return toWeekResponse(view), nil
}

func (s *calendarService) Term(_ context.Context) *dto.TermResponse {
	week := s.term.WeekNumberOf(s.now())
	return &dto.TermResponse{
		TermStart:   s.term.Start.Format("2006-01-02"),
		CurrentWeek: week,
		Label:       calendar.WeekLabel(week),
	}
}

// ── 响应转换 ──

func toWeekResponse(v calendar.WeekView) *dto.WeekResponse {
	resp := &dto.WeekResponse{
		WeekStart:       v.WeekStart.Format("2006-01-02"),
		WeekEnd:         v.WeekEnd.Format("2006-01-02"),
		WeekNumber:      v.WeekNumber,
		Label:           v.Label,
		PixelsPerMinute: v.PixelsPerMinute,
		DayStartMinute:  calendar.DayStartMinute,
		DayEndMinute:    calendar.DayEndMinute,
		Days:            make([]dto.DayResponse, 0, len(v.Days)),
	}
	for _, d := range v.Days {
		day := dto.DayResponse{
			Date:    d.Date.Format("2006-01-02"),
			Weekday: int(d.Weekday),
			Label:   d.Label,
			Today:   d.Today,
			NowLine: d.NowLine,
			Blocks:  make([]dto.BlockResponse, 0, len(d.Blocks)),
		}
		for _, b := range d.Blocks {
			block := dto.BlockResponse{
				Key:        b.Entry.Key,
				Kind:       string(b.Entry.Kind),
				Title:      b.Entry.Title,
				Location:   b.Entry.Location,
				Start:      b.Start,
				End:        b.End,
				Completed:  b.Entry.Completed,
				Lane:       b.Lane,
				TotalLanes: b.TotalLanes,
				Top:        b.Top,
				Height:     b.Height,
				Left:       b.LeftFraction,
				Width:      b.WidthFraction,
			}
			if b.Entry.Kind == calendar.KindCourse {
				block.WeeksText = calendar.WeeksText(b.Entry.Weeks)
			}
			day.Blocks = append(day.Blocks, block)
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}
