package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/model"
	"github.com/flyswxf/calendar/internal/repository"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound     = errors.New("课程不存在")
	ErrCourseTitleEmpty   = errors.New("课程名称不能为空")
	ErrCourseInvalidDay   = errors.New("星期取值应为 0-6")
	ErrCourseInvalidTime  = errors.New("课程时间无效，结束时间必须晚于开始时间")
	ErrCourseInvalidWeeks = errors.New("周次范围无效")
	ErrICSParseFailed     = errors.New("ICS 文件解析失败")
	ErrICSEmpty           = errors.New("ICS 文件中未发现有效课程事件")
	ErrICSFetchFailed     = errors.New("ICS 链接获取失败")
)

// ICS 导入模式
const (
	ImportModeReplace = "replace"
	ImportModeAppend  = "append"
)

// ── CourseService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 课程按添加顺序保存，该顺序也是同一时刻开始的课程的分栏顺序
//   - 结束时间必须严格晚于开始时间，否则拒绝写入
//   - ICS 导入默认全量替换（事务封装在 Repository 层），也可追加
//   - 每次写入后异步镜像到远程存储
// ─────────────────────────────────────────────────────────────

// CourseService 课程模块业务接口
type CourseService interface {
	List(ctx context.Context, ownerID string) ([]dto.CourseResponse, error)
	Create(ctx context.Context, ownerID string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	Update(ctx context.Context, ownerID, courseID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, ownerID, courseID string) error
	// ImportICS 导入 ICS 课表（文件上传）
	ImportICS(ctx context.Context, ownerID string, reader io.Reader, mode string) (*dto.ImportICSResponse, error)
	// ImportICSFromURL 从订阅链接导入
	ImportICSFromURL(ctx context.Context, ownerID, url, mode string) (*dto.ImportICSResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	term   calendar.Term
	sync   mirror
	logger *zap.Logger
	fetch  func(ctx context.Context, url string) (io.ReadCloser, error)
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, term calendar.Term, sync mirror, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, term: term, sync: sync, logger: logger, fetch: FetchICSContent}
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(ctx context.Context, ownerID string) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		list = append(list, toCourseResponse(&courses[i]))
	}
	return list, nil
}

// ────────────────────── Create ──────────────────────

func (s *courseService) Create(ctx context.Context, ownerID string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	start, end, err := parseCourseClock(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	course, err := newCourse(req.Title, req.Day, start, end, req.Location, req.Weeks)
	if err != nil {
		return nil, err
	}
	course.OwnerID = ownerID

	if err := s.repo.Course.Append(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	s.mirror(ownerID)

	resp := toCourseResponse(course)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *courseService) Update(ctx context.Context, ownerID, courseID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, ownerID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	title, day, location := course.Title, course.DayOfWeek, course.Location
	start, end := course.StartMinute, course.EndMinute
	weeks := course.Weeks()

	if req.Title != nil {
		title = *req.Title
	}
	if req.Day != nil {
		day = *req.Day
	}
	if req.Location != nil {
		location = *req.Location
	}
	if req.Start != nil {
		if start, err = calendar.ParseHM(*req.Start); err != nil {
			return nil, ErrCourseInvalidTime
		}
	}
	if req.End != nil {
		if end, err = calendar.ParseHM(*req.End); err != nil {
			return nil, ErrCourseInvalidTime
		}
	}
	switch {
	case req.ClearWeeks:
		weeks = nil
	case req.Weeks != nil:
		weeks = req.Weeks
	}

	updated, err := newCourse(title, day, start, end, location, weeks)
	if err != nil {
		return nil, err
	}
	course.Title = updated.Title
	course.DayOfWeek = updated.DayOfWeek
	course.StartMinute = updated.StartMinute
	course.EndMinute = updated.EndMinute
	course.Location = updated.Location
	course.SetWeeks(updated.Weeks())

	if err := s.repo.Course.Update(ctx, course); err != nil {
		s.logger.Error("更新课程失败", zap.Error(err))
		return nil, err
	}
	s.mirror(ownerID)

	resp := toCourseResponse(course)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *courseService) Delete(ctx context.Context, ownerID, courseID string) error {
	if err := s.repo.Course.Delete(ctx, ownerID, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("删除课程失败", zap.Error(err))
		return err
	}
	s.mirror(ownerID)
	return nil
}

// ════════════════════════════════════════════════════════════
// ImportICS — 导入 ICS 课表
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 解析 ICS 内容为课程列表（周次相对学期起点）
//   2. replace：事务内删除旧课表 → 批量插入；append：追加到末尾

func (s *courseService) ImportICS(ctx context.Context, ownerID string, reader io.Reader, mode string) (*dto.ImportICSResponse, error) {
	if mode == "" {
		mode = ImportModeReplace
	}

	parsed, err := ParseICS(reader, s.term, defaultTermWeeks)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.Error(err))
		return nil, ErrICSParseFailed
	}

	courses := make([]model.Course, 0, len(parsed))
	events := make([]dto.ImportedCourseEvent, 0, len(parsed))
	for _, p := range parsed {
		c, err := newCourse(p.Title, int(p.Day), p.StartMinute, p.EndMinute, p.Location, p.WeekRange())
		if err != nil {
			s.logger.Warn("跳过无效 ICS 事件", zap.String("title", p.Title), zap.Error(err))
			continue
		}
		courses = append(courses, *c)
		events = append(events, dto.ImportedCourseEvent{
			Name:      c.Title,
			DayOfWeek: c.DayOfWeek,
			StartTime: calendar.FormatHM(c.StartMinute),
			EndTime:   calendar.FormatHM(c.EndMinute),
			Weeks:     p.Weeks,
			WeeksText: calendar.WeeksText(c.Weeks()),
		})
	}
	if len(courses) == 0 {
		return nil, ErrICSEmpty
	}

	if mode == ImportModeAppend {
		err = s.repo.Course.AppendBatch(ctx, ownerID, courses)
	} else {
		err = s.repo.Course.ReplaceAll(ctx, ownerID, courses)
	}
	if err != nil {
		s.logger.Error("课表导入事务失败", zap.Error(err))
		return nil, fmt.Errorf("课表导入失败: %w", err)
	}
	s.mirror(ownerID)

	s.logger.Info("ICS 课表导入完成",
		zap.String("owner", ownerID),
		zap.String("mode", mode),
		zap.Int("count", len(courses)),
	)
	return &dto.ImportICSResponse{
		ImportedCount: len(courses),
		Mode:          mode,
		Events:        events,
	}, nil
}

func (s *courseService) ImportICSFromURL(ctx context.Context, ownerID, url, mode string) (*dto.ImportICSResponse, error) {
	body, err := s.fetch(ctx, url)
	if err != nil {
		s.logger.Warn("获取 ICS 链接失败", zap.String("url", url), zap.Error(err))
		return nil, ErrICSFetchFailed
	}
	defer body.Close()
	return s.ImportICS(ctx, ownerID, body, mode)
}

func (s *courseService) mirror(ownerID string) {
	if s.sync != nil {
		s.sync.MirrorAsync(ownerID)
	}
}

// ── 辅助函数 ──

// newCourse 校验并构造课程
func newCourse(title string, day, start, end int, location string, weeks *calendar.WeekRange) (*model.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrCourseTitleEmpty
	}
	if day < 0 || day > 6 {
		return nil, ErrCourseInvalidDay
	}
	if err := calendar.ValidateRange(start, end); err != nil {
		return nil, ErrCourseInvalidTime
	}
	if weeks != nil {
		if err := weeks.Validate(); err != nil {
			return nil, ErrCourseInvalidWeeks
		}
	}

	c := &model.Course{
		Title:       title,
		DayOfWeek:   day,
		StartMinute: start,
		EndMinute:   end,
		Location:    strings.TrimSpace(location),
	}
	c.SetWeeks(weeks)
	return c, nil
}

func parseCourseClock(start, end string) (int, int, error) {
	s, err := calendar.ParseHM(start)
	if err != nil {
		return 0, 0, ErrCourseInvalidTime
	}
	e, err := calendar.ParseHM(end)
	if err != nil {
		return 0, 0, ErrCourseInvalidTime
	}
	return s, e, nil
}

func toCourseResponse(c *model.Course) dto.CourseResponse {
	resp := dto.CourseResponse{
		ID:        c.CourseID,
		Title:     c.Title,
		Day:       c.DayOfWeek,
		Start:     calendar.FormatHM(c.StartMinute),
		End:       calendar.FormatHM(c.EndMinute),
		Location:  c.Location,
		WeeksText: calendar.WeeksText(c.Weeks()),
	}
	if w := c.Weeks(); w != nil {
		resp.Weeks = &dto.WeeksResponse{
			Start:  w.Start,
			End:    w.End,
			Parity: string(w.Parity),
			Text:   resp.WeeksText,
		}
	}
	return resp
}
