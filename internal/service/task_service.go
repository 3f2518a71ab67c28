package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/model"
	"github.com/flyswxf/calendar/internal/repository"
	pkgerrors "github.com/flyswxf/calendar/pkg/errors"
)

// ── 待办模块业务错误 ──

var (
	ErrTaskEmpty    = errors.New("待办内容不能为空")
	ErrTaskNotFound = errors.New("待办不存在")
)

// ── TaskService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 待办按添加顺序排列，对外以序号（index）定位
//   - 每日清理：删除已完成待办，未完成的标记为遗留（is_legacy），遗留待办不会被自动删除
//   - 清理日期记录在 app_state，启动时若当天尚未清理则补做一次，之后每天零点执行
// ─────────────────────────────────────────────────────────────

// TaskService 待办模块业务接口
type TaskService interface {
	List(ctx context.Context, ownerID string) ([]dto.TaskResponse, error)
	Add(ctx context.Context, ownerID, text string) (*dto.TaskResponse, error)
	// Toggle 切换完成状态
	Toggle(ctx context.Context, ownerID string, index int) (*dto.TaskResponse, error)
	// Complete 标记完成（计时器完成时调用）
	Complete(ctx context.Context, ownerID string, index int) (*dto.TaskResponse, error)
	Delete(ctx context.Context, ownerID string, index int) error
	// ReplaceAll 用给定列表覆盖
	ReplaceAll(ctx context.Context, ownerID string, tasks []dto.SnapshotTask) ([]dto.TaskResponse, error)
	// Cleanup 立即执行清理；ownerID 为空时处理全部用户
	Cleanup(ctx context.Context, ownerID string) (*dto.CleanupResponse, error)
	// CheckInitialCleanup 当天尚未清理时执行一次全量清理，ran 表示是否实际执行
	CheckInitialCleanup(ctx context.Context) (resp *dto.CleanupResponse, ran bool, err error)
	// RunDailyCleanup 每天零点执行清理，阻塞至 ctx 取消
	RunDailyCleanup(ctx context.Context)
}

type taskService struct {
	repo   *repository.Repository
	sync   mirror
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例，loc 决定“每天零点”的时区
func NewTaskService(repo *repository.Repository, sync mirror, loc *time.Location, logger *zap.Logger) TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &taskService{repo: repo, sync: sync, loc: loc, now: time.Now, logger: logger}
}

// ────────────────────── 查询与修改 ──────────────────────

func (s *taskService) List(ctx context.Context, ownerID string) ([]dto.TaskResponse, error) {
	tasks, err := s.repo.Task.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("查询待办失败", zap.Error(err))
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

func (s *taskService) Add(ctx context.Context, ownerID, text string) (*dto.TaskResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrTaskEmpty
	}

	task := &model.Task{OwnerID: ownerID, Text: text}
	task.CreatedAt = s.now()
	task.UpdatedAt = task.CreatedAt
	if err := s.repo.Task.Append(ctx, task); err != nil {
		s.logger.Error("添加待办失败", zap.Error(err))
		return nil, err
	}
	s.mirror(ownerID)

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Toggle(ctx context.Context, ownerID string, index int) (*dto.TaskResponse, error) {
	return s.update(ctx, ownerID, index, func(t *model.Task) { t.Completed = !t.Completed })
}

func (s *taskService) Complete(ctx context.Context, ownerID string, index int) (*dto.TaskResponse, error) {
	return s.update(ctx, ownerID, index, func(t *model.Task) { t.Completed = true })
}

func (s *taskService) update(ctx context.Context, ownerID string, index int, mutate func(*model.Task)) (*dto.TaskResponse, error) {
	task, err := s.repo.Task.UpdateAt(ctx, ownerID, index, mutate)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrIndexOutOfRange) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("更新待办失败", zap.Error(err))
		return nil, err
	}
	s.mirror(ownerID)

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Delete(ctx context.Context, ownerID string, index int) error {
	if err := s.repo.Task.DeleteAt(ctx, ownerID, index); err != nil {
		if errors.Is(err, pkgerrors.ErrIndexOutOfRange) {
			return ErrTaskNotFound
		}
		s.logger.Error("删除待办失败", zap.Error(err))
		return err
	}
	s.mirror(ownerID)
	return nil
}

func (s *taskService) ReplaceAll(ctx context.Context, ownerID string, items []dto.SnapshotTask) ([]dto.TaskResponse, error) {
	tasks := make([]model.Task, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			return nil, ErrTaskEmpty
		}
		t := taskFromSnapshot(it)
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
			t.UpdatedAt = t.CreatedAt
		}
		tasks = append(tasks, t)
	}

	if err := s.repo.Task.ReplaceAll(ctx, ownerID, tasks); err != nil {
		s.logger.Error("替换待办失败", zap.Error(err))
		return nil, err
	}
	s.mirror(ownerID)
	return toTaskResponses(tasks), nil
}

// ════════════════════════════════════════════════════════════
// 每日清理
// ════════════════════════════════════════════════════════════

func (s *taskService) Cleanup(ctx context.Context, ownerID string) (*dto.CleanupResponse, error) {
	purged, flagged, err := s.repo.Task.Rollover(ctx, ownerID)
	if err != nil {
		s.logger.Error("每日清理失败", zap.Error(err))
		return nil, err
	}
	if ownerID != "" {
		s.mirror(ownerID)
	}

	today := s.today()
	s.logger.Info("待办每日清理完成",
		zap.String("owner", ownerID),
		zap.Int64("purged", purged),
		zap.Int64("flagged", flagged),
		zap.String("date", today),
	)
	return &dto.CleanupResponse{Purged: purged, Flagged: flagged, Date: today}, nil
}

func (s *taskService) CheckInitialCleanup(ctx context.Context) (*dto.CleanupResponse, bool, error) {
	today := s.today()
	last, ok, err := s.repo.AppState.Get(ctx, model.StateKeyLastCleanup)
	if err != nil {
		return nil, false, err
	}
	if ok && last == today {
		return nil, false, nil
	}

	resp, err := s.Cleanup(ctx, "")
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.AppState.Set(ctx, model.StateKeyLastCleanup, today); err != nil {
		s.logger.Warn("写入清理日期失败", zap.Error(err))
	}
	return resp, true, nil
}

func (s *taskService) RunDailyCleanup(ctx context.Context) {
	for {
		wait := nextMidnight(s.now().In(s.loc)).Sub(s.now())
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			if _, _, err := s.CheckInitialCleanup(ctx); err != nil {
				s.logger.Error("定时清理失败", zap.Error(err))
			}
		}
	}
}

func (s *taskService) today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

func (s *taskService) mirror(ownerID string) {
	if s.sync != nil {
		s.sync.MirrorAsync(ownerID)
	}
}

// nextMidnight 返回 t 之后的下一个零点（沿用 t 的时区）
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// ── 响应转换 ──

func toTaskResponse(t *model.Task) dto.TaskResponse {
	return dto.TaskResponse{
		Index:     t.Position,
		ID:        t.TaskID,
		Text:      t.Text,
		Completed: t.Completed,
		IsLegacy:  t.IsLegacy,
		CreatedAt: t.CreatedAt,
	}
}

func toTaskResponses(tasks []model.Task) []dto.TaskResponse {
	list := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp := toTaskResponse(&tasks[i])
		resp.Index = i
		list = append(list, resp)
	}
	return list
}
