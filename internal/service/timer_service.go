package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/model"
	"github.com/flyswxf/calendar/internal/repository"
	"github.com/flyswxf/calendar/internal/timer"
	pkgerrors "github.com/flyswxf/calendar/pkg/errors"
)

// ── 计时器模块业务错误 ──

var (
	ErrTimerActive      = errors.New("已有计时正在进行，请先结束当前专注")
	ErrTimerInvalidMode = errors.New("计时模式无效，应为 countdown 或 stopwatch")
)

// ── TimerService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 每个用户一个 timer.Runner，首次访问时创建；空闲超过 IdleTimeout 且未在计时的被回收
//   - 绑定待办时记录任务主键，完成时按主键定位，不受期间删除、清理、拉取导致的序号变化影响
//   - 状态非法的操作为空操作，返回当前状态，不报错
//   - 会话记录与任务完成通过 Sink 写入 Repository，再异步镜像到远程
// ─────────────────────────────────────────────────────────────

// TimerService 专注计时器业务接口
type TimerService interface {
	Status(ctx context.Context, ownerID string) *dto.TimerStatusResponse
	// Open 打开计时器并绑定待办；计时进行中时拒绝
	Open(ctx context.Context, ownerID string, req *dto.OpenTimerRequest) (*dto.TimerStatusResponse, error)
	Start(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)
	Pause(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)
	Resume(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)
	Reset(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)
	Finish(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)
	Stop(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)
	SetMode(ctx context.Context, ownerID, mode string) (*dto.TimerStatusResponse, error)
	SetCountdown(ctx context.Context, ownerID string, minutes int) (*dto.TimerStatusResponse, error)
	// Close 停止所有刷新 goroutine
	Close()
}

// TimerOptions 计时器默认配置
type TimerOptions struct {
	TickInterval            time.Duration
	DefaultCountdownMinutes int
	// IdleTimeout 空闲 Runner 的回收时间，0 取默认值，负数不回收
	IdleTimeout time.Duration
	Clock       timer.Clock
}

const defaultTimerIdleTimeout = 30 * time.Minute

type timerService struct {
	repo   *repository.Repository
	sync   mirror
	opts   TimerOptions
	logger *zap.Logger

	mu        sync.Mutex
	timers    map[string]*ownerTimer
	lastSweep time.Time
}

// ownerTimer 单个用户的计时器
type ownerTimer struct {
	runner   *timer.Runner
	sink     *timerSink
	lastUsed time.Time
}

// NewTimerService 创建 TimerService 实例
func NewTimerService(repo *repository.Repository, sync mirror, opts TimerOptions, logger *zap.Logger) TimerService {
	if opts.Clock == nil {
		opts.Clock = timer.RealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = timer.TickInterval
	}
	if opts.DefaultCountdownMinutes <= 0 {
		opts.DefaultCountdownMinutes = timer.DefaultCountdownMinutes
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = defaultTimerIdleTimeout
	}
	return &timerService{
		repo:   repo,
		sync:   sync,
		opts:   opts,
		logger: logger,
		timers: make(map[string]*ownerTimer),
	}
}

func (s *timerService) lookup(ownerID string) *ownerTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock.Now()
	s.evictIdleLocked(now)

	if ot, ok := s.timers[ownerID]; ok {
		ot.lastUsed = now
		return ot
	}
	session := timer.NewSession()
	session.CountdownTarget = time.Duration(timer.ClampMinutes(s.opts.DefaultCountdownMinutes)) * time.Minute
	sink := &timerSink{ownerID: ownerID, repo: s.repo, sync: s.sync, logger: s.logger}
	r := timer.NewRunner(s.opts.Clock, sink, s.logger.With(zap.String("owner", ownerID)),
		timer.WithInterval(s.opts.TickInterval),
		timer.WithSession(session),
	)
	ot := &ownerTimer{runner: r, sink: sink, lastUsed: now}
	s.timers[ownerID] = ot
	return ot
}

// evictIdleLocked 回收长时间未访问且处于 idle 的 Runner，最多每半个 IdleTimeout 扫描一次
func (s *timerService) evictIdleLocked(now time.Time) {
	if s.opts.IdleTimeout < 0 || now.Sub(s.lastSweep) < s.opts.IdleTimeout/2 {
		return
	}
	s.lastSweep = now
	for id, ot := range s.timers {
		if now.Sub(ot.lastUsed) < s.opts.IdleTimeout || ot.runner.Active() {
			continue
		}
		ot.runner.Close()
		delete(s.timers, id)
		s.logger.Debug("回收空闲计时器", zap.String("owner", id))
	}
}

func (s *timerService) runner(ownerID string) *timer.Runner {
	return s.lookup(ownerID).runner
}

func (s *timerService) dispatch(ctx context.Context, ownerID string, ev timer.Event) (*dto.TimerStatusResponse, error) {
	st, err := s.runner(ownerID).Dispatch(ctx, ev)
	if err != nil {
		return nil, err
	}
	return toTimerStatus(st), nil
}

func (s *timerService) Status(_ context.Context, ownerID string) *dto.TimerStatusResponse {
	return toTimerStatus(s.runner(ownerID).Status())
}

// ════════════════════════════════════════════════════════════
// Open — 绑定待办
// ════════════════════════════════════════════════════════════

func (s *timerService) Open(ctx context.Context, ownerID string, req *dto.OpenTimerRequest) (*dto.TimerStatusResponse, error) {
	ot := s.lookup(ownerID)
	if ot.runner.Active() {
		return nil, ErrTimerActive
	}

	title := strings.TrimSpace(req.Title)
	taskID := ""
	if req.TaskIndex != nil {
		tasks, err := s.repo.Task.List(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		idx := *req.TaskIndex
		if idx < 0 || idx >= len(tasks) {
			return nil, ErrTaskNotFound
		}
		if title == "" {
			title = tasks[idx].Text
		}
		taskID = tasks[idx].TaskID
	}

	ot.sink.bind(taskID)
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventBind, Task: req.TaskIndex, Title: title})
}

// ────────────────────── 计时控制 ──────────────────────

func (s *timerService) Start(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventStart})
}

func (s *timerService) Pause(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventPause})
}

func (s *timerService) Resume(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventResume})
}

func (s *timerService) Reset(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventReset})
}

func (s *timerService) Finish(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventFinish})
}

func (s *timerService) Stop(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventStop})
}

func (s *timerService) SetMode(ctx context.Context, ownerID, mode string) (*dto.TimerStatusResponse, error) {
	m := timer.Mode(mode)
	if !m.Valid() {
		return nil, ErrTimerInvalidMode
	}
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventSetMode, Mode: m})
}

func (s *timerService) SetCountdown(ctx context.Context, ownerID string, minutes int) (*dto.TimerStatusResponse, error) {
	return s.dispatch(ctx, ownerID, timer.Event{Kind: timer.EventSetCountdown, Minutes: minutes})
}

func (s *timerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ot := range s.timers {
		ot.runner.Close()
	}
}

// ── Sink ──

// timerSink 将计时器副作用写入数据库
type timerSink struct {
	ownerID string
	repo    *repository.Repository
	sync    mirror
	logger  *zap.Logger

	mu     sync.Mutex
	taskID string
}

// bind 记录绑定待办的主键，空串表示未绑定
func (k *timerSink) bind(taskID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.taskID = taskID
}

func (k *timerSink) RecordSession(ctx context.Context, rec timer.Record) error {
	fs := &model.FocusSession{
		OwnerID:   k.ownerID,
		Title:     rec.Title,
		StartAt:   rec.Start,
		EndAt:     rec.End,
		Mode:      string(rec.Mode),
		Completed: rec.Completed,
	}
	if err := k.repo.FocusSession.Append(ctx, fs); err != nil {
		return err
	}
	k.logger.Info("专注记录已保存",
		zap.String("owner", k.ownerID),
		zap.String("title", rec.Title),
		zap.Duration("duration", rec.End.Sub(rec.Start)),
		zap.Bool("completed", rec.Completed),
	)
	if k.sync != nil {
		k.sync.MirrorAsync(k.ownerID)
	}
	return nil
}

// CompleteTask 按绑定时记录的主键完成待办，index 仅用于日志
func (k *timerSink) CompleteTask(ctx context.Context, index int) error {
	k.mu.Lock()
	taskID := k.taskID
	k.mu.Unlock()
	if taskID == "" {
		k.logger.Warn("完成事件缺少绑定的待办", zap.String("owner", k.ownerID), zap.Int("index", index))
		return nil
	}

	_, err := k.repo.Task.UpdateByID(ctx, k.ownerID, taskID, func(t *model.Task) {
		t.Completed = true
	})
	if errors.Is(err, pkgerrors.ErrRecordNotFound) {
		// 绑定后任务被删除、清理或被远程快照替换，忽略
		k.logger.Warn("绑定的待办已不存在",
			zap.String("owner", k.ownerID),
			zap.String("task_id", taskID),
			zap.Int("index", index),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if k.sync != nil {
		k.sync.MirrorAsync(k.ownerID)
	}
	return nil
}

// ── 响应转换 ──

func toTimerStatus(st timer.Status) *dto.TimerStatusResponse {
	resp := &dto.TimerStatusResponse{
		Mode:             string(st.Mode),
		State:            string(st.State),
		Title:            st.Title,
		TaskIndex:        st.BoundTask,
		StartedAt:        st.StartedAt,
		ElapsedMs:        st.Elapsed.Milliseconds(),
		RemainingMs:      st.Remaining.Milliseconds(),
		CountdownMinutes: int(st.CountdownTarget / time.Minute),
	}
	if st.Mode == timer.ModeCountdown {
		resp.Display = calendar.FormatHMS(resp.RemainingMs)
	} else {
		resp.Display = calendar.FormatHMS(resp.ElapsedMs)
	}
	return resp
}
