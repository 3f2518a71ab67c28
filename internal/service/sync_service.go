package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

// ── 同步模块业务错误 ──

var (
	ErrSyncSnapshotInvalid = errors.New("远程快照格式无效")
)

// KVStore 远程键值存储（Redis 实现）
type KVStore interface {
	// Get key 不存在时返回 nil, nil
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// mirror 本地数据变更后的远程镜像
type mirror interface {
	MirrorAsync(ownerID string)
}

// SyncService 远程同步业务接口
//
// 设计说明：
//   - 远程存储按 tasks:{id} / courses:{id} / focus:{id} 三个 key 保存 JSON 数组
//   - 本地数据库是唯一事实来源，远程只做尽力镜像：失败仅记录日志，不重试
//   - KV 未配置时 Get/Put/Push/Pull 返回 ErrStoreUnavailable，MirrorAsync 为空操作
//   - 同一用户的镜像推送串行执行，推送期间的新变更合并为一次补推
type SyncService interface {
	// Configured 是否已配置远程 KV
	Configured() bool
	// Get 读取远程快照原文
	Get(ctx context.Context, ownerID string) (*dto.Snapshot, error)
	// Put 原样写入远程快照，各字段须为 JSON 数组（null 视为空数组）
	Put(ctx context.Context, ownerID string, snap *dto.Snapshot) error
	// Push 将本地数据推送到远程
	Push(ctx context.Context, ownerID string) (*dto.SyncResult, error)
	// Pull 用远程快照替换本地数据，非法条目跳过
	Pull(ctx context.Context, ownerID string) (*dto.SyncResult, error)
	// MirrorAsync 异步推送，不阻塞调用方
	MirrorAsync(ownerID string)
	// Wait 等待进行中的异步推送结束
	Wait()
}

type syncService struct {
	repo    *repository.Repository
	kv      KVStore
	enabled bool
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*mirrorState
}

// mirrorState 某个用户进行中的镜像推送；dirty 表示推送期间又有新变更
type mirrorState struct {
	dirty bool
}

// NewSyncService 创建 SyncService 实例，kv 为 nil 时同步功能不可用
func NewSyncService(repo *repository.Repository, kv KVStore, enabled bool, timeout time.Duration, logger *zap.Logger) SyncService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &syncService{
		repo:    repo,
		kv:      kv,
		enabled: enabled,
		timeout: timeout,
		logger:  logger,
		pending: make(map[string]*mirrorState),
	}
}

func (s *syncService) Configured() bool {
	return s.kv != nil
}

func tasksKey(ownerID string) string   { return "tasks:" + ownerID }
func coursesKey(ownerID string) string { return "courses:" + ownerID }
func focusKey(ownerID string) string   { return "focus:" + ownerID }

var emptyArray = json.RawMessage("[]")

// ────────────────────── Get / Put ──────────────────────

func (s *syncService) Get(ctx context.Context, ownerID string) (*dto.Snapshot, error) {
	if s.kv == nil {
		return nil, pkgerrors.ErrStoreUnavailable
	}
	get := func(key string) (json.RawMessage, error) {
		b, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("读取 %s 失败: %w", key, err)
		}
		if len(b) == 0 {
			return emptyArray, nil
		}
		return json.RawMessage(b), nil
	}

	var (
		snap dto.Snapshot
		err  error
	)
	if snap.Tasks, err = get(tasksKey(ownerID)); err != nil {
		return nil, err
	}
	if snap.Courses, err = get(coursesKey(ownerID)); err != nil {
		return nil, err
	}
	if snap.FocusSessions, err = get(focusKey(ownerID)); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *syncService) Put(ctx context.Context, ownerID string, snap *dto.Snapshot) error {
	if s.kv == nil {
		return pkgerrors.ErrStoreUnavailable
	}
	fields := []struct {
		name string
		v    *json.RawMessage
	}{
		{"tasks", &snap.Tasks},
		{"courses", &snap.Courses},
		{"focusSessions", &snap.FocusSessions},
	}
	for _, f := range fields {
		v, err := normalizeArray(*f.v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSyncSnapshotInvalid, f.name, err)
		}
		*f.v = v
	}

	set := func(key string, v json.RawMessage) error {
		if err := s.kv.Set(ctx, key, v); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", key, err)
		}
		return nil
	}
	if err := set(tasksKey(ownerID), snap.Tasks); err != nil {
		return err
	}
	if err := set(coursesKey(ownerID), snap.Courses); err != nil {
		return err
	}
	return set(focusKey(ownerID), snap.FocusSessions)
}

// normalizeArray 空值与 null 转为 []，其余必须是合法的 JSON 数组
func normalizeArray(v json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return emptyArray, nil
	}
	if trimmed[0] != '[' {
		return nil, errors.New("应为数组")
	}
	if !json.Valid(trimmed) {
		return nil, errors.New("JSON 格式错误")
	}
	return v, nil
}

// ────────────────────── Push ──────────────────────

func (s *syncService) Push(ctx context.Context, ownerID string) (*dto.SyncResult, error) {
	if s.kv == nil {
		return nil, pkgerrors.ErrStoreUnavailable
	}

	tasks, err := s.repo.Task.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.Course.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.FocusSession.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	snapTasks := make([]dto.SnapshotTask, 0, len(tasks))
	for i := range tasks {
		snapTasks = append(snapTasks, taskToSnapshot(&tasks[i]))
	}
	snapCourses := make([]dto.SnapshotCourse, 0, len(courses))
	for i := range courses {
		snapCourses = append(snapCourses, courseToSnapshot(&courses[i]))
	}
	snapSessions := make([]dto.SnapshotFocusSession, 0, len(sessions))
	for i := range sessions {
		snapSessions = append(snapSessions, sessionToSnapshot(&sessions[i]))
	}

	var snap dto.Snapshot
	if snap.Tasks, err = json.Marshal(snapTasks); err != nil {
		return nil, err
	}
	if snap.Courses, err = json.Marshal(snapCourses); err != nil {
		return nil, err
	}
	if snap.FocusSessions, err = json.Marshal(snapSessions); err != nil {
		return nil, err
	}
	if err := s.Put(ctx, ownerID, &snap); err != nil {
		return nil, err
	}

	return &dto.SyncResult{Tasks: len(tasks), Courses: len(courses), FocusSessions: len(sessions)}, nil
}

// ────────────────────── Pull ──────────────────────

func (s *syncService) Pull(ctx context.Context, ownerID string) (*dto.SyncResult, error) {
	snap, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var (
		snapTasks    []dto.SnapshotTask
		snapCourses  []dto.SnapshotCourse
		snapSessions []dto.SnapshotFocusSession
	)
	if err := json.Unmarshal(snap.Tasks, &snapTasks); err != nil {
		return nil, fmt.Errorf("%w: tasks: %v", ErrSyncSnapshotInvalid, err)
	}
	if err := json.Unmarshal(snap.Courses, &snapCourses); err != nil {
		return nil, fmt.Errorf("%w: courses: %v", ErrSyncSnapshotInvalid, err)
	}
	if err := json.Unmarshal(snap.FocusSessions, &snapSessions); err != nil {
		return nil, fmt.Errorf("%w: focusSessions: %v", ErrSyncSnapshotInvalid, err)
	}

	result := &dto.SyncResult{}

	tasks := make([]model.Task, 0, len(snapTasks))
	for _, st := range snapTasks {
		if strings.TrimSpace(st.Text) == "" {
			result.Skipped++
			continue
		}
		tasks = append(tasks, taskFromSnapshot(st))
	}

	courses := make([]model.Course, 0, len(snapCourses))
	for _, sc := range snapCourses {
		c, err := courseFromSnapshot(sc)
		if err != nil {
			s.logger.Warn("跳过非法课程", zap.String("owner", ownerID), zap.String("title", sc.Title), zap.Error(err))
			result.Skipped++
			continue
		}
		courses = append(courses, *c)
	}

	sessions := make([]model.FocusSession, 0, len(snapSessions))
	for _, ss := range snapSessions {
		fs, err := sessionFromSnapshot(ss)
		if err != nil {
			s.logger.Warn("跳过非法专注记录", zap.String("owner", ownerID), zap.Error(err))
			result.Skipped++
			continue
		}
		sessions = append(sessions, *fs)
	}

	if err := s.repo.Task.ReplaceAll(ctx, ownerID, tasks); err != nil {
		return nil, err
	}
	if err := s.repo.Course.ReplaceAll(ctx, ownerID, courses); err != nil {
		return nil, err
	}
	if err := s.repo.FocusSession.ReplaceAll(ctx, ownerID, sessions); err != nil {
		return nil, err
	}

	result.Tasks, result.Courses, result.FocusSessions = len(tasks), len(courses), len(sessions)
	s.logger.Info("已从远程拉取数据",
		zap.String("owner", ownerID),
		zap.Int("tasks", result.Tasks),
		zap.Int("courses", result.Courses),
		zap.Int("focus_sessions", result.FocusSessions),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// ────────────────────── MirrorAsync ──────────────────────

func (s *syncService) MirrorAsync(ownerID string) {
	if s.kv == nil || !s.enabled {
		return
	}

	s.mu.Lock()
	if st, ok := s.pending[ownerID]; ok {
		// 已有推送在进行，结束后再推一次最新数据
		st.dirty = true
		s.mu.Unlock()
		return
	}
	st := &mirrorState{}
	s.pending[ownerID] = st
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		for {
			s.pushOnce(ownerID)

			s.mu.Lock()
			if !st.dirty {
				delete(s.pending, ownerID)
				s.mu.Unlock()
				return
			}
			st.dirty = false
			s.mu.Unlock()
		}
	}()
}

func (s *syncService) pushOnce(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.Push(ctx, ownerID); err != nil {
		s.logger.Warn("远程同步失败，已忽略", zap.String("owner", ownerID), zap.Error(err))
	}
}

func (s *syncService) Wait() {
	s.wg.Wait()
}

// ── 快照转换 ──

func taskToSnapshot(t *model.Task) dto.SnapshotTask {
	return dto.SnapshotTask{
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UnixMilli(),
		IsLegacy:  t.IsLegacy,
	}
}

func taskFromSnapshot(st dto.SnapshotTask) model.Task {
	t := model.Task{
		Text:      strings.TrimSpace(st.Text),
		Completed: st.Completed,
		IsLegacy:  st.IsLegacy,
	}
	if st.CreatedAt > 0 {
		t.CreatedAt = time.UnixMilli(st.CreatedAt)
		t.UpdatedAt = t.CreatedAt
	}
	return t
}

func courseToSnapshot(c *model.Course) dto.SnapshotCourse {
	return dto.SnapshotCourse{
		Title:    c.Title,
		Day:      dto.FlexInt(c.DayOfWeek),
		Start:    calendar.FormatHM(c.StartMinute),
		End:      calendar.FormatHM(c.EndMinute),
		Location: c.Location,
		Weeks:    c.Weeks(),
	}
}

func courseFromSnapshot(sc dto.SnapshotCourse) (*model.Course, error) {
	start, err := calendar.ParseHM(sc.Start)
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseHM(sc.End)
	if err != nil {
		return nil, err
	}
	return newCourse(sc.Title, int(sc.Day), start, end, sc.Location, sc.Weeks)
}

func sessionToSnapshot(f *model.FocusSession) dto.SnapshotFocusSession {
	return dto.SnapshotFocusSession{
		Title:     f.Title,
		Start:     f.StartAt,
		End:       f.EndAt,
		Mode:      f.Mode,
		Completed: f.Completed,
	}
}

func sessionFromSnapshot(ss dto.SnapshotFocusSession) (*model.FocusSession, error) {
	if ss.Start.IsZero() || ss.End.Before(ss.Start) {
		return nil, ErrFocusSessionInvalid
	}
	mode := timer.Mode(ss.Mode)
	if !mode.Valid() {
		return nil, ErrFocusSessionInvalid
	}
	title := strings.TrimSpace(ss.Title)
	if title == "" {
		title = timer.DefaultTitle
	}
	return &model.FocusSession{
		Title:     title,
		StartAt:   ss.Start,
		EndAt:     ss.End,
		Mode:      string(mode),
		Completed: ss.Completed,
	}, nil
}
