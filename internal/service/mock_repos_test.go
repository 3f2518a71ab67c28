package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flyswxf/calendar/internal/model"
	"github.com/flyswxf/calendar/internal/repository"
	pkgerrors "github.com/flyswxf/calendar/pkg/errors"
)

// ── 聚合 ──

type mockRepos struct {
	task   *mockTaskRepo
	course *mockCourseRepo
	focus  *mockFocusSessionRepo
	state  *mockAppStateRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		task:   newMockTaskRepo(),
		course: newMockCourseRepo(),
		focus:  newMockFocusSessionRepo(),
		state:  newMockAppStateRepo(),
	}
	repo := &repository.Repository{
		Task:         m.task,
		Course:       m.course,
		FocusSession: m.focus,
		AppState:     m.state,
	}
	return repo, m
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	mu    sync.Mutex
	tasks map[string][]model.Task
	err   error
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string][]model.Task)}
}

func (m *mockTaskRepo) List(_ context.Context, ownerID string) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Task(nil), m.tasks[ownerID]...), nil
}

func (m *mockTaskRepo) Append(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if task.TaskID == "" {
		task.TaskID = uuid.New().String()
	}
	task.Position = len(m.tasks[task.OwnerID])
	m.tasks[task.OwnerID] = append(m.tasks[task.OwnerID], *task)
	return nil
}

func (m *mockTaskRepo) ReplaceAll(_ context.Context, ownerID string, tasks []model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	list := make([]model.Task, len(tasks))
	for i := range tasks {
		tasks[i].OwnerID = ownerID
		tasks[i].Position = i
		if tasks[i].TaskID == "" {
			tasks[i].TaskID = uuid.New().String()
		}
		list[i] = tasks[i]
	}
	m.tasks[ownerID] = list
	return nil
}

func (m *mockTaskRepo) UpdateAt(_ context.Context, ownerID string, index int, mutate func(*model.Task)) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	list := m.tasks[ownerID]
	if index < 0 || index >= len(list) {
		return nil, pkgerrors.ErrIndexOutOfRange
	}
	mutate(&list[index])
	t := list[index]
	return &t, nil
}

func (m *mockTaskRepo) UpdateByID(_ context.Context, ownerID, taskID string, mutate func(*model.Task)) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	list := m.tasks[ownerID]
	for i := range list {
		if list[i].TaskID == taskID {
			mutate(&list[i])
			t := list[i]
			return &t, nil
		}
	}
	return nil, pkgerrors.ErrRecordNotFound
}

func (m *mockTaskRepo) DeleteAt(_ context.Context, ownerID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	list := m.tasks[ownerID]
	if index < 0 || index >= len(list) {
		return pkgerrors.ErrIndexOutOfRange
	}
	list = append(list[:index:index], list[index+1:]...)
	for i := range list {
		list[i].Position = i
	}
	m.tasks[ownerID] = list
	return nil
}

func (m *mockTaskRepo) Rollover(_ context.Context, ownerID string) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, 0, m.err
	}
	var purged, flagged int64
	for owner, list := range m.tasks {
		if ownerID != "" && owner != ownerID {
			continue
		}
		kept := make([]model.Task, 0, len(list))
		for _, t := range list {
			if t.Completed {
				purged++
				continue
			}
			if !t.IsLegacy {
				t.IsLegacy = true
				flagged++
			}
			t.Position = len(kept)
			kept = append(kept, t)
		}
		m.tasks[owner] = kept
	}
	return purged, flagged, nil
}

func (m *mockTaskRepo) snapshot(ownerID string) []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.tasks[ownerID]...)
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	mu      sync.Mutex
	courses map[string][]model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string][]model.Course)}
}

func (m *mockCourseRepo) List(_ context.Context, ownerID string) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Course(nil), m.courses[ownerID]...), nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, ownerID, courseID string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses[ownerID] {
		if c.CourseID == courseID {
			cp := c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) Append(ctx context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if course.CourseID == "" {
		course.CourseID = uuid.New().String()
	}
	course.Position = len(m.courses[course.OwnerID])
	m.courses[course.OwnerID] = append(m.courses[course.OwnerID], *course)
	return nil
}

func (m *mockCourseRepo) AppendBatch(_ context.Context, ownerID string, courses []model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range courses {
		courses[i].OwnerID = ownerID
		courses[i].Position = len(m.courses[ownerID])
		if courses[i].CourseID == "" {
			courses[i].CourseID = uuid.New().String()
		}
		m.courses[ownerID] = append(m.courses[ownerID], courses[i])
	}
	return nil
}

func (m *mockCourseRepo) ReplaceAll(_ context.Context, ownerID string, courses []model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.Course, len(courses))
	for i := range courses {
		courses[i].OwnerID = ownerID
		courses[i].Position = i
		if courses[i].CourseID == "" {
			courses[i].CourseID = uuid.New().String()
		}
		list[i] = courses[i]
	}
	m.courses[ownerID] = list
	return nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.courses[course.OwnerID]
	for i := range list {
		if list[i].CourseID == course.CourseID {
			list[i] = *course
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) Delete(_ context.Context, ownerID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.courses[ownerID]
	for i := range list {
		if list[i].CourseID == courseID {
			list = append(list[:i:i], list[i+1:]...)
			for j := range list {
				list[j].Position = j
			}
			m.courses[ownerID] = list
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock FocusSessionRepository ──

type mockFocusSessionRepo struct {
	mu       sync.Mutex
	sessions map[string][]model.FocusSession
	err      error
}

func newMockFocusSessionRepo() *mockFocusSessionRepo {
	return &mockFocusSessionRepo{sessions: make(map[string][]model.FocusSession)}
}

func (m *mockFocusSessionRepo) sorted(ownerID string) []model.FocusSession {
	list := append([]model.FocusSession(nil), m.sessions[ownerID]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	return list
}

func (m *mockFocusSessionRepo) List(_ context.Context, ownerID string) ([]model.FocusSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(ownerID), nil
}

func (m *mockFocusSessionRepo) ListBetween(_ context.Context, ownerID string, from, to time.Time) ([]model.FocusSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.FocusSession
	for _, fs := range m.sorted(ownerID) {
		if !fs.StartAt.Before(from) && fs.StartAt.Before(to) {
			result = append(result, fs)
		}
	}
	return result, nil
}

func (m *mockFocusSessionRepo) Page(_ context.Context, ownerID string, offset, limit int) ([]model.FocusSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sorted(ownerID)
	// 倒序
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	total := int64(len(list))
	if offset >= len(list) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (m *mockFocusSessionRepo) Append(_ context.Context, session *model.FocusSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if session.FocusSessionID == "" {
		session.FocusSessionID = uuid.New().String()
	}
	session.CreatedAt = time.Now()
	m.sessions[session.OwnerID] = append(m.sessions[session.OwnerID], *session)
	return nil
}

func (m *mockFocusSessionRepo) ReplaceAll(_ context.Context, ownerID string, sessions []model.FocusSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.FocusSession, len(sessions))
	for i := range sessions {
		sessions[i].OwnerID = ownerID
		if sessions[i].FocusSessionID == "" {
			sessions[i].FocusSessionID = uuid.New().String()
		}
		list[i] = sessions[i]
	}
	m.sessions[ownerID] = list
	return nil
}

func (m *mockFocusSessionRepo) snapshot(ownerID string) []model.FocusSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.FocusSession(nil), m.sessions[ownerID]...)
}

// ── Mock AppStateRepository ──

type mockAppStateRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMockAppStateRepo() *mockAppStateRepo {
	return &mockAppStateRepo{values: make(map[string]string)}
}

func (m *mockAppStateRepo) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockAppStateRepo) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// ── Mock KVStore ──

type mockKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data[key], nil
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockKV) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}

// ── Mock mirror ──

type mockMirror struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockMirror) MirrorAsync(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ownerID)
}

func (m *mockMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
