package service

import (
	"go.uber.org/zap"

	"github.com/flyswxf/calendar/config"
	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Task         TaskService
	Course       CourseService
	Calendar     CalendarService
	Timer        TimerService
	FocusSession FocusSessionService
	Sync         SyncService
	Export       ExportService
}

// NewService 创建 Service 聚合，kv 为 nil 时远程同步不可用
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	kv KVStore,
	logger *zap.Logger,
) (*Service, error) {
	loc, err := cfg.Planner.Location()
	if err != nil {
		return nil, err
	}
	termStart, err := cfg.Planner.TermStartDate()
	if err != nil {
		return nil, err
	}
	term := calendar.NewTerm(termStart)

	syncSvc := NewSyncService(repo, kv, cfg.Sync.Enabled, cfg.Sync.Timeout, logger)
	return &Service{
		Task:     NewTaskService(repo, syncSvc, loc, logger),
		Course:   NewCourseService(repo, term, syncSvc, logger),
		Calendar: NewCalendarService(repo, term, logger),
		Timer: NewTimerService(repo, syncSvc, TimerOptions{
			TickInterval:            cfg.Planner.TickInterval,
			DefaultCountdownMinutes: cfg.Planner.DefaultCountdownMinutes,
			IdleTimeout:             cfg.Planner.TimerIdleTimeout,
		}, logger),
		FocusSession: NewFocusSessionService(repo, logger),
		Sync:         syncSvc,
		Export:       NewExportService(repo, loc, logger),
	}, nil
}
