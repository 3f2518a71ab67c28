package handler

import "github.com/flyswxf/calendar/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Task         *TaskHandler
	Course       *CourseHandler
	Calendar     *CalendarHandler
	Timer        *TimerHandler
	FocusSession *FocusSessionHandler
	Sync         *SyncHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Task:         NewTaskHandler(svc.Task),
		Course:       NewCourseHandler(svc.Course),
		Calendar:     NewCalendarHandler(svc.Calendar),
		Timer:        NewTimerHandler(svc.Timer),
		FocusSession: NewFocusSessionHandler(svc.FocusSession),
		Sync:         NewSyncHandler(svc.Sync),
		Export:       NewExportHandler(svc.Export),
	}
}
