package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	"github.com/flyswxf/calendar/pkg/response"
)

// TaskHandler 待办模块 Handler
type TaskHandler struct {
	svc service.TaskService
}

// NewTaskHandler 创建 TaskHandler 实例
func NewTaskHandler(svc service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// ListTasks 待办列表
// GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), ownerID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// AddTask 添加待办
// POST /api/v1/tasks
func (h *TaskHandler) AddTask(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20000, err.Error())
		return
	}

	resp, err := h.svc.Add(c.Request.Context(), ownerID, req.Text)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.Created(c, resp)
}

// ToggleTask 切换完成状态
// PUT /api/v1/tasks/:index/toggle
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	idx, ok := MustGetIndex(c)
	if !ok {
		return
	}
	resp, err := h.svc.Toggle(c.Request.Context(), ownerID, idx)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, resp)
}

// CompleteTask 标记完成（幂等）
// PUT /api/v1/tasks/:index/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	idx, ok := MustGetIndex(c)
	if !ok {
		return
	}
	resp, err := h.svc.Complete(c.Request.Context(), ownerID, idx)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, resp)
}

// DeleteTask 删除待办，后续序号前移
// DELETE /api/v1/tasks/:index
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	idx, ok := MustGetIndex(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), ownerID, idx); err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, nil)
}

// ReplaceTasks 全量替换待办列表
// PUT /api/v1/tasks
func (h *TaskHandler) ReplaceTasks(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.ReplaceTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20000, err.Error())
		return
	}

	list, err := h.svc.ReplaceAll(c.Request.Context(), ownerID, req.Tasks)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// CleanupTasks 手动执行当前用户的每日清理
// POST /api/v1/tasks/cleanup
func (h *TaskHandler) CleanupTasks(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cleanup(c.Request.Context(), ownerID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleTaskError 将 Service 层错误映射为 HTTP 响应
func handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskEmpty):
		response.BadRequest(c, 20001, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 20002, err.Error())
	default:
		response.InternalError(c)
	}
}
