package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	"github.com/flyswxf/calendar/pkg/response"
)

// TimerHandler 专注计时器 Handler
//
// 非法状态下的操作（如 idle 时暂停）为空操作，返回当前状态
type TimerHandler struct {
	svc service.TimerService
}

// NewTimerHandler 创建 TimerHandler 实例
func NewTimerHandler(svc service.TimerService) *TimerHandler {
	return &TimerHandler{svc: svc}
}

type timerAction func(ctx context.Context, ownerID string) (*dto.TimerStatusResponse, error)

// GetStatus 当前计时状态
// GET /api/v1/timer
func (h *TimerHandler) GetStatus(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	response.OK(c, h.svc.Status(c.Request.Context(), ownerID))
}

// Open 打开计时器并绑定待办，请求体可为空
// POST /api/v1/timer/open
func (h *TimerHandler) Open(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.OpenTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 24000, err.Error())
		return
	}

	resp, err := h.svc.Open(c.Request.Context(), ownerID, &req)
	if err != nil {
		handleTimerError(c, err)
		return
	}
	response.OK(c, resp)
}

// Start POST /api/v1/timer/start
func (h *TimerHandler) Start(c *gin.Context) { h.run(c, h.svc.Start) }

// Pause POST /api/v1/timer/pause
func (h *TimerHandler) Pause(c *gin.Context) { h.run(c, h.svc.Pause) }

// Resume POST /api/v1/timer/resume
func (h *TimerHandler) Resume(c *gin.Context) { h.run(c, h.svc.Resume) }

// Reset POST /api/v1/timer/reset
func (h *TimerHandler) Reset(c *gin.Context) { h.run(c, h.svc.Reset) }

// Finish 完成本次专注，记录并完成绑定的待办
// POST /api/v1/timer/finish
func (h *TimerHandler) Finish(c *gin.Context) { h.run(c, h.svc.Finish) }

// Stop 中途退出，记录为未完成
// POST /api/v1/timer/stop
func (h *TimerHandler) Stop(c *gin.Context) { h.run(c, h.svc.Stop) }

// SetMode 切换倒计时/正计时（仅 idle）
// POST /api/v1/timer/mode
func (h *TimerHandler) SetMode(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.SetTimerModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 24000, err.Error())
		return
	}

	resp, err := h.svc.SetMode(c.Request.Context(), ownerID, req.Mode)
	if err != nil {
		handleTimerError(c, err)
		return
	}
	response.OK(c, resp)
}

// SetCountdown 设置倒计时分钟数（仅 idle）
// POST /api/v1/timer/countdown
func (h *TimerHandler) SetCountdown(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.SetCountdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 24000, err.Error())
		return
	}

	resp, err := h.svc.SetCountdown(c.Request.Context(), ownerID, req.Minutes)
	if err != nil {
		handleTimerError(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *TimerHandler) run(c *gin.Context, action timerAction) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	resp, err := action(c.Request.Context(), ownerID)
	if err != nil {
		handleTimerError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleTimerError 将 Service 层错误映射为 HTTP 响应
func handleTimerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTimerActive):
		response.Conflict(c, 24001, err.Error())
	case errors.Is(err, service.ErrTimerInvalidMode):
		response.BadRequest(c, 24002, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 24003, err.Error())
	default:
		response.InternalError(c)
	}
}
