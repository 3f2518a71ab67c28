package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	"github.com/flyswxf/calendar/pkg/response"
)

// CalendarHandler 日历模块 Handler
type CalendarHandler struct {
	svc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler 实例
func NewCalendarHandler(svc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// GetWeek 周视图
// GET /api/v1/calendar/week?date=2025-10-13&viewport=1024
func (h *CalendarHandler) GetWeek(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var q dto.WeekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 22000, err.Error())
		return
	}

	resp, err := h.svc.GetWeek(c.Request.Context(), ownerID, q.Date, q.Viewport)
	if err != nil {
		if errors.Is(err, service.ErrCalendarInvalidDate) {
			response.BadRequest(c, 22001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// GetTerm 学期与当前周次
// GET /api/v1/calendar/term
func (h *CalendarHandler) GetTerm(c *gin.Context) {
	response.OK(c, h.svc.Term(c.Request.Context()))
}
