package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	"github.com/flyswxf/calendar/pkg/response"
)

// FocusSessionHandler 专注记录 Handler
type FocusSessionHandler struct {
	svc service.FocusSessionService
}

// NewFocusSessionHandler 创建 FocusSessionHandler 实例
func NewFocusSessionHandler(svc service.FocusSessionService) *FocusSessionHandler {
	return &FocusSessionHandler{svc: svc}
}

// ListFocusSessions 专注记录分页列表（按开始时间倒序）
// GET /api/v1/focus-sessions?page=1&page_size=20
func (h *FocusSessionHandler) ListFocusSessions(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.FocusSessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 23000, err.Error())
		return
	}

	list, total, page, size, err := h.svc.List(c.Request.Context(), ownerID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, page, size)
}
