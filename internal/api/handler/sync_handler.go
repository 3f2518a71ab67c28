package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/api/middleware"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	pkgerrors "github.com/flyswxf/calendar/pkg/errors"
	"github.com/flyswxf/calendar/pkg/response"
)

// SyncHandler 远程 KV 同步 Handler
type SyncHandler struct {
	svc service.SyncService
}

// NewSyncHandler 创建 SyncHandler 实例
func NewSyncHandler(svc service.SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Data 网页端直接读写的 KV 快照接口
// GET|PUT /api/data?userId=xxx
//
// 响应不使用统一包装：成功时 GET 返回 {tasks, courses, focusSessions}，PUT 返回 {ok: true}；
// 失败时返回 {error: "..."}
func (h *SyncHandler) Data(c *gin.Context) {
	ownerID := middleware.OwnerFromRequest(c)
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}
	if !h.svc.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing env"})
		return
	}

	switch c.Request.Method {
	case http.MethodGet:
		snap, err := h.svc.Get(c.Request.Context(), ownerID)
		if err != nil {
			dataError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)

	case http.MethodPut:
		var snap dto.Snapshot
		if err := c.ShouldBindJSON(&snap); err != nil {
			if middleware.IsBodyTooLarge(err) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if err := h.svc.Put(c.Request.Context(), ownerID, &snap); err != nil {
			dataError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})

	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	}
}

func dataError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing env"})
		return
	case errors.Is(err, service.ErrSyncSnapshotInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
}

// Push 用本地数据覆盖远程快照
// POST /api/v1/sync/push
func (h *SyncHandler) Push(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Push(c.Request.Context(), ownerID)
	if err != nil {
		handleSyncError(c, err)
		return
	}
	response.OK(c, resp)
}

// Pull 用远程快照替换本地数据，非法条目跳过并计数
// POST /api/v1/sync/pull
func (h *SyncHandler) Pull(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Pull(c.Request.Context(), ownerID)
	if err != nil {
		handleSyncError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleSyncError 将 Service 层错误映射为 HTTP 响应
func handleSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, service.ErrSyncSnapshotInvalid):
		response.BadRequest(c, 25001, err.Error())
	default:
		response.InternalError(c)
	}
}
