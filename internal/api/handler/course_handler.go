package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/api/middleware"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	"github.com/flyswxf/calendar/pkg/response"
)

// CourseHandler 课程模块 Handler
type CourseHandler struct {
	svc service.CourseService
}

// NewCourseHandler 创建 CourseHandler 实例
func NewCourseHandler(svc service.CourseService) *CourseHandler {
	return &CourseHandler{svc: svc}
}

// ListCourses 课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), ownerID)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.OK(c, list)
}

// CreateCourse 添加课程
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21000, err.Error())
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), ownerID, &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.Created(c, resp)
}

// UpdateCourse 更新课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21000, err.Error())
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), ownerID, c.Param("id"), &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.OK(c, resp)
}

// DeleteCourse 删除课程
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		handleCourseError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportICS 导入 ICS 课表
// POST /api/v1/courses/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file", 可选 field="mode"
//   - URL 导入: application/json, body={"url": "...", "mode": "replace|append"}
func (h *CourseHandler) ImportICS(c *gin.Context) {
	ownerID, ok := MustGetOwnerID(c)
	if !ok {
		return
	}

	// 尝试文件上传方式
	file, _, err := c.Request.FormFile("file")
	if middleware.IsBodyTooLarge(err) {
		_ = c.Error(err)
		return
	}
	if err == nil {
		defer file.Close()
		mode := c.PostForm("mode")
		if mode != "" && mode != service.ImportModeReplace && mode != service.ImportModeAppend {
			response.BadRequest(c, 21000, "mode 应为 replace 或 append")
			return
		}
		resp, err := h.svc.ImportICS(c.Request.Context(), ownerID, file, mode)
		if err != nil {
			handleCourseError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	// 尝试 URL 方式
	var req dto.ImportICSRequest
	if err := c.ShouldBind(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			_ = c.Error(err)
			return
		}
		response.BadRequest(c, 21000, err.Error())
		return
	}
	if req.URL == "" {
		response.BadRequest(c, 21000, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	resp, err := h.svc.ImportICSFromURL(c.Request.Context(), ownerID, req.URL, req.Mode)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.Created(c, resp)
}

// handleCourseError 将 Service 层错误映射为 HTTP 响应
func handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 21001, err.Error())
	case errors.Is(err, service.ErrCourseTitleEmpty):
		response.BadRequest(c, 21002, err.Error())
	case errors.Is(err, service.ErrCourseInvalidDay):
		response.BadRequest(c, 21003, err.Error())
	case errors.Is(err, service.ErrCourseInvalidTime):
		response.BadRequest(c, 21004, err.Error())
	case errors.Is(err, service.ErrCourseInvalidWeeks):
		response.BadRequest(c, 21005, err.Error())
	case errors.Is(err, service.ErrICSParseFailed):
		response.BadRequest(c, 21010, err.Error())
	case errors.Is(err, service.ErrICSEmpty):
		response.BadRequest(c, 21011, err.Error())
	case errors.Is(err, service.ErrICSFetchFailed):
		response.BadRequest(c, 21012, err.Error())
	default:
		response.InternalError(c)
	}
}
