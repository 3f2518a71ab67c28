package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/api/middleware"
	"github.com/flyswxf/calendar/pkg/response"
)

// MustGetOwnerID 从 Gin 上下文中安全提取 owner_id。
// 如果 Owner 中间件未注入 owner_id，返回 false 并写入 400 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetOwnerID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.OwnerKey)
	if !exists {
		response.BadRequest(c, 10001, "userId required")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.BadRequest(c, 10001, "userId required")
		return "", false
	}
	return s, true
}

// MustGetIndex 解析路径参数 :index 为非负整数
func MustGetIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		response.BadRequest(c, 10001, "序号无效")
		return 0, false
	}
	return idx, true
}
