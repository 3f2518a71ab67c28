package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/pkg/response"
)

// OwnerKey 上下文中用户标识的键
const OwnerKey = "owner_id"

// ownerIDMaxLen 限制用户标识长度，避免超长 key 写入存储
const ownerIDMaxLen = 128

// Owner 用户标识中间件
// 优先读取查询参数 userId，其次读取请求头 X-User-ID，注入到上下文 owner_id
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := OwnerFromRequest(c)
		if owner == "" {
			response.BadRequest(c, 10001, "userId required")
			c.Abort()
			return
		}
		if len(owner) > ownerIDMaxLen {
			response.BadRequest(c, 10001, "userId 过长")
			c.Abort()
			return
		}

		c.Set(OwnerKey, owner)
		c.Next()
	}
}

// OwnerFromRequest 从请求中读取用户标识，不存在时返回空串
func OwnerFromRequest(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("userId")); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}
