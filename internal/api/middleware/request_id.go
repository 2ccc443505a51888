package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// requestIDMaxLen 外部传入的 Request-ID 最大长度
const requestIDMaxLen = 64

// RequestID 请求追踪 ID 中间件
// 优先使用请求头 X-Request-ID，缺失或超长时生成 UUID，并回写到响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}

// GetRequestID 当前请求的追踪 ID；未经过 RequestID 中间件时为空
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
