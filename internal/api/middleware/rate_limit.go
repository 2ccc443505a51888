package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-registrar/backend/pkg/redis"
	"campus-registrar/backend/pkg/response"
)

// RateLimit 排课写接口限流（Redis 滑动窗口）
// 按操作人计数，未提供操作人时按 IP；rdb 为 nil 或 Redis 出错时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		who := c.GetHeader("X-Operator")
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", who, c.FullPath())

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
