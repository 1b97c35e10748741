package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/pkg/redis"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 已认证请求按租户计数，否则按客户端 IP
// rdb 为 nil 或 limit <= 0 时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.GetString(ContextTenantID)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := fmt.Sprintf("%s:%s", subject, c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
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
