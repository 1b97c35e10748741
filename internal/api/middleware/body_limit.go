package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimits 请求体上限（字节）
// Routes 以路由模板为键（如 /api/v1/scheduler/save），覆盖 Default；值 <= 0 表示不限制
type BodyLimits struct {
	Default int64
	Routes  map[string]int64
}

// limitFor 返回路由模板对应的上限
func (l BodyLimits) limitFor(route string) int64 {
	if n, ok := l.Routes[route]; ok {
		return n
	}
	return l.Default
}

// BodyLimit 请求体大小限制中间件
// 超限时读取请求体会得到 *http.MaxBytesError，由 handler 统一转换为 413
func BodyLimit(limits BodyLimits) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max := limits.limitFor(c.FullPath()); max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

// IsBodyTooLarge 判断错误是否由请求体超限引起
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
