package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/pkg/jwt"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// 上下文键
const (
	ContextUserID      = "user_id"
	ContextTenantID    = "tenant_id"
	ContextPermissions = "permissions"
	contextClaims      = "claims"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证访问令牌，注入主体、租户与权限码
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextTenantID, claims.TenantID)
		c.Set(ContextPermissions, claims.Permissions)
		c.Set(contextClaims, claims)

		c.Next()
	}
}

// RequirePermission 权限码中间件
// 权限判定由上游访问控制完成，这里只核对令牌中携带的结果
func RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(contextClaims)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		claims, ok := v.(*jwt.Claims)
		if !ok || !claims.HasPermission(code) {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
