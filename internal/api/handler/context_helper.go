package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sourav-maji/RosterPro/internal/api/middleware"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.ContextUserID)
}

// MustGetTenantID 从 Gin 上下文中安全提取 tenant_id。
func MustGetTenantID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.ContextTenantID)
}

// mustGetPrincipal 同时提取租户与操作人
func mustGetPrincipal(c *gin.Context) (tenantID, userID string, ok bool) {
	if tenantID, ok = MustGetTenantID(c); !ok {
		return "", "", false
	}
	if userID, ok = MustGetUserID(c); !ok {
		return "", "", false
	}
	return tenantID, userID, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// pathID 读取并校验路径中的 :id（UUID）
func pathID(c *gin.Context, base int) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, base+offsetValidation, "ID 格式无效")
		return "", false
	}
	return id, true
}
