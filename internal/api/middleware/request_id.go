package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aptcare/backend/pkg/response"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDMaxLen = 64
)

// validRequestID 只接受可安全写入日志与响应头的字符
func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for _, r := range rid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// RequestID 沿用上游网关的 X-Request-ID，不合法时重新生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(response.RequestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}
