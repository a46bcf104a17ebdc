package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aptcare/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 超限时 ShouldBindJSON 返回 *http.MaxBytesError，handler 以参数错误返回；
// 若 handler 把该错误交给 c.Error 且尚未写响应，这里补写 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
