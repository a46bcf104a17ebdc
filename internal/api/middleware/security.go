package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders JSON API 的安全响应头
// 接口不返回 HTML，CSP 直接禁止一切加载；带身份的响应禁止缓存
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if c.GetHeader("Authorization") != "" {
			c.Header("Cache-Control", "no-store")
		}

		c.Next()
	}
}
