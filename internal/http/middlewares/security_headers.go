package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// Swagger UI page needs CDN assets + inline bootstrap script/style.
	swaggerCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
	// frontend pages load their own scripts/styles and call the API on the same origin.
	frontendCSP = "default-src 'self'; base-uri 'self'; frame-ancestors 'none'; object-src 'none'; img-src 'self' data:"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")

		path := c.Request.URL.Path
		switch {
		case strings.HasPrefix(path, "/docs"):
			c.Header("Content-Security-Policy", swaggerCSP)
		case strings.HasPrefix(path, "/api"), strings.HasPrefix(path, "/metrics"), strings.HasPrefix(path, "/healthz"), strings.HasPrefix(path, "/readyz"):
			c.Header("Content-Security-Policy", defaultCSP)
		default:
			c.Header("Content-Security-Policy", frontendCSP)
		}
		c.Next()
	}
}
