package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PublicCache lets browsers and proxies reuse public GET responses for
// maxAge seconds. Slot availability changes often, so keep maxAge short.
func PublicCache(maxAge int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && maxAge > 0 {
			c.Header("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
		} else {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}

// NoStore marks authenticated responses as uncacheable.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Vary", "Authorization")
		c.Next()
	}
}
