package middleware

import (
	"client-signal-tracker/utils"

	"github.com/gin-gonic/gin"
)

// ErrorHandler forwards errors attached by handlers to sentry after
// the request has been served.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors {
				utils.CaptureError(ginErr.Err, map[string]interface{}{
					"endpoint": c.Request.URL.Path,
					"method":   c.Request.Method,
					"status":   c.Writer.Status(),
				})
			}
		}
	}
}
