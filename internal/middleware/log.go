package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per request. Paths and statuses
// only; request bodies may contain plaintext amounts and never get
// logged.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if auth := CurrentAuth(c); auth != nil {
			entry = entry.WithField("user_id", auth.User.ID)
		}

		if c.Writer.Status() >= 500 {
			entry.Error("request")
		} else {
			entry.Info("request")
		}
	}
}
