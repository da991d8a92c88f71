package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dum-man/messenger/pkg/logger"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		l.Infof("%s %s %d %s", method, path, status, latency.String())
	}
}
