package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	logging "interviewer/pkg/logger/pkg"
)

const XRequestID = "x-request-id"

// RequestID propagates the caller's x-request-id, or a new one, into the request
// context so that logging.Logger(ctx) tags every entry with it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(XRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(XRequestID, id)
		c.Header(XRequestID, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// AccessLog writes one entry per request once the handler returns.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Handled request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("requestId", requestID(c)))
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(XRequestID)
}
