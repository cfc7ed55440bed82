package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 carrying the trace id, so a
// failure reported from the panel can be matched to the log line.
// http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}
			traceID := GetTraceID(c)
			log.Error("panic recovered",
				zap.Any("panic", r),
				zap.String("trace_id", traceID),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Stack("stack"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal error",
				"code":     "internal",
				"trace_id": traceID,
			})
		}()
		c.Next()
	}
}
