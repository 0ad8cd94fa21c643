package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextKeyRequestID is the Gin context key for the request ID.
	ContextKeyRequestID = "request_id"
	// HeaderRequestID carries the ID on both the request and the response.
	HeaderRequestID = "X-Request-ID"
)

// RequestIDMiddleware tags every request with an ID that correlates REST
// logs with the session's WebSocket and audit-worker log lines. An inbound
// header is honored only when it is a well-formed UUID; anything else is
// replaced with a fresh one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header(HeaderRequestID, reqID)
		c.Next()
	}
}
