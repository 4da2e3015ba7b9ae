// Package middleware provides the gin middleware of the blog API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	correlationIDKey
)

// RequestID takes X-Request-ID from the request or generates one. The id is
// echoed in the response, stored in the request context and added to the
// context logger.
func RequestID() gin.HandlerFunc {
	return propagateID(HeaderRequestID, requestIDKey, logging.WithRequestID)
}

// CorrelationID does the same for X-Correlation-ID, which follows a whole
// editing session across services rather than one request.
func CorrelationID() gin.HandlerFunc {
	return propagateID(HeaderCorrelationID, correlationIDKey, logging.WithCorrelationID)
}

func propagateID(header string, key ctxKey, tagLogger func(context.Context, string) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(header, id)

		ctx := context.WithValue(c.Request.Context(), key, id)
		c.Request = c.Request.WithContext(tagLogger(ctx, id))

		c.Next()
	}
}

// RequestIDFromContext returns the request id stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, requestIDKey)
}

// CorrelationIDFromContext returns the correlation id stored by
// CorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, correlationIDKey)
}

// ContextWithCorrelationID stores id for outbound calls made outside an HTTP
// request, such as the draft sync CLI.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func idFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}
