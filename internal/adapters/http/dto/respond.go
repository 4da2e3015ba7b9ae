package dto

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

const (
	msgBlogNotFound = "Blog not found"
	msgUnavailable  = "service temporarily unavailable"
	msgTimeout      = "request timeout exceeded"
	msgInternal     = "an internal error occurred"
)

// MapDomainError maps err to a status code and envelope. Errors that are not
// domain errors become a 500 with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	var (
		notFound *domain.NotFoundError
		fields   domain.ValidationErrors
		field    *domain.ValidationError
	)

	switch {
	case err == nil:
		return http.StatusOK, nil

	case errors.As(err, &notFound):
		msg := notFound.Error()
		if notFound.Entity == domain.EntityPost {
			msg = msgBlogNotFound
		}

		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, msg)

	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsConflict(err):
		var conflict *domain.ConflictError
		msg := "resource already exists"

		if errors.As(err, &conflict) {
			msg = conflict.Error()
		}

		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, msg)

	case errors.As(err, &fields):
		return http.StatusBadRequest, NewErrorResponse(ErrorCodeValidation, summarize(fields)).
			WithDetails(fields.Fields())

	case errors.As(err, &field):
		resp := NewErrorResponse(ErrorCodeValidation, field.Message)
		if field.Field != "" {
			resp.WithDetails(map[string]string{field.Field: field.Message})
		}

		return http.StatusBadRequest, resp

	case domain.IsValidation(err):
		return http.StatusBadRequest, NewErrorResponse(ErrorCodeValidation, "validation failed")

	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, msgUnavailable)

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse(ErrorCodeTimeout, msgTimeout)

	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, msgInternal)
	}
}

// summarize renders field failures as "title must be at least 3 characters;
// content is required".
func summarize(fields domain.ValidationErrors) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}

	return strings.Join(parts, "; ")
}

// GetTraceID returns the trace id of the request span, or "".
func GetTraceID(c *gin.Context) string {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}

	return sc.TraceID().String()
}

// HandleError writes the envelope for err. Server-side failures are logged
// with the request logger.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.WithTraceID(GetTraceID(c))

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			"error", err.Error(),
			"status", status,
		)
	}

	c.JSON(status, resp)
}

// Abort stops the handler chain with an envelope built from code and message.
func Abort(c *gin.Context, code, message string) {
	resp := NewErrorResponse(code, message).WithTraceID(GetTraceID(c))

	if c.Writer.Written() {
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(HTTPStatusFromCode(code), resp)
}
