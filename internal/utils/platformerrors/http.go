package platformerrors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes err as a JSON error body. Errors that are not
// PlatformErrors are reported as internal errors.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	pe := GetPlatformError(err)
	if pe == nil {
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		pe = NewError(c.Request.Context(), LayerHandler, ErrorTypeInternal, msg, err)
	}
	LogError(log, pe)

	c.AbortWithStatusJSON(ErrorTypeToHTTPStatus(pe.Type), HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   pe.Message,
			Type:      typeName(pe.Type),
			Code:      pe.UUID,
			RequestID: pe.RequestID,
		},
	})
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, ErrorTypeValidation, message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, ErrorTypeNotFound, message)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, ErrorTypeUnauthorized, message)
}

func write(c *gin.Context, status int, t ErrorType, message string) {
	c.AbortWithStatusJSON(status, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   message,
			Type:      typeName(t),
			RequestID: RequestIDFromContext(c.Request.Context()),
		},
	})
}

// typeName renders NOT_FOUND as not_found_error.
func typeName(t ErrorType) string {
	if t == "" {
		t = ErrorTypeInternal
	}
	return strings.ToLower(string(t)) + "_error"
}
