package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error sends a JSON error response.
// AppErrors anywhere in the chain decide the status code; everything else is
// logged and reported as 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	ErrorWithDetails(c, err, nil)
}

// ErrorWithDetails is Error with an extra payload attached, e.g. the
// bookings behind a conflict.
func ErrorWithDetails(c *gin.Context, err error, details any) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError {
			logFailure(c, err)
		}
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message, Kind: appErr.Kind, Details: details})
		return
	}

	logFailure(c, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func logFailure(c *gin.Context, err error) {
	slog.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
}
