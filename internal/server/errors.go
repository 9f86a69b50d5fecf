package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	auditdomain "github.com/vidyalaya/feeledger/internal/audit/domain"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

var validationErrors = []error{
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidMethod,
	paymentdomain.ErrInvalidScope,
	paymentdomain.ErrInvalidReasonCode,
	paymentdomain.ErrInvalidPageToken,
	obligationdomain.ErrInvalidMonth,
	feedomain.ErrInvalidClass,
	feedomain.ErrInvalidAmount,
	feedomain.ErrComponentSum,
	academicdomain.ErrInvalidName,
	academicdomain.ErrInvalidClass,
	academicdomain.ErrInvalidAdmission,
	academicdomain.ErrInvalidStartMonth,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
}

var notFoundErrors = []error{
	paymentdomain.ErrNotFound,
	paymentdomain.ErrFeeRecordNotFound,
	obligationdomain.ErrNotFound,
	obligationdomain.ErrNoFeeStructure,
	feedomain.ErrNotFound,
	academicdomain.ErrStudentNotFound,
	academicdomain.ErrSessionNotFound,
	gorm.ErrRecordNotFound,
}

var conflictErrors = []error{
	paymentdomain.ErrNothingOutstanding,
	paymentdomain.ErrAlreadyReversed,
	paymentdomain.ErrAmountExceedsOriginal,
	paymentdomain.ErrReversalNotAllowed,
	obligationdomain.ErrAlreadyEnabled,
	academicdomain.ErrDuplicateStudent,
	academicdomain.ErrDuplicateSession,
}

func errorIn(err error, set []error) bool {
	for _, candidate := range set {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errorIn(err, validationErrors):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errorIn(err, notFoundErrors):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errorIn(err, conflictErrors):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrConcurrencyConflict):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "concurrency_conflict",
			Message: "ledger busy, retry the request",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog feeds the request logger an error class without
// touching the response.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "server_error", payload.Type
	}
	return "client_error", payload.Type
}
