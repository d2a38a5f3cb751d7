package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	assessmentdomain "github.com/landworks/cadastre/internal/assessment/domain"
	auditdomain "github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/authorization"
	customerdomain "github.com/landworks/cadastre/internal/customer/domain"
	notificationdomain "github.com/landworks/cadastre/internal/notification/domain"
	propertydomain "github.com/landworks/cadastre/internal/property/domain"
	userdomain "github.com/landworks/cadastre/internal/user/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
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
	Details map[string]any    `json:"details,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var overpayment *assessmentdomain.OverpaymentError
	if errors.As(err, &overpayment) {
		return http.StatusBadRequest, errorPayload{
			Type:    "overpayment",
			Message: overpayment.Error(),
			Details: map[string]any{"outstanding": overpayment.Outstanding},
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictErrorMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, workflowdomain.ErrFeedbackTooShort),
		errors.Is(err, workflowdomain.ErrInvalidEntityKind),
		errors.Is(err, workflowdomain.ErrInvalidID):
		return true
	case isCustomerValidationError(err),
		isPropertyValidationError(err),
		isAssessmentValidationError(err),
		isUserValidationError(err),
		isLogValidationError(err):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, workflowdomain.ErrInvalidActor),
		errors.Is(err, customerdomain.ErrInvalidActor),
		errors.Is(err, propertydomain.ErrInvalidActor),
		errors.Is(err, assessmentdomain.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, workflowdomain.ErrForbidden):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, workflowdomain.ErrConflict),
		errors.Is(err, workflowdomain.ErrInvalidTransition),
		errors.Is(err, customerdomain.ErrConflict),
		errors.Is(err, customerdomain.ErrNotEditable),
		errors.Is(err, propertydomain.ErrConflict),
		errors.Is(err, propertydomain.ErrNotEditable),
		errors.Is(err, propertydomain.ErrParcelNumberTaken),
		errors.Is(err, assessmentdomain.ErrConflict),
		errors.Is(err, assessmentdomain.ErrPropertyNotApproved),
		errors.Is(err, assessmentdomain.ErrDuplicateAssessment),
		errors.Is(err, assessmentdomain.ErrDuplicateReceipt),
		errors.Is(err, userdomain.ErrUsernameTaken):
		return true
	default:
		return false
	}
}

func conflictErrorMessage(err error) string {
	switch {
	case errors.Is(err, workflowdomain.ErrInvalidTransition):
		return "status precondition not met"
	case errors.Is(err, assessmentdomain.ErrDuplicateAssessment):
		return "assessment already exists for property and tax year"
	case errors.Is(err, assessmentdomain.ErrPropertyNotApproved):
		return "property is not approved"
	case errors.Is(err, customerdomain.ErrNotEditable),
		errors.Is(err, propertydomain.ErrNotEditable):
		return "record is not editable in its current status"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, workflowdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, propertydomain.ErrNotFound),
		errors.Is(err, assessmentdomain.ErrNotFound),
		errors.Is(err, assessmentdomain.ErrPropertyNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isLogValidationError(err error) bool {
	switch err {
	case auditdomain.ErrInvalidEntity,
		auditdomain.ErrInvalidAction,
		auditdomain.ErrInvalidID,
		auditdomain.ErrInvalidTimeRange,
		activitydomain.ErrInvalidEntity,
		activitydomain.ErrInvalidID,
		notificationdomain.ErrInvalidID,
		notificationdomain.ErrInvalidEvent,
		notificationdomain.ErrInvalidMessage:
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "feedback_too_short":
		return "feedback must be at least 10 characters"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog tags request log lines with a coarse error type
// and the sentinel code.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusConflict:
		return "conflict", err.Error()
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return "access", payload.Type
	default:
		return "client", err.Error()
	}
}
