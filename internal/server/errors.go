package server

import (
	"errors"
	"net/http"
	"strings"

	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/auth/password"
	"github.com/smallbiznis/comanda/internal/authorization"
	"github.com/smallbiznis/comanda/internal/kitchen"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	maintenancedomain "github.com/smallbiznis/comanda/internal/maintenance/domain"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	"github.com/smallbiznis/comanda/internal/ratelimit"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"github.com/smallbiznis/comanda/pkg/db/pagination"

	"github.com/gin-gonic/gin"
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
	Reason  string            `json:"reason,omitempty"`
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

// classifyErrorForLog returns the error type and code written to the request
// log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Reason
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var blocked *billingdomain.BlockedError
	if errors.As(err, &blocked) {
		return http.StatusForbidden, errorPayload{
			Type:    "finalize_blocked",
			Message: "sale cannot be finalized",
			Reason:  string(blocked.Reason),
		}
	}

	if sentinel := validationSentinel(err); sentinel != nil {
		code := sentinel.Error()
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
	case errors.Is(err, tabledomain.ErrStaleVersion):
		return http.StatusConflict, errorPayload{
			Type:    "stale_version",
			Message: "table changed since it was read, reload and retry",
		}
	case errors.Is(err, billingdomain.ErrBusy),
		errors.Is(err, ratelimit.ErrLocked):
		return http.StatusConflict, errorPayload{
			Type:    "billing_in_progress",
			Message: "another terminal is billing this table",
		}
	case errors.Is(err, authdomain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_attempts",
			Message: "too many attempts, try again later",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrUserInactive),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authdomain.ErrProtectedUser):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, kitchen.ErrFeedUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "something went wrong, please retry",
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

var validationSentinels = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	password.ErrWeak,
	authdomain.ErrInvalidUsername,
	authdomain.ErrInvalidRole,
	authdomain.ErrInvalidUserID,
	authorization.ErrInvalidActor,
	authorization.ErrInvalidObject,
	authorization.ErrInvalidAction,
	tabledomain.ErrInvalidID,
	tabledomain.ErrInvalidNumber,
	tabledomain.ErrInvalidType,
	tabledomain.ErrInvalidStatus,
	productdomain.ErrInvalidID,
	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidStock,
	productdomain.ErrInvalidZone,
	productdomain.ErrInvalidQuantity,
	productdomain.ErrOutOfStock,
	zonedomain.ErrInvalidID,
	zonedomain.ErrInvalidName,
	orderdomain.ErrInvalidID,
	orderdomain.ErrInvalidVersion,
	billingdomain.ErrInvalidAmount,
	billingdomain.ErrInvalidMethod,
	billingdomain.ErrInvalidRate,
	billingdomain.ErrInvalidPaymentIndex,
	billingdomain.ErrInvalidTableID,
	billingdomain.ErrInvalidDecision,
	billingdomain.ErrEmptyBill,
	settingsdomain.ErrInvalidExchangeRate,
	settingsdomain.ErrInvalidIVA,
	settingsdomain.ErrInvalidIGTF,
	saledomain.ErrInvalidID,
	saledomain.ErrInvalidRange,
	saledomain.ErrInvalidStatus,
	licensedomain.ErrInvalidKey,
	maintenancedomain.ErrInvalidMode,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidTimeRange,
}

func validationSentinel(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, tabledomain.ErrDuplicateNumber),
		errors.Is(err, tabledomain.ErrNotAvailable),
		errors.Is(err, zonedomain.ErrDuplicate),
		errors.Is(err, orderdomain.ErrNotReady),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, saledomain.ErrClosed),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, tabledomain.ErrNotAvailable):
		return "table is in use"
	case errors.Is(err, orderdomain.ErrNotReady):
		return "order is not ready"
	case errors.Is(err, saledomain.ErrClosed):
		return "sale belongs to a closed day"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, tabledomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, zonedomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "out_of_stock":
		return "not enough stock"
	case "weak_password":
		return "password is too short"
	case "empty_bill":
		return "table has nothing to bill"
	default:
		return "invalid value"
	}
}
