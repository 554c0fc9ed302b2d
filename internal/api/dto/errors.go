package dto

import "net/http"

// APIError is the body of every error response. Status is the HTTP status
// the error is written with; RequestID echoes the X-Request-Id of the call.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeConflict      = "conflict"
)

var statusByCode = map[string]int{
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInternalError: http.StatusInternalServerError,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeConflict:      http.StatusConflict,
}

// NewAPIError creates an error for code. Unknown codes are written as 500.
func NewAPIError(code, message string) APIError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// NotFoundError reports a missing resource
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError hides the cause; handlers log it instead.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ConflictError reports a request that clashes with current state, such as
// starting a reconcile while one is running.
func ConflictError(message string) APIError {
	return NewAPIError(ErrCodeConflict, message)
}

func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}
