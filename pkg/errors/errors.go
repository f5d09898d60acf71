package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so that clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrTooManyRequests    = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many requests")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Admission rejections surfaced by the elective selection flow.
var (
	ErrStudentNotFound        = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")
	ErrElectiveNotFound       = New("ELECTIVE_NOT_FOUND", http.StatusNotFound, "elective not found")
	ErrElectiveInactive       = New("ELECTIVE_INACTIVE", http.StatusNotFound, "elective is not active")
	ErrInvalidSemester        = New("INVALID_SEMESTER", http.StatusBadRequest, "semester is out of range")
	ErrDeadlinePassed         = New("DEADLINE_PASSED", http.StatusBadRequest, "selection deadline has passed")
	ErrCapacityExceeded       = New("CAPACITY_EXCEEDED", http.StatusBadRequest, "elective is full")
	ErrAlreadySelected        = New("ALREADY_SELECTED", http.StatusBadRequest, "elective already selected for this semester")
	ErrCategoryAlreadyFilled  = New("CATEGORY_ALREADY_FILLED", http.StatusBadRequest, "category already filled for this semester")
	ErrSelectionLimitReached  = New("SELECTION_LIMIT_REACHED", http.StatusBadRequest, "selection limit reached for this semester")
	ErrPrerequisitesNotMet    = New("PREREQUISITES_NOT_MET", http.StatusBadRequest, "prerequisites not met")
	ErrInvalidStateTransition = New("INVALID_STATE_TRANSITION", http.StatusConflict, "selection cannot move to the requested status")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	clone.Details = nil
	return &clone
}

// WithDetails returns a copy of err carrying the provided display details.
func WithDetails(err *Error, message string, details map[string]interface{}) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	if len(details) > 0 {
		clone.Details = make(map[string]interface{}, len(details))
		for k, v := range details {
			clone.Details[k] = v
		}
	}
	return clone
}
