package errors

import "fmt"

type ErrorCode string

const (
	ErrInvalidInput               ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData         ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized               ErrorCode = "UNAUTHORIZED"
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"
	ErrForbidden                  ErrorCode = "FORBIDDEN"
	ErrNotFound                   ErrorCode = "NOT_FOUND"
	ErrAlreadyExists              ErrorCode = "ALREADY_EXISTS"
	ErrInternalServer             ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrGetFailed                  ErrorCode = "GET_FAILED"
	ErrUpdateFailed               ErrorCode = "UPDATE_FAILED"
	ErrDeleteFailed               ErrorCode = "DELETE_FAILED"

	ErrCalendarNotConnected ErrorCode = "CALENDAR_NOT_CONNECTED"
	ErrOAuthStateInvalid    ErrorCode = "OAUTH_STATE_INVALID"
	ErrSyncFailed           ErrorCode = "SYNC_FAILED"
)

// AppError is the error type returned across service and controller boundaries.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
