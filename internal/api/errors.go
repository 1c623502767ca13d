package api

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by repositories; services translate them into
// AppErrors before they reach a handler.
var (
	ErrNotFound = errors.New("requested item not found")
	ErrConflict = errors.New("item already exists or conflict")
)

// AppError is the typed application error carried from services to the
// central translation layer. Code is the machine-readable error code the
// client sees inside the uniform envelope.
type AppError struct {
	Message string
	Status  int
	Code    string
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(status int, code, message string) *AppError {
	return &AppError{Message: message, Status: status, Code: code}
}

// Login failures are deliberately indistinguishable between "no such
// account" and "wrong password".
func ErrInvalidCredentials() *AppError {
	return NewAppError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
}

func ErrMissingCredentials() *AppError {
	return NewAppError(http.StatusBadRequest, "MISSING_CREDENTIALS", "Email and password are required")
}

func ErrUnauthorized(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// ErrTokenExpired is distinct from the generic UNAUTHORIZED so clients can
// tell "log in again" apart from "something is malformed".
func ErrTokenExpired() *AppError {
	return NewAppError(http.StatusUnauthorized, "TOKEN_EXPIRED", "Session expired, please log in again")
}

func ErrForbidden() *AppError {
	return NewAppError(http.StatusForbidden, "FORBIDDEN", "You do not have the necessary permissions")
}

func ErrValidation(message string) *AppError {
	return NewAppError(http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func ErrNotFoundResponse(message string) *AppError {
	return NewAppError(http.StatusNotFound, "NOT_FOUND", message)
}

func ErrConflictResponse(message string) *AppError {
	return NewAppError(http.StatusConflict, "CONFLICT", message)
}

func ErrRateLimited() *AppError {
	return NewAppError(http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many login attempts, try again later")
}

func ErrAuthServerError() *AppError {
	return NewAppError(http.StatusInternalServerError, "AUTH_SERVER_ERROR", "Authentication failed due to a server error")
}

func ErrInternal() *AppError {
	return NewAppError(http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}
