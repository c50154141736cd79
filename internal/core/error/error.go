package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is returned when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// DatabaseErrorMessage describes relational store failures.
	DatabaseErrorMessage = "database operation failed"
	// NotFoundMessage is returned when a requested record does not exist.
	NotFoundMessage = "record not found"
	// BadRequestMessage is returned when caller input is rejected.
	BadRequestMessage = "invalid request"
	// TurnFailedMessage is shown to the user when a turn has to be abandoned.
	TurnFailedMessage = "Le service est momentanément indisponible. Veuillez réessayer."
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest marks caller input as invalid.
func BadRequest(err error) *AppError {
	return New(err, http.StatusBadRequest, BadRequestMessage)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
