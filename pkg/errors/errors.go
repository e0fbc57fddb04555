package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBudgetExhausted means the daily quota for an external API is spent.
	// Expected condition: callers stop consuming for the rest of the day.
	ErrBudgetExhausted = errors.New("daily api budget exhausted")
	// ErrUnavailable covers transient external failures (timeout, 5xx,
	// malformed payload). The item is retried on the next natural cycle.
	ErrUnavailable       = errors.New("external service unavailable")
	ErrKeywordNotFound   = errors.New("keyword not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrGroupNotFound     = errors.New("duplicate group not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingCredential = errors.New("credential not configured")
	ErrEmergencyStopped  = errors.New("emergency stop engaged")
	ErrJobRunning        = errors.New("job already running")
	ErrUnknownJob        = errors.New("unknown job")
	ErrInternal          = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrKeywordNotFound), errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrBudgetExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrJobRunning), errors.Is(err, ErrEmergencyStopped):
		return http.StatusConflict
	case errors.Is(err, ErrMissingCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
