// Package apperror defines the coded, HTTP-aware error type used across the
// application.
package apperror

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// AppError is an error with a stable code, a default message and the HTTP
// status it maps to.
type AppError struct {
	Code       Code      `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Response is the JSON body written for a failed HTTP request.
type Response struct {
	Error ResponseBody `json:"error"`
}

type ResponseBody struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Context   string `json:"context,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ToResponse serializes the error for an HTTP response. The cause is never exposed.
func (e *AppError) ToResponse() Response {
	return Response{Error: ResponseBody{
		Code:      e.Code,
		Message:   e.Message,
		Context:   e.Context,
		RequestID: e.RequestID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}}
}

// New creates an AppError for code with its default message and status.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: statusFor(code),
		Timestamp:  time.Now(),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

func WithStatusCode(statusCode int) Option {
	return func(e *AppError) { e.StatusCode = statusCode }
}

func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// WithRequestID attaches the ID of the HTTP request that failed.
func WithRequestID(id string) Option {
	return func(e *AppError) { e.RequestID = id }
}

// NotFound creates a 404 error.
func NotFound(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusNotFound))
}

// Validation creates a 400 error.
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusBadRequest))
}

// External creates a 503 error for a failed upstream call.
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusServiceUnavailable))
}

// Wrap converts err into an AppError. An AppError anywhere in err's chain is
// returned as is, gaining context if it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}
	return New(code, WithContext(context), WithCause(err))
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns err's code, or CodeUnknownError for foreign errors.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

func statusFor(code Code) int {
	switch {
	case strings.HasSuffix(string(code), "NOT_FOUND"):
		return http.StatusNotFound

	case strings.Contains(string(code), "INVALID"),
		code == CodeRequiredField,
		code == CodeConfigurationError,
		code == CodeValidationError:
		return http.StatusBadRequest

	// Nothing to optimize over
	case code == CodeNoMarketsFound,
		code == CodeNoPriceData,
		code == CodeInsufficientHistory,
		code == CodeSimulationDataGap:
		return http.StatusUnprocessableEntity

	case code == CodeMarketDataFetchFailed,
		code == CodeExternalServiceError,
		code == CodeServiceTimeout,
		code == CodeServiceUnavailable,
		code == CodeCircuitOpen:
		return http.StatusServiceUnavailable

	case code == CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
