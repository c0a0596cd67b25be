package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeOverloaded  ErrorType = "overloaded"
	ErrorTypeUnreadable  ErrorType = "unreadable_video"
	ErrorTypeDecodeGap   ErrorType = "frame_decode_gap"
	ErrorTypeOCRDegraded ErrorType = "ocr_degraded"
	ErrorTypeDescBlocked ErrorType = "description_blocked"
	ErrorTypeDescFailed  ErrorType = "description_unavailable"
	ErrorTypeJobNotFound ErrorType = "job_not_found"
	ErrorTypeJobNotReady ErrorType = "job_not_ready"
	ErrorTypeWorkerCrash ErrorType = "worker_crash"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewOverloadedError is returned when the job queue cannot take more work.
func NewOverloadedError(message string, cause error) *AppError {
	return newError(ErrorTypeOverloaded, http.StatusServiceUnavailable, message, cause)
}

// NewUnreadableVideoError reports a container that could not be opened at all.
func NewUnreadableVideoError(message string, cause error) *AppError {
	return newError(ErrorTypeUnreadable, http.StatusUnprocessableEntity, message, cause)
}

// NewFrameDecodeGapError marks a mid-stream decode failure. It never leaves the pipeline.
func NewFrameDecodeGapError(message string, cause error) *AppError {
	return newError(ErrorTypeDecodeGap, http.StatusInternalServerError, message, cause)
}

// NewOCRDegradedError marks a failed confidence-aware OCR pass.
func NewOCRDegradedError(message string, cause error) *AppError {
	return newError(ErrorTypeOCRDegraded, http.StatusInternalServerError, message, cause)
}

// NewDescriptionBlockedError reports a description refused by the model's content filter.
func NewDescriptionBlockedError(reason string) *AppError {
	return newError(ErrorTypeDescBlocked, http.StatusOK, reason, nil)
}

// NewDescriptionUnavailableError reports a failed description call.
func NewDescriptionUnavailableError(message string, cause error) *AppError {
	return newError(ErrorTypeDescFailed, http.StatusBadGateway, message, cause)
}

// NewJobNotFoundError creates a new job not found error
func NewJobNotFoundError(jobID string) *AppError {
	return newError(ErrorTypeJobNotFound, http.StatusNotFound, "job not found", nil).withDetails(jobID)
}

// NewJobNotReadyError carries the job's current status in Details.
func NewJobNotReadyError(status string) *AppError {
	return newError(ErrorTypeJobNotReady, http.StatusBadRequest, fmt.Sprintf("job status is %s", status), nil).withDetails(status)
}

// NewWorkerCrashError wraps a failure recovered at the job worker boundary.
func NewWorkerCrashError(message string, cause error) *AppError {
	return newError(ErrorTypeWorkerCrash, http.StatusInternalServerError, message, cause)
}

func (e *AppError) withDetails(details string) *AppError {
	e.Details = details
	return e
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
