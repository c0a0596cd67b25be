package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_TypesAndStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("missing", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"job not found", NewJobNotFoundError("abc"), ErrorTypeJobNotFound, http.StatusNotFound},
		{"job not ready", NewJobNotReadyError("processing"), ErrorTypeJobNotReady, http.StatusBadRequest},
		{"unreadable", NewUnreadableVideoError("corrupt", nil), ErrorTypeUnreadable, http.StatusUnprocessableEntity},
		{"overloaded", NewOverloadedError("full", nil), ErrorTypeOverloaded, http.StatusServiceUnavailable},
		{"worker crash", NewWorkerCrashError("boom", nil), ErrorTypeWorkerCrash, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, tt.err.Type)
			}
			if GetStatusCode(tt.err) != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, GetStatusCode(tt.err))
			}
		})
	}
}

func TestJobNotReadyCarriesStatus(t *testing.T) {
	err := NewJobNotReadyError("queued")
	if err.Details != "queued" {
		t.Errorf("Expected details 'queued', got %q", err.Details)
	}
	if err.Message != "job status is queued" {
		t.Errorf("Unexpected message %q", err.Message)
	}
}

func TestIsType_Wrapped(t *testing.T) {
	inner := NewUnreadableVideoError("cannot open", fmt.Errorf("ffprobe: exit status 1"))
	wrapped := fmt.Errorf("run pipeline: %w", inner)

	if !IsType(wrapped, ErrorTypeUnreadable) {
		t.Error("Expected wrapped error to match unreadable_video")
	}
	if IsType(wrapped, ErrorTypeWorkerCrash) {
		t.Error("Did not expect wrapped error to match worker_crash")
	}
	if GetStatusCode(wrapped) != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", GetStatusCode(wrapped))
	}
	if GetStatusCode(fmt.Errorf("plain")) != http.StatusInternalServerError {
		t.Error("Expected plain errors to map to 500")
	}
}
