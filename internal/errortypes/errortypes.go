// Package errortypes provides error types and handling for semnotes.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeConfig              ErrorType = "config"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeDimensionMismatch   ErrorType = "dimension_mismatch"
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"
	ErrorTypeProviderCall        ErrorType = "provider_call"
	ErrorTypeStorageConflict     ErrorType = "storage_conflict"
	ErrorTypeStorageCorrupt      ErrorType = "storage_corrupt"
	ErrorTypeNotConfigured       ErrorType = "not_configured"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError represents an application error with context
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithFields adds multiple fields to the error for additional context
func (e *AppError) WithFields(fields map[string]interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		// Skip testing and standard library frames
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// newAppError creates a new AppError with the given type, underlying error, and message
func newAppError(errType ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New("unknown error")
	}

	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		StackInfo: captureStack(),
		Fields:    make(map[string]interface{}),
	}
}

// ValidationError creates a new validation error
func ValidationError(err error, message string) *AppError {
	return newAppError(ErrorTypeValidation, err, message)
}

// ConfigError creates a new configuration error
func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

// NotFoundError creates a new not-found error
func NotFoundError(err error, message string) *AppError {
	return newAppError(ErrorTypeNotFound, err, message)
}

// DimensionMismatchError creates a new dimension-mismatch error
func DimensionMismatchError(err error, message string) *AppError {
	return newAppError(ErrorTypeDimensionMismatch, err, message)
}

// ProviderUnavailableError creates a new provider-unavailable error
func ProviderUnavailableError(err error, message string) *AppError {
	return newAppError(ErrorTypeProviderUnavailable, err, message)
}

// ProviderCallError creates a new provider-call error
func ProviderCallError(err error, message string) *AppError {
	return newAppError(ErrorTypeProviderCall, err, message)
}

// StorageConflictError creates a new storage-conflict error
func StorageConflictError(err error, message string) *AppError {
	return newAppError(ErrorTypeStorageConflict, err, message)
}

// StorageCorruptError creates a new storage-corrupt error
func StorageCorruptError(err error, message string) *AppError {
	return newAppError(ErrorTypeStorageCorrupt, err, message)
}

// NotConfiguredError creates a new not-configured error
func NotConfiguredError(err error, message string) *AppError {
	return newAppError(ErrorTypeNotConfigured, err, message)
}

// InternalError creates a new internal error
func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// LogError logs an AppError using the provided slog.Logger or the default slog logger.
// It logs the error message, type, stack trace, and any associated fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		// Prepare arguments for structured logging
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		logger.Error(appErr.Message, args...)
	} else {
		// For generic errors, log the error message and the error itself
		logger.Error(err.Error(), "error", err)
	}
}

// isType checks whether err is an AppError of the given type
func isType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsDimensionMismatch checks if an error is a dimension-mismatch error
func IsDimensionMismatch(err error) bool {
	return isType(err, ErrorTypeDimensionMismatch)
}

// IsProviderUnavailable checks if an error is a provider-unavailable error
func IsProviderUnavailable(err error) bool {
	return isType(err, ErrorTypeProviderUnavailable)
}

// IsProviderCall checks if an error is a provider-call error
func IsProviderCall(err error) bool {
	return isType(err, ErrorTypeProviderCall)
}

// IsStorageConflict checks if an error is a storage-conflict error
func IsStorageConflict(err error) bool {
	return isType(err, ErrorTypeStorageConflict)
}

// IsStorageCorrupt checks if an error is a storage-corrupt error
func IsStorageCorrupt(err error) bool {
	return isType(err, ErrorTypeStorageCorrupt)
}

// IsNotConfigured checks if an error is a not-configured error
func IsNotConfigured(err error) bool {
	return isType(err, ErrorTypeNotConfigured)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}
