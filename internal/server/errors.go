package server

import (
	"errors"
	"fmt"

	"github.com/semnotes/semnotes/internal/errortypes"
)

// Tool error codes returned to MCP clients
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeConfigError         = "CONFIG_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeDimensionMismatch   = "DIMENSION_MISMATCH"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeStorageConflict     = "STORAGE_CONFLICT"
	CodeStorageCorrupt      = "STORAGE_CORRUPT"
	CodeNotConfigured       = "NOT_CONFIGURED"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeUnknownError        = "UNKNOWN_ERROR"
)

// ErrorCode maps an error to a stable tool error code.
func ErrorCode(err error) string {
	var appErr *errortypes.AppError
	if !errors.As(err, &appErr) {
		return CodeUnknownError
	}

	switch appErr.Type {
	case errortypes.ErrorTypeValidation:
		return CodeValidationError
	case errortypes.ErrorTypeConfig:
		return CodeConfigError
	case errortypes.ErrorTypeNotFound:
		return CodeNotFound
	case errortypes.ErrorTypeDimensionMismatch:
		return CodeDimensionMismatch
	case errortypes.ErrorTypeProviderUnavailable:
		return CodeProviderUnavailable
	case errortypes.ErrorTypeProviderCall:
		return CodeProviderError
	case errortypes.ErrorTypeStorageConflict:
		return CodeStorageConflict
	case errortypes.ErrorTypeStorageCorrupt:
		return CodeStorageCorrupt
	case errortypes.ErrorTypeNotConfigured:
		return CodeNotConfigured
	case errortypes.ErrorTypeInternal:
		return CodeInternalError
	default:
		return CodeUnknownError
	}
}

// toolError logs the error with its tool code attached and returns the
// client-facing message for the response Error field.
func toolError(toolName string, err error) string {
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		errortypes.LogError(nil, appErr.
			WithField("tool", toolName).
			WithField("code", ErrorCode(err)))
		return fmt.Sprintf("%s: %s", ErrorCode(err), appErr.Error())
	}

	errortypes.LogError(nil, errortypes.InternalError(err, "tool call failed").
		WithField("tool", toolName).
		WithField("code", CodeUnknownError))
	return fmt.Sprintf("%s: %s", CodeUnknownError, err.Error())
}
