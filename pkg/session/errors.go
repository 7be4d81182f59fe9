package session

import (
	"context"
	"errors"

	"github.com/facegate/facegate/pkg/capture"
	"github.com/facegate/facegate/pkg/embedding"
	"github.com/facegate/facegate/pkg/storage"
)

// ErrorCode classifies an operation failure.
type ErrorCode string

const (
	ErrCodeConfig            ErrorCode = "CONFIG"
	ErrCodePermission        ErrorCode = "PERMISSION"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeNoFace            ErrorCode = "NO_FACE"
	ErrCodeLowQuality        ErrorCode = "LOW_QUALITY"
	ErrCodeNotMatched        ErrorCode = "NOT_MATCHED"
	ErrCodeNotRegistered     ErrorCode = "NOT_REGISTERED"
	ErrCodeStorage           ErrorCode = "STORAGE"
	ErrCodeCorrupted         ErrorCode = "CORRUPTED"
	ErrCodeBusy              ErrorCode = "BUSY"
	ErrCodeCancelled         ErrorCode = "CANCELLED"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
)

// OpError is a structured operation error surfaced to callers.
type OpError struct {
	Code    ErrorCode
	Message string
	// Retry indicates the same operation may succeed if repeated.
	Retry bool
}

func (e *OpError) Error() string {
	return string(e.Code) + ": " + e.Message
}

var errorMessages = map[ErrorCode]string{
	ErrCodeConfig:            "system not configured",
	ErrCodePermission:        "resource access denied",
	ErrCodeInvalidInput:      "invalid input image",
	ErrCodeDimensionMismatch: "embedding dimensions do not match",
	ErrCodeNoFace:            "no face detected",
	ErrCodeLowQuality:        "face quality too low",
	ErrCodeNotMatched:        "face does not match the enrolled profile",
	ErrCodeNotRegistered:     "user is not registered",
	ErrCodeStorage:           "storage operation failed",
	ErrCodeCorrupted:         "stored profile is corrupted",
	ErrCodeBusy:              "another operation is already in progress",
	ErrCodeCancelled:         "operation cancelled",
	ErrCodeTimeout:           "operation timed out",
}

// NewOpError creates an operation error with the standard message.
func NewOpError(code ErrorCode, retry bool) *OpError {
	return &OpError{Code: code, Message: errorMessages[code], Retry: retry}
}

// classify maps component errors onto the operation error taxonomy.
func classify(err error) *OpError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return NewOpError(ErrCodeTimeout, true)
	case errors.Is(err, context.Canceled):
		return NewOpError(ErrCodeCancelled, false)
	case errors.Is(err, embedding.ErrInsufficientData),
		errors.Is(err, embedding.ErrInvalidImage),
		errors.Is(err, embedding.ErrEmptyEmbeddings),
		errors.Is(err, embedding.ErrZeroNorm):
		return &OpError{Code: ErrCodeInvalidInput, Message: err.Error(), Retry: true}
	case errors.Is(err, embedding.ErrDimensionMismatch):
		return &OpError{Code: ErrCodeDimensionMismatch, Message: err.Error(), Retry: false}
	case errors.Is(err, storage.ErrNotFound):
		return NewOpError(ErrCodeNotRegistered, false)
	case errors.Is(err, storage.ErrCorrupted), errors.Is(err, storage.ErrInvalidData):
		return NewOpError(ErrCodeCorrupted, false)
	case errors.Is(err, storage.ErrStorageAccess):
		return &OpError{Code: ErrCodeStorage, Message: err.Error(), Retry: true}
	case errors.Is(err, capture.ErrNoFrame):
		return NewOpError(ErrCodeNoFace, true)
	default:
		// Anything else means a capability misbehaved.
		return &OpError{Code: ErrCodeConfig, Message: err.Error(), Retry: false}
	}
}
