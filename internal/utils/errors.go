// Package contextutils provides error handling utilities and standardized error types
// for consistent error management across the evaluation engine.
package contextutils

import (
	"context"
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code for callers translating
// engine failures into user-facing responses
type ErrorCode string

const (
	// Validation error codes

	// ErrorCodeValidationFailed indicates a malformed submitted answer
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Grading error codes

	// ErrorCodeQuestionNotFound indicates that an answer references an unknown question
	ErrorCodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	// ErrorCodeUnknownQuestionType indicates a question type the grader has no strategy for
	ErrorCodeUnknownQuestionType ErrorCode = "UNKNOWN_QUESTION_TYPE"
	// ErrorCodeGradingDegraded indicates the external grading capability failed
	// and fallback credit was applied; reported on the result, never fatal
	ErrorCodeGradingDegraded ErrorCode = "GRADING_DEGRADED"

	// Hint error codes

	// ErrorCodeHintLimitExceeded indicates the per-question hint cap was reached
	ErrorCodeHintLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Adaptive error codes

	// ErrorCodeAdaptiveNotSupported indicates an adaptive operation on a non-adaptive quiz
	ErrorCodeAdaptiveNotSupported ErrorCode = "ADAPTIVE_NOT_SUPPORTED"
	// ErrorCodeSessionNotFound indicates a missing adaptive session
	ErrorCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrorCodeSessionComplete indicates the adaptive session has no questions left to serve
	ErrorCodeSessionComplete ErrorCode = "SESSION_COMPLETE"

	// AI capability error codes

	// ErrorCodeAIProviderUnavailable indicates that the AI provider is unavailable
	ErrorCodeAIProviderUnavailable ErrorCode = "AI_PROVIDER_UNAVAILABLE"
	// ErrorCodeAIRequestFailed indicates that the AI request failed
	ErrorCodeAIRequestFailed ErrorCode = "AI_REQUEST_FAILED"
	// ErrorCodeAIResponseInvalid indicates that the AI response is invalid
	ErrorCodeAIResponseInvalid ErrorCode = "AI_RESPONSE_INVALID"
	// ErrorCodeAIConfigInvalid indicates that the AI configuration is invalid
	ErrorCodeAIConfigInvalid ErrorCode = "AI_CONFIG_INVALID"

	// Service error codes

	// ErrorCodeInternalError indicates an internal engine error
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeStoreUnavailable indicates the shared counter/session store failed
	ErrorCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

const (
	// SeverityDebug indicates debug-level errors for development
	SeverityDebug SeverityLevel = "debug"
	// SeverityInfo indicates informational errors
	SeverityInfo SeverityLevel = "info"
	// SeverityWarn indicates warning-level errors
	SeverityWarn SeverityLevel = "warn"
	// SeverityError indicates error-level issues
	SeverityError SeverityLevel = "error"
	// SeverityFatal indicates fatal errors that require immediate attention
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

// Error types for consistent error handling with associated codes and severity
var (
	// Validation errors
	ErrValidationFailed = &AppError{
		Code:     ErrorCodeValidationFailed,
		Severity: SeverityWarn,
		Message:  "Submitted answer failed validation",
	}

	// Grading errors
	ErrQuestionNotFound = &AppError{
		Code:     ErrorCodeQuestionNotFound,
		Severity: SeverityInfo,
		Message:  "Question not found",
	}

	ErrUnknownQuestionType = &AppError{
		Code:     ErrorCodeUnknownQuestionType,
		Severity: SeverityError,
		Message:  "No grading strategy for question type",
	}

	ErrGradingDegraded = &AppError{
		Code:     ErrorCodeGradingDegraded,
		Severity: SeverityWarn,
		Message:  "External grading unavailable, fallback credit applied",
	}

	// Hint errors
	ErrHintLimitExceeded = &AppError{
		Code:     ErrorCodeHintLimitExceeded,
		Severity: SeverityWarn,
		Message:  "Hint limit exceeded for this question",
	}

	// Adaptive errors
	ErrAdaptiveNotSupported = &AppError{
		Code:     ErrorCodeAdaptiveNotSupported,
		Severity: SeverityWarn,
		Message:  "Quiz is not configured for adaptive mode",
	}

	ErrSessionNotFound = &AppError{
		Code:     ErrorCodeSessionNotFound,
		Severity: SeverityInfo,
		Message:  "Adaptive session not found",
	}

	ErrSessionComplete = &AppError{
		Code:     ErrorCodeSessionComplete,
		Severity: SeverityInfo,
		Message:  "No questions remain in this session",
	}

	// AI capability errors
	ErrAIProviderUnavailable = &AppError{
		Code:     ErrorCodeAIProviderUnavailable,
		Severity: SeverityError,
		Message:  "AI provider unavailable",
	}

	ErrAIRequestFailed = &AppError{
		Code:     ErrorCodeAIRequestFailed,
		Severity: SeverityError,
		Message:  "AI request failed",
	}

	ErrAIResponseInvalid = &AppError{
		Code:     ErrorCodeAIResponseInvalid,
		Severity: SeverityError,
		Message:  "AI response invalid",
	}

	ErrAIConfigInvalid = &AppError{
		Code:     ErrorCodeAIConfigInvalid,
		Severity: SeverityError,
		Message:  "AI configuration invalid",
	}

	// Service errors
	ErrInternalError = &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  "Internal engine error",
	}

	ErrStoreUnavailable = &AppError{
		Code:     ErrorCodeStoreUnavailable,
		Severity: SeverityError,
		Message:  "Shared state store unavailable",
	}
)

// NewAppError creates a new AppError with the given parameters
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
		Cause:    cause,
	}
}

// WrapError wraps an error with additional context, preserving AppError structure if possible
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, wrap it with additional details
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  context,
			Details:  appErr.Error(),
			Cause:    appErr,
		}
	}

	// For regular errors, create a generic internal error wrapper
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  context,
		Details:  err.Error(),
		Cause:    err,
	}
}

// WrapErrorf wraps an error with formatted context, preserving AppError structure if possible
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	// Handle %w verb for error wrapping by using fmt.Errorf
	if strings.Contains(format, "%w") {
		wrappedErr := fmt.Errorf(format, args...)

		if appErr, ok := err.(*AppError); ok {
			return &AppError{
				Code:     appErr.Code,
				Severity: appErr.Severity,
				Message:  wrappedErr.Error(),
				Details:  appErr.Error(),
				Cause:    wrappedErr,
			}
		}

		return &AppError{
			Code:     ErrorCodeInternalError,
			Severity: SeverityError,
			Message:  wrappedErr.Error(),
			Details:  err.Error(),
			Cause:    wrappedErr,
		}
	}

	if appErr, ok := err.(*AppError); ok {
		context := fmt.Sprintf(format, args...)
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  context,
			Details:  appErr.Error(),
			Cause:    appErr,
		}
	}

	context := fmt.Sprintf(format, args...)
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  context,
		Details:  err.Error(),
		Cause:    err,
	}
}

// IsError checks if an error matches a specific AppError by code
func IsError(err error, target *AppError) bool {
	if err == nil || target == nil {
		return false
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == target.Code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returning ErrorCodeInternalError for unknown errors
func GetErrorCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity extracts the severity from an error, returning SeverityError for unknown errors
func GetErrorSeverity(err error) SeverityLevel {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Severity
	}
	return SeverityError
}

// ToJSON converts an AppError into a map suitable for a structured response body
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":    string(e.Code),
		"message": e.Message,
	}
	if e.Details != "" {
		result["details"] = e.Details
	}
	return result
}

type contextKey string

const userIDKey contextKey = "user_id"

// GetUserIDFromContext extracts the user ID from context, returning 0 if not present
func GetUserIDFromContext(ctx context.Context) int {
	if userID, ok := ctx.Value(userIDKey).(int); ok {
		return userID
	}
	return 0
}

// WithUserID returns a new context carrying the given user ID
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
