// Package errors provides the standardized error taxonomy shared by the mortgage core and its workers.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Core taxonomy
const (
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodeGuardNotSatisfied    ErrorCode = "GUARD_NOT_SATISFIED"
	ErrCodeConcurrencyConflict  ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeUnsupportedFrequency ErrorCode = "UNSUPPORTED_FREQUENCY"
	ErrCodeReconciliation       ErrorCode = "RECONCILIATION_ERROR"
	ErrCodeIntegrityViolation   ErrorCode = "INTEGRITY_VIOLATION"
)

// Infrastructure
const (
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeStorageFailure  ErrorCode = "STORAGE_FAILURE"
	ErrCodeLockUnavailable ErrorCode = "LOCK_UNAVAILABLE"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.Cause
}

// Is matches another StandardError by code, so the sentinels below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation           = &StandardError{Code: ErrCodeValidation}
	ErrInvalidTransition    = &StandardError{Code: ErrCodeInvalidTransition}
	ErrGuardNotSatisfied    = &StandardError{Code: ErrCodeGuardNotSatisfied}
	ErrConcurrencyConflict  = &StandardError{Code: ErrCodeConcurrencyConflict}
	ErrUnsupportedFrequency = &StandardError{Code: ErrCodeUnsupportedFrequency}
	ErrReconciliation       = &StandardError{Code: ErrCodeReconciliation}
	ErrIntegrityViolation   = &StandardError{Code: ErrCodeIntegrityViolation}
	ErrNotFound             = &StandardError{Code: ErrCodeNotFound}
	ErrStorageFailure       = &StandardError{Code: ErrCodeStorageFailure}
	ErrLockUnavailable      = &StandardError{Code: ErrCodeLockUnavailable}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports a (state, event) pair missing from the transition table.
func NewInvalidTransitionError(fromState, event string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "No transition configured for state and event",
		Details:   fmt.Sprintf("state: %s, event: %s", fromState, event),
		Retryable: false,
		Metadata: map[string]interface{}{
			"fromState": fromState,
			"event":     event,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewGuardNotSatisfiedError carries the name of the failing guard and the unmet condition.
func NewGuardNotSatisfiedError(guard, condition string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGuardNotSatisfied,
		Message:   "Transition precondition not satisfied",
		Details:   condition,
		Retryable: false,
		Metadata: map[string]interface{}{
			"guard":     guard,
			"condition": condition,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrencyConflictError is returned when a write was computed against a stale snapshot.
func NewConcurrencyConflictError(resource string, expectedVersion int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   "Concurrent modification detected",
		Details:   fmt.Sprintf("resource: %s, expectedVersion: %d", resource, expectedVersion),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedFrequencyError rejects cadences that cannot be auto-generated.
func NewUnsupportedFrequencyError(frequency string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedFrequency,
		Message:   "Payment frequency not supported for automatic schedule generation",
		Details:   fmt.Sprintf("frequency: %s", frequency),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReconciliationError aborts schedule creation when totals fail to balance.
func NewReconciliationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReconciliation,
		Message:   "Schedule totals do not reconcile",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntegrityViolationError reports a divergence between the audit log and denormalized state.
func NewIntegrityViolationError(applicationID, stored, replayed string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntegrityViolation,
		Message:   "Application state diverges from audit log",
		Details:   fmt.Sprintf("applicationId: %s, stored: %s, replayed: %s", applicationID, stored, replayed),
		Retryable: false,
		Metadata: map[string]interface{}{
			"applicationId": applicationID,
			"storedState":   stored,
			"replayedState": replayed,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing-resource error.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailureError wraps a storage fault.
func NewStorageFailureError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailure,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewLockUnavailableError is returned when the per-application lock cannot be acquired in time.
func NewLockUnavailableError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLockUnavailable,
		Message:   "Resource is locked by another writer",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageFailure:
		return 3
	case ErrCodeConcurrencyConflict, ErrCodeLockUnavailable:
		return 2
	default:
		return 0 // business outcomes and fatal errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns the StandardError in err's chain, wrapping unknown errors as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// CodeOf returns the error code of err, or an empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandard(err).Code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "GUARD"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "FREQUENCY") || strings.Contains(codeStr, "RECONCILIATION"):
		return "SCHEDULE"
	case strings.Contains(codeStr, "CONCURRENCY") || strings.Contains(codeStr, "LOCK"):
		return "CONCURRENCY"
	case strings.Contains(codeStr, "INTEGRITY"):
		return "INTEGRITY"
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "NOT_FOUND"):
		return "STORAGE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
