package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType discriminates the failure classes callers branch on.
type ErrorType string

const (
	// ErrorTypeModuleNotFound means no collector module is registered under
	// the requested name.
	ErrorTypeModuleNotFound ErrorType = "module_not_found"
	// ErrorTypeEntryPointMissing means the resolved module has neither the
	// requested command nor a default entry point.
	ErrorTypeEntryPointMissing ErrorType = "entry_point_missing"
	// ErrorTypeExternalService means an upstream API call failed after the
	// retry budget was exhausted.
	ErrorTypeExternalService ErrorType = "external_service"
	// ErrorTypeWriteFailure means a dataset file could not be written.
	ErrorTypeWriteFailure ErrorType = "write_failure"
	// ErrorTypeAuth means token acquisition failed on every configured path.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeValidation means the invocation or its inputs were invalid.
	ErrorTypeValidation ErrorType = "validation"
)

// Error is the structured error type used across the tool.
type Error struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// New creates a new structured error.
func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause sets the cause of the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// NewModuleNotFound reports an unresolvable module name.
func NewModuleNotFound(module string) *Error {
	return New(ErrorTypeModuleNotFound, fmt.Sprintf("no module registered as %q", module)).
		WithDetail("module", module)
}

// NewEntryPointMissing reports a module with no invocable entry point.
func NewEntryPointMissing(module, command string) *Error {
	msg := fmt.Sprintf("module %q has no default entry point", module)
	if command != "" {
		msg = fmt.Sprintf("module %q has neither command %q nor a default entry point", module, command)
	}
	return New(ErrorTypeEntryPointMissing, msg).
		WithDetail("module", module).
		WithDetail("command", command)
}

// NewValidation reports an invalid invocation or input.
func NewValidation(message string) *Error {
	return New(ErrorTypeValidation, message)
}

// WrapExternalService wraps an upstream failure after retry exhaustion.
func WrapExternalService(err error, operation string) *Error {
	return New(ErrorTypeExternalService, operation+" failed").
		WithDetail("operation", operation).
		WithCause(err)
}

// WrapWriteFailure wraps a dataset write failure.
func WrapWriteFailure(err error, path string) *Error {
	return New(ErrorTypeWriteFailure, "writing "+path).
		WithDetail("path", path).
		WithCause(err)
}

// WrapAuth wraps a token acquisition failure.
func WrapAuth(err error, message string) *Error {
	return New(ErrorTypeAuth, message).WithCause(err)
}

// IsType reports whether err or any error in its chain carries errorType.
func IsType(err error, errorType ErrorType) bool {
	var appErr *Error
	for errors.As(err, &appErr) {
		if appErr.Type == errorType {
			return true
		}
		err = appErr.Cause
		if err == nil {
			break
		}
	}
	return false
}

// TypeOf returns the error type of the outermost structured error, or ""
// when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
