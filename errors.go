package modtl

import (
	"fmt"
	"net/http"
)

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ErrorClass tells the retry policy how a provider failure may be handled.
type ErrorClass int

const (
	// ClassFatal errors are never retried. It is the zero value so that an
	// unclassified failure is never retried by accident.
	ClassFatal ErrorClass = iota
	// ClassHTTP errors carry an HTTP status code.
	ClassHTTP
	// ClassNetwork errors are transport failures without a response.
	ClassNetwork
)

func (c ErrorClass) String() string {
	switch c {
	case ClassHTTP:
		return "http"
	case ClassNetwork:
		return "network"
	default:
		return "fatal"
	}
}

// ProviderError indicates an AI provider failure.
type ProviderError struct {
	Message    string
	Cause      error
	Class      ErrorClass
	StatusCode int              // HTTP status, set when Class is ClassHTTP
	Hint       *RetryHint       // server-supplied retry delay, if any
	Quota      []QuotaViolation // quota violations reported by the server
}

func (e *ProviderError) Error() string {
	msg := "provider error: " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("provider error (%d %s): %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewHTTPError builds a ProviderError for a response with the given status.
func NewHTTPError(status int, message string, cause error) *ProviderError {
	return &ProviderError{Message: message, Cause: cause, Class: ClassHTTP, StatusCode: status}
}

// NewNetworkError builds a ProviderError for a transport failure.
func NewNetworkError(message string, cause error) *ProviderError {
	return &ProviderError{Message: message, Cause: cause, Class: ClassNetwork}
}

// NewFatalError builds a ProviderError that must not be retried.
func NewFatalError(message string, cause error) *ProviderError {
	return &ProviderError{Message: message, Cause: cause, Class: ClassFatal}
}

// RetryFailedError is returned once a retry policy gives up.
type RetryFailedError struct {
	Attempts int // calls made, including the first
	Cause    error
}

func (e *RetryFailedError) Error() string {
	return fmt.Sprintf("retry failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetryFailedError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure.
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the provider returned a different number of
// translations than requested.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
