// Package apperrors provides sentinel and custom error types for the application.
package apperrors

// ErrExhaustedPool is the sentinel for pool-exhaustion errors.
// Use when every credential for a provider is cooling down.
var ErrExhaustedPool = &ExhaustedPoolError{}

// ExhaustedPoolError is a sentinel error for key pools with no eligible credential.
type ExhaustedPoolError struct {
	Provider string
	Message  string
}

// NewExhaustedPoolError creates an ExhaustedPoolError for the given provider.
func NewExhaustedPoolError(provider, message string) *ExhaustedPoolError {
	return &ExhaustedPoolError{
		Provider: provider,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *ExhaustedPoolError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Provider != "" {
		return "all " + e.Provider + " credentials are cooling down"
	}

	return "all credentials are cooling down"
}

// Is implements the error interface for error comparison.
func (e *ExhaustedPoolError) Is(target error) bool {
	_, ok := target.(*ExhaustedPoolError)

	return ok
}

// ErrRateLimited is the sentinel for rate-limit responses from an upstream provider.
// Always handled by penalizing the credential and rotating; never surfaced to callers.
var ErrRateLimited = &RateLimitedError{}

// RateLimitedError is a sentinel error for HTTP 429 responses.
type RateLimitedError struct {
	Provider string
	Message  string
}

// NewRateLimitedError creates a RateLimitedError for the given provider.
func NewRateLimitedError(provider, message string) *RateLimitedError {
	return &RateLimitedError{Provider: provider, Message: message}
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Provider != "" {
		return e.Provider + " rate limit hit"
	}

	return "rate limited"
}

// Is implements the error interface for error comparison.
func (e *RateLimitedError) Is(target error) bool {
	_, ok := target.(*RateLimitedError)

	return ok
}

// ErrMalformedResponse is the sentinel for unparsable generation output.
// Retried within the naming attempt budget, then degrades to fallback names.
var ErrMalformedResponse = &MalformedResponseError{}

// MalformedResponseError is a sentinel error for generation responses that fail parsing.
type MalformedResponseError struct {
	Message string
}

// NewMalformedResponseError creates a MalformedResponseError with a custom message.
func NewMalformedResponseError(message string) *MalformedResponseError {
	return &MalformedResponseError{Message: message}
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "malformed generation response"
}

// Is implements the error interface for error comparison.
func (e *MalformedResponseError) Is(target error) bool {
	_, ok := target.(*MalformedResponseError)

	return ok
}

// ErrUnavailable is the sentinel for transient upstream failures (timeouts, 5xx, transport errors).
var ErrUnavailable = &UnavailableError{}

// UnavailableError is a sentinel error for upstream calls that failed for reasons other than rate limiting.
type UnavailableError struct {
	Provider string
	Message  string
}

// NewUnavailableError creates an UnavailableError with a custom message.
func NewUnavailableError(provider, message string) *UnavailableError {
	return &UnavailableError{Provider: provider, Message: message}
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Provider != "" {
		return e.Provider + " unavailable"
	}

	return "provider unavailable"
}

// Is implements the error interface for error comparison.
func (e *UnavailableError) Is(target error) bool {
	_, ok := target.(*UnavailableError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrLimitExceeded is the sentinel for limit-exceeded errors (e.g. per-session query cap).
var ErrLimitExceeded = &LimitExceededError{}

// LimitExceededError is a sentinel error for limit-exceeded conditions.
type LimitExceededError struct {
	Message string
}

// NewLimitExceededError creates a LimitExceededError with a custom message.
func NewLimitExceededError(message string) *LimitExceededError {
	return &LimitExceededError{Message: message}
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "limit exceeded"
}

// Is implements the error interface for error comparison.
func (e *LimitExceededError) Is(target error) bool {
	_, ok := target.(*LimitExceededError)

	return ok
}
