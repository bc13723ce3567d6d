package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies a domain error for transport mapping and retry policy.
type ErrorType string

const (
	// ValidationError represents validation failures
	ValidationError ErrorType = "VALIDATION_ERROR"
	// NotFoundError represents resource not found or private content
	NotFoundError ErrorType = "NOT_FOUND_ERROR"
	// ConflictError represents resource conflicts
	ConflictError ErrorType = "CONFLICT_ERROR"
	// AuthenticationError represents authentication failures against the platform or the admin surface
	AuthenticationError ErrorType = "AUTHENTICATION_ERROR"
	// PolicyError represents requests rejected by configured policy (size ceiling)
	PolicyError ErrorType = "POLICY_ERROR"
	// RateLimitError represents admission or platform rate limiting
	RateLimitError ErrorType = "RATE_LIMIT_ERROR"
	// InternalError represents internal system errors
	InternalError ErrorType = "INTERNAL_ERROR"
	// ExternalServiceError represents transient external service failures
	ExternalServiceError ErrorType = "EXTERNAL_SERVICE_ERROR"
)

// Well-known error codes returned by the core services.
const (
	CodeAuthChallenge      = "AUTH_CHALLENGE"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeSessionUnavailable = "SESSION_UNAVAILABLE"
	CodeContentTooLarge    = "CONTENT_TOO_LARGE"
	CodeNotFound           = "NOT_FOUND"
	CodePrivateContent     = "PRIVATE_CONTENT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTransient          = "TRANSIENT"
	CodeExpiredChallenge   = "EXPIRED_CHALLENGE"
)

// Error is a domain-specific error with a stable type and code.
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error.
func NewValidationError(code, message string, details map[string]any) *Error {
	return &Error{Type: ValidationError, Code: code, Message: message, Details: details}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(code, message string) *Error {
	return &Error{Type: NotFoundError, Code: code, Message: message}
}

// NewConflictError creates a new conflict error.
func NewConflictError(code, message string) *Error {
	return &Error{Type: ConflictError, Code: code, Message: message}
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(code, message string) *Error {
	return &Error{Type: AuthenticationError, Code: code, Message: message}
}

// NewInternalError creates a new internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{Type: InternalError, Code: code, Message: message, Cause: cause}
}

// NewExternalServiceError creates a new external service error.
func NewExternalServiceError(code, message string, cause error) *Error {
	return &Error{Type: ExternalServiceError, Code: code, Message: message, Cause: cause}
}

// NewAuthChallengeError signals that the platform interrupted a login with a
// two-factor or checkpoint challenge. The challenge kind and resume token are
// carried in Details so an operator can complete the login out of band.
func NewAuthChallengeError(kind, resumeToken string) *Error {
	return &Error{
		Type:    AuthenticationError,
		Code:    CodeAuthChallenge,
		Message: "platform requires a login challenge",
		Details: map[string]any{"challenge_kind": kind, "resume_token": resumeToken},
	}
}

// NewSessionUnavailableError signals that no valid bot session exists for the
// account and re-authentication must be triggered out of band.
func NewSessionUnavailableError(accountID string) *Error {
	return &Error{
		Type:    AuthenticationError,
		Code:    CodeSessionUnavailable,
		Message: "no valid session for account",
		Details: map[string]any{"account_id": accountID},
	}
}

// NewContentTooLargeError signals a media item over the configured ceiling.
// Item index is zero-based within the resolved sequence.
func NewContentTooLargeError(size, limit int64, itemIndex int) *Error {
	return &Error{
		Type:    PolicyError,
		Code:    CodeContentTooLarge,
		Message: "media item exceeds the configured size ceiling",
		Details: map[string]any{"size": size, "limit": limit, "item_index": itemIndex},
	}
}

// NewRateLimitedError creates a rate limit error.
func NewRateLimitedError(message string) *Error {
	return &Error{Type: RateLimitError, Code: CodeRateLimited, Message: message}
}

// NewTransientError wraps a transient external failure eligible for a bounded retry.
func NewTransientError(message string, cause error) *Error {
	return &Error{Type: ExternalServiceError, Code: CodeTransient, Message: message, Cause: cause}
}

// NewExpiredChallengeError signals that a verification challenge expired and
// the user must issue a new one.
func NewExpiredChallengeError(handle string) *Error {
	return &Error{
		Type:    ConflictError,
		Code:    CodeExpiredChallenge,
		Message: "verification challenge expired",
		Details: map[string]any{"handle": handle},
	}
}

// HasCode reports whether err is a domain error carrying the given code.
func HasCode(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Retryable reports whether the failure may succeed on a later attempt.
// Terminal outcomes (not found, policy rejection, expired challenge) return false.
func Retryable(err error) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	switch de.Type {
	case RateLimitError:
		return true
	case ExternalServiceError:
		return de.Code == CodeTransient
	default:
		return false
	}
}
