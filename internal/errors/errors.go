// Package errors defines the error taxonomy shared by the services, the HTTP
// handlers and the CLI. Every concrete error wraps exactly one category sentinel
// so callers can classify failures with errors.Is or KindOf.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category sentinels.
var (
	// ErrValidation marks malformed input; the caller's fault.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a uniqueness violation (duplicate short code).
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks an unknown short code or link id.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a link that exists but may not be used right now
	// (inactive, expired, missing password grant) or an actor that does not own it.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized marks a wrong password.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal marks store or parsing failures not attributable to the caller.
	ErrInternal = errors.New("internal failure")
)

// ErrShortCodeNotFound is returned when a short code doesn't exist in the database
var ErrShortCodeNotFound = fmt.Errorf("%w: short code not found", ErrNotFound)

// ErrLinkNotFound is returned when a link id doesn't exist in the database
var ErrLinkNotFound = fmt.Errorf("%w: link not found", ErrNotFound)

// ErrShortCodeTaken is returned when inserting a short code that is already stored
var ErrShortCodeTaken = fmt.Errorf("%w: custom code already exists, please choose a different one", ErrConflict)

// ErrLinkInactive is returned for links whose active flag is off
var ErrLinkInactive = fmt.Errorf("%w: URL is not active", ErrForbidden)

// ErrLinkExpired is returned for links whose expiry is in the past
var ErrLinkExpired = fmt.Errorf("%w: URL has expired", ErrForbidden)

// ErrPasswordRequired is returned when a protected link is visited without a valid grant.
// It is the only refusal that routes the visitor somewhere other than the fallback.
var ErrPasswordRequired = fmt.Errorf("%w: password required", ErrForbidden)

// ErrNotOwner is returned when an actor tries to change a link owned by someone else
var ErrNotOwner = fmt.Errorf("%w: link belongs to another account", ErrForbidden)

// ErrInvalidPassword is returned when the supplied password doesn't match
var ErrInvalidPassword = fmt.Errorf("%w: invalid password", ErrUnauthorized)

// ErrInvalidGrant is returned when a password grant is malformed, expired or scoped to another link
var ErrInvalidGrant = fmt.Errorf("%w: invalid access grant", ErrUnauthorized)

// ErrShortCodeGenerationFailed is returned when we can't generate a unique short code
var ErrShortCodeGenerationFailed = fmt.Errorf("%w: failed to generate unique short code", ErrInternal)

// ValidationError carries a human-readable message suitable for form display.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap ties every ValidationError to the ErrValidation category.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ErrInvalidURL is returned when the provided URL is invalid
var ErrInvalidURL = NewValidationError("original_url", "Please enter a valid URL")

// ErrInvalidShortCode is returned when the custom code format is invalid
var ErrInvalidShortCode = NewValidationError("custom_code",
	"Custom code must be 3-20 characters and contain only letters, numbers, hyphens, and underscores")

// ErrNotPasswordProtected is returned when a password is submitted for an unprotected link
var ErrNotPasswordProtected = NewValidationError("password", "URL is not password protected")

// ErrReservedShortCode is returned when a custom code collides with a fixed route.
var ErrReservedShortCode = NewValidationError("custom_code", "This code is reserved, please choose another")

// Kind is the coarse classification of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// KindOf classifies err. Anything that does not wrap a known category is internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// Message returns the text that may be shown to an end user for err.
// Internal failures never leak their cause.
func Message(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	msg := err.Error()
	for _, category := range []error{ErrConflict, ErrNotFound, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, category) {
			return strings.TrimPrefix(msg, category.Error()+": ")
		}
	}
	return "Internal server error"
}
