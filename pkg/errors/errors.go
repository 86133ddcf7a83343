// Package errors defines the small typed-error taxonomy used across
// services instead of exceptions: every failure mode the services can
// return is one of these concrete string-based types, each carrying
// its own error code and status code, following the same shape as the
// bot's own pkg/error package.
package errors

import "net/http"

// GenericError is implemented by every error type in this package; a
// recovery/response layer can type-assert to it to render a uniform
// envelope without knowing the concrete type.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}

// NotFoundError covers both "does not exist" and "exists but you
// don't own it" per spec.md's merged NotFound/Unauthorized error kind.
type NotFoundError string

func (e NotFoundError) Error() string    { return string(e) }
func (e NotFoundError) ErrCode() string  { return "NOT_FOUND" }
func (e NotFoundError) StatusCode() int  { return http.StatusNotFound }

// InvalidArgumentError covers validation failures: unparsable dates,
// missing required fields, past-date rejection.
type InvalidArgumentError string

func (e InvalidArgumentError) Error() string   { return string(e) }
func (e InvalidArgumentError) ErrCode() string { return "INVALID_ARGUMENT" }
func (e InvalidArgumentError) StatusCode() int { return http.StatusBadRequest }

// ConflictError covers calendar overlap and similar state conflicts.
type ConflictError string

func (e ConflictError) Error() string   { return string(e) }
func (e ConflictError) ErrCode() string { return "CONFLICT" }
func (e ConflictError) StatusCode() int { return http.StatusConflict }

// RateLimitedError is returned when a sender exceeds the per-window
// message or job budget.
type RateLimitedError string

func (e RateLimitedError) Error() string   { return string(e) }
func (e RateLimitedError) ErrCode() string { return "RATE_LIMITED" }
func (e RateLimitedError) StatusCode() int { return http.StatusTooManyRequests }

// AuthRequiredError is returned when an operation needs an
// authenticated session that is missing, expired, or locked out.
type AuthRequiredError string

func (e AuthRequiredError) Error() string   { return string(e) }
func (e AuthRequiredError) ErrCode() string { return "AUTH_REQUIRED" }
func (e AuthRequiredError) StatusCode() int { return http.StatusUnauthorized }

// ExternalUnavailableError wraps failures from the NLU providers, the
// ephemeral store, or any other external collaborator.
type ExternalUnavailableError string

func (e ExternalUnavailableError) Error() string   { return string(e) }
func (e ExternalUnavailableError) ErrCode() string { return "EXTERNAL_UNAVAILABLE" }
func (e ExternalUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// InternalError is the catch-all for anything unexpected; handlers
// should log the wrapped detail and present the generic message only.
type InternalError string

func (e InternalError) Error() string   { return string(e) }
func (e InternalError) ErrCode() string { return "INTERNAL" }
func (e InternalError) StatusCode() int { return http.StatusInternalServerError }

// ValidationError wraps a go-ozzo validation failure into the shared
// taxonomy, mirroring how validations.* functions in the bot wrap
// ozzo-validation errors as pkgError.ValidationError.
type ValidationError string

func (e ValidationError) Error() string   { return string(e) }
func (e ValidationError) ErrCode() string { return "VALIDATION_ERROR" }
func (e ValidationError) StatusCode() int { return http.StatusBadRequest }
