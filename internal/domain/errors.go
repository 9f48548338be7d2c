package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Session errors
	ErrSessionNotFound        = errors.New("session not found")
	ErrConflictingUpdate      = errors.New("session was modified concurrently")
	ErrSessionAlreadyVerified = errors.New("session is already verified")
	ErrNoCodeSent             = errors.New("no verification code has been sent for this session")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrIllegalPhoneNumber = errors.New("illegal phone number")

	// Sender errors, classified per the adapter error taxonomy.
	// Rejected and illegal-argument are terminal for the given inputs;
	// unavailable is transient.
	ErrSenderRejected        = errors.New("sender rejected the request")
	ErrSenderIllegalArgument = errors.New("sender reported an illegal argument")
	ErrSenderUnavailable     = errors.New("no sender available for the request")

	// Operational errors
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// RateLimitedError is a rate-limit denial carrying the duration after which
// the caller may try again. It matches ErrRateLimited via errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// Is makes errors.Is(err, ErrRateLimited) true for any RateLimitedError.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter extracts the retry-after hint from an error chain.
// Returns 0 and false if the chain contains no rate-limit denial.
func RetryAfter(err error) (time.Duration, bool) {
	var rle *RateLimitedError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry without the caller changing inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrSenderUnavailable) ||
		errors.Is(err, ErrConflictingUpdate)
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrIllegalPhoneNumber,
	ErrEmptyID,
	ErrInvalidID,
	ErrSessionNotFound,
	ErrSessionAlreadyVerified,
	ErrNoCodeSent,
	ErrSenderRejected,
	ErrSenderIllegalArgument,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error represents a missing session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
