package errmap

import (
	"errors"
	"net/http"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/code mapping.
type httpMapping struct {
	err        error
	statusCode int
	code       string
}

// httpMappings maps domain errors to HTTP status codes and error codes.
// Order matters: first match wins (via errors.Is).
//
// These mappings serve the read-only HTTP mirror; the gRPC surface uses
// the table in grpc.go.
var httpMappings = []httpMapping{
	// Resource errors
	{domain.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConflictingUpdate, http.StatusConflict, "CONFLICT"},

	// Session state errors
	{domain.ErrSessionAlreadyVerified, http.StatusConflict, "ALREADY_VERIFIED"},
	{domain.ErrNoCodeSent, http.StatusConflict, "NO_CODE_SENT"},

	// Validation errors — 400
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrEmptyID, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInvalidID, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrIllegalPhoneNumber, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrSenderIllegalArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},

	// Sender verdicts
	{domain.ErrSenderRejected, http.StatusForbidden, "SENDER_REJECTED"},

	// Rate limiting — 429
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},

	// Availability
	{domain.ErrSenderUnavailable, http.StatusBadGateway, "SENDER_UNAVAILABLE"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: err.Error()}
		}
	}
	// Never expose internal error details to clients
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}
