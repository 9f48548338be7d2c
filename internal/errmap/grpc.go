// Package errmap provides wire protocol mappers for domain errors.
// Every domain error has explicit gRPC and HTTP mappings.
package errmap

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// grpcMappings maps domain errors to gRPC status codes.
// Order matters: first match wins (via errors.Is).
//
// Mapping follows gRPC status codes reference:
// https://grpc.github.io/grpc/core/md_doc_statuscodes.html
var grpcMappings = []struct {
	err  error
	code codes.Code
}{
	// Resource errors
	{domain.ErrSessionNotFound, codes.NotFound},
	{domain.ErrConflictingUpdate, codes.Aborted},

	// Session state errors
	{domain.ErrSessionAlreadyVerified, codes.FailedPrecondition},
	{domain.ErrNoCodeSent, codes.FailedPrecondition},

	// Validation errors
	{domain.ErrInvalidInput, codes.InvalidArgument},
	{domain.ErrEmptyID, codes.InvalidArgument},
	{domain.ErrInvalidID, codes.InvalidArgument},
	{domain.ErrIllegalPhoneNumber, codes.InvalidArgument},
	{domain.ErrSenderIllegalArgument, codes.InvalidArgument},

	// Sender verdicts
	{domain.ErrSenderRejected, codes.FailedPrecondition},

	// Rate limiting / resource exhaustion
	{domain.ErrRateLimited, codes.ResourceExhausted},

	// Availability
	{domain.ErrSenderUnavailable, codes.Unavailable},
	{domain.ErrUnavailable, codes.Unavailable},
}

// ToGRPCStatus converts a domain error to a gRPC status.
// The returned status can be sent directly to gRPC clients.
func ToGRPCStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if errors.Is(err, context.Canceled) {
		return status.New(codes.Canceled, "request canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.New(codes.DeadlineExceeded, "deadline exceeded")
	}
	for _, m := range grpcMappings {
		if errors.Is(err, m.err) {
			return status.New(m.code, err.Error())
		}
	}
	// Never expose internal error details to clients
	return status.New(codes.Internal, "internal error")
}

// ToGRPCError converts a domain error to a gRPC error (implements error interface).
func ToGRPCError(err error) error {
	return ToGRPCStatus(err).Err()
}

// FromGRPCError extracts the gRPC status code from an error.
// Returns codes.Unknown if the error is not a gRPC status error.
func FromGRPCError(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}
