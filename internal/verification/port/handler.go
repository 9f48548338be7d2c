// Package port translates the verification.v1 gRPC surface into app-layer
// calls. Domain outcomes travel in-band through the wire Error message;
// only malformed requests and infrastructure faults become RPC status
// errors.
package port

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	verificationv1 "github.com/aelexs/phone-verification-service/api/verification/v1"
	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/errmap"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

// verificationService is a narrow, consumer-defined interface for the app
// operations the handler requires. The *app.Service satisfies this.
type verificationService interface {
	CreateSession(ctx context.Context, e164 uint64, sourceTag string) (*domain.Session, error)
	GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	SendCode(ctx context.Context, id domain.SessionID, transport domain.Transport, languages []language.Tag, client domain.ClientType) (*domain.Session, error)
	CheckCode(ctx context.Context, id domain.SessionID, submittedCode string) (app.CheckResult, error)
}

// Handler implements the gRPC VerificationServiceServer interface.
type Handler struct {
	verificationv1.UnimplementedVerificationServiceServer
	svc verificationService
}

// NewHandler creates a Handler backed by the given verification service.
func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

// CreateSession allocates a verification session for a phone number.
func (h *Handler) CreateSession(ctx context.Context, req *verificationv1.CreateSessionRequest) (*verificationv1.CreateSessionResponse, error) {
	session, err := h.svc.CreateSession(ctx, req.GetE164(), extractClientIP(ctx))
	if err != nil {
		if wireErr := inBandError(err); wireErr != nil {
			return &verificationv1.CreateSessionResponse{Error: wireErr}, nil
		}
		return nil, errmap.ToGRPCError(err)
	}

	return &verificationv1.CreateSessionResponse{
		SessionMetadata: sessionMetadata(session),
	}, nil
}

// GetSessionMetadata reads one session's client-visible state.
func (h *Handler) GetSessionMetadata(ctx context.Context, req *verificationv1.GetSessionMetadataRequest) (*verificationv1.GetSessionMetadataResponse, error) {
	id, err := parseSessionID(req.GetSessionId())
	if err != nil {
		return nil, err
	}

	session, err := h.svc.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return &verificationv1.GetSessionMetadataResponse{
				Error: &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_NOT_FOUND},
			}, nil
		}
		if wireErr := inBandError(err); wireErr != nil {
			return &verificationv1.GetSessionMetadataResponse{Error: wireErr}, nil
		}
		return nil, errmap.ToGRPCError(err)
	}

	return &verificationv1.GetSessionMetadataResponse{
		SessionMetadata: sessionMetadata(session),
	}, nil
}

// SendVerificationCode delivers (or re-delivers) a code over the requested
// transport.
func (h *Handler) SendVerificationCode(ctx context.Context, req *verificationv1.SendVerificationCodeRequest) (*verificationv1.SendVerificationCodeResponse, error) {
	id, err := parseSessionID(req.GetSessionId())
	if err != nil {
		return nil, err
	}
	transport, err := parseTransport(req.GetTransport())
	if err != nil {
		return nil, err
	}

	session, err := h.svc.SendCode(ctx, id, transport, parseAcceptLanguage(req.GetAcceptLanguage()), parseClientType(req.GetClientType()))
	resp := &verificationv1.SendVerificationCodeResponse{SessionId: req.GetSessionId()}
	if session != nil {
		resp.SessionMetadata = sessionMetadata(session)
	}
	if err != nil {
		// A well-formed but unknown session id is the in-band NO_SESSION
		// outcome, not an RPC failure.
		if errors.Is(err, domain.ErrSessionNotFound) {
			resp.Error = &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_NO_SESSION}
			return resp, nil
		}
		if wireErr := inBandError(err); wireErr != nil {
			resp.Error = wireErr
			return resp, nil
		}
		return nil, errmap.ToGRPCError(err)
	}
	return resp, nil
}

// CheckVerificationCode submits a candidate code against the session.
func (h *Handler) CheckVerificationCode(ctx context.Context, req *verificationv1.CheckVerificationCodeRequest) (*verificationv1.CheckVerificationCodeResponse, error) {
	id, err := parseSessionID(req.GetSessionId())
	if err != nil {
		return nil, err
	}
	if req.GetVerificationCode() == "" {
		return nil, errmap.ToGRPCError(fmt.Errorf("verification code is required: %w", domain.ErrInvalidInput))
	}

	result, err := h.svc.CheckCode(ctx, id, req.GetVerificationCode())
	resp := &verificationv1.CheckVerificationCodeResponse{Verified: result.Verified}
	if result.Session != nil {
		resp.SessionMetadata = sessionMetadata(result.Session)
	}
	if err != nil {
		if wireErr := inBandError(err); wireErr != nil {
			resp.Error = wireErr
			return resp, nil
		}
		return nil, errmap.ToGRPCError(err)
	}
	return resp, nil
}

// parseSessionID validates the 16-byte wire form. Malformed ids are an
// RPC-level INVALID_ARGUMENT.
func parseSessionID(raw []byte) (domain.SessionID, error) {
	id, err := domain.SessionIDFromBytes(raw)
	if err != nil {
		return domain.SessionID{}, errmap.ToGRPCError(err)
	}
	return id, nil
}

func parseTransport(t verificationv1.Transport) (domain.Transport, error) {
	switch t {
	case verificationv1.Transport_TRANSPORT_SMS:
		return domain.TransportSMS, nil
	case verificationv1.Transport_TRANSPORT_VOICE:
		return domain.TransportVoice, nil
	default:
		return "", errmap.ToGRPCError(fmt.Errorf("transport %s: %w", t, domain.ErrInvalidInput))
	}
}

func parseClientType(c verificationv1.ClientType) domain.ClientType {
	switch c {
	case verificationv1.ClientType_CLIENT_TYPE_IOS:
		return domain.ClientTypeIOS
	case verificationv1.ClientType_CLIENT_TYPE_ANDROID_WITH_FCM:
		return domain.ClientTypeAndroidWithFCM
	case verificationv1.ClientType_CLIENT_TYPE_ANDROID_WITHOUT_FCM:
		return domain.ClientTypeAndroidWithoutFCM
	default:
		return domain.ClientTypeUnknown
	}
}

// parseAcceptLanguage parses an RFC 9110 Accept-Language value. An empty or
// unparseable header means no preference.
func parseAcceptLanguage(header string) []language.Tag {
	if header == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

func sessionMetadata(s *domain.Session) *verificationv1.SessionMetadata {
	return &verificationv1.SessionMetadata{
		SessionId: s.ID.Bytes(),
		E164:      s.Phone.E164(),
		Verified:  s.Verified(),
	}
}

// inBandError maps a domain outcome onto the wire Error message. It returns
// nil for faults that must surface as RPC status errors instead.
func inBandError(err error) *verificationv1.Error {
	var rle *domain.RateLimitedError
	if errors.As(err, &rle) {
		return &verificationv1.Error{
			Kind:              verificationv1.ErrorKind_ERROR_KIND_RATE_LIMITED,
			MayRetry:          true,
			RetryAfterSeconds: clampSeconds(rle.RetryAfter.Seconds()),
		}
	}

	switch {
	case errors.Is(err, domain.ErrIllegalPhoneNumber):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_ILLEGAL_PHONE_NUMBER}
	case errors.Is(err, domain.ErrSessionAlreadyVerified):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_SESSION_ALREADY_VERIFIED}
	case errors.Is(err, domain.ErrNoCodeSent):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_NO_CODE_SENT}
	case errors.Is(err, domain.ErrSenderRejected):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_SENDER_REJECTED}
	case errors.Is(err, domain.ErrSenderIllegalArgument):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_SENDER_ILLEGAL_ARGUMENT}
	case errors.Is(err, domain.ErrSenderUnavailable):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_SENDER_UNAVAILABLE, MayRetry: true}
	case errors.Is(err, domain.ErrUnavailable):
		return &verificationv1.Error{Kind: verificationv1.ErrorKind_ERROR_KIND_UNAVAILABLE, MayRetry: true}
	}
	return nil
}

// clampSeconds rounds a retry-after up to whole seconds, so sub-second
// denials never advertise an instant retry.
func clampSeconds(seconds float64) uint32 {
	rounded := math.Ceil(seconds)
	if rounded < 0 {
		return 0
	}
	if rounded > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(rounded)
}

// extractClientIP extracts the calling address from "x-forwarded-for"
// metadata or falls back to the gRPC peer address. It tags the
// session-creation limiter key.
func extractClientIP(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		vals := md.Get("x-forwarded-for")
		if len(vals) > 0 && vals[0] != "" {
			if idx := strings.IndexByte(vals[0], ','); idx >= 0 {
				return strings.TrimSpace(vals[0][:idx])
			}
			return strings.TrimSpace(vals[0])
		}
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if idx := strings.LastIndexByte(addr, ':'); idx >= 0 {
			return addr[:idx]
		}
		return addr
	}

	return ""
}
