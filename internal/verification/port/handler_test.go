package port

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	verificationv1 "github.com/aelexs/phone-verification-service/api/verification/v1"
	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/domain/domaintest"
	"github.com/aelexs/phone-verification-service/internal/sender"
	"github.com/aelexs/phone-verification-service/internal/verification/adapter"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

var portTestStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// testE164 is +1 202 555 0100; its last six national digits are the code
// the last-digits sender expects.
const (
	testE164 = uint64(12025550100)
	testCode = "550100"
)

// ---- Harness ----

// countingSender wraps a real sender and counts upstream calls, so tests
// can prove the idempotent re-check path never reaches the sender.
type countingSender struct {
	sender.Sender
	sendCalls  atomic.Int64
	checkCalls atomic.Int64
}

func (c *countingSender) Send(ctx context.Context, transport domain.Transport, phone domain.PhoneNumber, languages []language.Tag, client domain.ClientType) ([]byte, error) {
	c.sendCalls.Add(1)
	return c.Sender.Send(ctx, transport, phone, languages, client)
}

func (c *countingSender) Check(ctx context.Context, submittedCode string, payload []byte) (bool, error) {
	c.checkCalls.Add(1)
	return c.Sender.Check(ctx, submittedCode, payload)
}

// denyLimiter denies every check with a fixed retry-after.
type denyLimiter struct{ retryAfter time.Duration }

func (l denyLimiter) Check(context.Context, string) error {
	return &domain.RateLimitedError{RetryAfter: l.retryAfter}
}

// failingSender fails every upstream send with a fixed error.
type failingSender struct{ sendErr error }

func (f *failingSender) Name() string              { return "failing" }
func (f *failingSender) SessionTTL() time.Duration { return domain.DefaultSessionTTL }

func (f *failingSender) Supports(domain.Transport, domain.PhoneNumber, []language.Tag, domain.ClientType) bool {
	return true
}

func (f *failingSender) Send(context.Context, domain.Transport, domain.PhoneNumber, []language.Tag, domain.ClientType) ([]byte, error) {
	return nil, f.sendErr
}

func (f *failingSender) Check(context.Context, string, []byte) (bool, error) {
	return false, nil
}

var (
	_ app.RateLimiter = denyLimiter{}
	_ sender.Sender   = (*failingSender)(nil)
)

// grpcHarness runs the full service behind a real listener: the in-memory
// session store, the last-digits sender, and a gRPC client dialed over
// loopback. mutate customizes the service wiring before start-up.
type grpcHarness struct {
	client  verificationv1.VerificationServiceClient
	clock   *domaintest.FakeClock
	counter *countingSender
}

func newGRPCHarness(t *testing.T, mutate func(cfg *app.ServiceConfig)) *grpcHarness {
	t.Helper()

	clock := domaintest.NewFakeClock(portTestStart)
	store := adapter.NewMemorySessionStore(clock)
	t.Cleanup(store.Close)

	counter := &countingSender{Sender: sender.NewLastDigitsSender()}
	registry, err := sender.NewRegistry(counter)
	require.NoError(t, err)
	strategy, err := sender.NewStrategy(registry, nil, sender.LastDigitsName)
	require.NoError(t, err)

	cfg := app.ServiceConfig{
		Store:      store,
		Limiters:   adapter.NewAllowAllRateLimiters(),
		Senders:    registry,
		Strategy:   strategy,
		Dispatcher: sender.NewDispatcher(4, time.Second),
		Clock:      clock,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc := app.NewService(cfg)
	t.Cleanup(svc.Wait)

	srv := grpc.NewServer()
	verificationv1.RegisterVerificationServiceServer(srv, NewHandler(svc))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(lis) //nolint:errcheck
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &grpcHarness{
		client:  verificationv1.NewVerificationServiceClient(conn),
		clock:   clock,
		counter: counter,
	}
}

// createSession creates a session for testE164 and returns its id.
func (h *grpcHarness) createSession(t *testing.T) []byte {
	t.Helper()
	resp, err := h.client.CreateSession(context.Background(),
		&verificationv1.CreateSessionRequest{E164: testE164})
	require.NoError(t, err)
	require.Nil(t, resp.GetError())
	require.NotNil(t, resp.GetSessionMetadata())
	return resp.GetSessionMetadata().GetSessionId()
}

// sendSMS sends a code over SMS and requires success.
func (h *grpcHarness) sendSMS(t *testing.T, sessionID []byte) {
	t.Helper()
	resp, err := h.client.SendVerificationCode(context.Background(),
		&verificationv1.SendVerificationCodeRequest{
			SessionId: sessionID,
			Transport: verificationv1.Transport_TRANSPORT_SMS,
		})
	require.NoError(t, err)
	require.Nil(t, resp.GetError())
}

// ---- Tests: end-to-end flows ----

func TestVerificationFlowHappyPath(t *testing.T) {
	h := newGRPCHarness(t, nil)
	ctx := context.Background()

	create, err := h.client.CreateSession(ctx, &verificationv1.CreateSessionRequest{E164: testE164})
	require.NoError(t, err)
	require.Nil(t, create.GetError())
	md := create.GetSessionMetadata()
	require.NotNil(t, md)
	assert.Len(t, md.GetSessionId(), 16)
	assert.Equal(t, testE164, md.GetE164())
	assert.False(t, md.GetVerified())

	send, err := h.client.SendVerificationCode(ctx, &verificationv1.SendVerificationCodeRequest{
		SessionId: md.GetSessionId(),
		Transport: verificationv1.Transport_TRANSPORT_SMS,
	})
	require.NoError(t, err)
	require.Nil(t, send.GetError())
	assert.Equal(t, md.GetSessionId(), send.GetSessionId())
	assert.False(t, send.GetSessionMetadata().GetVerified())

	check, err := h.client.CheckVerificationCode(ctx, &verificationv1.CheckVerificationCodeRequest{
		SessionId:        md.GetSessionId(),
		VerificationCode: testCode,
	})
	require.NoError(t, err)
	require.Nil(t, check.GetError())
	assert.True(t, check.GetVerified())
	assert.True(t, check.GetSessionMetadata().GetVerified())

	// Re-checking a verified session answers from the stored code without
	// another upstream call.
	again, err := h.client.CheckVerificationCode(ctx, &verificationv1.CheckVerificationCodeRequest{
		SessionId:        md.GetSessionId(),
		VerificationCode: testCode,
	})
	require.NoError(t, err)
	require.Nil(t, again.GetError())
	assert.True(t, again.GetVerified())
	assert.Equal(t, int64(1), h.counter.checkCalls.Load())
	assert.Equal(t, int64(1), h.counter.sendCalls.Load())
}

func TestVerificationFlowWrongCode(t *testing.T) {
	h := newGRPCHarness(t, nil)
	id := h.createSession(t)
	h.sendSMS(t, id)

	resp, err := h.client.CheckVerificationCode(context.Background(),
		&verificationv1.CheckVerificationCodeRequest{
			SessionId:        id,
			VerificationCode: "000000",
		})
	require.NoError(t, err)
	assert.Nil(t, resp.GetError())
	assert.False(t, resp.GetVerified())
	assert.False(t, resp.GetSessionMetadata().GetVerified())
}

func TestVerificationFlowRateLimitedCreation(t *testing.T) {
	h := newGRPCHarness(t, func(cfg *app.ServiceConfig) {
		cfg.Limiters.SessionCreation = denyLimiter{retryAfter: time.Minute}
	})

	resp, err := h.client.CreateSession(context.Background(),
		&verificationv1.CreateSessionRequest{E164: testE164})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_RATE_LIMITED, resp.GetError().GetKind())
	assert.True(t, resp.GetError().GetMayRetry())
	assert.Equal(t, uint32(60), resp.GetError().GetRetryAfterSeconds())
	assert.Nil(t, resp.GetSessionMetadata())
}

func TestVerificationFlowIllegalPhoneNumber(t *testing.T) {
	h := newGRPCHarness(t, nil)

	resp, err := h.client.CreateSession(context.Background(),
		&verificationv1.CreateSessionRequest{E164: 0})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_ILLEGAL_PHONE_NUMBER, resp.GetError().GetKind())
	assert.False(t, resp.GetError().GetMayRetry())
	assert.Nil(t, resp.GetSessionMetadata())
}

func TestVerificationFlowUnknownSession(t *testing.T) {
	h := newGRPCHarness(t, nil)
	unknown := domain.GenerateSessionID().Bytes()

	t.Run("get answers NOT_FOUND in-band", func(t *testing.T) {
		resp, err := h.client.GetSessionMetadata(context.Background(),
			&verificationv1.GetSessionMetadataRequest{SessionId: unknown})
		require.NoError(t, err)
		require.NotNil(t, resp.GetError())
		assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_NOT_FOUND, resp.GetError().GetKind())
		assert.Nil(t, resp.GetSessionMetadata())
	})

	t.Run("send answers NO_SESSION in-band", func(t *testing.T) {
		resp, err := h.client.SendVerificationCode(context.Background(),
			&verificationv1.SendVerificationCodeRequest{
				SessionId: unknown,
				Transport: verificationv1.Transport_TRANSPORT_SMS,
			})
		require.NoError(t, err)
		require.NotNil(t, resp.GetError())
		assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_NO_SESSION, resp.GetError().GetKind())
	})

	t.Run("check answers unverified without an error", func(t *testing.T) {
		resp, err := h.client.CheckVerificationCode(context.Background(),
			&verificationv1.CheckVerificationCodeRequest{
				SessionId:        unknown,
				VerificationCode: "123456",
			})
		require.NoError(t, err)
		assert.Nil(t, resp.GetError())
		assert.False(t, resp.GetVerified())
		assert.Nil(t, resp.GetSessionMetadata())
	})
}

func TestVerificationFlowSendAfterVerified(t *testing.T) {
	h := newGRPCHarness(t, nil)
	id := h.createSession(t)
	h.sendSMS(t, id)

	check, err := h.client.CheckVerificationCode(context.Background(),
		&verificationv1.CheckVerificationCodeRequest{SessionId: id, VerificationCode: testCode})
	require.NoError(t, err)
	require.True(t, check.GetVerified())

	resp, err := h.client.SendVerificationCode(context.Background(),
		&verificationv1.SendVerificationCodeRequest{
			SessionId: id,
			Transport: verificationv1.Transport_TRANSPORT_SMS,
		})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_SESSION_ALREADY_VERIFIED, resp.GetError().GetKind())
	assert.False(t, resp.GetError().GetMayRetry())
	require.NotNil(t, resp.GetSessionMetadata())
	assert.True(t, resp.GetSessionMetadata().GetVerified())
}

func TestVerificationFlowSenderRejected(t *testing.T) {
	h := newGRPCHarness(t, func(cfg *app.ServiceConfig) {
		rejecting := &failingSender{
			sendErr: fmt.Errorf("destination refused: %w", domain.ErrSenderRejected),
		}
		registry, err := sender.NewRegistry(rejecting)
		require.NoError(t, err)
		strategy, err := sender.NewStrategy(registry, nil, rejecting.Name())
		require.NoError(t, err)
		cfg.Senders = registry
		cfg.Strategy = strategy
	})
	id := h.createSession(t)

	resp, err := h.client.SendVerificationCode(context.Background(),
		&verificationv1.SendVerificationCodeRequest{
			SessionId: id,
			Transport: verificationv1.Transport_TRANSPORT_SMS,
		})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_SENDER_REJECTED, resp.GetError().GetKind())
	assert.False(t, resp.GetError().GetMayRetry())
	assert.NotNil(t, resp.GetSessionMetadata(), "failed sends still answer with session state")
}

func TestVerificationFlowCheckBeforeSend(t *testing.T) {
	h := newGRPCHarness(t, nil)
	id := h.createSession(t)

	resp, err := h.client.CheckVerificationCode(context.Background(),
		&verificationv1.CheckVerificationCodeRequest{
			SessionId:        id,
			VerificationCode: "123456",
		})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_NO_CODE_SENT, resp.GetError().GetKind())
	assert.False(t, resp.GetError().GetMayRetry())
	assert.False(t, resp.GetVerified())
	require.NotNil(t, resp.GetSessionMetadata())
	assert.False(t, resp.GetSessionMetadata().GetVerified())
}

// Malformed requests are RPC-level failures, never in-band outcomes.
func TestVerificationRequestValidation(t *testing.T) {
	h := newGRPCHarness(t, nil)
	ctx := context.Background()

	requireInvalidArgument := func(t *testing.T, err error) {
		t.Helper()
		st, ok := status.FromError(err)
		require.True(t, ok)
		assert.Equal(t, codes.InvalidArgument, st.Code())
	}

	t.Run("truncated session id", func(t *testing.T) {
		_, err := h.client.GetSessionMetadata(ctx,
			&verificationv1.GetSessionMetadataRequest{SessionId: []byte{0x01, 0x02, 0x03}})
		requireInvalidArgument(t, err)
	})

	t.Run("missing session id", func(t *testing.T) {
		_, err := h.client.SendVerificationCode(ctx,
			&verificationv1.SendVerificationCodeRequest{
				Transport: verificationv1.Transport_TRANSPORT_SMS,
			})
		requireInvalidArgument(t, err)
	})

	t.Run("unspecified transport", func(t *testing.T) {
		id := h.createSession(t)
		_, err := h.client.SendVerificationCode(ctx,
			&verificationv1.SendVerificationCodeRequest{SessionId: id})
		requireInvalidArgument(t, err)
	})

	t.Run("empty verification code", func(t *testing.T) {
		id := h.createSession(t)
		_, err := h.client.CheckVerificationCode(ctx,
			&verificationv1.CheckVerificationCodeRequest{SessionId: id})
		requireInvalidArgument(t, err)
	})
}

// ---- Tests: handler translation over a stub service ----

type stubVerificationService struct {
	createSessionFn func(ctx context.Context, e164 uint64, sourceTag string) (*domain.Session, error)
	getSessionFn    func(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	sendCodeFn      func(ctx context.Context, id domain.SessionID, transport domain.Transport, languages []language.Tag, client domain.ClientType) (*domain.Session, error)
	checkCodeFn     func(ctx context.Context, id domain.SessionID, submittedCode string) (app.CheckResult, error)
}

var _ verificationService = (*stubVerificationService)(nil)

func (s *stubVerificationService) CreateSession(ctx context.Context, e164 uint64, sourceTag string) (*domain.Session, error) {
	return s.createSessionFn(ctx, e164, sourceTag)
}

func (s *stubVerificationService) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return s.getSessionFn(ctx, id)
}

func (s *stubVerificationService) SendCode(ctx context.Context, id domain.SessionID, transport domain.Transport, languages []language.Tag, client domain.ClientType) (*domain.Session, error) {
	return s.sendCodeFn(ctx, id, transport, languages, client)
}

func (s *stubVerificationService) CheckCode(ctx context.Context, id domain.SessionID, submittedCode string) (app.CheckResult, error) {
	return s.checkCodeFn(ctx, id, submittedCode)
}

func testSession() *domain.Session {
	return &domain.Session{
		ID:        domain.GenerateSessionID(),
		Phone:     domain.MustPhoneNumber("+12025550100"),
		CreatedAt: portTestStart,
		ExpiresAt: portTestStart.Add(domain.DefaultSessionTTL),
		Version:   1,
	}
}

func ctxWithMetadata(md metadata.MD) context.Context {
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestCreateSessionSourceTag(t *testing.T) {
	var gotTag string
	session := testSession()
	handler := &Handler{svc: &stubVerificationService{
		createSessionFn: func(_ context.Context, _ uint64, sourceTag string) (*domain.Session, error) {
			gotTag = sourceTag
			return session, nil
		},
	}}

	ctx := ctxWithMetadata(metadata.Pairs("x-forwarded-for", "198.51.100.7, 10.0.0.1"))
	resp, err := handler.CreateSession(ctx, &verificationv1.CreateSessionRequest{E164: testE164})
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", gotTag)
	assert.Equal(t, session.ID.Bytes(), resp.GetSessionMetadata().GetSessionId())
}

func TestCreateSessionInternalError(t *testing.T) {
	handler := &Handler{svc: &stubVerificationService{
		createSessionFn: func(context.Context, uint64, string) (*domain.Session, error) {
			return nil, errors.New("dynamodb: endpoint refused")
		},
	}}

	_, err := handler.CreateSession(context.Background(),
		&verificationv1.CreateSessionRequest{E164: testE164})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal error", st.Message())
}

func TestSendVerificationCodeArgumentMapping(t *testing.T) {
	session := testSession()
	var (
		gotTransport domain.Transport
		gotLanguages []language.Tag
		gotClient    domain.ClientType
	)
	handler := &Handler{svc: &stubVerificationService{
		sendCodeFn: func(_ context.Context, _ domain.SessionID, transport domain.Transport, languages []language.Tag, client domain.ClientType) (*domain.Session, error) {
			gotTransport = transport
			gotLanguages = languages
			gotClient = client
			return session, nil
		},
	}}

	resp, err := handler.SendVerificationCode(context.Background(),
		&verificationv1.SendVerificationCodeRequest{
			SessionId:      session.ID.Bytes(),
			Transport:      verificationv1.Transport_TRANSPORT_VOICE,
			AcceptLanguage: "fr-CA,fr;q=0.9,en;q=0.5",
			ClientType:     verificationv1.ClientType_CLIENT_TYPE_ANDROID_WITH_FCM,
		})
	require.NoError(t, err)
	assert.Equal(t, domain.TransportVoice, gotTransport)
	assert.Equal(t, domain.ClientTypeAndroidWithFCM, gotClient)
	require.NotEmpty(t, gotLanguages)
	assert.Equal(t, "fr-CA", gotLanguages[0].String())
	assert.Equal(t, session.ID.Bytes(), resp.GetSessionId())
}

func TestGetSessionMetadataUnavailable(t *testing.T) {
	handler := &Handler{svc: &stubVerificationService{
		getSessionFn: func(context.Context, domain.SessionID) (*domain.Session, error) {
			return nil, fmt.Errorf("rate limiter backend down: %w", domain.ErrUnavailable)
		},
	}}

	resp, err := handler.GetSessionMetadata(context.Background(),
		&verificationv1.GetSessionMetadataRequest{SessionId: domain.GenerateSessionID().Bytes()})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_UNAVAILABLE, resp.GetError().GetKind())
	assert.True(t, resp.GetError().GetMayRetry())
}

func TestCheckVerificationCodeRateLimited(t *testing.T) {
	session := testSession()
	handler := &Handler{svc: &stubVerificationService{
		checkCodeFn: func(context.Context, domain.SessionID, string) (app.CheckResult, error) {
			return app.CheckResult{Session: session}, &domain.RateLimitedError{RetryAfter: 90 * time.Second}
		},
	}}

	resp, err := handler.CheckVerificationCode(context.Background(),
		&verificationv1.CheckVerificationCodeRequest{
			SessionId:        session.ID.Bytes(),
			VerificationCode: "123456",
		})
	require.NoError(t, err)
	require.NotNil(t, resp.GetError())
	assert.Equal(t, verificationv1.ErrorKind_ERROR_KIND_RATE_LIMITED, resp.GetError().GetKind())
	assert.True(t, resp.GetError().GetMayRetry())
	assert.Equal(t, uint32(90), resp.GetError().GetRetryAfterSeconds())
	require.NotNil(t, resp.GetSessionMetadata(), "denials still answer with session state")
}

// ---- Tests: helpers ----

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "x-forwarded-for single value",
			ctx:  ctxWithMetadata(metadata.Pairs("x-forwarded-for", "198.51.100.7")),
			want: "198.51.100.7",
		},
		{
			name: "x-forwarded-for takes the first hop",
			ctx:  ctxWithMetadata(metadata.Pairs("x-forwarded-for", "198.51.100.7, 10.0.0.1, 10.0.0.2")),
			want: "198.51.100.7",
		},
		{
			name: "falls back to peer address",
			ctx: peer.NewContext(context.Background(), &peer.Peer{
				Addr: &net.TCPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 4455},
			}),
			want: "203.0.113.9",
		},
		{
			name: "no metadata and no peer",
			ctx:  context.Background(),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractClientIP(tt.ctx))
		})
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	t.Run("ordered by preference", func(t *testing.T) {
		tags := parseAcceptLanguage("es-MX,es;q=0.9,en;q=0.5")
		require.NotEmpty(t, tags)
		assert.Equal(t, "es-MX", tags[0].String())
	})

	t.Run("empty header means no preference", func(t *testing.T) {
		assert.Nil(t, parseAcceptLanguage(""))
	})

	t.Run("garbage header means no preference", func(t *testing.T) {
		assert.Nil(t, parseAcceptLanguage("!!!"))
	})
}

func TestClampSeconds(t *testing.T) {
	assert.Equal(t, uint32(1), clampSeconds(0.2), "sub-second denials round up")
	assert.Equal(t, uint32(60), clampSeconds(60))
	assert.Equal(t, uint32(0), clampSeconds(-5))
	assert.Equal(t, uint32(1<<32-1), clampSeconds(1e12))
}
