// Package app contains the verification orchestrator: the four public
// operations over sessions, composed from the session store, the rate-limit
// engine, and the sender pipeline. All session mutation goes through the
// store's compare-and-swap update.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/sender"
)

var tracer = otel.Tracer("verification/app")

var (
	sessionsCreatedTotal  metric.Int64Counter
	codesSentTotal        metric.Int64Counter
	codesCheckedTotal     metric.Int64Counter
	rateLimitDenialsTotal metric.Int64Counter
	senderErrorsTotal     metric.Int64Counter
)

func init() {
	m := otel.Meter("verification/app")

	sessionsCreatedTotal, _ = m.Int64Counter("verification_sessions_created_total",
		metric.WithDescription("Total verification sessions created"))
	codesSentTotal, _ = m.Int64Counter("verification_codes_sent_total",
		metric.WithDescription("Total verification code send attempts"))
	codesCheckedTotal, _ = m.Int64Counter("verification_codes_checked_total",
		metric.WithDescription("Total verification code check attempts"))
	rateLimitDenialsTotal, _ = m.Int64Counter("verification_rate_limit_denials_total",
		metric.WithDescription("Total rate limit denials"))
	senderErrorsTotal, _ = m.Int64Counter("verification_sender_errors_total",
		metric.WithDescription("Total upstream sender errors"))
}

// SessionStore persists verification sessions. Implementations back onto
// DynamoDB in production and an in-process map in development; both expose
// the same create / get / compare-and-swap contract.
type SessionStore interface {
	// Create allocates a fresh session for the phone number with the given
	// TTL. The store assigns the random 128-bit session id.
	Create(ctx context.Context, phone domain.PhoneNumber, ttl time.Duration) (*domain.Session, error)

	// Get returns the session, or domain.ErrSessionNotFound when it does
	// not exist or has expired.
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)

	// Update reads the current session, hands a copy to mutate, and writes
	// the result iff the version is unchanged since the read. A version
	// mismatch returns domain.ErrConflictingUpdate and the caller retries.
	Update(ctx context.Context, id domain.SessionID, mutate func(*domain.Session) error) (*domain.Session, error)
}

// RateLimiter answers "permit now?" for one named limit. A denial is a
// *domain.RateLimitedError carrying the retry-after hint; any other error
// is an infrastructure fault.
type RateLimiter interface {
	Check(ctx context.Context, key string) error
}

// RateLimiters bundles the seven limiters the orchestrator consults.
// Number-scoped limiters are always consulted before session-scoped ones,
// and the first denial is surfaced unchanged.
type RateLimiters struct {
	SessionCreation RateLimiter

	SendSMSPerNumber   RateLimiter
	SendVoicePerNumber RateLimiter
	CheckPerNumber     RateLimiter

	SendSMSPerSession   RateLimiter
	SendVoicePerSession RateLimiter
	CheckPerSession     RateLimiter
}

// SenderStrategy picks one sender per attempt, honoring a session's prior
// sticky choice. *sender.Strategy satisfies this.
type SenderStrategy interface {
	Choose(transport domain.Transport, phone domain.PhoneNumber, languages []language.Tag, client domain.ClientType, priorName string) (sender.Sender, error)
}

// CompletionRecord summarizes a finished verification for downstream
// analytics.
type CompletionRecord struct {
	SessionID     domain.SessionID
	Region        string
	SenderName    string
	SMSAttempts   int
	VoiceAttempts int
	CheckAttempts int
	Verified      bool
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// CompletionSink receives completion records. Delivery is fire-and-forget:
// sink errors are logged, never surfaced to the caller.
type CompletionSink interface {
	Record(ctx context.Context, record CompletionRecord) error
}

// ServiceConfig holds the dependencies for Service.
type ServiceConfig struct {
	Store       SessionStore
	Limiters    RateLimiters
	Senders     *sender.Registry
	Strategy    SenderStrategy
	Dispatcher  *sender.Dispatcher
	Completions []CompletionSink
	Clock       domain.Clock
	Logger      *slog.Logger

	// DefaultSessionTTL is the session lifetime at creation, before any
	// sender has declared its own. Zero means domain.DefaultSessionTTL.
	DefaultSessionTTL time.Duration
}

// Service orchestrates the four verification operations: CreateSession,
// SendCode, CheckCode, and GetSession.
type Service struct {
	store       SessionStore
	limiters    RateLimiters
	senders     *sender.Registry
	strategy    SenderStrategy
	dispatcher  *sender.Dispatcher
	completions []CompletionSink
	clock       domain.Clock
	logger      *slog.Logger
	defaultTTL  time.Duration
	bgWG        sync.WaitGroup // owns background goroutines (completion enqueues)
}

// NewService creates a Service with the given dependencies.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.DefaultSessionTTL
	if ttl == 0 {
		ttl = domain.DefaultSessionTTL
	}
	return &Service{
		store:       cfg.Store,
		limiters:    cfg.Limiters,
		senders:     cfg.Senders,
		strategy:    cfg.Strategy,
		dispatcher:  cfg.Dispatcher,
		completions: cfg.Completions,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		defaultTTL:  ttl,
	}
}

// Wait blocks until all background goroutines owned by this service
// complete. The wiring layer invokes this during graceful shutdown.
func (s *Service) Wait() {
	s.bgWG.Wait()
}

// LimiterKey derives a limiter key from its components. Each part is
// length-prefixed before hashing so composite keys like (phone number,
// source tag) can never collide through ambiguous concatenation.
func LimiterKey(parts ...string) string {
	h := sha256.New()
	var prefix [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(prefix[:], uint64(len(part)))
		h.Write(prefix[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// updateSession applies mutate through the store's compare-and-swap,
// retrying version conflicts under a jittered exponential back-off.
// Exhausting the retry budget surfaces as a transient domain.ErrUnavailable.
func (s *Service) updateSession(ctx context.Context, id domain.SessionID, mutate func(*domain.Session) error) (*domain.Session, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = domain.CASInitialBackoff
	policy.MaxInterval = domain.CASMaxBackoff
	policy.RandomizationFactor = domain.RandomizationRatio

	var updated *domain.Session
	op := func() error {
		session, err := s.store.Update(ctx, id, mutate)
		if err != nil {
			if errors.Is(err, domain.ErrConflictingUpdate) {
				return err
			}
			return backoff.Permanent(err)
		}
		updated = session
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, domain.CASMaxAttempts-1), ctx))
	if err != nil {
		if errors.Is(err, domain.ErrConflictingUpdate) {
			return nil, fmt.Errorf("verification: update session %s: conflict retries exhausted: %w",
				id, errors.Join(err, domain.ErrUnavailable))
		}
		return nil, err
	}
	return updated, nil
}

// enqueueCompletion hands a completion record to the configured sinks in
// the background. Detached from the request context so a handler returning
// does not kill the in-flight delivery; WithoutCancel preserves trace
// values for structured logging.
func (s *Service) enqueueCompletion(ctx context.Context, session *domain.Session) {
	if len(s.completions) == 0 {
		return
	}

	record := CompletionRecord{
		SessionID:     session.ID,
		Region:        session.Phone.Region(),
		SenderName:    session.SenderName,
		CheckAttempts: len(session.CheckAttempts),
		Verified:      session.Verified(),
		CreatedAt:     session.CreatedAt,
		CompletedAt:   s.clock.Now().UTC(),
	}
	for _, attempt := range session.SendAttempts {
		switch attempt.Transport {
		case domain.TransportSMS:
			record.SMSAttempts++
		case domain.TransportVoice:
			record.VoiceAttempts++
		}
	}

	bgCtx := context.WithoutCancel(ctx)
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		for _, sink := range s.completions {
			if err := sink.Record(bgCtx, record); err != nil {
				s.logger.ErrorContext(bgCtx, "failed to record verification completion",
					"error", err, "session_id", record.SessionID.String())
			}
		}
	}()
}
