package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/observability"
	"github.com/aelexs/phone-verification-service/internal/sender"
)

// SendCode delivers a verification code to the session's phone number over
// the requested transport. The session returned alongside an in-band error
// (rate limit, already verified, sender failure) carries the current
// metadata for the response; infrastructure errors return a nil session.
func (s *Service) SendCode(
	ctx context.Context,
	id domain.SessionID,
	transport domain.Transport,
	languages []language.Tag,
	client domain.ClientType,
) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "verification.send_code")
	defer span.End()
	span.SetAttributes(attribute.String("transport", transport.String()))

	logger := observability.WithTraceID(ctx, s.logger)

	if !transport.IsValid() {
		err := fmt.Errorf("unsupported transport %q: %w", transport, domain.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// 1. Load the session. Stores treat expired rows as absent.
	session, err := s.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// 2. Verified sessions are terminal for sends.
	if session.Verified() {
		span.SetStatus(codes.Error, "session already verified")
		return session, domain.ErrSessionAlreadyVerified
	}

	// 3. Rate limits: number-scoped before session-scoped, first denial wins.
	if err := s.checkSendLimits(ctx, transport, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return session, err
	}

	// 4. Pick the adapter, honoring the session's sticky choice.
	picked, err := s.strategy.Choose(transport, session.Phone, languages, client, session.SenderName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return session, err
	}
	span.SetAttributes(attribute.String("sender", picked.Name()))

	// 5. Upstream call through the bounded dispatch pool.
	payload, sendErr := s.dispatcher.Send(ctx, picked, transport, session.Phone, languages, client)
	if sendErr != nil {
		if ctx.Err() != nil {
			// Cancellation is terminal for this call; nothing to record.
			return nil, sendErr
		}
		return s.recordSendFailure(ctx, session, picked.Name(), transport, sendErr)
	}

	// 6. Commit: sticky sender name, fresh payload, extended expiry.
	ttl := picked.SessionTTL()
	if ttl <= 0 || ttl > domain.MaxSessionTTL {
		ttl = domain.MaxSessionTTL
	}
	now := s.clock.Now().UTC()
	updated, err := s.updateSession(ctx, id, func(sess *domain.Session) error {
		if sess.Verified() {
			return domain.ErrSessionAlreadyVerified
		}
		if sess.SenderName == "" {
			sess.SenderName = picked.Name()
		}
		sess.SenderData = payload
		sess.ExtendExpiry(now.Add(ttl))
		sess.SendAttempts = append(sess.SendAttempts, domain.SendAttempt{
			Transport: transport,
			At:        now,
			Sender:    picked.Name(),
			Outcome:   domain.OutcomeDelivered,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionAlreadyVerified) {
			// A concurrent check won the race; answer with its state.
			if current, getErr := s.store.Get(ctx, id); getErr == nil {
				return current, domain.ErrSessionAlreadyVerified
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	codesSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport.String()),
		attribute.String("sender", picked.Name()),
		attribute.String("outcome", string(domain.OutcomeDelivered)),
	))
	logger.InfoContext(ctx, "verification.code_sent",
		"session_id", id.String(),
		"transport", transport.String(),
		"sender", picked.Name(),
		"phone", session.Phone,
	)

	return updated, nil
}

// checkSendLimits consults the transport's per-number and per-session
// limiters in order. A denial never mutates session state.
func (s *Service) checkSendLimits(ctx context.Context, transport domain.Transport, session *domain.Session) error {
	perNumber, perSession := s.limiters.SendSMSPerNumber, s.limiters.SendSMSPerSession
	numberName, sessionName := domain.LimiterSendSMSPerNumber, domain.LimiterSendSMSPerSession
	if transport == domain.TransportVoice {
		perNumber, perSession = s.limiters.SendVoicePerNumber, s.limiters.SendVoicePerSession
		numberName, sessionName = domain.LimiterSendVoicePerNum, domain.LimiterSendVoicePerSess
	}

	if err := perNumber.Check(ctx, LimiterKey(session.Phone.String())); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			rateLimitDenialsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("limiter", numberName)))
		}
		return err
	}
	if err := perSession.Check(ctx, LimiterKey(session.ID.String())); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			rateLimitDenialsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("limiter", sessionName)))
		}
		return err
	}
	return nil
}

// recordSendFailure appends a failed attempt to the session history and
// returns the classified sender error. The history write is best-effort:
// its failure is logged, never allowed to mask the sender error.
func (s *Service) recordSendFailure(
	ctx context.Context,
	session *domain.Session,
	senderName string,
	transport domain.Transport,
	sendErr error,
) (*domain.Session, error) {
	outcome := sender.ClassifyOutcome(sendErr)

	senderErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sender", senderName),
		attribute.String("outcome", string(outcome)),
	))
	codesSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport.String()),
		attribute.String("sender", senderName),
		attribute.String("outcome", string(outcome)),
	))

	now := s.clock.Now().UTC()
	updated, updateErr := s.updateSession(ctx, session.ID, func(sess *domain.Session) error {
		sess.SendAttempts = append(sess.SendAttempts, domain.SendAttempt{
			Transport: transport,
			At:        now,
			Sender:    senderName,
			Outcome:   outcome,
		})
		return nil
	})
	if updateErr != nil {
		observability.WithTraceID(ctx, s.logger).ErrorContext(ctx, "failed to record send attempt",
			"error", updateErr, "session_id", session.ID.String())
		return session, sendErr
	}
	return updated, sendErr
}
