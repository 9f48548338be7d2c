package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/observability"
)

// CheckResult is the outcome of a code check. Session carries the current
// metadata when the session exists; it is nil for unknown or expired
// sessions, which answer verified=false without an error.
type CheckResult struct {
	Verified bool
	Session  *domain.Session
}

// CheckCode verifies a submitted code against the session's sender payload.
// A missing session is not an error from the caller's point of view: it
// answers exactly like a wrong code, so probing cannot distinguish expired
// sessions from live ones.
func (s *Service) CheckCode(ctx context.Context, id domain.SessionID, submittedCode string) (CheckResult, error) {
	ctx, span := tracer.Start(ctx, "verification.check_code")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	if submittedCode == "" {
		err := fmt.Errorf("verification code is required: %w", domain.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckResult{}, err
	}

	// 1. Load the session; absent or expired means not verified, no error.
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			codesCheckedTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("outcome", "no-session")))
			return CheckResult{Verified: false}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckResult{}, err
	}

	// 2. Re-checking a verified session is idempotent: the stored code
	// answers without an upstream call or a state change.
	if session.Verified() {
		verified := session.VerifiedCode == submittedCode
		codesCheckedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "already-verified")))
		return CheckResult{Verified: verified, Session: session}, nil
	}

	// 3. Nothing to check against before the first successful send.
	if session.SenderData == nil {
		span.SetStatus(codes.Error, "no code sent")
		return CheckResult{Session: session}, domain.ErrNoCodeSent
	}

	// 4. Rate limits: number-scoped before session-scoped.
	if err := s.checkCheckLimits(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckResult{Session: session}, err
	}

	// 5. The sender that produced the payload is the only one that can
	// interpret it.
	owner, err := s.senders.Get(session.SenderName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckResult{Session: session}, err
	}
	span.SetAttributes(attribute.String("sender", owner.Name()))

	matched, err := s.dispatcher.Check(ctx, owner, submittedCode, session.SenderData)
	if err != nil {
		if ctx.Err() != nil {
			return CheckResult{}, err
		}
		senderErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("sender", owner.Name()),
			attribute.String("outcome", string(domain.OutcomeUnavailable)),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckResult{Session: session}, err
	}

	// 6. Commit the verdict to the session history.
	now := s.clock.Now().UTC()
	outcome := domain.OutcomeCodeMismatched
	if matched {
		outcome = domain.OutcomeCodeMatched
	}
	updated, err := s.updateSession(ctx, id, func(sess *domain.Session) error {
		if matched && sess.VerifiedCode == "" {
			sess.VerifiedCode = submittedCode
		}
		sess.CheckAttempts = append(sess.CheckAttempts, domain.CheckAttempt{
			At:      now,
			Outcome: outcome,
		})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckResult{}, err
	}

	codesCheckedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome))))
	logger.InfoContext(ctx, "verification.code_checked",
		"session_id", id.String(),
		"verified", matched,
		"sender", owner.Name(),
	)

	if matched {
		s.enqueueCompletion(ctx, updated)
	}

	return CheckResult{Verified: matched, Session: updated}, nil
}

// checkCheckLimits consults the check limiters in order, per-number first.
func (s *Service) checkCheckLimits(ctx context.Context, session *domain.Session) error {
	if err := s.limiters.CheckPerNumber.Check(ctx, LimiterKey(session.Phone.String())); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			rateLimitDenialsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("limiter", domain.LimiterCheckPerNumber)))
		}
		return err
	}
	if err := s.limiters.CheckPerSession.Check(ctx, LimiterKey(session.ID.String())); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			rateLimitDenialsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("limiter", domain.LimiterCheckPerSession)))
		}
		return err
	}
	return nil
}
