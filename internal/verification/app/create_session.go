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

// CreateSession validates the phone number, enforces the session-creation
// rate limit, and allocates a fresh session with the default TTL.
func (s *Service) CreateSession(ctx context.Context, e164 uint64, sourceTag string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "verification.create_session")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	// 1. Validate the E.164 number.
	phone, err := domain.PhoneNumberFromE164(e164)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// 2. Session-creation rate limit, keyed by (phone, source tag).
	key := LimiterKey(phone.String(), sourceTag)
	if err := s.limiters.SessionCreation.Check(ctx, key); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			rateLimitDenialsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("limiter", domain.LimiterSessionCreation)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// 3. Allocate the record. Sender fields stay empty until the first send.
	session, err := s.store.Create(ctx, phone, s.defaultTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create session: %w", err)
	}

	sessionsCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("region", phone.Region())))
	logger.InfoContext(ctx, "verification.session_created",
		"session_id", session.ID.String(),
		"phone", phone,
		"region", phone.Region(),
	)

	return session, nil
}
