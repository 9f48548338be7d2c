package app

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// GetSession is a pure read of the current session metadata.
// Returns domain.ErrSessionNotFound when the session is absent or expired.
func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "verification.get_session")
	defer span.End()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return session, nil
}
