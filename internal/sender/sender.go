// Package sender defines the verification-code sender contract, the
// start-up registry of configured senders, and the strategy that picks one
// sender per attempt. Concrete provider adapters live in
// internal/verification/adapter.
package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// Sender delivers verification codes through one upstream provider.
//
// Implementations come in two families. Provided-code senders generate the
// code locally, embed it in the outgoing message, and persist the code
// itself as the session payload. Delegated senders ask the upstream to
// generate and deliver the code and persist an upstream handle instead;
// their Check round-trips to the upstream.
//
// Senders are shared singletons registered once at start-up and must be
// safe for concurrent use.
type Sender interface {
	// Name is the stable, unique identifier persisted into sessions for
	// sticky routing. Renaming a sender orphans its in-flight sessions.
	Name() string

	// SessionTTL is the maximum session lifetime this sender needs. A
	// successful send extends the session's expiry by this much.
	SessionTTL() time.Duration

	// Supports reports whether this sender can currently serve the given
	// transport, destination, language preferences, and client type.
	Supports(transport domain.Transport, phone domain.PhoneNumber, languages []language.Tag, client domain.ClientType) bool

	// Send performs the upstream call and returns the opaque payload to
	// persist into the session. The payload's schema is owned by this
	// sender and interpreted only by its Check.
	//
	// Errors are classified with the domain sentinels: ErrSenderIllegalArgument
	// when the upstream rejected the request as malformed, ErrSenderRejected
	// for policy or destination refusals, ErrSenderUnavailable for transient
	// upstream failures.
	Send(ctx context.Context, transport domain.Transport, phone domain.PhoneNumber, languages []language.Tag, client domain.ClientType) ([]byte, error)

	// Check reports whether the submitted code verifies against the payload
	// returned by a previous Send.
	Check(ctx context.Context, submittedCode string, payload []byte) (bool, error)
}

// Registry holds the configured senders, keyed by name. It is populated
// during start-up wiring and never mutated afterwards, so lookups need no
// synchronization.
type Registry struct {
	byName map[string]Sender
	order  []Sender
}

// NewRegistry creates a Registry over the given senders. Names must be
// unique; a duplicate is a wiring bug and fails construction.
func NewRegistry(senders ...Sender) (*Registry, error) {
	r := &Registry{byName: make(map[string]Sender, len(senders))}
	for _, s := range senders {
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("sender registry: duplicate sender name %q", s.Name())
		}
		r.byName[s.Name()] = s
		r.order = append(r.order, s)
	}
	return r, nil
}

// Get returns the sender with the given name.
// Returns domain.ErrSenderUnavailable when no such sender is registered,
// which happens when a session's sticky sender was removed from the
// configuration while the session was in flight.
func (r *Registry) Get(name string) (Sender, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("sender registry: no sender named %q: %w", name, domain.ErrSenderUnavailable)
	}
	return s, nil
}

// All returns the registered senders in registration order.
func (r *Registry) All() []Sender {
	return r.order
}

// ClassifyOutcome maps a Send error onto the attempt outcome recorded in
// the session history. Anything outside the sender taxonomy counts as a
// transient upstream failure.
func ClassifyOutcome(err error) domain.AttemptOutcome {
	switch {
	case err == nil:
		return domain.OutcomeDelivered
	case errors.Is(err, domain.ErrSenderIllegalArgument):
		return domain.OutcomeIllegalArgument
	case errors.Is(err, domain.ErrSenderRejected):
		return domain.OutcomeRejected
	default:
		return domain.OutcomeUnavailable
	}
}
