package domain

import "time"

// Transport is the delivery channel for a verification code.
type Transport string

const (
	TransportSMS   Transport = "sms"
	TransportVoice Transport = "voice"
)

// IsValid checks if a transport is supported.
func (t Transport) IsValid() bool {
	return t == TransportSMS || t == TransportVoice
}

func (t Transport) String() string { return string(t) }

// ClientType identifies the kind of client asking for verification. Senders
// may vary message content by client (e.g. the SMS-retriever app hash for
// Android clients with FCM).
type ClientType string

const (
	ClientTypeUnknown           ClientType = "unknown"
	ClientTypeIOS               ClientType = "ios"
	ClientTypeAndroidWithFCM    ClientType = "android-with-fcm"
	ClientTypeAndroidWithoutFCM ClientType = "android-without-fcm"
)

// AttemptOutcome records how a send or check attempt concluded.
type AttemptOutcome string

const (
	// Send outcomes
	OutcomeDelivered       AttemptOutcome = "delivered"
	OutcomeIllegalArgument AttemptOutcome = "illegal-argument"
	OutcomeRejected        AttemptOutcome = "rejected"
	OutcomeUnavailable     AttemptOutcome = "unavailable"

	// Check outcomes
	OutcomeCodeMatched    AttemptOutcome = "matched"
	OutcomeCodeMismatched AttemptOutcome = "mismatched"
)

// SendAttempt is one entry in a session's append-only send history.
type SendAttempt struct {
	Transport Transport
	At        time.Time
	Sender    string
	Outcome   AttemptOutcome
}

// CheckAttempt is one entry in a session's append-only check history.
type CheckAttempt struct {
	At      time.Time
	Outcome AttemptOutcome
}

// Session is the central entity: one in-flight verification attempt for one
// phone number. Sessions are created once, mutated only through the store's
// compare-and-swap update, and destroyed by TTL expiry - never deleted
// explicitly.
//
// Invariants:
//   - Phone is immutable after creation.
//   - SenderName, once set, never changes (sticky routing).
//   - VerifiedCode is set at most once, on the first successful check.
//   - Version increments by exactly one on every successful write.
type Session struct {
	ID        SessionID
	Phone     PhoneNumber
	CreatedAt time.Time
	ExpiresAt time.Time

	// SenderName names the adapter that most recently handled a send for
	// this session; empty before the first successful send.
	SenderName string

	// SenderData is an opaque payload owned by that adapter: either the
	// literal expected code (provided-code senders) or an upstream
	// verification handle (delegated senders).
	SenderData []byte

	// VerifiedCode holds the literal code that verified this session.
	VerifiedCode string

	SendAttempts  []SendAttempt
	CheckAttempts []CheckAttempt

	Version uint64
}

// Verified reports whether the session has been successfully verified.
func (s *Session) Verified() bool { return s.VerifiedCode != "" }

// Expired reports whether the session is past its expiry at the given time.
// Expired sessions are treated as absent everywhere.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ExtendExpiry moves ExpiresAt forward to the given instant. Expiry never
// shrinks: an earlier instant leaves the session untouched.
func (s *Session) ExtendExpiry(until time.Time) {
	if until.After(s.ExpiresAt) {
		s.ExpiresAt = until
	}
}

// Clone returns a deep copy. Store implementations hand clones to mutators
// so a failed CAS round never leaks partial edits into shared state.
func (s *Session) Clone() *Session {
	c := *s
	if s.SenderData != nil {
		c.SenderData = make([]byte, len(s.SenderData))
		copy(c.SenderData, s.SenderData)
	}
	c.SendAttempts = make([]SendAttempt, len(s.SendAttempts))
	copy(c.SendAttempts, s.SendAttempts)
	c.CheckAttempts = make([]CheckAttempt, len(s.CheckAttempts))
	copy(c.CheckAttempts, s.CheckAttempts)
	return &c
}
