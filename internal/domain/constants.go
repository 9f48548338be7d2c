package domain

import "time"

// Normative limits for the verification flow.
// These are compiled defaults; the development profile swaps whole
// implementations (allow-all limiters) rather than tuning them.
const (
	// Session lifetime
	DefaultSessionTTL = 10 * time.Minute // TTL at creation, before any send
	MaxSessionTTL     = 1 * time.Hour    // upper bound regardless of sender demands

	// Verification codes
	VerificationCodeLength = 6 // digits, provided-code senders

	// Compare-and-swap update policy
	CASMaxAttempts     = 3                      // attempts per logical update
	CASInitialBackoff  = 20 * time.Millisecond  // first retry delay (jittered)
	CASMaxBackoff      = 250 * time.Millisecond // ceiling for retry delay
	SweepInterval      = 30 * time.Second       // in-memory store TTL sweeper
	RandomizationRatio = 0.5                    // jitter applied to CAS backoff

	// Upstream dispatch (provider calls run outside the RPC dispatch pool)
	DispatchPoolSize    = 32               // concurrent upstream calls
	UpstreamCallTimeout = 10 * time.Second // cap per provider round-trip

	// Timeout contracts for infrastructure calls
	DynamoDBTimeout = 5 * time.Second
	RedisTimeout    = 2 * time.Second

	// Graceful shutdown. The drain delay lets load balancers observe the
	// failing health check before listeners close; the per-stage timeouts
	// sum to well under the overall budget.
	GracefulShutdownTimeout = 30 * time.Second
	ShutdownDrainDelay      = 3 * time.Second
	ShutdownHTTPTimeout     = 10 * time.Second
	ShutdownGRPCTimeout     = 10 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second

	// Rate limiter fail-closed denial: retry-after answered when the
	// limiter backend itself is unreachable.
	RateLimitFailClosedRetryAfter = 1 * time.Minute

	// Completion analytics
	AttemptRecordTTL = 90 * 24 * time.Hour // journal row retention
)

// Rate-limit schedules. Each limiter permits attempt i only after
// schedule[i] has elapsed since attempt i-1, caps total attempts at the
// schedule length, and forgets a key entirely after its window.
var (
	SessionCreationDelays = []time.Duration{0, time.Minute, 5 * time.Minute, 15 * time.Minute, 30 * time.Minute, time.Hour}
	SendSMSDelays         = []time.Duration{0, 45 * time.Second, 2 * time.Minute, 5 * time.Minute}
	SendVoiceDelays       = []time.Duration{0, 2 * time.Minute, 5 * time.Minute}
	CheckDelays           = []time.Duration{0, 0, 30 * time.Second, time.Minute, 2 * time.Minute}
)

// Rate-limit windows: how long a key's attempt history is remembered.
const (
	SessionCreationWindow = 4 * time.Hour
	SendWindow            = DefaultSessionTTL
	CheckWindow           = DefaultSessionTTL
)

// Limiter names. The orchestrator consults number-scoped limiters before
// session-scoped ones; the first denial wins.
const (
	LimiterSessionCreation   = "session-creation"
	LimiterSendSMSPerNumber  = "send-sms-per-number"
	LimiterSendVoicePerNum   = "send-voice-per-number"
	LimiterCheckPerNumber    = "check-per-number"
	LimiterSendSMSPerSession = "send-sms-per-session"
	LimiterSendVoicePerSess  = "send-voice-per-session"
	LimiterCheckPerSession   = "check-per-session"
)
