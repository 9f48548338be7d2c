package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/phone-verification-service/internal/domain"
	redisclient "github.com/aelexs/phone-verification-service/internal/redis"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

// Compile-time checks against the app contract.
var (
	_ app.RateLimiter = (*RedisRateLimiter)(nil)
	_ app.RateLimiter = AllowAllRateLimiter{}
)

// delayScheduleScript is the atomic read-check-increment behind the
// delay-schedule limiter. State is one hash per key: `count` attempts so
// far and `last`, the timestamp of the most recent permitted attempt.
//
// ARGV: now_ms, window_ms, then the schedule of inter-attempt delays in
// milliseconds. Attempt i is permitted only after ARGV[i+2] has elapsed
// since attempt i-1; a key whose count reaches the schedule length is
// denied for the remainder of its window. Returns {allowed, retry_ms}.
const delayScheduleScript = `
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local last = tonumber(redis.call('HGET', KEYS[1], 'last') or '0')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = #ARGV - 2

if count >= max then
  local remaining = redis.call('PTTL', KEYS[1])
  if remaining < 0 then
    remaining = window
  end
  return {0, remaining}
end

if count > 0 then
  local wait = last + tonumber(ARGV[count + 3]) - now
  if wait > 0 then
    return {0, wait}
  end
end

redis.call('HSET', KEYS[1], 'count', count + 1, 'last', now)
if count == 0 then
  redis.call('PEXPIRE', KEYS[1], window)
end
return {1, 0}
`

// RedisRateLimiter is one named delay-schedule limiter backed by Redis.
// Redis failures fail closed: the caller is denied with a fixed retry-after
// rather than silently allowed through.
type RedisRateLimiter struct {
	cmd    redisclient.Cmdable
	name   string
	delays []time.Duration
	window time.Duration
	clock  domain.Clock
	logger *slog.Logger
	script *redisclient.Script
}

// NewRedisRateLimiter creates a limiter enforcing the given delay schedule
// within the given window. The name namespaces keys in Redis and must be
// unique per limiter.
func NewRedisRateLimiter(
	cmd redisclient.Cmdable,
	name string,
	delays []time.Duration,
	window time.Duration,
	clock domain.Clock,
	logger *slog.Logger,
) *RedisRateLimiter {
	return &RedisRateLimiter{
		cmd:    cmd,
		name:   name,
		delays: delays,
		window: window,
		clock:  clock,
		logger: logger,
		script: redisclient.NewScript(delayScheduleScript),
	}
}

// Check permits or denies one attempt for key. A denial is returned as a
// *domain.RateLimitedError carrying the remaining delay.
func (r *RedisRateLimiter) Check(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "redis.ratelimit.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVALSHA"),
		attribute.String("ratelimit.name", r.name),
	)

	args := make([]interface{}, 0, len(r.delays)+2)
	args = append(args, r.clock.Now().UnixMilli(), r.window.Milliseconds())
	for _, d := range r.delays {
		args = append(args, d.Milliseconds())
	}

	res, err := r.script.Run(ctx, r.cmd, []string{r.redisKey(key)}, args...).Int64Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.ErrorContext(ctx, "rate limiter backend failure, denying (fail-closed)",
			"error", err, "limiter", r.name)
		return &domain.RateLimitedError{RetryAfter: domain.RateLimitFailClosedRetryAfter}
	}
	if len(res) != 2 {
		span.SetStatus(codes.Error, "unexpected script reply")
		r.logger.ErrorContext(ctx, "rate limiter script returned malformed reply, denying (fail-closed)",
			"limiter", r.name, "reply_len", len(res))
		return &domain.RateLimitedError{RetryAfter: domain.RateLimitFailClosedRetryAfter}
	}

	if res[0] == 0 {
		span.SetStatus(codes.Error, "rate limited")
		return &domain.RateLimitedError{RetryAfter: time.Duration(res[1]) * time.Millisecond}
	}
	return nil
}

func (r *RedisRateLimiter) redisKey(key string) string {
	return fmt.Sprintf("vrl:%s:%s", r.name, key)
}

// AllowAllRateLimiter answers OK unconditionally. The development profile
// wires it in place of every Redis limiter.
type AllowAllRateLimiter struct{}

// Check always permits the attempt.
func (AllowAllRateLimiter) Check(context.Context, string) error { return nil }

// NewRateLimiters builds the full limiter set over one Redis connection
// using the normative schedules from the domain package.
func NewRateLimiters(cmd redisclient.Cmdable, clock domain.Clock, logger *slog.Logger) app.RateLimiters {
	limiter := func(name string, delays []time.Duration, window time.Duration) *RedisRateLimiter {
		return NewRedisRateLimiter(cmd, name, delays, window, clock, logger)
	}
	return app.RateLimiters{
		SessionCreation:     limiter(domain.LimiterSessionCreation, domain.SessionCreationDelays, domain.SessionCreationWindow),
		SendSMSPerNumber:    limiter(domain.LimiterSendSMSPerNumber, domain.SendSMSDelays, domain.SendWindow),
		SendVoicePerNumber:  limiter(domain.LimiterSendVoicePerNum, domain.SendVoiceDelays, domain.SendWindow),
		CheckPerNumber:      limiter(domain.LimiterCheckPerNumber, domain.CheckDelays, domain.CheckWindow),
		SendSMSPerSession:   limiter(domain.LimiterSendSMSPerSession, domain.SendSMSDelays, domain.SendWindow),
		SendVoicePerSession: limiter(domain.LimiterSendVoicePerSess, domain.SendVoiceDelays, domain.SendWindow),
		CheckPerSession:     limiter(domain.LimiterCheckPerSession, domain.CheckDelays, domain.CheckWindow),
	}
}

// NewAllowAllRateLimiters builds the development-profile limiter set.
func NewAllowAllRateLimiters() app.RateLimiters {
	return app.RateLimiters{
		SessionCreation:     AllowAllRateLimiter{},
		SendSMSPerNumber:    AllowAllRateLimiter{},
		SendVoicePerNumber:  AllowAllRateLimiter{},
		CheckPerNumber:      AllowAllRateLimiter{},
		SendSMSPerSession:   AllowAllRateLimiter{},
		SendVoicePerSession: AllowAllRateLimiter{},
		CheckPerSession:     AllowAllRateLimiter{},
	}
}
