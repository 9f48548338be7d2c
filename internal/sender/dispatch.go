package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// Dispatcher bounds concurrent upstream provider calls with a weighted
// semaphore distinct from the RPC dispatch pool, so a slow provider cannot
// occupy every server goroutine. Each dispatched call also carries its own
// timeout, capped below the caller's remaining deadline.
type Dispatcher struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher admitting at most size concurrent
// upstream calls, each capped at the given per-call timeout.
func NewDispatcher(size int64, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sem:     semaphore.NewWeighted(size),
		timeout: timeout,
	}
}

// Send runs s.Send through the pool. Pool admission respects ctx, so a
// cancelled caller never occupies a slot. Timeouts and cancellations are
// classified as transient.
func (d *Dispatcher) Send(
	ctx context.Context,
	s Sender,
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	client domain.ClientType,
) ([]byte, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	payload, err := s.Send(callCtx, transport, phone, languages, client)
	if err != nil {
		return nil, classifyDeadline(callCtx, err)
	}
	return payload, nil
}

// Check runs s.Check through the pool under the same admission and timeout
// rules as Send.
func (d *Dispatcher) Check(ctx context.Context, s Sender, submittedCode string, payload []byte) (bool, error) {
	if err := d.acquire(ctx); err != nil {
		return false, err
	}
	defer d.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ok, err := s.Check(callCtx, submittedCode, payload)
	if err != nil {
		return false, classifyDeadline(callCtx, err)
	}
	return ok, nil
}

// acquire blocks until a pool slot is free or ctx is done.
func (d *Dispatcher) acquire(ctx context.Context) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("sender dispatch: acquire slot: %w", err)
	}
	return nil
}

// classifyDeadline maps a per-call timeout to the transient sender error.
// Errors the sender already classified pass through unchanged.
func classifyDeadline(callCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && callCtx.Err() != nil {
		return fmt.Errorf("sender dispatch: upstream call timed out: %w", domain.ErrSenderUnavailable)
	}
	return err
}
