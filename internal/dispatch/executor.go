// Package dispatch implements the email dispatch reliability pipeline: the
// coordinator that turns validated order events into idempotent email
// records, the executor that owns the delivery state machine, and the
// resweeper that re-attempts records stuck in FAILED.
package dispatch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"mailcourier/internal/mail"
	"mailcourier/internal/metrics"
	"mailcourier/internal/types"
)

// DeliveryStore is the persistence subset required by the Executor. By
// depending on this narrow interface rather than the full store, the Executor
// is testable with lightweight mocks.
type DeliveryStore interface {
	ClaimForSending(ctx context.Context, id string) (rec *types.EmailRecord, claimed bool, err error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

// Policy bounds the retry behavior of one logical delivery attempt.
type Policy struct {
	// MaxAttempts is the number of transport invocations before giving up
	// and leaving the record FAILED for the resweeper.
	MaxAttempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// SendTimeout caps a single transport invocation.
	SendTimeout time.Duration
}

// errNotClaimed signals that the conditional RETRYING transition did not
// match: the record is either already in flight on another worker or SENT.
// It is not a failure; the attempt simply stands down.
var errNotClaimed = errors.New("email record not claimable")

// Executor owns the delivery state machine. Records enter via Submit (post
// creation) or AttemptDelivery (resweep and bounded retry); both paths share
// the identical per-record sequence:
//
//  1. Conditionally transition to RETRYING and persist (the claim). The claim
//     only succeeds from PENDING or FAILED, so concurrent attempts on the
//     same record are serialized and SENT records are untouchable.
//  2. Invoke the mail transport exactly once for this claim, using the
//     record's stored recipient/subject/body.
//  3. Persist SENT (with sent_at) on success or FAILED on transport error.
//
// Transport failures are retried up to Policy.MaxAttempts times with a fixed
// backoff; each retry re-enters the claim, so every state transition is
// persisted before the next transport call.
type Executor struct {
	store   DeliveryStore
	sender  mail.Sender
	metrics metrics.Recorder
	clock   types.Clock
	logger  types.Logger
	policy  Policy

	sem      *semaphore.Weighted
	poolSize int64
	sleepFn  func(time.Duration)
}

// ExecutorConfig holds the dependencies needed to create an Executor.
type ExecutorConfig struct {
	Store    DeliveryStore
	Sender   mail.Sender
	Metrics  metrics.Recorder
	Clock    types.Clock
	Logger   types.Logger
	Policy   Policy
	PoolSize int
}

// NewExecutor creates an Executor with a bounded worker pool of cfg.PoolSize.
func NewExecutor(cfg ExecutorConfig) *Executor {
	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	return &Executor{
		store:    cfg.Store,
		sender:   cfg.Sender,
		metrics:  rec,
		clock:    clock,
		logger:   cfg.Logger,
		policy:   cfg.Policy,
		sem:      semaphore.NewWeighted(int64(poolSize)),
		poolSize: int64(poolSize),
		sleepFn:  time.Sleep,
	}
}

// WithSleepFunc overrides the backoff sleep function. Intended for tests to
// avoid real delays.
func (e *Executor) WithSleepFunc(fn func(time.Duration)) *Executor {
	e.sleepFn = fn
	return e
}

// Submit schedules an asynchronous delivery attempt for the record. It
// acquires a worker slot from the bounded pool before returning, providing
// backpressure to the intake path when the pool is saturated, but never
// blocks on the transport itself. The attempt runs on a context detached
// from the caller's so an acknowledged intake message does not cancel an
// in-flight send.
func (e *Executor) Submit(ctx context.Context, id string) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	attemptCtx := context.WithoutCancel(ctx)
	go func() {
		defer e.sem.Release(1)
		if err := e.AttemptDelivery(attemptCtx, id); err != nil {
			e.logger.Error("asynchronous delivery attempt failed",
				"email_id", id,
				"error", err.Error(),
			)
		}
	}()
	return nil
}

// Drain blocks until every in-flight worker has finished or ctx expires.
// Called on shutdown after intake has stopped submitting.
func (e *Executor) Drain(ctx context.Context) error {
	if err := e.sem.Acquire(ctx, e.poolSize); err != nil {
		return err
	}
	e.sem.Release(e.poolSize)
	return nil
}

// AttemptDelivery runs one logical delivery attempt: up to MaxAttempts
// claim/send/persist cycles with a fixed backoff in between. It returns nil
// when the record is sent or when another worker already holds the claim,
// and the last transport error when the bounded retry budget is exhausted
// (the record is then FAILED and the resweeper's responsibility).
func (e *Executor) AttemptDelivery(ctx context.Context, id string) error {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.sleepFn(e.policy.Backoff)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := e.deliverOnce(ctx, id, attempt)
		if err == nil {
			return nil
		}
		if errors.Is(err, errNotClaimed) {
			e.logger.Info("delivery attempt skipped, record in flight or already sent", "email_id", id)
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		e.logger.Warn("transport attempt failed",
			"email_id", id,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"error", err.Error(),
		)
		lastErr = err
	}
	return lastErr
}

// deliverOnce performs a single claim/send/persist cycle. The transport is
// invoked at most once per successful claim.
func (e *Executor) deliverOnce(ctx context.Context, id string, attempt int) error {
	rec, claimed, err := e.store.ClaimForSending(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		return errNotClaimed
	}

	sendCtx := ctx
	if e.policy.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.policy.SendTimeout)
		defer cancel()
	}

	start := e.clock.Now()
	sendErr := e.sender.Send(sendCtx, rec.Recipient, rec.Subject, rec.Body)
	e.metrics.RecordDeliveryLatency(ctx, e.clock.Now().Sub(start))

	if sendErr != nil {
		e.metrics.RecordDelivery(ctx, metrics.ResultFailed)
		if err := e.store.MarkFailed(ctx, id); err != nil {
			return err
		}
		// Context deadline errors from the transport follow the normal
		// FAILED path as a generic provider failure.
		var appErr *types.AppError
		if !errors.As(sendErr, &appErr) {
			sendErr = types.NewAppError(types.ErrCodeUpstreamMailProvider,
				"mail transport failed", sendErr)
		}
		return sendErr
	}

	sentAt := e.clock.Now()
	if err := e.store.MarkSent(ctx, id, sentAt); err != nil {
		// The email left the building; do not re-send. Surface the
		// persistence failure as non-retryable.
		return err
	}

	e.metrics.RecordDelivery(ctx, metrics.ResultSuccess)
	e.logger.Info("email sent",
		"email_id", id,
		"order_id", rec.OrderID,
		"kind", string(rec.Kind),
		"attempt", attempt,
	)
	return nil
}

// isRetryable reports whether the bounded retry loop should try again.
// Only transport (upstream_*) failures qualify; persistence errors and the
// not-claimed outcome end the loop immediately.
func isRetryable(err error) bool {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code.IsRetryable()
	}
	return false
}
