package types

import (
	"context"
	"time"
)

// Clock abstracts time.Now for deterministic testing of cutoff selection and
// sent-timestamp stamping.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the service.
// Backed by log/slog in the binaries; components depend only on this interface.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// EmailStore is the full persistence contract for email records. Concrete
// implementation lives in internal/db; pipeline components depend on narrow
// subsets of this interface declared at the point of use.
type EmailStore interface {
	// Insert persists a new record. The (order_id, kind) unique constraint
	// makes the insert idempotent: created is false when a record for the
	// pair already exists, and that outcome is not an error.
	Insert(ctx context.Context, rec *EmailRecord) (created bool, err error)

	// GetByOrderAndKind performs a point lookup on the idempotency key.
	// Returns (nil, nil) when no record exists.
	GetByOrderAndKind(ctx context.Context, orderID int64, kind NotificationKind) (*EmailRecord, error)

	// ClaimForSending conditionally transitions a record to RETRYING.
	// The update succeeds only from PENDING or FAILED, serializing concurrent
	// delivery attempts on the same record. Returns the claimed record, or
	// claimed=false if the record was already RETRYING or SENT.
	ClaimForSending(ctx context.Context, id string) (rec *EmailRecord, claimed bool, err error)

	// MarkSent transitions a RETRYING record to SENT and stamps sent_at.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed transitions a RETRYING record to FAILED.
	MarkFailed(ctx context.Context, id string) error

	// ListFailedBefore returns FAILED records created before the cutoff,
	// oldest first, up to limit. Used by the resweep scheduler.
	ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*EmailRecord, error)

	// Read-side queries for the API surface.
	ListByOrder(ctx context.Context, orderID int64) ([]*EmailRecord, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*EmailRecord, error)
	ListByStatus(ctx context.Context, status DeliveryStatus) ([]*EmailRecord, error)
	CountByStatus(ctx context.Context, status DeliveryStatus) (int64, error)
}
