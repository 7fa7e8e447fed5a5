package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mailcourier/internal/types"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// emailColumns is the shared select list for scanning EmailRecord rows.
const emailColumns = `id, order_id, customer_id, recipient, kind, subject, body, status, created_at, sent_at`

// EmailRepository provides data access for the email_records table.
//
// Expected schema:
//
//	CREATE TABLE email_records (
//	    id          UUID PRIMARY KEY,
//	    order_id    BIGINT NOT NULL,
//	    customer_id TEXT NOT NULL,
//	    recipient   TEXT NOT NULL,
//	    kind        TEXT NOT NULL,
//	    subject     TEXT NOT NULL,
//	    body        TEXT NOT NULL,
//	    status      TEXT NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    sent_at     TIMESTAMPTZ,
//	    UNIQUE (order_id, kind)
//	);
//
// The (order_id, kind) unique constraint is the idempotency key: duplicate
// dispatch of the same event cannot produce two records even when two intake
// workers race on the same key.
type EmailRepository struct {
	db DBTX
}

// NewEmailRepository creates a new EmailRepository backed by the given
// database connection (pool or transaction).
func NewEmailRepository(db DBTX) *EmailRepository {
	return &EmailRepository{db: db}
}

// Compile-time assertion that EmailRepository implements types.EmailStore.
var _ types.EmailStore = (*EmailRepository)(nil)

// Insert persists a new email record using INSERT ... ON CONFLICT DO NOTHING
// on the (order_id, kind) unique constraint. A conflict is the idempotency
// mechanism firing: created is false and err is nil.
func (r *EmailRepository) Insert(ctx context.Context, rec *types.EmailRecord) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO email_records
		 (id, order_id, customer_id, recipient, kind, subject, body, status, created_at, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (order_id, kind) DO NOTHING`,
		rec.ID,
		rec.OrderID,
		rec.CustomerID,
		rec.Recipient,
		string(rec.Kind),
		rec.Subject,
		rec.Body,
		string(rec.Status),
		rec.CreatedAt,
		rec.SentAt,
	)
	if err != nil {
		// A concurrent insert can still surface as a raw unique violation
		// (e.g. under serializable isolation); treat it as the conflict path.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to insert email record", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByOrderAndKind performs a point lookup on the idempotency key.
// Returns (nil, nil) when no record exists for the pair.
func (r *EmailRepository) GetByOrderAndKind(ctx context.Context, orderID int64, kind types.NotificationKind) (*types.EmailRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+emailColumns+` FROM email_records WHERE order_id = $1 AND kind = $2`,
		orderID, string(kind),
	)
	rec, err := scanEmailRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to look up email record", err)
	}
	return rec, nil
}

// ClaimForSending conditionally transitions a record into RETRYING. The WHERE
// clause only matches PENDING and FAILED rows, so two concurrent delivery
// attempts on the same record cannot both claim it, and a SENT record can
// never re-enter the state machine.
func (r *EmailRepository) ClaimForSending(ctx context.Context, id string) (*types.EmailRecord, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE email_records
		 SET status = $1
		 WHERE id = $2 AND status IN ($3, $4)
		 RETURNING `+emailColumns,
		string(types.StatusRetrying),
		id,
		string(types.StatusPending),
		string(types.StatusFailed),
	)
	rec, err := scanEmailRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to claim email record", err)
	}
	return rec, true, nil
}

// MarkSent transitions a RETRYING record to SENT and stamps sent_at.
func (r *EmailRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE email_records SET status = $1, sent_at = $2 WHERE id = $3 AND status = $4`,
		string(types.StatusSent), sentAt, id, string(types.StatusRetrying),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark email sent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEmail, "email record not in RETRYING state", nil)
	}
	return nil
}

// MarkFailed transitions a RETRYING record to FAILED.
func (r *EmailRepository) MarkFailed(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE email_records SET status = $1 WHERE id = $2 AND status = $3`,
		string(types.StatusFailed), id, string(types.StatusRetrying),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark email failed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEmail, "email record not in RETRYING state", nil)
	}
	return nil
}

// ListFailedBefore returns FAILED records created before the cutoff, oldest
// first, capped at limit. This is the resweep selection query.
func (r *EmailRepository) ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.EmailRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+emailColumns+` FROM email_records
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		string(types.StatusFailed), cutoff, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list failed email records", err)
	}
	return collectEmailRecords(rows)
}

// ListByOrder returns all records for an order, newest first.
func (r *EmailRepository) ListByOrder(ctx context.Context, orderID int64) ([]*types.EmailRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+emailColumns+` FROM email_records WHERE order_id = $1 ORDER BY created_at DESC`,
		orderID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list email records by order", err)
	}
	return collectEmailRecords(rows)
}

// ListByCustomer returns all records for a customer, newest first.
func (r *EmailRepository) ListByCustomer(ctx context.Context, customerID string) ([]*types.EmailRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+emailColumns+` FROM email_records WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list email records by customer", err)
	}
	return collectEmailRecords(rows)
}

// ListByStatus returns all records in a given delivery status, newest first.
func (r *EmailRepository) ListByStatus(ctx context.Context, status types.DeliveryStatus) ([]*types.EmailRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+emailColumns+` FROM email_records WHERE status = $1 ORDER BY created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list email records by status", err)
	}
	return collectEmailRecords(rows)
}

// CountByStatus returns the number of records in a given delivery status.
func (r *EmailRepository) CountByStatus(ctx context.Context, status types.DeliveryStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM email_records WHERE status = $1`,
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count email records", err)
	}
	return count, nil
}

// scanEmailRecord scans a single row into an EmailRecord.
func scanEmailRecord(row pgx.Row) (*types.EmailRecord, error) {
	var (
		rec    types.EmailRecord
		kind   string
		status string
		sentAt *time.Time
	)
	err := row.Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.CustomerID,
		&rec.Recipient,
		&kind,
		&rec.Subject,
		&rec.Body,
		&status,
		&rec.CreatedAt,
		&sentAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Kind = types.NotificationKind(kind)
	rec.Status = types.DeliveryStatus(status)
	rec.SentAt = sentAt
	return &rec, nil
}

// collectEmailRecords drains a row set into a slice, closing it when done.
func collectEmailRecords(rows pgx.Rows) ([]*types.EmailRecord, error) {
	defer rows.Close()

	var out []*types.EmailRecord
	for rows.Next() {
		rec, err := scanEmailRecord(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan email record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate email records", err)
	}
	return out, nil
}
