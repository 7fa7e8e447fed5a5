package dispatch

import (
	"context"

	"github.com/google/uuid"

	"mailcourier/internal/templates"
	"mailcourier/internal/types"
)

// CoordinatorStore is the persistence subset required by the Coordinator.
type CoordinatorStore interface {
	Insert(ctx context.Context, rec *types.EmailRecord) (created bool, err error)
	GetByOrderAndKind(ctx context.Context, orderID int64, kind types.NotificationKind) (*types.EmailRecord, error)
}

// Coordinator turns a validated order event into an idempotent email record
// and hands it to the Executor. It owns the status-to-kind mapping and the
// at-most-one-record-per-(order, kind) guarantee; delivery mechanics belong
// to the Executor.
type Coordinator struct {
	store    CoordinatorStore
	executor *Executor
	clock    types.Clock
	logger   types.Logger
}

// CoordinatorConfig holds the dependencies needed to create a Coordinator.
type CoordinatorConfig struct {
	Store    CoordinatorStore
	Executor *Executor
	Clock    types.Clock
	Logger   types.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Coordinator{
		store:    cfg.Store,
		executor: cfg.Executor,
		clock:    clock,
		logger:   cfg.Logger,
	}
}

// ProcessOrderEvent handles one validated order event end to end:
//
//  1. Map the order status to a notification kind. Statuses that do not
//     warrant an email (CREATED, PAYMENT_PENDING, PROCESSING) are a no-op.
//  2. Check for an existing record for (order, kind) and no-op on a hit,
//     so replays of the same event never produce a second email.
//  3. Render subject and body from the event, persist a PENDING record, and
//     schedule an asynchronous delivery attempt.
//
// The persisted record is the source of truth for delivery: once created,
// its content never changes, only its status.
func (c *Coordinator) ProcessOrderEvent(ctx context.Context, event *types.OrderEvent) error {
	kind, ok := types.KindForStatus(event.OrderStatus)
	if !ok {
		c.logger.Info("order status does not trigger a notification",
			"order_id", event.OrderID,
			"order_status", string(event.OrderStatus),
		)
		return nil
	}

	existing, err := c.store.GetByOrderAndKind(ctx, event.OrderID, kind)
	if err != nil {
		return err
	}
	if existing != nil {
		c.logger.Info("notification already dispatched, skipping",
			"order_id", event.OrderID,
			"kind", string(kind),
			"email_id", existing.ID,
		)
		return nil
	}

	subject, body, err := templates.Render(kind, event)
	if err != nil {
		return err
	}

	rec := &types.EmailRecord{
		ID:         uuid.New().String(),
		OrderID:    event.OrderID,
		CustomerID: event.CustomerID,
		Recipient:  event.CustomerEmail,
		Kind:       kind,
		Subject:    subject,
		Body:       body,
		Status:     types.StatusPending,
		CreatedAt:  c.clock.Now(),
	}

	created, err := c.store.Insert(ctx, rec)
	if err != nil {
		return err
	}
	if !created {
		// Lost a race against a concurrent consumer of the same event.
		// The winner's record owns delivery.
		c.logger.Info("concurrent dispatch already created record, skipping",
			"order_id", event.OrderID,
			"kind", string(kind),
		)
		return nil
	}

	c.logger.Info("email record created",
		"email_id", rec.ID,
		"order_id", rec.OrderID,
		"kind", string(rec.Kind),
		"recipient", rec.Recipient,
	)

	return c.executor.Submit(ctx, rec.ID)
}
