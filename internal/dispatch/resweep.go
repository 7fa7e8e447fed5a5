package dispatch

import (
	"context"
	"time"

	"mailcourier/internal/metrics"
	"mailcourier/internal/types"
)

// ResweepStore is the persistence subset required by the Resweeper.
type ResweepStore interface {
	ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.EmailRecord, error)
}

// Resweeper periodically re-attempts FAILED records whose creation time has
// aged past the cutoff. It is the safety net behind the bounded retry loop:
// anything the Executor gave up on comes back through here until it sends.
// Records use their stored subject and body, so a resweep never re-renders.
type Resweeper struct {
	store    ResweepStore
	executor *Executor
	metrics  metrics.Recorder
	clock    types.Clock
	logger   types.Logger

	interval  time.Duration
	cutoffAge time.Duration
	batch     int
}

// ResweeperConfig holds the dependencies needed to create a Resweeper.
type ResweeperConfig struct {
	Store    ResweepStore
	Executor *Executor
	Metrics  metrics.Recorder
	Clock    types.Clock
	Logger   types.Logger

	Interval   time.Duration
	CutoffAge  time.Duration
	BatchLimit int
}

// NewResweeper creates a Resweeper.
func NewResweeper(cfg ResweeperConfig) *Resweeper {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	batch := cfg.BatchLimit
	if batch < 1 {
		batch = 100
	}
	return &Resweeper{
		store:     cfg.Store,
		executor:  cfg.Executor,
		metrics:   rec,
		clock:     clock,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		cutoffAge: cfg.CutoffAge,
		batch:     batch,
	}
}

// Run executes the resweep loop until ctx is canceled. One sweep runs per
// tick; a failed sweep is logged and the loop continues on the next tick.
func (r *Resweeper) Run(ctx context.Context) error {
	r.logger.Info("resweeper started",
		"interval", r.interval.String(),
		"cutoff_age", r.cutoffAge.String(),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("resweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("resweep pass failed", "error", err.Error())
			}
		}
	}
}

// Sweep selects FAILED records created before now minus the cutoff age and
// re-attempts each through the executor's normal delivery path. Per-record
// failures are logged and the sweep continues; the count of selected records
// is returned so callers (the periodic loop and the manual retry endpoint)
// can report it.
func (r *Resweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.cutoffAge)

	records, err := r.store.ListFailedBefore(ctx, cutoff, r.batch)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	r.metrics.RecordResweepSelected(ctx, len(records))
	r.logger.Info("resweep selected stale failed records",
		"count", len(records),
		"cutoff", cutoff.Format(time.RFC3339),
	)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return len(records), err
		}
		if err := r.executor.AttemptDelivery(ctx, rec.ID); err != nil {
			r.logger.Warn("resweep attempt failed, record stays failed",
				"email_id", rec.ID,
				"order_id", rec.OrderID,
				"error", err.Error(),
			)
		}
	}
	return len(records), nil
}
