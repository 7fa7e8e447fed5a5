package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailcourier/internal/types"
)

// mockResweepStore is a testify mock for the ResweepStore interface.
type mockResweepStore struct {
	mock.Mock
}

func (m *mockResweepStore) ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.EmailRecord, error) {
	args := m.Called(ctx, cutoff, limit)
	var recs []*types.EmailRecord
	if r := args.Get(0); r != nil {
		recs = r.([]*types.EmailRecord)
	}
	return recs, args.Error(1)
}

func newResweeperUnderTest(store ResweepStore, exec *Executor, rec *recordingMetrics, now time.Time) *Resweeper {
	return NewResweeper(ResweeperConfig{
		Store:      store,
		Executor:   exec,
		Metrics:    rec,
		Clock:      fixedClock{now: now},
		Logger:     testLogger{},
		Interval:   5 * time.Minute,
		CutoffAge:  time.Hour,
		BatchLimit: 100,
	})
}

func TestResweeper_Sweep_SelectsStaleFailedOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := new(mockResweepStore)
	deliveryStore := new(mockDeliveryStore)
	sender := &stubSender{}
	exec := newTestExecutor(deliveryStore, sender, nil)
	metrics := newRecordingMetrics()
	sweeper := newResweeperUnderTest(store, exec, metrics, now)

	stale := claimableRecord("email-stale")
	stale.Status = types.StatusFailed
	stale.CreatedAt = now.Add(-90 * time.Minute)

	// The cutoff handed to the store is exactly now minus the cutoff age;
	// PENDING, SENT, and younger FAILED records never come back from it.
	store.On("ListFailedBefore", mock.Anything, now.Add(-time.Hour), 100).
		Return([]*types.EmailRecord{stale}, nil).Once()

	deliveryStore.On("ClaimForSending", mock.Anything, "email-stale").
		Return(stale, true, nil).Once()
	deliveryStore.On("MarkSent", mock.Anything, "email-stale", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	selected, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, selected)
	assert.Equal(t, 1, sender.sendCount())
	assert.Equal(t, []int{1}, metrics.resweepSelected)
	store.AssertExpectations(t)
	deliveryStore.AssertExpectations(t)
}

func TestResweeper_Sweep_EmptySelection(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := new(mockResweepStore)
	metrics := newRecordingMetrics()
	exec := newTestExecutor(new(mockDeliveryStore), &stubSender{}, nil)
	sweeper := newResweeperUnderTest(store, exec, metrics, now)

	store.On("ListFailedBefore", mock.Anything, now.Add(-time.Hour), 100).
		Return(nil, nil).Once()

	selected, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, selected)
	assert.Empty(t, metrics.resweepSelected)
}

func TestResweeper_Sweep_ContinuesPastFailedRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := new(mockResweepStore)
	deliveryStore := new(mockDeliveryStore)
	sender := &stubSender{fn: func(call int) error {
		if call <= 3 {
			// First record exhausts its whole retry budget.
			return types.NewAppError(types.ErrCodeUpstreamUnavailable, "still down", nil)
		}
		return nil
	}}
	exec := newTestExecutor(deliveryStore, sender, nil)
	sweeper := newResweeperUnderTest(store, exec, newRecordingMetrics(), now)

	first := claimableRecord("email-1")
	first.Status = types.StatusFailed
	second := claimableRecord("email-2")
	second.Status = types.StatusFailed

	store.On("ListFailedBefore", mock.Anything, mock.Anything, 100).
		Return([]*types.EmailRecord{first, second}, nil).Once()

	deliveryStore.On("ClaimForSending", mock.Anything, "email-1").Return(first, true, nil).Times(3)
	deliveryStore.On("MarkFailed", mock.Anything, "email-1").Return(nil).Times(3)
	deliveryStore.On("ClaimForSending", mock.Anything, "email-2").Return(second, true, nil).Once()
	deliveryStore.On("MarkSent", mock.Anything, "email-2", mock.AnythingOfType("time.Time")).Return(nil).Once()

	selected, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, selected)
	deliveryStore.AssertExpectations(t)
}

func TestResweeper_Run_StopsOnContextCancel(t *testing.T) {
	store := new(mockResweepStore)
	exec := newTestExecutor(new(mockDeliveryStore), &stubSender{}, nil)
	sweeper := newResweeperUnderTest(store, exec, newRecordingMetrics(), time.Now().UTC())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sweeper.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
