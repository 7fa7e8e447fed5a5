package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailcourier/internal/types"
)

// fakeReader serves canned records and counts.
type fakeReader struct {
	records []*types.EmailRecord
	counts  map[types.DeliveryStatus]int64
	err     error
}

func (f *fakeReader) ListByOrder(ctx context.Context, orderID int64) ([]*types.EmailRecord, error) {
	return f.records, f.err
}

func (f *fakeReader) ListByCustomer(ctx context.Context, customerID string) ([]*types.EmailRecord, error) {
	return f.records, f.err
}

func (f *fakeReader) ListByStatus(ctx context.Context, status types.DeliveryStatus) ([]*types.EmailRecord, error) {
	return f.records, f.err
}

func (f *fakeReader) CountByStatus(ctx context.Context, status types.DeliveryStatus) (int64, error) {
	return f.counts[status], f.err
}

// fakeSweeper returns a fixed selection count.
type fakeSweeper struct {
	selected int
	err      error
	calls    int
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int, error) {
	f.calls++
	return f.selected, f.err
}

func testRouter(reader EmailReader, sweeper FailedSweeper) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewEmailHandler(reader, sweeper, logger)
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func sentRecord() *types.EmailRecord {
	sentAt := time.Date(2026, 3, 10, 9, 35, 0, 0, time.UTC)
	return &types.EmailRecord{
		ID:         "e2b6c9d1-0000-4000-8000-000000000001",
		OrderID:    1001,
		CustomerID: "CUST-1",
		Recipient:  "jane@example.com",
		Kind:       types.KindOrderConfirmation,
		Subject:    "Order Confirmation - Order #1001",
		Body:       "Dear Jane,...",
		Status:     types.StatusSent,
		CreatedAt:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		SentAt:     &sentAt,
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEmailHandler_ListByOrder(t *testing.T) {
	router := testRouter(&fakeReader{records: []*types.EmailRecord{sentRecord()}}, &fakeSweeper{})

	rec := doRequest(t, router, http.MethodGet, "/v1/emails/order/1001")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []*types.EmailRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(1001), resp.Data[0].OrderID)
	assert.Equal(t, types.StatusSent, resp.Data[0].Status)
}

func TestEmailHandler_ListByOrder_InvalidID(t *testing.T) {
	router := testRouter(&fakeReader{}, &fakeSweeper{})

	tests := []string{"/v1/emails/order/abc", "/v1/emails/order/-7", "/v1/emails/order/0"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, path)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(types.ErrCodeValidationInvalidOrderID), resp.Error.Code)
		})
	}
}

func TestEmailHandler_ListByStatus_InvalidStatus(t *testing.T) {
	router := testRouter(&fakeReader{}, &fakeSweeper{})

	rec := doRequest(t, router, http.MethodGet, "/v1/emails/status/BOGUS")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeValidationInvalidStatus), resp.Error.Code)
}

func TestEmailHandler_ListByCustomer(t *testing.T) {
	router := testRouter(&fakeReader{records: []*types.EmailRecord{sentRecord()}}, &fakeSweeper{})

	rec := doRequest(t, router, http.MethodGet, "/v1/emails/customer/CUST-1")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEmailHandler_Stats(t *testing.T) {
	reader := &fakeReader{counts: map[types.DeliveryStatus]int64{
		types.StatusPending:  2,
		types.StatusRetrying: 1,
		types.StatusSent:     40,
		types.StatusFailed:   3,
	}}
	router := testRouter(reader, &fakeSweeper{})

	rec := doRequest(t, router, http.MethodGet, "/v1/emails/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data deliveryStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.Pending)
	assert.Equal(t, int64(1), resp.Data.Retrying)
	assert.Equal(t, int64(40), resp.Data.Sent)
	assert.Equal(t, int64(3), resp.Data.Failed)
	assert.Equal(t, int64(46), resp.Data.Total)
}

func TestEmailHandler_RetryFailed(t *testing.T) {
	sweeper := &fakeSweeper{selected: 5}
	router := testRouter(&fakeReader{}, sweeper)

	rec := doRequest(t, router, http.MethodPost, "/v1/emails/retry-failed")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, sweeper.calls)

	var resp struct {
		Data retryFailedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Data.Selected)
}

func TestEmailHandler_StoreErrorMapsToStatus(t *testing.T) {
	reader := &fakeReader{err: types.NewAppError(types.ErrCodeInternalDB, "query failed", nil)}
	router := testRouter(reader, &fakeSweeper{})

	rec := doRequest(t, router, http.MethodGet, "/v1/emails/order/1001")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalDB), resp.Error.Code)
}
