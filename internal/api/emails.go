package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mailcourier/internal/types"
)

// EmailReader defines the data access contract for email record lookups.
// Mirrors the read-side methods of db.EmailRepository.
type EmailReader interface {
	ListByOrder(ctx context.Context, orderID int64) ([]*types.EmailRecord, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*types.EmailRecord, error)
	ListByStatus(ctx context.Context, status types.DeliveryStatus) ([]*types.EmailRecord, error)
	CountByStatus(ctx context.Context, status types.DeliveryStatus) (int64, error)
}

// FailedSweeper triggers one resweep pass over stale FAILED records,
// implemented by dispatch.Resweeper.
type FailedSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// EmailHandler serves email record lookups, delivery statistics, and the
// manual retry trigger.
type EmailHandler struct {
	reader  EmailReader
	sweeper FailedSweeper
	logger  *slog.Logger
}

// NewEmailHandler creates an EmailHandler with the provided dependencies.
func NewEmailHandler(reader EmailReader, sweeper FailedSweeper, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		reader:  reader,
		sweeper: sweeper,
		logger:  logger,
	}
}

// RegisterRoutes mounts the email routes on the given router (under /v1).
func (h *EmailHandler) RegisterRoutes(r chi.Router) {
	r.Route("/emails", func(r chi.Router) {
		r.Get("/order/{orderID}", h.ListByOrder)
		r.Get("/customer/{customerID}", h.ListByCustomer)
		r.Get("/status/{status}", h.ListByStatus)
		r.Get("/stats", h.Stats)
		r.Post("/retry-failed", h.RetryFailed)
	})
}

// ListByOrder handles GET /v1/emails/order/{orderID}.
func (h *EmailHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidOrderID,
			"order ID must be a positive integer", err))
		return
	}

	records, err := h.reader.ListByOrder(r.Context(), orderID)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: records})
}

// ListByCustomer handles GET /v1/emails/customer/{customerID}.
func (h *EmailHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingCustomer,
			"customer ID is required", nil))
		return
	}

	records, err := h.reader.ListByCustomer(r.Context(), customerID)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: records})
}

// ListByStatus handles GET /v1/emails/status/{status}.
func (h *EmailHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := types.ParseDeliveryStatus(chi.URLParam(r, "status"))
	if !ok {
		Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidStatus,
			"status must be one of PENDING, RETRYING, SENT, FAILED", nil,
			map[string]any{"status": chi.URLParam(r, "status")}))
		return
	}

	records, err := h.reader.ListByStatus(r.Context(), status)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: records})
}

// deliveryStats is the response body for GET /v1/emails/stats.
type deliveryStats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Sent     int64 `json:"sent"`
	Failed   int64 `json:"failed"`
	Total    int64 `json:"total"`
}

// Stats handles GET /v1/emails/stats, returning per-status record counts.
func (h *EmailHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var stats deliveryStats
	for _, entry := range []struct {
		status types.DeliveryStatus
		target *int64
	}{
		{types.StatusPending, &stats.Pending},
		{types.StatusRetrying, &stats.Retrying},
		{types.StatusSent, &stats.Sent},
		{types.StatusFailed, &stats.Failed},
	} {
		count, err := h.reader.CountByStatus(r.Context(), entry.status)
		if err != nil {
			Error(w, r, err)
			return
		}
		*entry.target = count
	}
	stats.Total = stats.Pending + stats.Retrying + stats.Sent + stats.Failed

	JSON(w, r, http.StatusOK, APIResponse{Data: stats})
}

// retryFailedResult is the response body for POST /v1/emails/retry-failed.
type retryFailedResult struct {
	Selected int `json:"selected"`
}

// RetryFailed handles POST /v1/emails/retry-failed. It runs one resweep pass
// immediately instead of waiting for the next scheduled tick and reports how
// many stale FAILED records were selected for re-delivery.
func (h *EmailHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	selected, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}

	h.logger.Info("manual retry of failed emails triggered",
		slog.Int("selected", selected),
		slog.String("request_id", types.GetRequestID(r.Context())),
	)
	JSON(w, r, http.StatusAccepted, APIResponse{Data: retryFailedResult{Selected: selected}})
}
