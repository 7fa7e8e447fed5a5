// Package intake consumes order events from the order-events queue,
// validates them, and forwards the valid ones to the dispatch coordinator.
package intake

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"mailcourier/internal/types"
)

// emailPattern matches the addresses the upstream order service accepts.
// Deliberately stricter than RFC 5322: the TLD must be at least two letters.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})$`)

// EventValidator wraps go-playground/validator with the domain-specific
// rules for inbound order events. All validation failures are surfaced as
// AppErrors with a validation_* code so intake can reject and acknowledge
// without retry.
type EventValidator struct {
	validate *validator.Validate
}

// NewEventValidator creates an EventValidator and registers the custom
// "notblank" and "order_email" tags used by types.OrderEvent.
func NewEventValidator() (*EventValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("order_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	return &EventValidator{validate: v}, nil
}

// Parse unmarshals a raw queue message body into an OrderEvent and validates
// it. The returned error is always an *types.AppError with a validation_*
// code when the event is rejected.
func (ev *EventValidator) Parse(body []byte) (*types.OrderEvent, error) {
	if len(body) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationMissingEvent,
			"order event payload is empty", nil)
	}

	var event types.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationMissingEvent,
			"order event payload is not valid JSON", err)
	}

	if err := ev.Validate(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Validate checks an already-decoded OrderEvent against the domain rules.
func (ev *EventValidator) Validate(event *types.OrderEvent) error {
	if event == nil {
		return types.NewAppError(types.ErrCodeValidationMissingEvent,
			"order event is required", nil)
	}

	if err := ev.validate.Struct(event); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return types.NewAppError(types.ErrCodeValidationMissingEvent,
			"order event failed validation", err)
	}

	// The status set is open-ended upstream; reject only values outside the
	// known enumeration so new non-notifying statuses still pass through.
	if !knownOrderStatus(event.OrderStatus) {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidStatus,
			"order event carries an unrecognized order status", nil,
			map[string]any{"order_status": string(event.OrderStatus)})
	}
	return nil
}

// fieldError maps the first failed struct field to its domain error code.
func fieldError(fe validator.FieldError) *types.AppError {
	switch fe.StructField() {
	case "OrderID":
		return types.NewAppError(types.ErrCodeValidationMissingOrderID,
			"order event must carry a positive order ID", nil)
	case "CustomerID":
		return types.NewAppError(types.ErrCodeValidationMissingCustomer,
			"order event must carry a customer ID", nil)
	case "CustomerEmail":
		return types.NewAppError(types.ErrCodeValidationInvalidEmail,
			"order event must carry a valid customer email", nil)
	case "OrderStatus":
		return types.NewAppError(types.ErrCodeValidationMissingStatus,
			"order event must carry an order status", nil)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingEvent,
			"order event failed validation", nil,
			map[string]any{"field": fe.StructField(), "tag": fe.Tag()})
	}
}

func knownOrderStatus(status types.OrderStatus) bool {
	switch status {
	case types.OrderCreated, types.OrderConfirmed, types.OrderPaymentPending,
		types.OrderPaid, types.OrderProcessing, types.OrderShipped,
		types.OrderDelivered, types.OrderCancelled, types.OrderRefunded,
		types.OrderFailed:
		return true
	}
	return false
}
