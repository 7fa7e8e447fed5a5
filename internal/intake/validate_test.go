package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailcourier/internal/types"
)

func validEventJSON() []byte {
	return []byte(`{
		"orderId": 1001,
		"customerId": "CUST-1",
		"customerEmail": "jane@example.com",
		"customerName": "Jane Doe",
		"orderStatus": "CONFIRMED",
		"totalAmount": 59.98,
		"currency": "USD",
		"timestamp": "2026-03-09T14:30:00Z"
	}`)
}

func TestEventValidator_Parse_ValidEvent(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	event, err := v.Parse(validEventJSON())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(1001), event.OrderID)
	assert.Equal(t, "CUST-1", event.CustomerID)
	assert.Equal(t, types.OrderConfirmed, event.OrderStatus)
}

func TestEventValidator_Parse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		code types.ErrorCode
	}{
		{
			name: "empty payload",
			body: "",
			code: types.ErrCodeValidationMissingEvent,
		},
		{
			name: "malformed JSON",
			body: `{"orderId":`,
			code: types.ErrCodeValidationMissingEvent,
		},
		{
			name: "missing order id",
			body: `{"customerId":"CUST-1","customerEmail":"jane@example.com","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationMissingOrderID,
		},
		{
			name: "negative order id",
			body: `{"orderId":-5,"customerId":"CUST-1","customerEmail":"jane@example.com","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationMissingOrderID,
		},
		{
			name: "missing customer id",
			body: `{"orderId":1001,"customerEmail":"jane@example.com","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationMissingCustomer,
		},
		{
			name: "blank customer id",
			body: `{"orderId":1001,"customerId":"   ","customerEmail":"jane@example.com","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationMissingCustomer,
		},
		{
			name: "missing email",
			body: `{"orderId":1001,"customerId":"CUST-1","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationInvalidEmail,
		},
		{
			name: "invalid email",
			body: `{"orderId":1001,"customerId":"CUST-1","customerEmail":"not-an-email","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationInvalidEmail,
		},
		{
			name: "single letter TLD",
			body: `{"orderId":1001,"customerId":"CUST-1","customerEmail":"jane@example.c","orderStatus":"CONFIRMED"}`,
			code: types.ErrCodeValidationInvalidEmail,
		},
		{
			name: "missing order status",
			body: `{"orderId":1001,"customerId":"CUST-1","customerEmail":"jane@example.com"}`,
			code: types.ErrCodeValidationMissingStatus,
		},
		{
			name: "unrecognized order status",
			body: `{"orderId":1001,"customerId":"CUST-1","customerEmail":"jane@example.com","orderStatus":"EXPLODED"}`,
			code: types.ErrCodeValidationInvalidStatus,
		},
	}

	v, err := NewEventValidator()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := v.Parse([]byte(tt.body))
			assert.Nil(t, event)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestEventValidator_EmailPattern(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"jane@example.com", true},
		{"jane+orders@example.co.uk", true},
		{"jane_doe-1@sub.example.io", true},
		{"", false},
		{"jane", false},
		{"jane@", false},
		{"@example.com", false},
		{"jane@example", false},
		{"jane@example.c", false},
		{"jane doe@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, emailPattern.MatchString(tt.email))
		})
	}
}

func TestEventValidator_Validate_NilEvent(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	verr := v.Validate(nil)
	var appErr *types.AppError
	require.ErrorAs(t, verr, &appErr)
	assert.Equal(t, types.ErrCodeValidationMissingEvent, appErr.Code)
}

func TestEventValidator_Validate_NonNotifyingStatusPasses(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	event := &types.OrderEvent{
		OrderID:       1001,
		CustomerID:    "CUST-1",
		CustomerEmail: "jane@example.com",
		OrderStatus:   types.OrderProcessing,
	}
	// Validation does not decide whether an email goes out; PROCESSING is a
	// legal status even though it never produces a notification.
	assert.NoError(t, v.Validate(event))
}
