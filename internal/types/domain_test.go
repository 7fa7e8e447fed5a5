package types

import "testing"

// TestKindForStatus verifies the dispatch table from order status to
// notification kind, including the statuses that produce no notification.
func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status   OrderStatus
		wantKind NotificationKind
		wantOK   bool
	}{
		{OrderConfirmed, KindOrderConfirmation, true},
		{OrderPaid, KindOrderConfirmation, true},
		{OrderShipped, KindOrderShipped, true},
		{OrderDelivered, KindOrderDelivered, true},
		{OrderCancelled, KindOrderCancelled, true},
		{OrderRefunded, KindOrderRefunded, true},
		{OrderFailed, KindPaymentFailed, true},
		{OrderCreated, "", false},
		{OrderPaymentPending, "", false},
		{OrderProcessing, "", false},
		{OrderStatus("UNKNOWN"), "", false},
	}

	for _, tt := range tests {
		kind, ok := KindForStatus(tt.status)
		if ok != tt.wantOK {
			t.Errorf("KindForStatus(%q) ok = %v, want %v", tt.status, ok, tt.wantOK)
		}
		if kind != tt.wantKind {
			t.Errorf("KindForStatus(%q) = %q, want %q", tt.status, kind, tt.wantKind)
		}
	}
}

// TestParseDeliveryStatus verifies round-tripping of the persisted statuses
// and rejection of anything else, including lowercase forms.
func TestParseDeliveryStatus(t *testing.T) {
	for _, valid := range []DeliveryStatus{StatusPending, StatusRetrying, StatusSent, StatusFailed} {
		got, ok := ParseDeliveryStatus(string(valid))
		if !ok || got != valid {
			t.Errorf("ParseDeliveryStatus(%q) = (%q, %v), want (%q, true)", valid, got, ok, valid)
		}
	}

	for _, invalid := range []string{"", "pending", "Sent", "DELIVERED", "RETRY"} {
		if _, ok := ParseDeliveryStatus(invalid); ok {
			t.Errorf("ParseDeliveryStatus(%q) ok = true, want false", invalid)
		}
	}
}
