// Package types defines the shared domain model for the mailcourier
// notification service: inbound order events, the persistent email record,
// and the enumerations that drive dispatch and delivery.
package types

import "time"

// OrderStatus is the lifecycle status carried by an inbound order event.
// The set of values is owned by the upstream order service; mailcourier
// only maps them to notification kinds.
type OrderStatus string

const (
	OrderCreated        OrderStatus = "CREATED"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderPaid           OrderStatus = "PAID"
	OrderProcessing     OrderStatus = "PROCESSING"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
	OrderRefunded       OrderStatus = "REFUNDED"
	OrderFailed         OrderStatus = "FAILED"
)

// NotificationKind identifies the template family used for an outbound email.
type NotificationKind string

const (
	KindOrderConfirmation  NotificationKind = "ORDER_CONFIRMATION"
	KindOrderShipped       NotificationKind = "ORDER_SHIPPED"
	KindOrderDelivered     NotificationKind = "ORDER_DELIVERED"
	KindOrderCancelled     NotificationKind = "ORDER_CANCELLED"
	KindOrderRefunded      NotificationKind = "ORDER_REFUNDED"
	KindPaymentFailed      NotificationKind = "PAYMENT_FAILED"
	KindPromotional        NotificationKind = "PROMOTIONAL"
	KindSystemNotification NotificationKind = "SYSTEM_NOTIFICATION"
)

// statusKinds is the fixed dispatch table from order status to notification
// kind. Statuses absent from the table (CREATED, PAYMENT_PENDING, PROCESSING)
// produce no notification.
var statusKinds = map[OrderStatus]NotificationKind{
	OrderConfirmed: KindOrderConfirmation,
	OrderPaid:      KindOrderConfirmation,
	OrderShipped:   KindOrderShipped,
	OrderDelivered: KindOrderDelivered,
	OrderCancelled: KindOrderCancelled,
	OrderRefunded:  KindOrderRefunded,
	OrderFailed:    KindPaymentFailed,
}

// KindForStatus resolves an order status to the notification kind that should
// be dispatched for it. The second return value is false when the status maps
// to no notification.
func KindForStatus(status OrderStatus) (NotificationKind, bool) {
	kind, ok := statusKinds[status]
	return kind, ok
}

// DeliveryStatus is the persisted state of an email record.
//
// Legal transitions:
//
//	PENDING  -> RETRYING   (delivery attempt claimed)
//	RETRYING -> SENT       (terminal)
//	RETRYING -> FAILED     (eligible for re-claim by a later attempt or resweep)
//	FAILED   -> RETRYING   (bounded retry or resweep re-entry)
//
// SENT is never followed by any further transition.
type DeliveryStatus string

const (
	StatusPending  DeliveryStatus = "PENDING"
	StatusRetrying DeliveryStatus = "RETRYING"
	StatusSent     DeliveryStatus = "SENT"
	StatusFailed   DeliveryStatus = "FAILED"
)

// ParseDeliveryStatus converts a raw string (e.g. a URL path segment) into a
// DeliveryStatus. Returns false for unrecognized values.
func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	switch DeliveryStatus(s) {
	case StatusPending, StatusRetrying, StatusSent, StatusFailed:
		return DeliveryStatus(s), true
	}
	return "", false
}

// OrderEvent is the immutable inbound event consumed from the order-events
// queue. It is never persisted verbatim; only derived fields end up in an
// EmailRecord. Validation tags are enforced by intake.EventValidator before
// the event reaches the dispatch coordinator.
type OrderEvent struct {
	OrderID       int64       `json:"orderId" validate:"required,gt=0"`
	CustomerID    string      `json:"customerId" validate:"required,notblank"`
	CustomerEmail string      `json:"customerEmail" validate:"required,order_email"`
	CustomerName  string      `json:"customerName,omitempty"`
	OrderStatus   OrderStatus `json:"orderStatus" validate:"required"`
	TotalAmount   *float64    `json:"totalAmount,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	OrderDate     *time.Time  `json:"orderDate,omitempty"`
	ShippingAddr  *Address    `json:"shippingAddress,omitempty"`
	BillingAddr   *Address    `json:"billingAddress,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
	TrackingNum   string      `json:"trackingNumber,omitempty"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	EventType     string      `json:"eventType,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// Address is the optional structured shipping/billing address on an order event.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// OrderItem is a single line item on an order event.
type OrderItem struct {
	ProductID   string   `json:"productId,omitempty"`
	ProductName string   `json:"productName"`
	Quantity    int      `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
}

// EmailRecord is the core persistent entity: one dispatched notification
// email. At most one record exists per (OrderID, Kind) pair; the pair is the
// idempotency key and is enforced by a unique constraint in the store.
//
// Ownership: the dispatch coordinator exclusively creates records (always in
// StatusPending); the delivery executor exclusively mutates Status and SentAt.
// Records are never deleted by this service.
type EmailRecord struct {
	ID         string           `json:"id"`
	OrderID    int64            `json:"order_id"`
	CustomerID string           `json:"customer_id"`
	Recipient  string           `json:"recipient"`
	Kind       NotificationKind `json:"kind"`
	Subject    string           `json:"subject"`
	Body       string           `json:"body"`
	Status     DeliveryStatus   `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	SentAt     *time.Time       `json:"sent_at,omitempty"`
}
