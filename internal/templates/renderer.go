// Package templates renders outbound notification emails. Rendering is a pure
// mapping from (notification kind, order event) to (subject, body): no state,
// no I/O, and byte-identical output for identical input. Every optional event
// field has a textual fallback, so rendering never fails for missing data.
package templates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mailcourier/internal/types"
)

// dateLayout formats order and event timestamps in body text,
// e.g. "Feb 06, 2026 at 14:30".
const dateLayout = "Jan 02, 2006 at 15:04"

// fallbackName greets customers whose events carry no name.
const fallbackName = "Valued Customer"

// Render produces the subject and plain-text body for a notification kind.
// The only error condition is an unrecognized kind; missing optional event
// fields never cause an error.
func Render(kind types.NotificationKind, event *types.OrderEvent) (subject, body string, err error) {
	subject, err = renderSubject(kind, event)
	if err != nil {
		return "", "", err
	}
	body, err = renderBody(kind, event)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// renderSubject is the exhaustive kind-to-subject mapping. Order-scoped kinds
// embed the order id; PROMOTIONAL and SYSTEM_NOTIFICATION use fixed phrases.
func renderSubject(kind types.NotificationKind, event *types.OrderEvent) (string, error) {
	switch kind {
	case types.KindOrderConfirmation:
		return fmt.Sprintf("Order Confirmation - Order #%d", event.OrderID), nil
	case types.KindOrderShipped:
		return fmt.Sprintf("Your Order Has Been Shipped - Order #%d", event.OrderID), nil
	case types.KindOrderDelivered:
		return fmt.Sprintf("Your Order Has Been Delivered - Order #%d", event.OrderID), nil
	case types.KindOrderCancelled:
		return fmt.Sprintf("Order Cancelled - Order #%d", event.OrderID), nil
	case types.KindOrderRefunded:
		return fmt.Sprintf("Refund Processed - Order #%d", event.OrderID), nil
	case types.KindPaymentFailed:
		return fmt.Sprintf("Payment Failed - Order #%d", event.OrderID), nil
	case types.KindPromotional:
		return "Special Offer Just For You!", nil
	case types.KindSystemNotification:
		return "Important Account Notification", nil
	}
	return "", types.NewAppError(types.ErrCodeInternalTemplate,
		fmt.Sprintf("no subject template for kind %q", kind), nil)
}

// renderBody is the exhaustive kind-to-body mapping.
func renderBody(kind types.NotificationKind, event *types.OrderEvent) (string, error) {
	switch kind {
	case types.KindOrderConfirmation:
		return orderConfirmationBody(event), nil
	case types.KindOrderShipped:
		return orderShippedBody(event), nil
	case types.KindOrderDelivered:
		return orderDeliveredBody(event), nil
	case types.KindOrderCancelled:
		return orderCancelledBody(event), nil
	case types.KindOrderRefunded:
		return orderRefundedBody(event), nil
	case types.KindPaymentFailed:
		return paymentFailedBody(event), nil
	case types.KindPromotional:
		return promotionalBody(event), nil
	case types.KindSystemNotification:
		return systemNotificationBody(event), nil
	}
	return "", types.NewAppError(types.ErrCodeInternalTemplate,
		fmt.Sprintf("no body template for kind %q", kind), nil)
}

func orderConfirmationBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("Thank you for your order! We're excited to confirm that we've received your order and it's being processed.\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "Order Number: %d\n", event.OrderID)
	fmt.Fprintf(&b, "Order Date: %s\n", formatDate(event.OrderDate))
	fmt.Fprintf(&b, "Total Amount: %s\n", formatCurrency(event.TotalAmount, event.Currency))
	fmt.Fprintf(&b, "Payment Method: %s\n\n", orFallback(event.PaymentMethod, "N/A"))

	if len(event.Items) > 0 {
		b.WriteString("Items Ordered:\n")
		for _, item := range event.Items {
			fmt.Fprintf(&b, "- %s (Qty: %d, Price: %s)\n",
				item.ProductName, item.Quantity, formatCurrency(item.UnitPrice, event.Currency))
		}
		b.WriteString("\n")
	}

	if event.ShippingAddr != nil {
		b.WriteString("Shipping Address:\n")
		b.WriteString(formatAddress(event.ShippingAddr))
		b.WriteString("\n\n")
	}

	b.WriteString("We'll send you another email with tracking information once your order ships.\n\n")
	b.WriteString("Thank you for choosing us!\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

func orderShippedBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("Great news! Your order has been shipped and is on its way to you.\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "Order Number: %d\n", event.OrderID)
	fmt.Fprintf(&b, "Tracking Number: %s\n", orFallback(event.TrackingNum, "Will be provided shortly"))
	b.WriteString("Estimated Delivery: 3-5 business days\n\n")

	if event.ShippingAddr != nil {
		b.WriteString("Shipping to:\n")
		b.WriteString(formatAddress(event.ShippingAddr))
		b.WriteString("\n\n")
	}

	b.WriteString("You can track your package using the tracking number provided above.\n\n")
	b.WriteString("Thank you for your business!\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

func orderDeliveredBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("Your order has been successfully delivered!\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "Order Number: %d\n", event.OrderID)
	fmt.Fprintf(&b, "Delivered on: %s\n\n", formatDate(&event.Timestamp))

	b.WriteString("We hope you're satisfied with your purchase. If you have any questions or concerns, ")
	b.WriteString("please don't hesitate to contact our customer service team.\n\n")
	b.WriteString("Thank you for choosing us and we look forward to serving you again!\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

func orderCancelledBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("We're writing to inform you that your order has been cancelled.\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "Order Number: %d\n", event.OrderID)
	fmt.Fprintf(&b, "Cancellation Date: %s\n", formatDate(&event.Timestamp))
	fmt.Fprintf(&b, "Refund Amount: %s\n\n", formatCurrency(event.TotalAmount, event.Currency))

	b.WriteString("If you paid for this order, a full refund will be processed within 3-5 business days ")
	b.WriteString("to your original payment method.\n\n")
	b.WriteString("If you have any questions about this cancellation, please contact our customer service team.\n\n")
	b.WriteString("Thank you for your understanding.\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

func orderRefundedBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("Your refund has been processed successfully.\n\n")
	b.WriteString("Refund Details:\n")
	fmt.Fprintf(&b, "Order Number: %d\n", event.OrderID)
	fmt.Fprintf(&b, "Refund Amount: %s\n", formatCurrency(event.TotalAmount, event.Currency))
	fmt.Fprintf(&b, "Processed Date: %s\n\n", formatDate(&event.Timestamp))

	b.WriteString("The refund will appear in your account within 3-5 business days, ")
	b.WriteString("depending on your bank or payment provider.\n\n")
	b.WriteString("If you have any questions about this refund, please contact our customer service team.\n\n")
	b.WriteString("Thank you for your understanding.\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

func paymentFailedBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("We encountered an issue processing your payment for the following order:\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "Order Number: %d\n", event.OrderID)
	fmt.Fprintf(&b, "Amount: %s\n", formatCurrency(event.TotalAmount, event.Currency))
	fmt.Fprintf(&b, "Payment Method: %s\n\n", orFallback(event.PaymentMethod, "N/A"))

	b.WriteString("Please update your payment information and try again. Your order will be held for 24 hours.\n\n")
	b.WriteString("If you need assistance, please contact our customer service team.\n\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

func promotionalBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("We have an exciting offer just for you!\n\n")
	b.WriteString("Don't miss out on our latest deals and promotions. ")
	b.WriteString("Visit our website to discover amazing discounts on your favorite products.\n\n")
	b.WriteString("Thank you for being a valued customer!\n")
	b.WriteString("Marketing Team")
	return b.String()
}

func systemNotificationBody(event *types.OrderEvent) string {
	var b strings.Builder
	writeGreeting(&b, event)
	b.WriteString("This is an important notification regarding your account.\n\n")
	b.WriteString("Please log in to your account to view the details.\n\n")
	b.WriteString("If you have any questions, please contact our customer service team.\n\n")
	b.WriteString("Customer Service Team")
	return b.String()
}

// writeGreeting opens the body with the customer's name, falling back to a
// generic salutation.
func writeGreeting(b *strings.Builder, event *types.OrderEvent) {
	fmt.Fprintf(b, "Dear %s,\n\n", orFallback(event.CustomerName, fallbackName))
}

// formatCurrency renders "{currency} {amount}". A nil amount renders "N/A";
// an empty currency falls back to a bare "$" prefix.
func formatCurrency(amount *float64, currency string) string {
	if amount == nil {
		return "N/A"
	}
	symbol := "$"
	if currency != "" {
		symbol = currency + " "
	}
	return symbol + strconv.FormatFloat(*amount, 'f', -1, 64)
}

// formatDate renders a timestamp in the body layout, or "N/A" when absent.
func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}

// formatAddress renders a structured address as
// "street / city, state zip / country" with missing components omitted.
func formatAddress(addr *types.Address) string {
	var b strings.Builder
	if addr.Street != "" {
		b.WriteString(addr.Street)
		b.WriteString("\n")
	}
	if addr.City != "" {
		b.WriteString(addr.City)
	}
	if addr.State != "" {
		b.WriteString(", ")
		b.WriteString(addr.State)
	}
	if addr.ZipCode != "" {
		b.WriteString(" ")
		b.WriteString(addr.ZipCode)
	}
	if addr.Country != "" {
		b.WriteString("\n")
		b.WriteString(addr.Country)
	}
	return b.String()
}

// orFallback returns s, or the fallback when s is empty.
func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
