package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions is the closed set of legal status moves. failed → pending
// reopens an order for a cash retry after a declined card.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusFailed:    {OrderStatusPending, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(strings.ToLower(s)); status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed, OrderStatusCompleted, OrderStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// ReconcilePayment merges an asynchronous payment outcome into the current
// status. It is stable under repeated application, so at-least-once webhook
// delivery cannot corrupt an order: replaying an event yields the same status,
// and outcomes never touch a completed or cancelled order. The returned bool
// reports whether the row needs a write; a repeated failure still writes so
// the latest provider message lands in failure_reason.
func ReconcilePayment(current OrderStatus, outcome PaymentOutcome) (OrderStatus, bool) {
	switch outcome {
	case PaymentOutcomeSucceeded:
		switch current {
		case OrderStatusPending, OrderStatusFailed:
			return OrderStatusPaid, true
		}
	case PaymentOutcomeFailed:
		switch current {
		case OrderStatusPending, OrderStatusFailed:
			return OrderStatusFailed, true
		}
	}
	return current, false
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeAway OrderType = "take_away"
)

func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(strings.ToLower(s)); t {
	case OrderTypeDineIn, OrderTypeTakeAway:
		return t, nil
	case "":
		return OrderTypeDineIn, nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(s)); m {
	case PaymentMethodCash, PaymentMethodCreditCard:
		return m, nil
	case "":
		return PaymentMethodCash, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// OrderLine is a write-once snapshot of a cart line. Name and unit price are
// captured from the catalog at placement time so later catalog edits never
// change what a historical order shows or charged.
type OrderLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	Type          OrderType       `json:"type"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderLine     `json:"items"`
}

// Payable reports whether a payment intent may be created for the order.
func (o *Order) Payable() bool {
	return o.Status == OrderStatusPending && o.TotalAmount.IsPositive()
}
