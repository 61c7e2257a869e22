package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Type          OrderType       `json:"type"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Items         []OrderLine     `json:"items"`
	Timestamp     time.Time       `json:"timestamp"`
}

// OrderPaymentEvent is published after a gateway callback has been reconciled
// into the ledger.
type OrderPaymentEvent struct {
	OrderID       string         `json:"order_id"`
	UserID        string         `json:"user_id"`
	Outcome       PaymentOutcome `json:"outcome"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}
