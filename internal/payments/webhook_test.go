package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cafeorder/api/internal/domain"
)

const testWebhookSecret = "whsec_test"

type fakeLedger struct {
	orders     map[string]*domain.Order
	applyCalls int
}

func newFakeLedger(orders ...*domain.Order) *fakeLedger {
	f := &fakeLedger{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeLedger) GetByID(_ context.Context, id string) (*domain.Order, error) {
	return f.orders[id], nil
}

func (f *fakeLedger) ApplyPaymentOutcome(_ context.Context, id string, outcome domain.PaymentOutcome, reason string) (*domain.Order, error) {
	f.applyCalls++
	order, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	next, changed := domain.ReconcilePayment(order.Status, outcome)
	if changed {
		order.Status = next
		if outcome == domain.PaymentOutcomeFailed {
			order.FailureReason = reason
		} else {
			order.FailureReason = ""
		}
	}
	return order, nil
}

func pendingOrder(id string) *domain.Order {
	return &domain.Order{
		ID:          id,
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString("13.50"),
		Status:      domain.OrderStatusPending,
	}
}

// signature computes the gateway's t=...,v1=... header over the payload.
func signature(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postEvent(t *testing.T, handler *WebhookHandler, payload, sigHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", sigHeader)
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)
	return rec
}

func newTestWebhookHandler(ledger Ledger) *WebhookHandler {
	return NewWebhookHandler(ledger, testWebhookSecret, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func succeededPayload(orderID string) string {
	return fmt.Sprintf(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"order_id":"%s"}}}}`, orderID)
}

func failedPayload(orderID, message string) string {
	return fmt.Sprintf(`{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","metadata":{"order_id":"%s"},"last_payment_error":{"message":"%s"}}}}`, orderID, message)
}

func TestHandleEvent(t *testing.T) {
	t.Run("rejects a bad signature without touching any order", func(t *testing.T) {
		ledger := newFakeLedger(pendingOrder("order-1"))
		handler := newTestWebhookHandler(ledger)

		payload := succeededPayload("order-1")
		rec := postEvent(t, handler, payload, signature([]byte(payload), "whsec_wrong"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if ledger.applyCalls != 0 {
			t.Errorf("expected no ledger writes, got %d", ledger.applyCalls)
		}
		if ledger.orders["order-1"].Status != domain.OrderStatusPending {
			t.Errorf("order status mutated to %s", ledger.orders["order-1"].Status)
		}
	})

	t.Run("marks the order paid on a succeeded event", func(t *testing.T) {
		ledger := newFakeLedger(pendingOrder("order-1"))
		handler := newTestWebhookHandler(ledger)

		payload := succeededPayload("order-1")
		rec := postEvent(t, handler, payload, signature([]byte(payload), testWebhookSecret))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ledger.orders["order-1"].Status != domain.OrderStatusPaid {
			t.Errorf("expected status paid, got %s", ledger.orders["order-1"].Status)
		}
	})

	t.Run("duplicate succeeded events are no-ops", func(t *testing.T) {
		ledger := newFakeLedger(pendingOrder("order-1"))
		handler := newTestWebhookHandler(ledger)

		payload := succeededPayload("order-1")
		for i := 0; i < 2; i++ {
			rec := postEvent(t, handler, payload, signature([]byte(payload), testWebhookSecret))
			if rec.Code != http.StatusOK {
				t.Fatalf("delivery %d: expected 200, got %d", i+1, rec.Code)
			}
		}

		if ledger.orders["order-1"].Status != domain.OrderStatusPaid {
			t.Errorf("expected status paid, got %s", ledger.orders["order-1"].Status)
		}
	})

	t.Run("records the failure reason on a failed event", func(t *testing.T) {
		ledger := newFakeLedger(pendingOrder("order-1"))
		handler := newTestWebhookHandler(ledger)

		payload := failedPayload("order-1", "card_declined")
		rec := postEvent(t, handler, payload, signature([]byte(payload), testWebhookSecret))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		order := ledger.orders["order-1"]
		if order.Status != domain.OrderStatusFailed {
			t.Errorf("expected status failed, got %s", order.Status)
		}
		if order.FailureReason != "card_declined" {
			t.Errorf("expected failure reason card_declined, got %q", order.FailureReason)
		}
	})

	t.Run("success after failure clears the failure reason", func(t *testing.T) {
		ledger := newFakeLedger(pendingOrder("order-1"))
		handler := newTestWebhookHandler(ledger)

		failed := failedPayload("order-1", "card_declined")
		postEvent(t, handler, failed, signature([]byte(failed), testWebhookSecret))

		succeeded := succeededPayload("order-1")
		rec := postEvent(t, handler, succeeded, signature([]byte(succeeded), testWebhookSecret))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		order := ledger.orders["order-1"]
		if order.Status != domain.OrderStatusPaid {
			t.Errorf("expected status paid, got %s", order.Status)
		}
		if order.FailureReason != "" {
			t.Errorf("expected failure reason cleared, got %q", order.FailureReason)
		}
	})

	t.Run("acknowledges an event for an unknown order", func(t *testing.T) {
		ledger := newFakeLedger()
		handler := newTestWebhookHandler(ledger)

		payload := succeededPayload("ghost")
		rec := postEvent(t, handler, payload, signature([]byte(payload), testWebhookSecret))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 so the gateway stops retrying, got %d", rec.Code)
		}
	})

	t.Run("ignores unrelated event types", func(t *testing.T) {
		ledger := newFakeLedger(pendingOrder("order-1"))
		handler := newTestWebhookHandler(ledger)

		payload := `{"id":"evt_3","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`
		rec := postEvent(t, handler, payload, signature([]byte(payload), testWebhookSecret))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if ledger.applyCalls != 0 {
			t.Errorf("expected no ledger writes, got %d", ledger.applyCalls)
		}
	})
}
