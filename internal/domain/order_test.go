package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusPaid, OrderStatusCompleted, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusFailed, OrderStatusPending, true},
		{OrderStatusFailed, OrderStatusCancelled, true},
		{OrderStatusFailed, OrderStatusPaid, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	t.Run("accepts symbolic names case-insensitively", func(t *testing.T) {
		status, err := ParseOrderStatus("Completed")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status != OrderStatusCompleted {
			t.Errorf("expected %s, got %s", OrderStatusCompleted, status)
		}
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		if _, err := ParseOrderStatus("shipped"); err == nil {
			t.Error("expected error for unknown status")
		}
	})

	t.Run("rejects numeric codes", func(t *testing.T) {
		if _, err := ParseOrderStatus("2"); err == nil {
			t.Error("expected error for numeric status")
		}
	})
}

func TestReconcilePayment(t *testing.T) {
	t.Run("success marks pending order paid", func(t *testing.T) {
		next, changed := ReconcilePayment(OrderStatusPending, PaymentOutcomeSucceeded)
		if next != OrderStatusPaid || !changed {
			t.Errorf("expected (paid, true), got (%s, %v)", next, changed)
		}
	})

	t.Run("success recovers a failed order", func(t *testing.T) {
		next, changed := ReconcilePayment(OrderStatusFailed, PaymentOutcomeSucceeded)
		if next != OrderStatusPaid || !changed {
			t.Errorf("expected (paid, true), got (%s, %v)", next, changed)
		}
	})

	t.Run("duplicate success is a no-op", func(t *testing.T) {
		next, changed := ReconcilePayment(OrderStatusPaid, PaymentOutcomeSucceeded)
		if next != OrderStatusPaid || changed {
			t.Errorf("expected (paid, false), got (%s, %v)", next, changed)
		}
	})

	t.Run("failure marks pending order failed", func(t *testing.T) {
		next, changed := ReconcilePayment(OrderStatusPending, PaymentOutcomeFailed)
		if next != OrderStatusFailed || !changed {
			t.Errorf("expected (failed, true), got (%s, %v)", next, changed)
		}
	})

	t.Run("outcomes never touch terminal orders", func(t *testing.T) {
		for _, terminal := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
			for _, outcome := range []PaymentOutcome{PaymentOutcomeSucceeded, PaymentOutcomeFailed} {
				next, changed := ReconcilePayment(terminal, outcome)
				if next != terminal || changed {
					t.Errorf("%s + %s: expected (%s, false), got (%s, %v)", terminal, outcome, terminal, next, changed)
				}
			}
		}
	})

	t.Run("repeated application is stable", func(t *testing.T) {
		once, _ := ReconcilePayment(OrderStatusPending, PaymentOutcomeSucceeded)
		twice, _ := ReconcilePayment(once, PaymentOutcomeSucceeded)
		if once != twice {
			t.Errorf("expected stable status, got %s then %s", once, twice)
		}
	})
}

func TestOrderLineSubtotal(t *testing.T) {
	line := OrderLine{Quantity: 3, UnitPrice: decimal.RequireFromString("4.55")}
	want := decimal.RequireFromString("13.65")
	if !line.Subtotal().Equal(want) {
		t.Errorf("expected subtotal %s, got %s", want, line.Subtotal())
	}
}

func TestParseDefaults(t *testing.T) {
	orderType, err := ParseOrderType("")
	if err != nil || orderType != OrderTypeDineIn {
		t.Errorf("expected default dine_in, got %s (%v)", orderType, err)
	}

	method, err := ParsePaymentMethod("")
	if err != nil || method != PaymentMethodCash {
		t.Errorf("expected default cash, got %s (%v)", method, err)
	}

	if _, err := ParsePaymentMethod("crypto"); err == nil {
		t.Error("expected error for unknown payment method")
	}
}
