package payments

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/cafeorder/api/internal/domain"
)

// maxEventBytes bounds the webhook body; Stripe events are small.
const maxEventBytes = 64 * 1024

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// WebhookHandler consumes signed gateway callbacks and reconciles payment
// outcomes into the ledger. It is the sole writer of failure_reason.
type WebhookHandler struct {
	ledger    Ledger
	secret    string
	publisher Publisher
	logger    *slog.Logger
}

func NewWebhookHandler(ledger Ledger, secret string, publisher Publisher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{ledger: ledger, secret: secret, publisher: publisher, logger: logger}
}

// HandleEvent verifies the callback signature before trusting anything in the
// body. Events that verify but cannot be correlated to a known order are
// acknowledged with 200 and dropped, because a non-2xx answer would make the
// gateway retry an unrecoverable mismatch forever.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err, "remote_addr", r.RemoteAddr)
		h.writeError(w, http.StatusBadRequest, "signature verification failed")
		return
	}

	var outcome domain.PaymentOutcome
	switch event.Type {
	case "payment_intent.succeeded":
		outcome = domain.PaymentOutcomeSucceeded
	case "payment_intent.payment_failed":
		outcome = domain.PaymentOutcomeFailed
	default:
		h.logger.Info("ignoring webhook event", "type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		h.logger.Error("failed to parse payment intent from event", "error", err, "event_id", event.ID)
		h.writeError(w, http.StatusBadRequest, "malformed event payload")
		return
	}

	orderID := intent.Metadata["order_id"]
	if orderID == "" {
		h.logger.Warn("payment intent carries no order id", "payment_intent_id", intent.ID, "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	var reason string
	if outcome == domain.PaymentOutcomeFailed && intent.LastPaymentError != nil {
		reason = intent.LastPaymentError.Msg
	}

	order, err := h.ledger.ApplyPaymentOutcome(r.Context(), orderID, outcome, reason)
	if err != nil {
		h.logger.Error("failed to reconcile payment outcome", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.logger.Warn("payment event for unknown order", "order_id", orderID, "payment_intent_id", intent.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.publisher != nil {
		paymentEvent := domain.OrderPaymentEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Outcome:       outcome,
			FailureReason: order.FailureReason,
			Timestamp:     time.Now().UTC(),
		}
		if err := h.publisher.Publish(r.Context(), order.ID, paymentEvent); err != nil {
			h.logger.Error("failed to publish payment event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("payment outcome reconciled", "order_id", order.ID, "outcome", outcome, "status", order.Status)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
