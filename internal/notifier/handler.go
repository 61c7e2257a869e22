// Package notifier turns order lifecycle events into customer notifications.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cafeorder/api/internal/domain"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// HTTPEmailSender delivers through the deployment's mail relay, a small HTTP
// service with a single /send endpoint.
type HTTPEmailSender struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEmailSender(baseURL string, client *http.Client) *HTTPEmailSender {
	return &HTTPEmailSender{baseURL: baseURL, client: client}
}

func (s *HTTPEmailSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

type Handler struct {
	email  EmailSender
	logger *slog.Logger
}

func NewHandler(email EmailSender, logger *slog.Logger) *Handler {
	return &Handler{email: email, logger: logger}
}

// HandleOrderCreated sends the order receipt. Payloads that do not parse are
// logged and dropped so the consumer does not spin on a poison message.
func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping unparseable order created event", "error", err)
		return nil
	}

	body := fmt.Sprintf("Thanks for your order! %d item(s), total %s, paying by %s.",
		len(event.Items), event.TotalAmount, event.PaymentMethod)

	if err := h.email.Send(ctx, event.UserID, "Order received: "+event.OrderID, body); err != nil {
		h.logger.Error("failed to send order receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send order receipt: %w", err)
	}

	h.logger.Info("order receipt sent", "order_id", event.OrderID, "user_id", event.UserID)
	return nil
}

// HandleOrderPayment notifies the customer of the payment outcome.
func (h *Handler) HandleOrderPayment(ctx context.Context, payload []byte) error {
	var event domain.OrderPaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping unparseable order payment event", "error", err)
		return nil
	}

	var subject, body string
	switch event.Outcome {
	case domain.PaymentOutcomeSucceeded:
		subject = "Payment received: " + event.OrderID
		body = fmt.Sprintf("Payment for order %s has been received. We're on it!", event.OrderID)
	case domain.PaymentOutcomeFailed:
		subject = "Payment failed: " + event.OrderID
		body = fmt.Sprintf("Payment for order %s failed (%s). You can retry with another card or pay at the counter.",
			event.OrderID, event.FailureReason)
	default:
		h.logger.Warn("ignoring payment event with unknown outcome", "outcome", event.Outcome, "order_id", event.OrderID)
		return nil
	}

	if err := h.email.Send(ctx, event.UserID, subject, body); err != nil {
		h.logger.Error("failed to send payment notice", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send payment notice: %w", err)
	}

	h.logger.Info("payment notice sent", "order_id", event.OrderID, "outcome", event.Outcome)
	return nil
}
