package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cafeorder/api/internal/auth"
	"github.com/cafeorder/api/internal/domain"
)

// Ledger is the slice of the order store the payment surface needs,
// implemented by orders.OrderRepository.
type Ledger interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ApplyPaymentOutcome(ctx context.Context, id string, outcome domain.PaymentOutcome, reason string) (*domain.Order, error)
}

type Handler struct {
	ledger  Ledger
	gateway Gateway
	logger  *slog.Logger
}

func NewHandler(ledger Ledger, gateway Gateway, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, gateway: gateway, logger: logger}
}

type createIntentRequest struct {
	OrderID string `json:"order_id"`
}

// HandleCreateIntent starts the card flow for an order that is already
// durably pending. The order must belong to the caller, be pending, and have
// a positive amount before the gateway is involved.
func (h *Handler) HandleCreateIntent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order_id")
		return
	}

	order, err := h.ledger.GetByID(r.Context(), req.OrderID)
	if err != nil {
		h.logger.Error("failed to load order", "error", err, "order_id", req.OrderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if claims.Role != auth.RoleAdmin && order.UserID != claims.UserID {
		h.writeError(w, http.StatusForbidden, "not your order")
		return
	}
	if !order.Payable() {
		h.writeError(w, http.StatusBadRequest, "order is not payable")
		return
	}

	intent, err := h.gateway.CreateIntent(r.Context(), order)
	if err != nil {
		h.logger.Error("failed to create payment intent", "error", err, "order_id", order.ID)
		h.writeError(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}

	h.logger.Info("payment intent created", "order_id", order.ID, "payment_intent_id", intent.ID)
	h.writeJSON(w, http.StatusOK, intent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
