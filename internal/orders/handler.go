package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/cafeorder/api/internal/auth"
	"github.com/cafeorder/api/internal/domain"
)

// Ledger is the order store the handlers work against, implemented by
// OrderRepository.
type Ledger interface {
	CreateFromCart(ctx context.Context, userID, cartID, notes string, orderType domain.OrderType, method domain.PaymentMethod) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	ledger       Ledger
	created      Publisher
	payments     Publisher
	logger       *slog.Logger
	ordersPlaced metric.Int64Counter
}

// NewHandler builds the order handlers. created and payments are the topic
// publishers for order placement and payment outcome events; either may be
// nil when the broker is not configured.
func NewHandler(ledger Ledger, created, payments Publisher, logger *slog.Logger) (*Handler, error) {
	ordersPlaced, err := otel.Meter("orders").Int64Counter("orders.placed",
		metric.WithDescription("Orders successfully placed."))
	if err != nil {
		return nil, err
	}

	return &Handler{
		ledger:       ledger,
		created:      created,
		payments:     payments,
		logger:       logger,
		ordersPlaced: ordersPlaced,
	}, nil
}

type response struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Order   *domain.Order  `json:"order,omitempty"`
	Orders  []domain.Order `json:"orders,omitempty"`
}

type createOrderRequest struct {
	CartID        string `json:"cart_id"`
	Notes         string `json:"notes"`
	Type          string `json:"type"`
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CartID == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart_id")
		return
	}

	orderType, err := domain.ParseOrderType(req.Type)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.ledger.CreateFromCart(r.Context(), claims.UserID, req.CartID, req.Notes, orderType, method)
	if err != nil {
		switch {
		case errors.Is(err, ErrCartNotFound):
			h.writeError(w, http.StatusNotFound, "cart "+req.CartID+" not found")
		case errors.Is(err, ErrCartEmpty):
			h.writeError(w, http.StatusBadRequest, "cart is empty")
		default:
			h.logger.Error("failed to create order", "error", err, "cart_id", req.CartID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.ordersPlaced.Add(r.Context(), 1)

	if h.created != nil {
		event := domain.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			TotalAmount:   order.TotalAmount,
			Type:          order.Type,
			PaymentMethod: order.PaymentMethod,
			Items:         order.Items,
			Timestamp:     order.CreatedAt,
		}
		if err := h.created.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order placed", "order_id", order.ID, "user_id", order.UserID, "total", order.TotalAmount)
	h.writeJSON(w, http.StatusCreated, response{Success: true, Message: "order placed successfully", Order: order})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
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

	h.writeJSON(w, http.StatusOK, response{Success: true, Order: order})
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.ledger.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", claims.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, response{Success: true, Orders: orders})
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, response{Success: true, Orders: orders})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.ledger.UpdateStatus(r.Context(), id, next)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update order status", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if h.payments != nil && next == domain.OrderStatusPaid {
		// Manual cash confirmation goes through here; notify like a gateway
		// success would.
		event := domain.OrderPaymentEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			Outcome:   domain.PaymentOutcomeSucceeded,
			Timestamp: time.Now().UTC(),
		}
		if err := h.payments.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish payment event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, response{Success: true, Order: order})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, response{Success: false, Message: message})
}
