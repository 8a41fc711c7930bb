package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sc2371/afterschool-booking/internal/models"
	"github.com/sc2371/afterschool-booking/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	reservations *service.ReservationService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(reservations *service.ReservationService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		reservations: reservations,
		log:          log,
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest

	// Reject unknown fields instead of persisting arbitrary shapes.
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.log.Warn("failed to decode order request", "error", err)
		WriteError(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"}, h.log)
		return
	}

	order, err := h.reservations.PlaceOrder(r.Context(), req)
	if err != nil {
		h.log.Warn("order rejected", "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, order, h.log)
	h.log.Info("order placed", "order_id", order.ID, "lessons", len(order.Items), "quantity", req.Quantity)
}

// GetOrder handles GET /api/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid order ID"}, h.log)
		return
	}

	order, err := h.reservations.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}
