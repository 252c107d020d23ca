package http

import (
	"log/slog"
	"net/http"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/service"
	"github.com/RobertEarleCodes/Scrittle/pkg/httputil"
)

// OrderHandler handles HTTP requests for the order ledger.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request/Response DTOs ---

// SaveOrderRequest is the JSON body for POST /api/save-order.
type SaveOrderRequest struct {
	SessionID        string `json:"sessionId" validate:"required"`
	CustomerEmail    string `json:"customerEmail" validate:"omitempty,email"`
	ShippingPostcode string `json:"shippingPostcode"`
	ShippingMethod   string `json:"shippingMethod"`
	Amount           int64  `json:"amount" validate:"gte=0"`
}

// UpdateOrderStatusRequest is the JSON body for POST /api/update-order-status.
type UpdateOrderStatusRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// SaveOrderResponse acknowledges a recorded order.
type SaveOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

// ListOrdersResponse lists the ledger in insertion order.
type ListOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// UpdateOrderStatusResponse returns the updated order.
type UpdateOrderStatusResponse struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
}

// --- Handlers ---

// SaveOrder handles POST /api/save-order.
func (h *OrderHandler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	var req SaveOrderRequest
	if err := decodeRequest(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.SaveOrder(r.Context(), &service.SaveOrderInput{
		SessionID:        req.SessionID,
		CustomerEmail:    req.CustomerEmail,
		ShippingPostcode: req.ShippingPostcode,
		ShippingMethod:   req.ShippingMethod,
		Amount:           req.Amount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SaveOrderResponse{Success: true, OrderID: order.ID})
}

// ListOrders handles GET /api/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListOrdersResponse{Orders: orders})
}

// UpdateOrderStatus handles POST /api/update-order-status.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := decodeRequest(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), req.OrderID, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, UpdateOrderStatusResponse{Success: true, Order: order})
}
