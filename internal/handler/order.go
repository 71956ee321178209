package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CoordinateDTO is a lat/lng pair on the wire.
type CoordinateDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OrderItemDTO is one checkout line on the wire.
type OrderItemDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CreateOrderRequest is the HTTP request body for creating an order. It is
// the finalized checkout payload; totals arrive already validated.
type CreateOrderRequest struct {
	CustomerID      string         `json:"customer_id"`
	RiderID         string         `json:"rider_id,omitempty"`
	OrderType       string         `json:"order_type"`
	Destination     *CoordinateDTO `json:"destination,omitempty"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
	Items           []OrderItemDTO `json:"items"`
	TotalPrice      float64        `json:"total_price"`
	DeliveryFee     float64        `json:"delivery_fee"`
	DiscountAmount  float64        `json:"discount_amount"`
	VoucherID       string         `json:"voucher_id,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
}

// RejectOrderRequest is the HTTP request body for rejecting an order.
type RejectOrderRequest struct {
	RiderID string `json:"rider_id"`
	Reason  string `json:"reason"`
}

// AcceptOrderRequest is the HTTP request body for accepting an order.
type AcceptOrderRequest struct {
	RiderID string `json:"rider_id"`
}

// CancelOrderRequest is the HTTP request body for cancelling an order.
type CancelOrderRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

// OrderResponse is the HTTP representation of an order.
type OrderResponse struct {
	ID              string         `json:"id"`
	CustomerID      string         `json:"customer_id"`
	RiderID         string         `json:"rider_id,omitempty"`
	Status          string         `json:"status"`
	OrderType       string         `json:"order_type"`
	Destination     *CoordinateDTO `json:"destination,omitempty"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
	Items           []OrderItemDTO `json:"items,omitempty"`
	TotalPrice      float64        `json:"total_price"`
	DeliveryFee     float64        `json:"delivery_fee"`
	DiscountAmount  float64        `json:"discount_amount"`
	VoucherID       string         `json:"voucher_id,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CancelledBy     string         `json:"cancelled_by,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		RiderID:         o.RiderID,
		Status:          string(o.Status),
		OrderType:       string(o.OrderType),
		DeliveryAddress: o.DeliveryAddress,
		TotalPrice:      o.TotalPrice,
		DeliveryFee:     o.DeliveryFee,
		DiscountAmount:  o.DiscountAmount,
		VoucherID:       o.VoucherID,
		PaymentMethod:   string(o.PaymentMethod),
		RejectionReason: o.RejectionReason,
		CancelledBy:     o.CancelledBy,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}

	if o.Destination != nil {
		resp.Destination = &CoordinateDTO{Lat: o.Destination.Lat, Lng: o.Destination.Lng}
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return resp
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq := service.CreateOrderRequest{
		CustomerID:      req.CustomerID,
		RiderID:         req.RiderID,
		OrderType:       domain.OrderType(req.OrderType),
		DeliveryAddress: req.DeliveryAddress,
		TotalPrice:      req.TotalPrice,
		DeliveryFee:     req.DeliveryFee,
		DiscountAmount:  req.DiscountAmount,
		VoucherID:       req.VoucherID,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
	}
	if req.Destination != nil {
		svcReq.Destination = &domain.Coordinate{Lat: req.Destination.Lat, Lng: req.Destination.Lng}
	}
	for _, item := range req.Items {
		svcReq.Items = append(svcReq.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.orderService.Create(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toOrderResponse(order))
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// GetAll handles GET /v1/orders
func (h *OrderHandler) GetAll(c *gin.Context) {
	orders, err := h.orderService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}

	respondJSON(c, http.StatusOK, response)
}

// AcceptOrder handles POST /v1/orders/:id/accept
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	var req AcceptOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.Accept(c.Request.Context(), c.Param("id"), req.RiderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// RejectOrder handles POST /v1/orders/:id/reject
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	var req RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.Reject(c.Request.Context(), c.Param("id"), req.RiderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// MarkInProgress handles POST /v1/orders/:id/progress
func (h *OrderHandler) MarkInProgress(c *gin.Context) {
	order, err := h.orderService.MarkInProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// MarkDelivered handles POST /v1/orders/:id/delivered
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	order, err := h.orderService.MarkDelivered(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// CompleteOrder handles POST /v1/orders/:id/complete
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	order, err := h.orderService.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), c.Param("id"), req.CancelledBy)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}
