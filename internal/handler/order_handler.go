package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/service"
)

// OrderServiceInterface defines the order operations exposed over HTTP.
type OrderServiceInterface interface {
	PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.OrderResult, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, actor string) (*model.Order, error)
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service   OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{service: svc, validator: v}
}

// PlaceOrder handles POST /api/orders for the caller in X-User-ID.
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	var req model.PlaceOrderRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}
	req.UserID = actor(c)

	result, err := h.service.PlaceOrder(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, "invalid request")
		}
		return internalError(c, err, "failed to place order")
	}
	if !result.Success {
		log.Info().Str("user_id", req.UserID).Str("reason", result.Error).Msg("order rejected")
		return rejected(c, result.Error)
	}

	log.Info().
		Str("order_id", result.Order.ID.String()).
		Str("user_id", req.UserID).
		Str("total", result.Order.Total.StringFixed(2)).
		Msg("order placed")
	return ok(c, fiber.StatusCreated, result.Order)
}

// GetOrder handles GET /api/orders/:id.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}

	order, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return fail(c, fiber.StatusNotFound, "order not found")
		}
		return internalError(c, err, "failed to get order")
	}
	return ok(c, fiber.StatusOK, order)
}

// ListOrders handles GET /api/orders?user_id=. Without the query it lists the caller's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID := c.Query("user_id", c.Get(UserIDHeader))

	orders, err := h.service.ListByUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, "invalid request: user_id is required")
		}
		return internalError(c, err, "failed to list orders")
	}
	return ok(c, fiber.StatusOK, orders)
}

// UpdateOrderStatus handles PATCH /api/orders/:id/status.
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}
	var req model.UpdateOrderStatusRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	order, err := h.service.UpdateStatus(c.Context(), id, req.Status, actor(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return fail(c, fiber.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidTransition):
			return fail(c, fiber.StatusConflict, err.Error())
		}
		return internalError(c, err, "failed to update order status")
	}

	log.Info().Str("order_id", id.String()).Str("status", string(order.Status)).Msg("order status updated")
	return ok(c, fiber.StatusOK, order)
}
