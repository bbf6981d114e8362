package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/service"
)

const defaultStatsWindow = 30 * 24 * time.Hour

// InventoryServiceInterface defines the ledger operations exposed over HTTP.
type InventoryServiceInterface interface {
	RecordMovement(ctx context.Context, req *model.MovementRequest) (*model.MovementResult, error)
	History(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
	Recent(ctx context.Context, limit int) ([]model.InventoryMovement, error)
	Stats(ctx context.Context, from, to time.Time) ([]model.MovementStat, error)
}

// InventoryHandler handles HTTP requests for stock movements.
type InventoryHandler struct {
	service   InventoryServiceInterface
	validator *validator.Validate
	now       func() time.Time
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc InventoryServiceInterface, v *validator.Validate) *InventoryHandler {
	return &InventoryHandler{service: svc, validator: v, now: time.Now}
}

// RecordMovement handles POST /api/inventory/movements.
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	var req model.MovementRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}
	req.UserID = actor(c)

	result, err := h.service.RecordMovement(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) || errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return internalError(c, err, "failed to record movement")
	}
	if !result.Success {
		return rejected(c, result.Error)
	}

	log.Info().
		Str("product_id", req.ProductID.String()).
		Str("action", string(req.Action)).
		Int("previous_stock", result.Product.PreviousStock).
		Int("new_stock", result.Product.NewStock).
		Msg("inventory movement recorded")
	return ok(c, fiber.StatusCreated, result)
}

// RecentMovements handles GET /api/inventory/movements/recent?limit=N.
func (h *InventoryHandler) RecentMovements(c *fiber.Ctx) error {
	limit, valid := queryInt(c, "limit", 0)
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: limit must be a non-negative integer")
	}

	movements, err := h.service.Recent(c.Context(), limit)
	if err != nil {
		return internalError(c, err, "failed to list recent movements")
	}
	return ok(c, fiber.StatusOK, movements)
}

// ProductHistory handles GET /api/inventory/products/:id/history?limit=N.
func (h *InventoryHandler) ProductHistory(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}
	limit, valid := queryInt(c, "limit", 0)
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: limit must be a non-negative integer")
	}

	movements, err := h.service.History(c.Context(), id, limit)
	if err != nil {
		return internalError(c, err, "failed to get product history")
	}
	return ok(c, fiber.StatusOK, movements)
}

// MovementStats handles GET /api/inventory/stats?from=RFC3339&to=RFC3339.
// The window defaults to the last 30 days.
func (h *InventoryHandler) MovementStats(c *fiber.Ctx) error {
	to := h.now().UTC()
	from := to.Add(-defaultStatsWindow)

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid request: from must be RFC3339")
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid request: to must be RFC3339")
		}
		to = t
	}

	stats, err := h.service.Stats(c.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, "invalid request: to must not be before from")
		}
		return internalError(c, err, "failed to get movement stats")
	}
	return ok(c, fiber.StatusOK, fiber.Map{"from": from, "to": to, "actions": stats})
}
