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

// CouponServiceInterface defines the coupon operations exposed over HTTP.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest, actor string) (*model.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context, activeOnly bool) ([]model.Coupon, error)
	ValidateAndApply(ctx context.Context, code string, snap model.OrderSnapshot, userID string) (*model.CouponResult, error)
	ApplyToOrder(ctx context.Context, code string, orderID uuid.UUID, userID string) (*model.CouponResult, error)
	Stats(ctx context.Context, id uuid.UUID) (*model.CouponStatsResponse, error)
}

// CouponHandler handles HTTP requests for coupon administration and application.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// CreateCoupon handles POST /api/coupons.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	coupon, err := h.service.Create(c.Context(), &req, actor(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponExists):
			return fail(c, fiber.StatusConflict, "coupon already exists")
		case errors.Is(err, service.ErrInvalidValidityWindow),
			errors.Is(err, service.ErrPercentageOutOfRange),
			errors.Is(err, service.ErrInvalidRequest):
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return internalError(c, err, "failed to create coupon")
	}

	log.Info().Str("coupon_code", coupon.Code).Str("created_by", coupon.CreatedBy).Msg("coupon created")
	return ok(c, fiber.StatusCreated, coupon)
}

// ListCoupons handles GET /api/coupons?active=true.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.Context(), c.QueryBool("active", false))
	if err != nil {
		return internalError(c, err, "failed to list coupons")
	}
	return ok(c, fiber.StatusOK, coupons)
}

// GetCoupon handles GET /api/coupons/:code.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	coupon, err := h.service.GetByCode(c.Context(), c.Params("code"))
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return fail(c, fiber.StatusNotFound, model.ReasonCouponNotFound)
		}
		return internalError(c, err, "failed to get coupon")
	}
	return ok(c, fiber.StatusOK, coupon)
}

// UpdateCoupon handles PUT /api/coupons/:id.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}
	var req model.UpdateCouponRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	coupon, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponNotFound):
			return fail(c, fiber.StatusNotFound, model.ReasonCouponNotFound)
		case errors.Is(err, service.ErrInvalidValidityWindow),
			errors.Is(err, service.ErrPercentageOutOfRange),
			errors.Is(err, service.ErrUsageLimitBelowUsed):
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return internalError(c, err, "failed to update coupon")
	}
	return ok(c, fiber.StatusOK, coupon)
}

// DeactivateCoupon handles DELETE /api/coupons/:id. The coupon is only disabled.
func (h *CouponHandler) DeactivateCoupon(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}

	if err := h.service.Deactivate(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return fail(c, fiber.StatusNotFound, model.ReasonCouponNotFound)
		}
		return internalError(c, err, "failed to deactivate coupon")
	}
	return ok(c, fiber.StatusOK, fiber.Map{"id": id, "is_active": false})
}

// CouponStats handles GET /api/coupons/:id/stats.
func (h *CouponHandler) CouponStats(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}

	stats, err := h.service.Stats(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return fail(c, fiber.StatusNotFound, model.ReasonCouponNotFound)
		}
		return internalError(c, err, "failed to get coupon stats")
	}
	return ok(c, fiber.StatusOK, stats)
}

// ValidateCoupon handles POST /api/coupons/validate. Nothing is written.
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req model.ValidateCouponRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	result, err := h.service.ValidateAndApply(c.Context(), req.Code, req.Snapshot(), actor(c))
	if err != nil {
		return internalError(c, err, "failed to validate coupon")
	}
	if !result.Success {
		return rejected(c, result.Error)
	}
	return ok(c, fiber.StatusOK, result.Coupon)
}

// ApplyCoupon handles POST /api/coupons/apply, recording the usage against one of
// the caller's pending orders.
func (h *CouponHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req model.ApplyCouponRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	userID := actor(c)
	result, err := h.service.ApplyToOrder(c.Context(), req.Code, req.OrderID, userID)
	if err != nil {
		return internalError(c, err, "failed to apply coupon")
	}
	if !result.Success {
		log.Info().
			Str("coupon_code", req.Code).
			Str("user_id", userID).
			Str("order_id", req.OrderID.String()).
			Str("reason", result.Error).
			Msg("coupon rejected")
		return rejected(c, result.Error)
	}

	log.Info().
		Str("coupon_code", result.Coupon.Code).
		Str("user_id", userID).
		Str("order_id", req.OrderID.String()).
		Str("discount", result.Coupon.DiscountAmount.StringFixed(2)).
		Msg("coupon applied")
	return ok(c, fiber.StatusOK, fiber.Map{"coupon": result.Coupon, "usage": result.Usage})
}
