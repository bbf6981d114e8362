package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/davidsmithrojas/storefront/internal/model"
)

// UserIDHeader carries the authenticated caller. Authentication itself happens upstream.
const UserIDHeader = "X-User-ID"

const anonymousActor = "system"

// actor returns the caller id from the request header, or "system" when absent.
func actor(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get(UserIDHeader)); id != "" {
		return id
	}
	return anonymousActor
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

// rejected writes a business rejection with the status its reason implies.
func rejected(c *fiber.Ctx, reason string) error {
	return fail(c, rejectionStatus(reason), reason)
}

func rejectionStatus(reason string) int {
	switch {
	case reason == model.ReasonCouponNotFound,
		reason == model.ReasonProductNotFound,
		reason == model.ReasonOrderNotFound:
		return fiber.StatusNotFound
	case reason == model.ReasonOrderNotOwned:
		return fiber.StatusForbidden
	case reason == model.ReasonAlreadyUsed,
		reason == model.ReasonUsageLimitReached,
		reason == model.ReasonOrderHasCoupon,
		strings.HasPrefix(reason, insufficientStockPrefix):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

var insufficientStockPrefix = strings.SplitN(model.ReasonInsufficientStockFmt, "%", 2)[0]

// internalError logs err with the request context and writes a generic 500.
func internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// formatValidationError reports the first failing field by its JSON name.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "min":
		return "invalid request: " + field + " must contain at least " + fe.Param() + " element(s)"
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "gt":
		return "invalid request: " + field + " must be greater than " + fe.Param()
	case "lte":
		return "invalid request: " + field + " must be at most " + fe.Param()
	case "oneof":
		return "invalid request: " + field + " must be one of: " + fe.Param()
	case "couponcode":
		return "invalid request: " + field + " may only contain letters, digits, dash and underscore"
	case "gtefield":
		return "invalid request: " + field + " must not be before " + fe.Param()
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// parseBody decodes and validates the request body into dst. It writes the 400
// response itself and returns false when the body is unusable.
func parseBody(c *fiber.Ctx, v *validator.Validate, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := v.Struct(dst); err != nil {
		return false, fail(c, fiber.StatusBadRequest, formatValidationError(err))
	}
	return true, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads a non-negative integer query parameter, falling back to def when absent.
func queryInt(c *fiber.Ctx, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
