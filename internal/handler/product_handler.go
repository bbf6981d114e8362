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

// ProductServiceInterface defines the catalog operations exposed over HTTP.
type ProductServiceInterface interface {
	Create(ctx context.Context, req *model.CreateProductRequest, actor string) (*model.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, activeOnly bool) ([]model.Product, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error)
	SetStock(ctx context.Context, id uuid.UUID, req *model.SetStockRequest, actor string) (*model.MovementResult, error)
}

// StockCheckerInterface answers stock availability questions.
type StockCheckerInterface interface {
	CheckStock(ctx context.Context, productID uuid.UUID, requested int) (*model.StockCheck, error)
}

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service   ProductServiceInterface
	stock     StockCheckerInterface
	validator *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc ProductServiceInterface, stock StockCheckerInterface, v *validator.Validate) *ProductHandler {
	return &ProductHandler{service: svc, stock: stock, validator: v}
}

// CreateProduct handles POST /api/products.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req model.CreateProductRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	product, err := h.service.Create(c.Context(), &req, actor(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, "invalid request")
		}
		return internalError(c, err, "failed to create product")
	}

	log.Info().Str("product_id", product.ID.String()).Int("stock", product.Stock).Msg("product created")
	return ok(c, fiber.StatusCreated, product)
}

// ListProducts handles GET /api/products?active=true.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.Context(), c.QueryBool("active", false))
	if err != nil {
		return internalError(c, err, "failed to list products")
	}
	return ok(c, fiber.StatusOK, products)
}

// GetProduct handles GET /api/products/:id.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}

	product, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, model.ReasonProductNotFound)
		}
		return internalError(c, err, "failed to get product")
	}
	return ok(c, fiber.StatusOK, product)
}

// UpdateProduct handles PUT /api/products/:id. Stock is not editable here.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}
	var req model.UpdateProductRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	product, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, model.ReasonProductNotFound)
		}
		return internalError(c, err, "failed to update product")
	}
	return ok(c, fiber.StatusOK, product)
}

// SetStock handles PUT /api/products/:id/stock, correcting stock to an absolute level.
func (h *ProductHandler) SetStock(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}
	var req model.SetStockRequest
	if valid, err := parseBody(c, h.validator, &req); !valid {
		return err
	}

	result, err := h.service.SetStock(c.Context(), id, &req, actor(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return fail(c, fiber.StatusBadRequest, "invalid request")
		}
		return internalError(c, err, "failed to set product stock")
	}
	if !result.Success {
		return rejected(c, result.Error)
	}
	return ok(c, fiber.StatusOK, result)
}

// StockCheck handles GET /api/products/:id/stock-check?quantity=N.
func (h *ProductHandler) StockCheck(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: id must be a UUID")
	}
	quantity, valid := queryInt(c, "quantity", 1)
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid request: quantity must be a non-negative integer")
	}

	check, err := h.stock.CheckStock(c.Context(), id, quantity)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, model.ReasonProductNotFound)
		}
		return internalError(c, err, "failed to check stock")
	}
	return ok(c, fiber.StatusOK, check)
}
