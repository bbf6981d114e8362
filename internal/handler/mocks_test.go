package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/davidsmithrojas/storefront/internal/model"
	customvalidator "github.com/davidsmithrojas/storefront/internal/validator"
)

type mockCouponService struct {
	createFn     func(ctx context.Context, req *model.CreateCouponRequest, actor string) (*model.Coupon, error)
	updateFn     func(ctx context.Context, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error)
	deactivateFn func(ctx context.Context, id uuid.UUID) error
	getByCodeFn  func(ctx context.Context, code string) (*model.Coupon, error)
	listFn       func(ctx context.Context, activeOnly bool) ([]model.Coupon, error)
	validateFn   func(ctx context.Context, code string, snap model.OrderSnapshot, userID string) (*model.CouponResult, error)
	applyFn      func(ctx context.Context, code string, orderID uuid.UUID, userID string) (*model.CouponResult, error)
	statsFn      func(ctx context.Context, id uuid.UUID) (*model.CouponStatsResponse, error)
}

func (m *mockCouponService) Create(ctx context.Context, req *model.CreateCouponRequest, actor string) (*model.Coupon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req, actor)
	}
	return &model.Coupon{Code: model.NormalizeCode(req.Code), CreatedBy: actor}, nil
}

func (m *mockCouponService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *mockCouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return &model.Coupon{Code: code}, nil
}

func (m *mockCouponService) List(ctx context.Context, activeOnly bool) ([]model.Coupon, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) ValidateAndApply(ctx context.Context, code string, snap model.OrderSnapshot, userID string) (*model.CouponResult, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, code, snap, userID)
	}
	return &model.CouponResult{Success: true, Coupon: &model.AppliedCoupon{Code: code}}, nil
}

func (m *mockCouponService) ApplyToOrder(ctx context.Context, code string, orderID uuid.UUID, userID string) (*model.CouponResult, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, code, orderID, userID)
	}
	return &model.CouponResult{Success: true, Coupon: &model.AppliedCoupon{Code: code}}, nil
}

func (m *mockCouponService) Stats(ctx context.Context, id uuid.UUID) (*model.CouponStatsResponse, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, id)
	}
	return &model.CouponStatsResponse{}, nil
}

type mockProductService struct {
	createFn   func(ctx context.Context, req *model.CreateProductRequest, actor string) (*model.Product, error)
	getFn      func(ctx context.Context, id uuid.UUID) (*model.Product, error)
	listFn     func(ctx context.Context, activeOnly bool) ([]model.Product, error)
	updateFn   func(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error)
	setStockFn func(ctx context.Context, id uuid.UUID, req *model.SetStockRequest, actor string) (*model.MovementResult, error)
	checkFn    func(ctx context.Context, productID uuid.UUID, requested int) (*model.StockCheck, error)
}

func (m *mockProductService) Create(ctx context.Context, req *model.CreateProductRequest, actor string) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req, actor)
	}
	return &model.Product{ID: uuid.New(), Name: req.Name, Stock: req.Stock}, nil
}

func (m *mockProductService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) List(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return []model.Product{}, nil
}

func (m *mockProductService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) SetStock(ctx context.Context, id uuid.UUID, req *model.SetStockRequest, actor string) (*model.MovementResult, error) {
	if m.setStockFn != nil {
		return m.setStockFn(ctx, id, req, actor)
	}
	return &model.MovementResult{Success: true}, nil
}

func (m *mockProductService) CheckStock(ctx context.Context, productID uuid.UUID, requested int) (*model.StockCheck, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, productID, requested)
	}
	return model.NewStockCheck(productID, 10, requested), nil
}

type mockInventoryService struct {
	recordFn  func(ctx context.Context, req *model.MovementRequest) (*model.MovementResult, error)
	historyFn func(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
	recentFn  func(ctx context.Context, limit int) ([]model.InventoryMovement, error)
	statsFn   func(ctx context.Context, from, to time.Time) ([]model.MovementStat, error)
}

func (m *mockInventoryService) RecordMovement(ctx context.Context, req *model.MovementRequest) (*model.MovementResult, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, req)
	}
	return &model.MovementResult{Success: true, Product: &model.ProductStockChange{ID: req.ProductID}}, nil
}

func (m *mockInventoryService) History(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, productID, limit)
	}
	return []model.InventoryMovement{}, nil
}

func (m *mockInventoryService) Recent(ctx context.Context, limit int) ([]model.InventoryMovement, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit)
	}
	return []model.InventoryMovement{}, nil
}

func (m *mockInventoryService) Stats(ctx context.Context, from, to time.Time) ([]model.MovementStat, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, from, to)
	}
	return []model.MovementStat{}, nil
}

type mockOrderService struct {
	placeFn        func(ctx context.Context, req *model.PlaceOrderRequest) (*model.OrderResult, error)
	getFn          func(ctx context.Context, id uuid.UUID) (*model.Order, error)
	listByUserFn   func(ctx context.Context, userID string) ([]model.Order, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status model.OrderStatus, actor string) (*model.Order, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.OrderResult, error) {
	if m.placeFn != nil {
		return m.placeFn(ctx, req)
	}
	return &model.OrderResult{Success: true, Order: &model.Order{ID: uuid.New(), UserID: req.UserID}}, nil
}

func (m *mockOrderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Order{ID: id}, nil
}

func (m *mockOrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []model.Order{}, nil
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, actor string) (*model.Order, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, actor)
	}
	return &model.Order{ID: id, Status: status}, nil
}

var testValidator = customvalidator.New()

// doRequest sends a request through app. A non-empty body is sent as JSON and a
// non-empty userID as the X-User-ID header.
func doRequest(t *testing.T, app *fiber.App, method, path, body, userID string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
