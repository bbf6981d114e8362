package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/service"
)

func setupProductApp(svc *mockProductService) *fiber.App {
	app := fiber.New()
	h := NewProductHandler(svc, svc, testValidator)
	app.Post("/api/products", h.CreateProduct)
	app.Get("/api/products", h.ListProducts)
	app.Get("/api/products/:id", h.GetProduct)
	app.Put("/api/products/:id", h.UpdateProduct)
	app.Put("/api/products/:id/stock", h.SetStock)
	app.Get("/api/products/:id/stock-check", h.StockCheck)
	return app
}

func TestCreateProduct_Success(t *testing.T) {
	var got *model.CreateProductRequest
	var gotActor string
	svc := &mockProductService{
		createFn: func(ctx context.Context, req *model.CreateProductRequest, actor string) (*model.Product, error) {
			got, gotActor = req, actor
			return &model.Product{ID: uuid.New(), Name: req.Name, Price: req.Price, Stock: req.Stock}, nil
		},
	}

	resp := doRequest(t, setupProductApp(svc), http.MethodPost, "/api/products",
		`{"name":"Lamp","category":"home","price":"19.99","stock":4}`, "admin_1")

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "admin_1", gotActor)
	assert.Equal(t, 4, got.Stock)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "19.99", data["price"])
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing_name", `{"price":1}`, "invalid request: name is required"},
		{"negative_price", `{"name":"Lamp","price":-1}`, "invalid request: price must be at least 0"},
		{"negative_stock", `{"name":"Lamp","price":1,"stock":-2}`, "invalid request: stock must be at least 0"},
		{"stock_above_int32", `{"name":"Lamp","price":1,"stock":2147483648}`, "invalid request: stock must be at most 2147483647"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, setupProductApp(&mockProductService{}), http.MethodPost, "/api/products", tc.body, "")

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.wantMsg, decodeBody(t, resp)["error"])
		})
	}
}

func TestListProducts(t *testing.T) {
	var gotActive bool
	svc := &mockProductService{
		listFn: func(ctx context.Context, activeOnly bool) ([]model.Product, error) {
			gotActive = activeOnly
			return []model.Product{{Name: "Lamp"}}, nil
		},
	}

	resp := doRequest(t, setupProductApp(svc), http.MethodGet, "/api/products?active=true", "", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, gotActive)
}

func TestGetProduct(t *testing.T) {
	testCases := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"found", "/api/products/" + uuid.NewString(), nil, fiber.StatusOK},
		{"not_found", "/api/products/" + uuid.NewString(), service.ErrProductNotFound, fiber.StatusNotFound},
		{"bad_id", "/api/products/abc", nil, fiber.StatusBadRequest},
		{"database_down", "/api/products/" + uuid.NewString(), errors.New("timeout"), fiber.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockProductService{
				getFn: func(ctx context.Context, id uuid.UUID) (*model.Product, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return &model.Product{ID: id}, nil
				},
			}

			resp := doRequest(t, setupProductApp(svc), http.MethodGet, tc.path, "", "")

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	id := uuid.New()
	var got *model.UpdateProductRequest
	svc := &mockProductService{
		updateFn: func(ctx context.Context, gotID uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error) {
			got = req
			return &model.Product{ID: gotID}, nil
		},
	}

	resp := doRequest(t, setupProductApp(svc), http.MethodPut, "/api/products/"+id.String(), `{"price":"5.00","is_active":false}`, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, got.Price)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, got.IsActive)
	assert.False(t, *got.IsActive)
	assert.Nil(t, got.Name)
}

func TestSetStock(t *testing.T) {
	id := uuid.New()
	var gotStock int
	svc := &mockProductService{
		setStockFn: func(ctx context.Context, gotID uuid.UUID, req *model.SetStockRequest, actor string) (*model.MovementResult, error) {
			gotStock = *req.Stock
			return &model.MovementResult{
				Success: true,
				Product: &model.ProductStockChange{ID: gotID, PreviousStock: 10, NewStock: *req.Stock},
			}, nil
		},
	}

	resp := doRequest(t, setupProductApp(svc), http.MethodPut, "/api/products/"+id.String()+"/stock", `{"stock":3,"reason":"Conteo"}`, "admin_1")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, gotStock)
	data := decodeBody(t, resp)["data"].(map[string]any)
	product := data["product"].(map[string]any)
	assert.Equal(t, float64(10), product["previous_stock"])
}

func TestSetStock_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		result     *model.MovementResult
		wantStatus int
	}{
		{"missing_stock", `{"reason":"x"}`, nil, fiber.StatusBadRequest},
		{"negative_stock", `{"stock":-1}`, nil, fiber.StatusBadRequest},
		{"stock_above_int32", `{"stock":2147483648}`, nil, fiber.StatusBadRequest},
		{"unknown_product", `{"stock":1}`, &model.MovementResult{Error: model.ReasonProductNotFound}, fiber.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockProductService{
				setStockFn: func(ctx context.Context, id uuid.UUID, req *model.SetStockRequest, actor string) (*model.MovementResult, error) {
					return tc.result, nil
				},
			}

			resp := doRequest(t, setupProductApp(svc), http.MethodPut, "/api/products/"+uuid.NewString()+"/stock", tc.body, "")

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestStockCheck(t *testing.T) {
	id := uuid.New()
	testCases := []struct {
		name          string
		query         string
		wantStatus    int
		wantRequested int
	}{
		{"explicit_quantity", "?quantity=15", fiber.StatusOK, 15},
		{"defaults_to_one", "", fiber.StatusOK, 1},
		{"not_a_number", "?quantity=many", fiber.StatusBadRequest, 0},
		{"negative", "?quantity=-3", fiber.StatusBadRequest, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var gotRequested int
			svc := &mockProductService{
				checkFn: func(ctx context.Context, productID uuid.UUID, requested int) (*model.StockCheck, error) {
					gotRequested = requested
					return model.NewStockCheck(productID, 10, requested), nil
				},
			}

			resp := doRequest(t, setupProductApp(svc), http.MethodGet, "/api/products/"+id.String()+"/stock-check"+tc.query, "", "")

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantRequested, gotRequested)
		})
	}
}

func TestStockCheck_ReportsShortage(t *testing.T) {
	resp := doRequest(t, setupProductApp(&mockProductService{}), http.MethodGet, "/api/products/"+uuid.NewString()+"/stock-check?quantity=15", "", "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, false, data["available"])
	assert.Equal(t, float64(5), data["shortage"])
}
