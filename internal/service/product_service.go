package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

// ProductService manages the catalog. Stock changes are delegated to InventoryService.
type ProductService struct {
	db          database.DB
	productRepo ProductRepositoryInterface
	inventory   *InventoryService
	now         func() time.Time
}

// NewProductService creates a new ProductService.
func NewProductService(db database.DB, productRepo ProductRepositoryInterface, inventory *InventoryService) *ProductService {
	return &ProductService{
		db:          db,
		productRepo: productRepo,
		inventory:   inventory,
		now:         time.Now,
	}
}

// Create inserts a product with zero stock and books the initial stock as a restock
// movement, so the ledger accounts for every unit.
func (s *ProductService) Create(ctx context.Context, req *model.CreateProductRequest, actor string) (*model.Product, error) {
	if req == nil || req.Stock < 0 {
		return nil, ErrInvalidRequest
	}

	now := s.now().UTC()
	product := &model.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       model.RoundMoney(req.Price),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.productRepo.Insert(ctx, tx, product); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if req.Stock == 0 {
			return nil
		}
		_, err := s.inventory.apply(ctx, tx, product, movement{
			action:   model.ActionRestock,
			quantity: req.Stock,
			userID:   actor,
			reason:   model.ReasonInitialStock,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// Get returns a product by id.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// List returns all products, or only active ones.
func (s *ProductService) List(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Update applies a catalog edit. Stock is not editable here.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	product.ApplyUpdate(req)
	product.UpdatedAt = s.now().UTC()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// SetStock corrects a product's stock to an absolute level through the ledger.
func (s *ProductService) SetStock(ctx context.Context, id uuid.UUID, req *model.SetStockRequest, actor string) (*model.MovementResult, error) {
	if req == nil || req.Stock == nil {
		return nil, ErrInvalidRequest
	}
	return s.inventory.SetAbsoluteStock(ctx, id, *req.Stock, actor, req.Reason)
}
