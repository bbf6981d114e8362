package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context, activeOnly bool) ([]model.Coupon, error)
	GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID, usedAt time.Time) error
}

// UsageRepositoryInterface defines the interface for coupon usage ledger access.
type UsageRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error
	ExistsForUser(ctx context.Context, q database.TxQuerier, couponID uuid.UUID, userID string) (bool, error)
	ListByCoupon(ctx context.Context, couponID uuid.UUID, limit int) ([]model.CouponUsage, error)
	Stats(ctx context.Context, couponID uuid.UUID) (*model.CouponUsageStats, error)
}

// ProductRepositoryInterface defines the interface for product data access.
type ProductRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, activeOnly bool) ([]model.Product, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Product, error)
	UpdateStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, stock int) error
}

// InventoryRepositoryInterface defines the interface for inventory ledger access.
type InventoryRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, movement *model.InventoryMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
	ListRecent(ctx context.Context, limit int) ([]model.InventoryMovement, error)
	StatsByAction(ctx context.Context, from, to time.Time) ([]model.MovementStat, error)
	ListStockDrift(ctx context.Context) ([]model.StockDrift, error)
}

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Order, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error
	AttachCoupon(ctx context.Context, tx database.TxQuerier, order *model.Order) error
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// clampLimit maps a caller supplied page size onto [1, maxListLimit].
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
