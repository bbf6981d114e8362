package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/service"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

const orderColumns = `id, user_id, status, items, subtotal, discount_amount, shipping_cost, total,
	coupon_code, coupon_name, coupon_discount, created_at, updated_at`

// OrderRepository provides data access for orders using pgx. Items are stored as JSONB.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom pool interface.
// This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o              model.Order
		couponCode     *string
		couponName     *string
		couponDiscount *decimal.Decimal
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Items, &o.Subtotal, &o.DiscountAmount,
		&o.ShippingCost, &o.Total, &couponCode, &couponName, &couponDiscount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if couponCode != nil {
		o.Coupon = &model.OrderCoupon{Code: *couponCode}
		if couponName != nil {
			o.Coupon.Name = *couponName
		}
		if couponDiscount != nil {
			o.Coupon.Amount = *couponDiscount
		}
	}
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	return &o, nil
}

// Insert inserts a new order within a transaction.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, o *model.Order) error {
	var (
		couponCode     *string
		couponName     *string
		couponDiscount *decimal.Decimal
	)
	if o.Coupon != nil {
		couponCode = &o.Coupon.Code
		couponName = &o.Coupon.Name
		couponDiscount = &o.Coupon.Amount
	}

	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		o.ID, o.UserID, o.Status, o.Items, o.Subtotal, o.DiscountAmount, o.ShippingCost, o.Total,
		couponCode, couponName, couponDiscount, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by id.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

// GetForUpdate retrieves an order with a row lock (SELECT FOR UPDATE).
// Returns service.ErrOrderNotFound if the order doesn't exist.
func (r *OrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order for update %s: %w", id, err)
	}
	return order, nil
}

// UpdateStatus sets the status of an order locked by tx.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error {
	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOrderNotFound
	}
	return nil
}

// AttachCoupon writes the coupon snapshot, discount and total of an order locked by tx.
func (r *OrderRepository) AttachCoupon(ctx context.Context, tx database.TxQuerier, o *model.Order) error {
	if o.Coupon == nil {
		return fmt.Errorf("attach coupon to order %s: no coupon", o.ID)
	}

	query := `UPDATE orders
		SET coupon_code = $2, coupon_name = $3, coupon_discount = $4,
			discount_amount = $5, total = $6, updated_at = NOW()
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		o.ID, o.Coupon.Code, o.Coupon.Name, o.Coupon.Amount, o.DiscountAmount, o.Total)
	if err != nil {
		return fmt.Errorf("attach coupon to order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOrderNotFound
	}
	return nil
}
