package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/service"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

// UsageRepository provides data access for the coupon usage ledger using pgx.
type UsageRepository struct {
	pool PoolInterface
}

// NewUsageRepository creates a new UsageRepository with the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// NewUsageRepositoryWithPool creates a new UsageRepository with a custom pool interface.
// This is primarily used for testing.
func NewUsageRepositoryWithPool(pool PoolInterface) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Insert appends a usage record within a transaction.
// Returns service.ErrDuplicateUsage if the coupon was already applied to the order.
func (r *UsageRepository) Insert(ctx context.Context, tx database.TxQuerier, u *model.CouponUsage) error {
	query := `INSERT INTO coupon_usages
		(id, coupon_id, user_id, order_id, discount_amount, order_subtotal, order_total, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		u.ID, u.CouponID, u.UserID, u.OrderID, u.DiscountAmount, u.OrderSubtotal, u.OrderTotal, u.UsedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrDuplicateUsage
		}
		return fmt.Errorf("insert coupon usage: %w", err)
	}
	return nil
}

// ExistsForUser reports whether userID has used the coupon on any order.
func (r *UsageRepository) ExistsForUser(ctx context.Context, q database.TxQuerier, couponID uuid.UUID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2)`

	var exists bool
	if err := q.QueryRow(ctx, query, couponID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check usage for coupon %s: %w", couponID, err)
	}
	return exists, nil
}

// ListByCoupon returns the newest usages of a coupon.
// On success, returns an empty slice (not nil) when there are none.
func (r *UsageRepository) ListByCoupon(ctx context.Context, couponID uuid.UUID, limit int) ([]model.CouponUsage, error) {
	query := `SELECT id, coupon_id, user_id, order_id, discount_amount, order_subtotal, order_total, used_at
		FROM coupon_usages WHERE coupon_id = $1 ORDER BY used_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, couponID, limit)
	if err != nil {
		return nil, fmt.Errorf("list usages for coupon %s: %w", couponID, err)
	}
	defer rows.Close()

	usages := []model.CouponUsage{}
	for rows.Next() {
		var u model.CouponUsage
		if err := rows.Scan(&u.ID, &u.CouponID, &u.UserID, &u.OrderID,
			&u.DiscountAmount, &u.OrderSubtotal, &u.OrderTotal, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("scan coupon usage: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage rows: %w", err)
	}
	return usages, nil
}

// Stats aggregates the usage ledger of a coupon.
func (r *UsageRepository) Stats(ctx context.Context, couponID uuid.UUID) (*model.CouponUsageStats, error) {
	query := `SELECT COUNT(*), COUNT(DISTINCT user_id), COALESCE(SUM(discount_amount), 0), MAX(used_at)
		FROM coupon_usages WHERE coupon_id = $1`

	var s model.CouponUsageStats
	err := r.pool.QueryRow(ctx, query, couponID).Scan(&s.UsageCount, &s.UniqueUsers, &s.TotalDiscount, &s.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("usage stats for coupon %s: %w", couponID, err)
	}
	return &s, nil
}
