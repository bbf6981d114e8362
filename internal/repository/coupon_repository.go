package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/service"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

const couponColumns = `id, code, name, description, type, value, max_discount_amount, min_order_amount,
	applicable_products, applicable_categories, applicable_users, usage_limit, used_count,
	valid_from, valid_until, is_active, created_by, last_used_at, created_at, updated_at`

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func scanCoupon(row rowScanner) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Description,
		&c.Type,
		&c.Value,
		&c.MaxDiscountAmount,
		&c.MinOrderAmount,
		&c.ApplicableProducts,
		&c.ApplicableCategories,
		&c.ApplicableUsers,
		&c.UsageLimit,
		&c.UsedCount,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.IsActive,
		&c.CreatedBy,
		&c.LastUsedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new coupon into the database.
// Returns service.ErrCouponExists if a coupon with the same code already exists.
func (r *CouponRepository) Insert(ctx context.Context, c *model.Coupon) error {
	query := `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Code, c.Name, c.Description, c.Type, c.Value, c.MaxDiscountAmount, c.MinOrderAmount,
		c.ApplicableProducts, c.ApplicableCategories, c.ApplicableUsers, c.UsageLimit, c.UsedCount,
		c.ValidFrom, c.ValidUntil, c.IsActive, c.CreatedBy, c.LastUsedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// Update writes the editable fields of a coupon. Code and used_count are never touched.
// Returns service.ErrCouponNotFound if no row matches.
func (r *CouponRepository) Update(ctx context.Context, c *model.Coupon) error {
	query := `UPDATE coupons SET
		name = $2, description = $3, type = $4, value = $5, max_discount_amount = $6,
		min_order_amount = $7, applicable_products = $8, applicable_categories = $9,
		applicable_users = $10, usage_limit = $11, valid_from = $12, valid_until = $13,
		is_active = $14, updated_at = $15
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Description, c.Type, c.Value, c.MaxDiscountAmount,
		c.MinOrderAmount, c.ApplicableProducts, c.ApplicableCategories,
		c.ApplicableUsers, c.UsageLimit, c.ValidFrom, c.ValidUntil,
		c.IsActive, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update coupon %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// Deactivate soft-disables a coupon.
// Returns service.ErrCouponNotFound if no row matches.
func (r *CouponRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE coupons SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate coupon %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// GetByID retrieves a coupon by id.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by id %s: %w", id, err)
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by its normalized code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// List returns coupons ordered by creation time, newest first.
func (r *CouponRepository) List(ctx context.Context, activeOnly bool) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE ($1 = FALSE OR is_active) ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// GetByCodeForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", code, err)
	}
	return coupon, nil
}

// IncrementUsage consumes one use of a coupon and stamps last_used_at. The increment is
// guarded by the usage limit in the same statement.
// Returns service.ErrUsageLimitReached if no use is left.
func (r *CouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE coupons
		SET used_count = used_count + 1, last_used_at = $2, updated_at = $2
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	tag, err := tx.Exec(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUsageLimitReached
	}
	return nil
}
