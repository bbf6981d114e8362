package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

const movementColumns = `id, product_id, user_id, order_id, action, quantity, previous_stock, new_stock, reason, notes, created_at`

// InventoryRepository provides data access for the inventory ledger using pgx.
type InventoryRepository struct {
	pool PoolInterface
}

// NewInventoryRepository creates a new InventoryRepository with the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// NewInventoryRepositoryWithPool creates a new InventoryRepository with a custom pool interface.
// This is primarily used for testing.
func NewInventoryRepositoryWithPool(pool PoolInterface) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Insert appends a movement within a transaction. Ledger rows are never updated.
func (r *InventoryRepository) Insert(ctx context.Context, tx database.TxQuerier, m *model.InventoryMovement) error {
	query := `INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		m.ID, m.ProductID, m.UserID, m.OrderID, m.Action, m.Quantity,
		m.PreviousStock, m.NewStock, m.Reason, m.Notes, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inventory movement: %w", err)
	}
	return nil
}

// ListByProduct returns the newest movements of one product.
func (r *InventoryRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM inventory_movements
		WHERE product_id = $1 ORDER BY created_at DESC, id LIMIT $2`
	return r.list(ctx, query, productID, limit)
}

// ListRecent returns the newest movements across all products.
func (r *InventoryRepository) ListRecent(ctx context.Context, limit int) ([]model.InventoryMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM inventory_movements ORDER BY created_at DESC, id LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *InventoryRepository) list(ctx context.Context, query string, args ...any) ([]model.InventoryMovement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory movements: %w", err)
	}
	defer rows.Close()

	movements := []model.InventoryMovement{}
	for rows.Next() {
		var m model.InventoryMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.UserID, &m.OrderID, &m.Action, &m.Quantity,
			&m.PreviousStock, &m.NewStock, &m.Reason, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}
	return movements, nil
}

// StatsByAction counts movements and sums quantities per action within [from, to].
func (r *InventoryRepository) StatsByAction(ctx context.Context, from, to time.Time) ([]model.MovementStat, error) {
	query := `SELECT action, COUNT(*), COALESCE(SUM(quantity), 0)
		FROM inventory_movements
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY action ORDER BY action`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("inventory stats: %w", err)
	}
	defer rows.Close()

	stats := []model.MovementStat{}
	for rows.Next() {
		var s model.MovementStat
		if err := rows.Scan(&s.Action, &s.Count, &s.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan inventory stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory stats: %w", err)
	}
	return stats, nil
}

// ListStockDrift returns products whose stock differs from the new_stock of their
// newest movement, including products with stock but no movement at all.
func (r *InventoryRepository) ListStockDrift(ctx context.Context) ([]model.StockDrift, error) {
	query := `SELECT p.id, p.name, p.stock, last.new_stock
		FROM products p
		LEFT JOIN LATERAL (
			SELECT new_stock FROM inventory_movements m
			WHERE m.product_id = p.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) last ON TRUE
		WHERE last.new_stock IS DISTINCT FROM p.stock
		  AND NOT (last.new_stock IS NULL AND p.stock = 0)
		ORDER BY p.name, p.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stock drift: %w", err)
	}
	defer rows.Close()

	drifts := []model.StockDrift{}
	for rows.Next() {
		var d model.StockDrift
		if err := rows.Scan(&d.ProductID, &d.Name, &d.Stock, &d.LedgerStock); err != nil {
			return nil, fmt.Errorf("scan stock drift: %w", err)
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock drift rows: %w", err)
	}
	return drifts, nil
}
