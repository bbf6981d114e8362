package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

// InventoryService records stock movements. It is the only writer of product stock.
type InventoryService struct {
	db            database.DB
	productRepo   ProductRepositoryInterface
	inventoryRepo InventoryRepositoryInterface
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(db database.DB, productRepo ProductRepositoryInterface, inventoryRepo InventoryRepositoryInterface) *InventoryService {
	return &InventoryService{
		db:            db,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
	}
}

// movement describes one stock change to apply to a locked product.
type movement struct {
	action   model.StockAction
	quantity int
	userID   string
	orderID  *uuid.UUID
	reason   string
	notes    string
	// logDelta stores |new - previous| in the ledger instead of |quantity|.
	logDelta bool
}

// RecordMovement applies a movement to a product and appends it to the ledger in one
// transaction. For adjustment the quantity is the absolute target level; for the other
// actions it is a delta. Sales clamp at zero instead of failing.
// Returns ErrInvalidAction for an unknown action; a missing product is a rejected result.
func (s *InventoryService) RecordMovement(ctx context.Context, req *model.MovementRequest) (*model.MovementResult, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if !req.Action.Valid() {
		return nil, ErrInvalidAction
	}

	return s.withLockedProduct(ctx, req.ProductID, movement{
		action:   req.Action,
		quantity: req.Quantity,
		userID:   req.UserID,
		orderID:  req.OrderID,
		reason:   req.Reason,
		notes:    req.Notes,
	})
}

// SetAbsoluteStock sets a product's stock to target through an adjustment movement.
// The ledger entry records the size of the correction.
func (s *InventoryService) SetAbsoluteStock(ctx context.Context, productID uuid.UUID, target int, userID, reason string) (*model.MovementResult, error) {
	if target < 0 {
		return &model.MovementResult{Success: false, Error: model.ErrNegativeStock.Error()}, nil
	}
	if reason == "" {
		reason = model.ReasonManualAdjustment
	}

	return s.withLockedProduct(ctx, productID, movement{
		action:   model.ActionAdjustment,
		quantity: target,
		userID:   userID,
		reason:   reason,
		logDelta: true,
	})
}

func (s *InventoryService) withLockedProduct(ctx context.Context, productID uuid.UUID, mv movement) (*model.MovementResult, error) {
	var result *model.MovementResult
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		product, err := s.productRepo.GetForUpdate(ctx, tx, productID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return reject(model.ReasonProductNotFound)
			}
			return fmt.Errorf("get product for update: %w", err)
		}

		previous := product.Stock
		record, err := s.apply(ctx, tx, product, mv)
		if err != nil {
			return err
		}

		result = &model.MovementResult{
			Success:  true,
			Movement: record,
			Product: &model.ProductStockChange{
				ID:            product.ID,
				Name:          product.Name,
				PreviousStock: previous,
				NewStock:      product.Stock,
			},
		}
		return nil
	})
	if err != nil {
		if reason, ok := rejectionReason(err); ok {
			return &model.MovementResult{Success: false, Error: reason}, nil
		}
		if errors.Is(err, ErrInvalidAction) {
			return nil, ErrInvalidAction
		}
		return nil, fmt.Errorf("record movement: %w", err)
	}
	return result, nil
}

// apply writes the new stock of a product already locked by tx and appends the ledger
// row. product.Stock is updated in place.
func (s *InventoryService) apply(ctx context.Context, tx database.TxQuerier, product *model.Product, mv movement) (*model.InventoryMovement, error) {
	previous := product.Stock
	next, err := mv.action.Apply(previous, mv.quantity)
	if err != nil {
		if errors.Is(err, model.ErrNegativeStock) || errors.Is(err, model.ErrQuantityOutOfRange) {
			return nil, reject(err.Error())
		}
		return nil, err
	}

	if mv.action.Clamps(previous, mv.quantity) {
		// Sales are checked against locked stock before reaching here, so this means
		// a caller bypassed the check. Keep the clamp but make it visible.
		log.Warn().
			Str("product_id", product.ID.String()).
			Int("previous_stock", previous).
			Int("quantity", mv.quantity).
			Msg("sale exceeds stock, clamped at zero")
	}

	if err := s.productRepo.UpdateStock(ctx, tx, product.ID, next); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	logged := mv.quantity
	if mv.logDelta {
		logged = next - previous
	}
	record := model.NewMovement(product.ID, mv.action, logged, previous, next, mv.userID, mv.orderID, mv.reason, mv.notes)
	if err := s.inventoryRepo.Insert(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("insert inventory movement: %w", err)
	}

	product.Stock = next
	return record, nil
}

// CheckStock reports whether the product can cover requested units.
func (s *InventoryService) CheckStock(ctx context.Context, productID uuid.UUID, requested int) (*model.StockCheck, error) {
	if requested < 0 {
		return nil, ErrInvalidRequest
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return model.NewStockCheck(product.ID, product.Stock, requested), nil
}

// History returns the newest movements of one product.
func (s *InventoryService) History(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	movements, err := s.inventoryRepo.ListByProduct(ctx, productID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("product history: %w", err)
	}
	return movements, nil
}

// Recent returns the newest movements across all products.
func (s *InventoryService) Recent(ctx context.Context, limit int) ([]model.InventoryMovement, error) {
	movements, err := s.inventoryRepo.ListRecent(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("recent movements: %w", err)
	}
	return movements, nil
}

// Stats aggregates movements by action within [from, to].
func (s *InventoryService) Stats(ctx context.Context, from, to time.Time) ([]model.MovementStat, error) {
	if to.Before(from) {
		return nil, ErrInvalidRequest
	}
	stats, err := s.inventoryRepo.StatsByAction(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("movement stats: %w", err)
	}
	return stats, nil
}

// Audit lists products whose live stock disagrees with their newest ledger entry.
func (s *InventoryService) Audit(ctx context.Context) ([]model.StockDrift, error) {
	drifts, err := s.inventoryRepo.ListStockDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock audit: %w", err)
	}
	return drifts, nil
}
