package model

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// StockAction is the closed set of stock-affecting events recorded in the inventory ledger.
type StockAction string

const (
	// ActionSale subtracts quantity, clamping at zero.
	ActionSale StockAction = "sale"
	// ActionRestock adds quantity.
	ActionRestock StockAction = "restock"
	// ActionAdjustment sets stock to quantity, which is an absolute level rather than a delta.
	ActionAdjustment StockAction = "adjustment"
	// ActionReturn adds quantity.
	ActionReturn StockAction = "return"
)

// Ledger reasons and rejection messages.
const (
	ReasonProductNotFound  = "Producto no encontrado"
	ReasonInitialStock     = "Stock inicial"
	ReasonManualAdjustment = "Ajuste manual"
)

var (
	// ErrInvalidAction is returned for an action outside the StockAction set.
	ErrInvalidAction = errors.New("Acción de inventario no válida")

	// ErrNegativeStock is returned when an adjustment targets a negative stock level.
	ErrNegativeStock = errors.New("La cantidad no puede ser negativa")

	// ErrQuantityOutOfRange is returned when a quantity or the resulting stock does not fit the stock column.
	ErrQuantityOutOfRange = errors.New("Cantidad fuera de rango")
)

// MaxQuantity bounds quantities and stock levels to the INTEGER column range.
const MaxQuantity = math.MaxInt32

// Valid reports whether a is one of the known actions.
func (a StockAction) Valid() bool {
	switch a {
	case ActionSale, ActionRestock, ActionAdjustment, ActionReturn:
		return true
	}
	return false
}

// Apply computes the stock level that results from applying a to previous.
// Delta actions use the magnitude of quantity. The result is never negative.
func (a StockAction) Apply(previous, quantity int) (int, error) {
	if !a.Valid() {
		return 0, ErrInvalidAction
	}
	if quantity < -MaxQuantity || quantity > MaxQuantity {
		return 0, ErrQuantityOutOfRange
	}
	switch a {
	case ActionSale:
		// Over-sell is absorbed at zero rather than rejected.
		return max(0, previous-abs(quantity)), nil
	case ActionAdjustment:
		if quantity < 0 {
			return 0, ErrNegativeStock
		}
		return quantity, nil
	default:
		next := previous + abs(quantity)
		if next > MaxQuantity {
			return 0, ErrQuantityOutOfRange
		}
		return next, nil
	}
}

// Clamps reports whether applying a to previous with quantity absorbs an over-sell at zero.
func (a StockAction) Clamps(previous, quantity int) bool {
	return a == ActionSale && abs(quantity) > previous
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// InventoryMovement is one immutable ledger entry recording a stock change and its cause.
type InventoryMovement struct {
	ID            uuid.UUID   `json:"id"`
	ProductID     uuid.UUID   `json:"product_id"`
	UserID        string      `json:"user_id"`
	OrderID       *uuid.UUID  `json:"order_id,omitempty"`
	Action        StockAction `json:"action"`
	Quantity      int         `json:"quantity"`
	PreviousStock int         `json:"previous_stock"`
	NewStock      int         `json:"new_stock"`
	Reason        string      `json:"reason"`
	Notes         string      `json:"notes"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewMovement builds a ledger entry. Quantity is stored as a magnitude.
func NewMovement(productID uuid.UUID, action StockAction, quantity, previous, next int, userID string, orderID *uuid.UUID, reason, notes string) *InventoryMovement {
	return &InventoryMovement{
		ID:            uuid.New(),
		ProductID:     productID,
		UserID:        userID,
		OrderID:       orderID,
		Action:        action,
		Quantity:      abs(quantity),
		PreviousStock: previous,
		NewStock:      next,
		Reason:        reason,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	}
}

// MovementRequest is the DTO for recording an inventory movement.
// UserID is taken from the acting user, not the body.
type MovementRequest struct {
	ProductID uuid.UUID   `json:"product_id" validate:"required"`
	Action    StockAction `json:"action" validate:"required"`
	Quantity  int         `json:"quantity" validate:"gte=-2147483647,lte=2147483647"`
	OrderID   *uuid.UUID  `json:"order_id"`
	Reason    string      `json:"reason" validate:"max=500"`
	Notes     string      `json:"notes" validate:"max=2000"`
	UserID    string      `json:"-"`
}

// ProductStockChange summarizes the product side of a movement.
type ProductStockChange struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
}

// MovementResult is the outcome of recording a movement.
type MovementResult struct {
	Success  bool                `json:"success"`
	Error    string              `json:"error,omitempty"`
	Movement *InventoryMovement  `json:"inventory_record,omitempty"`
	Product  *ProductStockChange `json:"product,omitempty"`
}

// StockCheck reports whether a product can cover a requested quantity.
type StockCheck struct {
	ProductID    uuid.UUID `json:"product_id"`
	Available    bool      `json:"available"`
	CurrentStock int       `json:"current_stock"`
	Requested    int       `json:"requested"`
	Shortage     int       `json:"shortage"`
}

// NewStockCheck compares current stock with the requested quantity.
func NewStockCheck(productID uuid.UUID, current, requested int) *StockCheck {
	return &StockCheck{
		ProductID:    productID,
		Available:    current >= requested,
		CurrentStock: current,
		Requested:    requested,
		Shortage:     max(0, requested-current),
	}
}

// MovementStat aggregates movements of one action over a time window.
type MovementStat struct {
	Action        StockAction `json:"action"`
	Count         int         `json:"count"`
	TotalQuantity int         `json:"total_quantity"`
}

// StockDrift is a product whose live stock disagrees with its newest ledger entry.
type StockDrift struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Stock       int       `json:"stock"`
	LedgerStock *int      `json:"ledger_stock"` // nil when the product has no movements
}
