package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry. Stock is only written through the inventory ledger.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateProductRequest is the DTO for creating a product
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,notblank,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Category    string          `json:"category" validate:"max=100"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0,lte=2147483647"`
}

// UpdateProductRequest is the DTO for catalog edits. Stock is deliberately absent.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,notblank,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	IsActive    *bool            `json:"is_active"`
}

// ApplyUpdate copies the non-nil fields of req onto p, rounding the price to cents.
func (p *Product) ApplyUpdate(req *UpdateProductRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Price != nil {
		p.Price = RoundMoney(*req.Price)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}

// SetStockRequest is the DTO for an absolute stock correction.
type SetStockRequest struct {
	Stock  *int   `json:"stock" validate:"required,gte=0,lte=2147483647"`
	Reason string `json:"reason" validate:"max=500"`
}
