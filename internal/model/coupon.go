package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponType selects how a coupon's discount is computed.
type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixed        CouponType = "fixed"
	CouponFreeShipping CouponType = "free_shipping"
)

// Coupon is a named, time-bounded discount rule identified by a unique code.
type Coupon struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        CouponType `json:"type"`
	// Value is percentage points for percentage coupons and a currency amount for fixed ones.
	// Ignored for free_shipping.
	Value             decimal.Decimal  `json:"value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinOrderAmount    decimal.Decimal  `json:"min_order_amount"`

	// Empty allow-lists apply to everything.
	ApplicableProducts   []uuid.UUID `json:"applicable_products"`
	ApplicableCategories []string    `json:"applicable_categories"`
	ApplicableUsers      []string    `json:"applicable_users"`

	UsageLimit *int       `json:"usage_limit,omitempty"` // nil means unlimited
	UsedCount  int        `json:"used_count"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil time.Time  `json:"valid_until"`
	IsActive   bool       `json:"is_active"`
	CreatedBy  string     `json:"created_by"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NormalizeCode canonicalizes a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponUsage is an append-only ledger entry written when a coupon is applied to an order.
// At most one usage exists per (CouponID, OrderID).
type CouponUsage struct {
	ID             uuid.UUID       `json:"id"`
	CouponID       uuid.UUID       `json:"coupon_id"`
	UserID         string          `json:"user_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	OrderSubtotal  decimal.Decimal `json:"order_subtotal"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	UsedAt         time.Time       `json:"used_at"`
}

// CouponUsageStats aggregates the usage ledger of one coupon.
type CouponUsageStats struct {
	UsageCount    int             `json:"usage_count"`
	UniqueUsers   int             `json:"unique_users"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	LastUsedAt    *time.Time      `json:"last_used_at,omitempty"`
}

// CouponStatsResponse is the API response DTO for GET /api/coupons/:id/stats
type CouponStatsResponse struct {
	Coupon       *Coupon          `json:"coupon"`
	Stats        CouponUsageStats `json:"stats"`
	RecentUsages []CouponUsage    `json:"recent_usages"`
}

// AppliedCoupon is the discount snapshot handed back to checkout.
type AppliedCoupon struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           CouponType      `json:"type"`
	Value          decimal.Decimal `json:"value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// CouponResult carries either an applied coupon or the reason it was rejected.
type CouponResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Coupon  *AppliedCoupon `json:"coupon,omitempty"`
	Usage   *CouponUsage   `json:"usage,omitempty"`
}

// RejectCoupon builds a failed CouponResult.
func RejectCoupon(reason string) *CouponResult {
	return &CouponResult{Success: false, Error: reason}
}

// CreateCouponRequest is the DTO for creating a coupon
type CreateCouponRequest struct {
	Code                 string           `json:"code" validate:"required,notblank,couponcode,max=50"`
	Name                 string           `json:"name" validate:"required,notblank,max=255"`
	Description          string           `json:"description" validate:"max=2000"`
	Type                 CouponType       `json:"type" validate:"required,oneof=percentage fixed free_shipping"`
	Value                decimal.Decimal  `json:"value" validate:"gte=0"`
	MaxDiscountAmount    *decimal.Decimal `json:"max_discount_amount" validate:"omitempty,gte=0"`
	MinOrderAmount       decimal.Decimal  `json:"min_order_amount" validate:"gte=0"`
	ApplicableProducts   []uuid.UUID      `json:"applicable_products"`
	ApplicableCategories []string         `json:"applicable_categories" validate:"dive,notblank"`
	ApplicableUsers      []string         `json:"applicable_users" validate:"dive,notblank"`
	UsageLimit           *int             `json:"usage_limit" validate:"omitempty,gte=1"`
	ValidFrom            time.Time        `json:"valid_from" validate:"required"`
	ValidUntil           time.Time        `json:"valid_until" validate:"required,gtefield=ValidFrom"`
	IsActive             *bool            `json:"is_active"`
}

// UpdateCouponRequest is the DTO for admin coupon updates. Nil fields are left unchanged.
// Code and used count are not updatable.
type UpdateCouponRequest struct {
	Name                 *string          `json:"name" validate:"omitempty,notblank,max=255"`
	Description          *string          `json:"description" validate:"omitempty,max=2000"`
	Type                 *CouponType      `json:"type" validate:"omitempty,oneof=percentage fixed free_shipping"`
	Value                *decimal.Decimal `json:"value" validate:"omitempty,gte=0"`
	MaxDiscountAmount    *decimal.Decimal `json:"max_discount_amount" validate:"omitempty,gte=0"`
	ClearMaxDiscount     bool             `json:"clear_max_discount"`
	MinOrderAmount       *decimal.Decimal `json:"min_order_amount" validate:"omitempty,gte=0"`
	ApplicableProducts   *[]uuid.UUID     `json:"applicable_products"`
	ApplicableCategories *[]string        `json:"applicable_categories"`
	ApplicableUsers      *[]string        `json:"applicable_users"`
	UsageLimit           *int             `json:"usage_limit" validate:"omitempty,gte=1"`
	ClearUsageLimit      bool             `json:"clear_usage_limit"`
	ValidFrom            *time.Time       `json:"valid_from"`
	ValidUntil           *time.Time       `json:"valid_until"`
	IsActive             *bool            `json:"is_active"`
}

// ApplyUpdate copies the non-nil fields of req onto c. Money fields are rounded to cents.
func (c *Coupon) ApplyUpdate(req *UpdateCouponRequest) {
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Type != nil {
		c.Type = *req.Type
	}
	if req.Value != nil {
		c.Value = *req.Value
	}
	if req.ClearMaxDiscount {
		c.MaxDiscountAmount = nil
	} else if req.MaxDiscountAmount != nil {
		v := RoundMoney(*req.MaxDiscountAmount)
		c.MaxDiscountAmount = &v
	}
	if req.MinOrderAmount != nil {
		c.MinOrderAmount = RoundMoney(*req.MinOrderAmount)
	}
	if req.ApplicableProducts != nil {
		c.ApplicableProducts = *req.ApplicableProducts
	}
	if req.ApplicableCategories != nil {
		c.ApplicableCategories = *req.ApplicableCategories
	}
	if req.ApplicableUsers != nil {
		c.ApplicableUsers = *req.ApplicableUsers
	}
	if req.ClearUsageLimit {
		c.UsageLimit = nil
	} else if req.UsageLimit != nil {
		v := *req.UsageLimit
		c.UsageLimit = &v
	}
	if req.ValidFrom != nil {
		c.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		c.ValidUntil = *req.ValidUntil
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}

// ValidateCouponRequest is the DTO for previewing a coupon against a cart.
type ValidateCouponRequest struct {
	Code         string           `json:"code" validate:"required,notblank,max=50"`
	Subtotal     decimal.Decimal  `json:"subtotal" validate:"gte=0"`
	ShippingCost *decimal.Decimal `json:"shipping_cost" validate:"omitempty,gte=0"`
	Items        []SnapshotItem   `json:"items" validate:"dive"`
}

// ApplyCouponRequest is the DTO for committing a coupon to an existing order.
// The order's stored lines and amounts are authoritative, so no cart is sent.
type ApplyCouponRequest struct {
	Code    string    `json:"code" validate:"required,notblank,max=50"`
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// Snapshot converts the request into the order snapshot the coupon rules operate on.
func (r *ValidateCouponRequest) Snapshot() OrderSnapshot {
	snap := OrderSnapshot{Subtotal: r.Subtotal, Items: r.Items}
	if r.ShippingCost != nil {
		snap.ShippingCost = *r.ShippingCost
	}
	return snap
}
