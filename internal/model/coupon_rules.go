package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rejection reasons surfaced to shoppers.
const (
	ReasonCouponNotFound      = "Cupón no encontrado"
	ReasonInvalidOrExpired    = "Cupón no válido o expirado"
	ReasonUsageLimitReached   = "Cupón ha alcanzado su límite de uso"
	ReasonBelowMinimumFmt     = "El monto mínimo de compra para este cupón es $%s"
	ReasonProductsNotEligible = "Cupón no aplicable a los productos del carrito"
	ReasonCategoryNotEligible = "Cupón no aplicable a las categorías del carrito"
	ReasonUserNotEligible     = "Cupón no disponible para este usuario"
	ReasonAlreadyUsed         = "Ya has usado este cupón anteriormente"
)

// OrderSnapshot is the view of a cart or order that coupon rules are evaluated against.
type OrderSnapshot struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Items        []SnapshotItem  `json:"items"`
}

// SnapshotItem is one order line as seen by the coupon rules.
type SnapshotItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Category  string    `json:"category"`
}

// ApplicabilityResult is the outcome of IsApplicableToOrder.
type ApplicabilityResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func applicable() ApplicabilityResult { return ApplicabilityResult{Valid: true} }

func notApplicable(reason string) ApplicabilityResult {
	return ApplicabilityResult{Valid: false, Reason: reason}
}

// UsageLimitReached reports whether a limited coupon has been used up.
func (c *Coupon) UsageLimitReached() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

func (c *Coupon) withinWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// IsCurrentlyValid reports whether the coupon is active, inside its validity window and not used up.
// Both window bounds are inclusive.
func (c *Coupon) IsCurrentlyValid(now time.Time) bool {
	return c.IsActive && c.withinWindow(now) && !c.UsageLimitReached()
}

// IsApplicableToOrder checks the coupon against an order snapshot, stopping at the first failed rule.
// The user allow-list is not checked here; see IsAvailableToUser.
func (c *Coupon) IsApplicableToOrder(snap OrderSnapshot, now time.Time) ApplicabilityResult {
	if !c.IsActive || !c.withinWindow(now) {
		return notApplicable(ReasonInvalidOrExpired)
	}
	if c.UsageLimitReached() {
		return notApplicable(ReasonUsageLimitReached)
	}
	if snap.Subtotal.LessThan(c.MinOrderAmount) {
		return notApplicable(fmt.Sprintf(ReasonBelowMinimumFmt, c.MinOrderAmount.StringFixed(2)))
	}
	if len(c.ApplicableProducts) > 0 && !slices.ContainsFunc(snap.Items, func(it SnapshotItem) bool {
		return slices.Contains(c.ApplicableProducts, it.ProductID)
	}) {
		return notApplicable(ReasonProductsNotEligible)
	}
	if len(c.ApplicableCategories) > 0 && !slices.ContainsFunc(snap.Items, func(it SnapshotItem) bool {
		return slices.Contains(c.ApplicableCategories, it.Category)
	}) {
		return notApplicable(ReasonCategoryNotEligible)
	}
	return applicable()
}

// IsAvailableToUser checks the user allow-list. An empty list admits everyone.
func (c *Coupon) IsAvailableToUser(userID string) bool {
	return len(c.ApplicableUsers) == 0 || slices.Contains(c.ApplicableUsers, userID)
}

// CalculateDiscount computes the discount for snap. The result never exceeds the subtotal
// or MaxDiscountAmount and is rounded to cents. Callers check IsApplicableToOrder first.
func (c *Coupon) CalculateDiscount(snap OrderSnapshot) decimal.Decimal {
	var discount decimal.Decimal
	switch c.Type {
	case CouponPercentage:
		discount = snap.Subtotal.Mul(c.Value).Div(hundred)
	case CouponFixed:
		discount = c.Value
	case CouponFreeShipping:
		discount = snap.ShippingCost
	}

	if c.MaxDiscountAmount != nil && discount.GreaterThan(*c.MaxDiscountAmount) {
		discount = *c.MaxDiscountAmount
	}
	if discount.GreaterThan(snap.Subtotal) {
		discount = snap.Subtotal
	}
	return RoundMoney(MaxZero(discount))
}

// Summary returns the checkout snapshot of the coupon for the given discount.
func (c *Coupon) Summary(discount decimal.Decimal) *AppliedCoupon {
	return &AppliedCoupon{
		ID:             c.ID,
		Code:           c.Code,
		Name:           c.Name,
		Type:           c.Type,
		Value:          c.Value,
		DiscountAmount: discount,
	}
}
