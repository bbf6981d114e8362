package service

import (
	"errors"

	"github.com/davidsmithrojas/storefront/internal/model"
)

var (
	// ErrCouponExists is returned when attempting to create a coupon whose code is taken
	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidValidityWindow is returned when valid_from is after valid_until
	ErrInvalidValidityWindow = errors.New("valid_from must not be after valid_until")

	// ErrPercentageOutOfRange is returned when a percentage coupon's value exceeds 100
	ErrPercentageOutOfRange = errors.New("percentage value must not exceed 100")

	// ErrUsageLimitBelowUsed is returned when an update would set usage_limit below used_count
	ErrUsageLimitBelowUsed = errors.New("usage limit cannot be lower than the current used count")

	// ErrDuplicateUsage is returned when a usage row already exists for the (coupon, order) pair
	ErrDuplicateUsage = errors.New("coupon already applied to this order")

	// ErrUsageLimitReached is returned by the guarded used_count increment when no use is left
	ErrUsageLimitReached = errors.New("coupon usage limit reached")

	// ErrProductNotFound is returned when a product cannot be found
	ErrProductNotFound = errors.New("product not found")

	// ErrOrderNotFound is returned when an order cannot be found
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned for an order status change the lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrInvalidAction is returned for an inventory action outside the known set
	ErrInvalidAction = model.ErrInvalidAction
)

// rejection aborts a transaction for an expected business outcome. Public service
// methods turn it into a result value carrying the reason.
type rejection struct {
	reason string
}

func (r *rejection) Error() string { return r.reason }

func reject(reason string) error { return &rejection{reason: reason} }

// rejectionReason unwraps a rejection from err.
func rejectionReason(err error) (string, bool) {
	var r *rejection
	if errors.As(err, &r) {
		return r.reason, true
	}
	return "", false
}
