package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

const recentUsagesLimit = 10

var maxPercentage = decimal.NewFromInt(100)

// CouponService provides business logic for coupon operations.
type CouponService struct {
	db         database.DB
	couponRepo CouponRepositoryInterface
	usageRepo  UsageRepositoryInterface
	orderRepo  OrderRepositoryInterface
	now        func() time.Time
}

// NewCouponService creates a new CouponService with the given database handle and repositories.
func NewCouponService(db database.DB, couponRepo CouponRepositoryInterface, usageRepo UsageRepositoryInterface, orderRepo OrderRepositoryInterface) *CouponService {
	return &CouponService{
		db:         db,
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		orderRepo:  orderRepo,
		now:        time.Now,
	}
}

// Create creates a new coupon from the request on behalf of actor.
// Returns ErrCouponExists if the normalized code is already taken.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest, actor string) (*model.Coupon, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if req.ValidUntil.Before(req.ValidFrom) {
		return nil, ErrInvalidValidityWindow
	}
	if !percentageInRange(req.Type, req.Value) {
		return nil, ErrPercentageOutOfRange
	}

	now := s.now().UTC()
	coupon := &model.Coupon{
		ID:                   uuid.New(),
		Code:                 model.NormalizeCode(req.Code),
		Name:                 req.Name,
		Description:          req.Description,
		Type:                 req.Type,
		Value:                req.Value,
		MinOrderAmount:       model.RoundMoney(req.MinOrderAmount),
		ApplicableProducts:   orEmpty(req.ApplicableProducts),
		ApplicableCategories: orEmpty(req.ApplicableCategories),
		ApplicableUsers:      orEmpty(req.ApplicableUsers),
		UsageLimit:           req.UsageLimit,
		ValidFrom:            req.ValidFrom,
		ValidUntil:           req.ValidUntil,
		IsActive:             req.IsActive == nil || *req.IsActive,
		CreatedBy:            actor,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.MaxDiscountAmount != nil {
		capped := model.RoundMoney(*req.MaxDiscountAmount)
		coupon.MaxDiscountAmount = &capped
	}

	if err := s.couponRepo.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update applies an admin edit to the coupon. Code and used count never change here.
func (s *CouponService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	coupon.ApplyUpdate(req)
	if coupon.ValidUntil.Before(coupon.ValidFrom) {
		return nil, ErrInvalidValidityWindow
	}
	if !percentageInRange(coupon.Type, coupon.Value) {
		return nil, ErrPercentageOutOfRange
	}
	if coupon.UsageLimit != nil && *coupon.UsageLimit < coupon.UsedCount {
		return nil, ErrUsageLimitBelowUsed
	}
	coupon.UpdatedAt = s.now().UTC()

	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Deactivate soft-disables a coupon. Coupons are never deleted so their usage history survives.
func (s *CouponService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.couponRepo.Deactivate(ctx, id)
}

// GetByCode retrieves a coupon by its code, case-insensitively.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, model.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List returns all coupons, or only active ones.
func (s *CouponService) List(ctx context.Context, activeOnly bool) ([]model.Coupon, error) {
	coupons, err := s.couponRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// ValidateAndApply checks a coupon code against an order snapshot for userID and
// computes the discount. It writes nothing, so it is safe to call for previews.
// Expected rejections come back as an unsuccessful result, not an error.
func (s *CouponService) ValidateAndApply(ctx context.Context, code string, snap model.OrderSnapshot, userID string) (*model.CouponResult, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, model.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return model.RejectCoupon(model.ReasonCouponNotFound), nil
	}

	applied, err := s.evaluate(ctx, s.db, coupon, snap, userID)
	if err != nil {
		if reason, ok := rejectionReason(err); ok {
			return model.RejectCoupon(reason), nil
		}
		return nil, err
	}
	return &model.CouponResult{Success: true, Coupon: applied}, nil
}

// ApplyToOrder commits a coupon to an existing pending order owned by userID. In one
// transaction it locks the order and then the coupon, re-validates against the stored
// order, appends the usage ledger entry, increments used_count and folds the discount
// into the order total. An order carries at most one coupon.
func (s *CouponService) ApplyToOrder(ctx context.Context, code string, orderID uuid.UUID, userID string) (*model.CouponResult, error) {
	var result *model.CouponResult
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return reject(model.ReasonOrderNotFound)
			}
			return fmt.Errorf("get order for update: %w", err)
		}
		switch {
		case order.UserID != userID:
			return reject(model.ReasonOrderNotOwned)
		case order.Coupon != nil:
			return reject(model.ReasonOrderHasCoupon)
		case order.Status != model.OrderPending:
			return reject(model.ReasonOrderNotPending)
		}

		snap := order.Snapshot()
		coupon, applied, err := s.lockAndEvaluate(ctx, tx, code, snap, userID)
		if err != nil {
			return err
		}
		usage, err := s.recordUsage(ctx, tx, coupon, applied, order.ID, userID, snap)
		if err != nil {
			return err
		}

		order.AttachCoupon(coupon.Code, coupon.Name, applied.DiscountAmount)
		if err := s.orderRepo.AttachCoupon(ctx, tx, order); err != nil {
			return err
		}
		result = &model.CouponResult{Success: true, Coupon: applied, Usage: usage}
		return nil
	})
	if err != nil {
		if reason, ok := rejectionReason(err); ok {
			return model.RejectCoupon(reason), nil
		}
		return nil, fmt.Errorf("apply coupon: %w", err)
	}
	return result, nil
}

// Stats returns the coupon with its usage aggregates and most recent usages.
func (s *CouponService) Stats(ctx context.Context, id uuid.UUID) (*model.CouponStatsResponse, error) {
	var (
		coupon *model.Coupon
		stats  *model.CouponUsageStats
		recent []model.CouponUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coupon, err = s.couponRepo.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.usageRepo.Stats(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.usageRepo.ListByCoupon(gctx, id, recentUsagesLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("coupon stats: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	return &model.CouponStatsResponse{
		Coupon:       coupon,
		Stats:        *stats,
		RecentUsages: recent,
	}, nil
}

// evaluate runs the eligibility rules, the user allow-list and the per-user single-use
// check, in that order, then computes the discount. Failures are rejections.
func (s *CouponService) evaluate(ctx context.Context, q database.TxQuerier, coupon *model.Coupon, snap model.OrderSnapshot, userID string) (*model.AppliedCoupon, error) {
	if res := coupon.IsApplicableToOrder(snap, s.now()); !res.Valid {
		return nil, reject(res.Reason)
	}
	if !coupon.IsAvailableToUser(userID) {
		return nil, reject(model.ReasonUserNotEligible)
	}

	used, err := s.usageRepo.ExistsForUser(ctx, q, coupon.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check coupon usage: %w", err)
	}
	if used {
		return nil, reject(model.ReasonAlreadyUsed)
	}

	return coupon.Summary(coupon.CalculateDiscount(snap)), nil
}

// lockAndEvaluate loads the coupon with SELECT FOR UPDATE and evaluates it. The lock
// serializes concurrent applications of the same coupon until the transaction ends.
func (s *CouponService) lockAndEvaluate(ctx context.Context, tx database.TxQuerier, code string, snap model.OrderSnapshot, userID string) (*model.Coupon, *model.AppliedCoupon, error) {
	coupon, err := s.couponRepo.GetByCodeForUpdate(ctx, tx, model.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, nil, reject(model.ReasonCouponNotFound)
		}
		return nil, nil, fmt.Errorf("get coupon for update: %w", err)
	}

	applied, err := s.evaluate(ctx, tx, coupon, snap, userID)
	if err != nil {
		return nil, nil, err
	}
	return coupon, applied, nil
}

// recordUsage appends the usage ledger entry and bumps used_count. Must run in the
// transaction that locked the coupon.
func (s *CouponService) recordUsage(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon, applied *model.AppliedCoupon, orderID uuid.UUID, userID string, snap model.OrderSnapshot) (*model.CouponUsage, error) {
	now := s.now().UTC()
	usage := &model.CouponUsage{
		ID:             uuid.New(),
		CouponID:       coupon.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: applied.DiscountAmount,
		OrderSubtotal:  snap.Subtotal,
		OrderTotal:     model.OrderTotal(snap.Subtotal, snap.ShippingCost, applied.DiscountAmount),
		UsedAt:         now,
	}

	if err := s.usageRepo.Insert(ctx, tx, usage); err != nil {
		if errors.Is(err, ErrDuplicateUsage) {
			return nil, reject(model.ReasonAlreadyUsed)
		}
		return nil, err
	}

	if err := s.couponRepo.IncrementUsage(ctx, tx, coupon.ID, now); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return nil, reject(model.ReasonUsageLimitReached)
		}
		return nil, fmt.Errorf("increment coupon usage: %w", err)
	}
	coupon.UsedCount++
	coupon.LastUsedAt = &now

	return usage, nil
}

// percentageInRange reports whether a percentage coupon's value is at most 100.
// Other coupon types carry amounts, not rates.
func percentageInRange(typ model.CouponType, value decimal.Decimal) bool {
	return typ != model.CouponPercentage || value.LessThanOrEqual(maxPercentage)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
