package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

// OrderService places orders and drives their lifecycle.
type OrderService struct {
	db           database.DB
	productRepo  ProductRepositoryInterface
	orderRepo    OrderRepositoryInterface
	coupons      *CouponService
	inventory    *InventoryService
	shippingCost decimal.Decimal
	now          func() time.Time
}

// NewOrderService creates a new OrderService. shippingCost is charged on every order.
func NewOrderService(
	db database.DB,
	productRepo ProductRepositoryInterface,
	orderRepo OrderRepositoryInterface,
	coupons *CouponService,
	inventory *InventoryService,
	shippingCost decimal.Decimal,
) *OrderService {
	return &OrderService{
		db:           db,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		coupons:      coupons,
		inventory:    inventory,
		shippingCost: model.RoundMoney(shippingCost),
		now:          time.Now,
	}
}

// orderLine is a merged request line with the product locked for it.
type orderLine struct {
	productID uuid.UUID
	quantity  int
	product   *model.Product
}

// PlaceOrder checks out a cart in one transaction: it locks the products, validates
// stock, validates and consumes the coupon, stores the order and books one sale
// movement per line. Nothing is written unless every step succeeds.
// Business rejections come back as an unsuccessful result.
func (s *OrderService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.OrderResult, error) {
	lines, err := mergeLines(req)
	if err != nil {
		return nil, err
	}

	var order *model.Order
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.lockProducts(ctx, tx, lines); err != nil {
			return err
		}

		order = s.newOrder(req.UserID, lines)

		var (
			coupon  *model.Coupon
			applied *model.AppliedCoupon
		)
		code := model.NormalizeCode(req.CouponCode)
		if code != "" {
			var err error
			coupon, applied, err = s.coupons.lockAndEvaluate(ctx, tx, code, order.Snapshot(), req.UserID)
			if err != nil {
				return err
			}
			order.DiscountAmount = applied.DiscountAmount
			order.Coupon = &model.OrderCoupon{Code: coupon.Code, Name: coupon.Name, Amount: applied.DiscountAmount}
		}
		order.Total = model.OrderTotal(order.Subtotal, order.ShippingCost, order.DiscountAmount)

		if err := s.orderRepo.Insert(ctx, tx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if coupon != nil {
			if _, err := s.coupons.recordUsage(ctx, tx, coupon, applied, order.ID, req.UserID, order.Snapshot()); err != nil {
				return err
			}
		}

		for _, line := range lines {
			_, err := s.inventory.apply(ctx, tx, line.product, movement{
				action:   model.ActionSale,
				quantity: line.quantity,
				userID:   req.UserID,
				orderID:  &order.ID,
				reason:   model.ReasonOrderSale,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if reason, ok := rejectionReason(err); ok {
			return model.RejectOrder(reason), nil
		}
		return nil, fmt.Errorf("place order: %w", err)
	}
	return &model.OrderResult{Success: true, Order: order}, nil
}

// mergeLines validates the request and folds repeated products into one line,
// keeping first-seen order.
func mergeLines(req *model.PlaceOrderRequest) ([]*orderLine, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, ErrInvalidRequest
	}

	byID := make(map[uuid.UUID]*orderLine, len(req.Items))
	lines := make([]*orderLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return nil, ErrInvalidRequest
		}
		if line, ok := byID[item.ProductID]; ok {
			line.quantity += item.Quantity
			continue
		}
		line := &orderLine{productID: item.ProductID, quantity: item.Quantity}
		byID[item.ProductID] = line
		lines = append(lines, line)
	}
	return lines, nil
}

// lockProducts locks the product rows in id order and checks each line against the
// locked stock.
func (s *OrderService) lockProducts(ctx context.Context, tx database.TxQuerier, lines []*orderLine) error {
	sorted := slices.Clone(lines)
	slices.SortFunc(sorted, func(a, b *orderLine) int {
		return bytes.Compare(a.productID[:], b.productID[:])
	})

	for _, line := range sorted {
		product, err := s.productRepo.GetForUpdate(ctx, tx, line.productID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return reject(model.ReasonProductNotFound)
			}
			return fmt.Errorf("lock product: %w", err)
		}
		if !product.IsActive {
			return reject(fmt.Sprintf(model.ReasonProductUnavailableFmt, product.Name))
		}
		if product.Stock < line.quantity {
			return reject(fmt.Sprintf(model.ReasonInsufficientStockFmt, product.Name, product.Stock, line.quantity))
		}
		line.product = product
	}
	return nil
}

func (s *OrderService) newOrder(userID string, lines []*orderLine) *model.Order {
	now := s.now().UTC()
	order := &model.Order{
		ID:             uuid.New(),
		UserID:         userID,
		Status:         model.OrderPending,
		Items:          make([]model.OrderItem, 0, len(lines)),
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		ShippingCost:   s.shippingCost,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, line := range lines {
		lineTotal := model.RoundMoney(line.product.Price.Mul(decimal.NewFromInt(int64(line.quantity))))
		order.Items = append(order.Items, model.OrderItem{
			ProductID: line.productID,
			Name:      line.product.Name,
			Category:  line.product.Category,
			Quantity:  line.quantity,
			UnitPrice: line.product.Price,
			LineTotal: lineTotal,
		})
		order.Subtotal = order.Subtotal.Add(lineTotal)
	}
	order.Subtotal = model.RoundMoney(order.Subtotal)
	return order
}

// Get returns an order by id.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling or returning an order
// books a return movement per line in the same transaction. Coupon usage is kept.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, actor string) (*model.Order, error) {
	var order *model.Order
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransition(status) {
			return ErrInvalidTransition
		}
		if err := s.orderRepo.UpdateStatus(ctx, tx, id, status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		order.Status = status
		order.UpdatedAt = s.now().UTC()

		if !status.RestoresStock() {
			return nil
		}
		return s.restock(ctx, tx, order, actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) restock(ctx context.Context, tx database.TxQuerier, order *model.Order, actor string) error {
	reason := model.ReasonOrderCancelled
	if order.Status == model.OrderReturned {
		reason = model.ReasonOrderReturned
	}

	items := slices.Clone(order.Items)
	slices.SortFunc(items, func(a, b model.OrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})

	for _, item := range items {
		product, err := s.productRepo.GetForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		_, err = s.inventory.apply(ctx, tx, product, movement{
			action:   model.ActionReturn,
			quantity: item.Quantity,
			userID:   actor,
			orderID:  &order.ID,
			reason:   reason,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
