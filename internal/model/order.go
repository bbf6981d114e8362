package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderReturned  OrderStatus = "returned"
)

// Checkout rejections and the reasons written to the ledger for order-driven movements.
const (
	ReasonInsufficientStockFmt  = "Stock insuficiente para %s. Disponible: %d, solicitado: %d"
	ReasonProductUnavailableFmt = "Producto no disponible: %s"
	ReasonOrderSale             = "Venta"
	ReasonOrderCancelled        = "Pedido cancelado"
	ReasonOrderReturned         = "Devolución de pedido"
	ReasonOrderNotFound         = "Pedido no encontrado"
	ReasonOrderNotOwned         = "El pedido no pertenece a este usuario"
	ReasonOrderHasCoupon        = "El pedido ya tiene un cupón aplicado"
	ReasonOrderNotPending       = "Solo se pueden aplicar cupones a pedidos pendientes"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
	OrderDelivered: {OrderReturned},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RestoresStock reports whether entering s puts the order's items back into stock.
func (s OrderStatus) RestoresStock() bool {
	return s == OrderCancelled || s == OrderReturned
}

// Order is a placed order. Coupon is denormalized at creation and never re-derived.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	Items          []OrderItem     `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	Total          decimal.Decimal `json:"total"`
	Coupon         *OrderCoupon    `json:"coupon,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderItem is one order line.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderCoupon is the coupon snapshot stored with an order.
type OrderCoupon struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderTotal is max(0, subtotal + shipping - discount), rounded to cents.
func OrderTotal(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	return RoundMoney(MaxZero(subtotal.Add(shipping).Sub(discount)))
}

// Snapshot returns the coupon view of the order.
func (o *Order) Snapshot() OrderSnapshot {
	items := make([]SnapshotItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = SnapshotItem{ProductID: it.ProductID, Category: it.Category}
	}
	return OrderSnapshot{Subtotal: o.Subtotal, ShippingCost: o.ShippingCost, Items: items}
}

// AttachCoupon folds a coupon discount into a pending order and recomputes its total.
func (o *Order) AttachCoupon(code, name string, amount decimal.Decimal) {
	o.DiscountAmount = RoundMoney(amount)
	o.Total = OrderTotal(o.Subtotal, o.ShippingCost, o.DiscountAmount)
	o.Coupon = &OrderCoupon{Code: code, Name: name, Amount: o.DiscountAmount}
}

// OrderLine is one requested line at checkout.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0,lte=2147483647"`
}

// PlaceOrderRequest is the DTO for checkout. UserID comes from the acting user.
type PlaceOrderRequest struct {
	Items      []OrderLine `json:"items" validate:"required,min=1,dive"`
	CouponCode string      `json:"coupon_code" validate:"omitempty,max=50"`
	UserID     string      `json:"-"`
}

// OrderResult is the outcome of placing an order.
type OrderResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Order   *Order `json:"order,omitempty"`
}

// RejectOrder builds a failed OrderResult.
func RejectOrder(reason string) *OrderResult {
	return &OrderResult{Success: false, Error: reason}
}

// UpdateOrderStatusRequest is the DTO for PATCH /api/orders/:id/status
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled returned"`
}
