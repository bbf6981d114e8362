package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commits   int
	rollbacks int
	commitFn  func(ctx context.Context) error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbacks++
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockDB is a mock implementation of database.DB that hands out a single mockTx.
type mockDB struct {
	tx      *mockTx
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func newMockDB() *mockDB {
	return &mockDB{tx: &mockTx{}}
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return m.tx, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

// mockCouponRepository is a mock implementation of CouponRepositoryInterface.
type mockCouponRepository struct {
	insertFn             func(ctx context.Context, coupon *model.Coupon) error
	updateFn             func(ctx context.Context, coupon *model.Coupon) error
	deactivateFn         func(ctx context.Context, id uuid.UUID) error
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	getByCodeFn          func(ctx context.Context, code string) (*model.Coupon, error)
	listFn               func(ctx context.Context, activeOnly bool) ([]model.Coupon, error)
	getByCodeForUpdateFn func(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	incrementUsageFn     func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, usedAt time.Time) error
}

func (m *mockCouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, coupon)
	}
	return nil
}

func (m *mockCouponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, coupon)
	}
	return nil
}

func (m *mockCouponRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *mockCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockCouponRepository) List(ctx context.Context, activeOnly bool) ([]model.Coupon, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	if m.getByCodeForUpdateFn != nil {
		return m.getByCodeForUpdateFn(ctx, tx, code)
	}
	return nil, ErrCouponNotFound
}

func (m *mockCouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID, usedAt time.Time) error {
	if m.incrementUsageFn != nil {
		return m.incrementUsageFn(ctx, tx, id, usedAt)
	}
	return nil
}

// mockUsageRepository is a mock implementation of UsageRepositoryInterface.
type mockUsageRepository struct {
	insertFn        func(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error
	existsForUserFn func(ctx context.Context, q database.TxQuerier, couponID uuid.UUID, userID string) (bool, error)
	listByCouponFn  func(ctx context.Context, couponID uuid.UUID, limit int) ([]model.CouponUsage, error)
	statsFn         func(ctx context.Context, couponID uuid.UUID) (*model.CouponUsageStats, error)
}

func (m *mockUsageRepository) Insert(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, usage)
	}
	return nil
}

func (m *mockUsageRepository) ExistsForUser(ctx context.Context, q database.TxQuerier, couponID uuid.UUID, userID string) (bool, error) {
	if m.existsForUserFn != nil {
		return m.existsForUserFn(ctx, q, couponID, userID)
	}
	return false, nil
}

func (m *mockUsageRepository) ListByCoupon(ctx context.Context, couponID uuid.UUID, limit int) ([]model.CouponUsage, error) {
	if m.listByCouponFn != nil {
		return m.listByCouponFn(ctx, couponID, limit)
	}
	return []model.CouponUsage{}, nil
}

func (m *mockUsageRepository) Stats(ctx context.Context, couponID uuid.UUID) (*model.CouponUsageStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, couponID)
	}
	return &model.CouponUsageStats{}, nil
}

// mockProductRepository is an in-memory ProductRepositoryInterface keyed by id.
type mockProductRepository struct {
	products      map[uuid.UUID]*model.Product
	locked        []uuid.UUID
	insertFn      func(ctx context.Context, tx database.TxQuerier, product *model.Product) error
	updateFn      func(ctx context.Context, product *model.Product) error
	updateStockFn func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, stock int) error
}

func newMockProductRepository(products ...*model.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[uuid.UUID]*model.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) Insert(ctx context.Context, tx database.TxQuerier, product *model.Product) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, product)
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *model.Product) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, product)
	}
	if _, ok := m.products[product.ID]; !ok {
		return ErrProductNotFound
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) List(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range m.products {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	m.locked = append(m.locked, id)
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) UpdateStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, stock int) error {
	if m.updateStockFn != nil {
		return m.updateStockFn(ctx, tx, id, stock)
	}
	p, ok := m.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

// mockInventoryRepository records inserted movements.
type mockInventoryRepository struct {
	movements        []*model.InventoryMovement
	insertFn         func(ctx context.Context, tx database.TxQuerier, movement *model.InventoryMovement) error
	listByProductFn  func(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
	listRecentFn     func(ctx context.Context, limit int) ([]model.InventoryMovement, error)
	statsByActionFn  func(ctx context.Context, from, to time.Time) ([]model.MovementStat, error)
	listStockDriftFn func(ctx context.Context) ([]model.StockDrift, error)
}

func (m *mockInventoryRepository) Insert(ctx context.Context, tx database.TxQuerier, movement *model.InventoryMovement) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, movement)
	}
	m.movements = append(m.movements, movement)
	return nil
}

func (m *mockInventoryRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	if m.listByProductFn != nil {
		return m.listByProductFn(ctx, productID, limit)
	}
	return []model.InventoryMovement{}, nil
}

func (m *mockInventoryRepository) ListRecent(ctx context.Context, limit int) ([]model.InventoryMovement, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return []model.InventoryMovement{}, nil
}

func (m *mockInventoryRepository) StatsByAction(ctx context.Context, from, to time.Time) ([]model.MovementStat, error) {
	if m.statsByActionFn != nil {
		return m.statsByActionFn(ctx, from, to)
	}
	return []model.MovementStat{}, nil
}

func (m *mockInventoryRepository) ListStockDrift(ctx context.Context) ([]model.StockDrift, error) {
	if m.listStockDriftFn != nil {
		return m.listStockDriftFn(ctx)
	}
	return []model.StockDrift{}, nil
}

// mockOrderRepository is an in-memory OrderRepositoryInterface.
type mockOrderRepository struct {
	orders         map[uuid.UUID]*model.Order
	insertFn       func(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	getForUpdateFn func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Order, error)
	attachCouponFn func(ctx context.Context, tx database.TxQuerier, order *model.Order) error
}

func newMockOrderRepository(orders ...*model.Order) *mockOrderRepository {
	m := &mockOrderRepository{orders: make(map[uuid.UUID]*model.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, order)
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Order, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status model.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepository) AttachCoupon(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if m.attachCouponFn != nil {
		return m.attachCouponFn(ctx, tx, order)
	}
	if _, ok := m.orders[order.ID]; !ok {
		return ErrOrderNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

// pendingOrder builds a pending order for userID with a single line.
func pendingOrder(userID, subtotal, shipping string) *model.Order {
	sub := decimal.RequireFromString(subtotal)
	ship := decimal.RequireFromString(shipping)
	return &model.Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: model.OrderPending,
		Items: []model.OrderItem{{
			ProductID: uuid.New(),
			Name:      "Desk",
			Category:  "furniture",
			Quantity:  1,
			UnitPrice: sub,
			LineTotal: sub,
		}},
		Subtotal:       sub,
		DiscountAmount: decimal.Zero,
		ShippingCost:   ship,
		Total:          model.OrderTotal(sub, ship, decimal.Zero),
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
}

func intPtr(i int) *int {
	return &i
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeCoupon(code string, typ model.CouponType, value string) *model.Coupon {
	return &model.Coupon{
		ID:         uuid.New(),
		Code:       code,
		Name:       code + " promo",
		Type:       typ,
		Value:      decimal.RequireFromString(value),
		ValidFrom:  fixedNow.Add(-24 * time.Hour),
		ValidUntil: fixedNow.Add(24 * time.Hour),
		IsActive:   true,
	}
}
