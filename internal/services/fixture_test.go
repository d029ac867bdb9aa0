package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"order_engine/internal/config"
	"order_engine/internal/database"
	"order_engine/internal/events"
	"order_engine/internal/models"
	orderredis "order_engine/internal/redis"
	"order_engine/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var staff = Caller{ID: "staff", IsAnonymous: false}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	menuRepo      repository.MenuRepository
	inventoryRepo repository.InventoryRepository
	ledgerRepo    repository.LedgerRepository
	financialRepo repository.FinancialRepository
	redis         *orderredis.Client
	limiter       *rateLimiter
	ledger        LedgerService
	inventory     InventoryService
	orders        OrderService
	published     *recordingPublisher
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Initialize("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newFixture(t *testing.T, reverseOnCorrectiveCancel bool) *fixture {
	t.Helper()
	db := newTestDB(t)

	mr := miniredis.RunT(t)
	client, err := orderredis.Initialize("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		db:            db,
		orderRepo:     repository.NewOrderRepository(db),
		menuRepo:      repository.NewMenuRepository(db),
		inventoryRepo: repository.NewInventoryRepository(db),
		ledgerRepo:    repository.NewLedgerRepository(db),
		financialRepo: repository.NewFinancialRepository(db),
		redis:         client,
		published:     &recordingPublisher{},
	}
	defaults := config.OrderDefaults{AnonymousMaxOrders: 3, AnonymousWindowHours: 1, TxMaxAttempts: 3}

	f.limiter = NewRateLimiter(client).(*rateLimiter)
	f.ledger = NewLedgerService(f.ledgerRepo)
	f.inventory = NewInventoryService(db, f.inventoryRepo, f.ledger, defaults.TxMaxAttempts)
	f.orders = f.orderServiceWith(f.ledger, reverseOnCorrectiveCancel)
	return f
}

// orderServiceWith builds an order service over the fixture's stores with
// the given ledger.
func (f *fixture) orderServiceWith(ledger LedgerService, reverseOnCorrectiveCancel bool) OrderService {
	defaults := config.OrderDefaults{AnonymousMaxOrders: 3, AnonymousWindowHours: 1, TxMaxAttempts: 3}
	return NewOrderService(f.db, f.orderRepo,
		NewSettingsLoader(f.financialRepo, defaults),
		f.limiter,
		NewStockService(f.menuRepo, f.inventoryRepo, f.orderRepo),
		ledger,
		OrderServiceOptions{
			Publisher:                 events.MultiPublisher{f.published, f.redis},
			Subscriber:                f.redis,
			ReverseOnCorrectiveCancel: reverseOnCorrectiveCancel,
			TxMaxAttempts:             defaults.TxMaxAttempts,
		})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int {
	return &v
}

func (f *fixture) ingredient(t *testing.T, name, quantity, price string) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{Name: name, Quantity: dec(quantity), Price: dec(price), Unit: "kg"}
	require.NoError(t, f.inventoryRepo.Create(context.Background(), item))
	return item
}

func (f *fixture) menuItem(t *testing.T, name, price string, stock *int, connections ...models.MenuItemConnection) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{Name: name, Price: dec(price), CategoryID: "food", StockQuantity: stock, Connections: connections}
	require.NoError(t, f.menuRepo.Create(context.Background(), item))
	return item
}

func uses(ingredient *models.InventoryItem, ratio string) models.MenuItemConnection {
	return models.MenuItemConnection{InventoryItemID: ingredient.ID, Ratio: dec(ratio)}
}

func line(item *models.MenuItem, quantity int) CartLine {
	return CartLine{
		ProductID:  item.ID,
		Name:       item.Name,
		UnitPrice:  item.Price,
		Quantity:   quantity,
		CategoryID: item.CategoryID,
	}
}

func orderInput(caller Caller, cart ...CartLine) CreateOrderInput {
	return CreateOrderInput{
		Cart:       cart,
		Customer:   Customer{Name: "Ana", Phone: "555-0100", TableNumber: "4"},
		DiningMode: models.DineIn,
		Caller:     caller,
	}
}

func (f *fixture) placeOrder(t *testing.T, cart ...CartLine) string {
	t.Helper()
	id, err := f.orders.CreateOrder(context.Background(), orderInput(staff, cart...))
	require.NoError(t, err)
	return id
}

func (f *fixture) advance(t *testing.T, id string, statuses ...models.OrderStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.orders.UpdateStatus(context.Background(), id, s)
		require.NoError(t, err)
	}
}

func (f *fixture) stockOf(t *testing.T, id string) *int {
	t.Helper()
	item, err := f.menuRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return item.StockQuantity
}

func (f *fixture) quantityOf(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	item, err := f.inventoryRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

func (f *fixture) enableRateLimit(t *testing.T, maxOrders, windowHours int) {
	t.Helper()
	require.NoError(t, f.financialRepo.SaveSettings(context.Background(), &models.StoreSettings{
		RateLimitEnabled:     true,
		AnonymousMaxOrders:   maxOrders,
		AnonymousWindowHours: windowHours,
	}))
}

func (f *fixture) setClock(now time.Time) {
	f.limiter.now = func() time.Time { return now }
}
