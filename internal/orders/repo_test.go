package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	dbtypes "github.com/mehadihasan/bazarly-backend/pkg/db/types"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
	"github.com/mehadihasan/bazarly-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  category_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  cart_id TEXT,
  product_ids TEXT,
  total_amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'BDT',
  transaction_id TEXT NOT NULL UNIQUE,
  paid_status INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  status TEXT NOT NULL DEFAULT 'Pending',
  delivery_status TEXT NOT NULL DEFAULT 'Pending',
  payment_method TEXT NOT NULL DEFAULT 'SSLCommerz',
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	return db
}

func insertOrder(t *testing.T, repo Repository, userID uuid.UUID, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		UserID:         userID,
		AddressID:      uuid.New(),
		ProductIDs:     dbtypes.UUIDArray{uuid.New()},
		TotalAmount:    decimal.RequireFromString("120.00"),
		Currency:       enums.CurrencyBDT,
		TransactionID:  uuid.NewString(),
		Status:         enums.OrderStatusPending,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentMethod:  enums.PaymentMethodSSLCommerz,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	created2, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created2
}

func TestRepositoryMarkPaidLatch(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := insertOrder(t, repo, uuid.New(), time.Now().UTC())

	at := time.Now().UTC()
	changed, err := repo.MarkPaidByTransactionID(context.Background(), order.TransactionID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	reloaded, err := repo.FindByTransactionID(context.Background(), order.TransactionID)
	require.NoError(t, err)
	assert.True(t, reloaded.PaidStatus)
	require.NotNil(t, reloaded.PaidAt)
	assert.Equal(t, enums.OrderStatusApproved, reloaded.Status)

	// A replayed settlement must not touch the row again.
	changed, err = repo.MarkPaidByTransactionID(context.Background(), order.TransactionID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	again, err := repo.FindByTransactionID(context.Background(), order.TransactionID)
	require.NoError(t, err)
	assert.True(t, reloaded.PaidAt.Equal(*again.PaidAt))
}

func TestRepositoryMarkPaidUnknownTransaction(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	changed, err := repo.MarkPaidByTransactionID(context.Background(), "no-such-tran", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)
}

func TestRepositoryFindByIDPreloadsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Ceramic Mug",
		Price:    decimal.RequireFromString("12.00"),
		Stock:    10,
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)

	order := insertOrder(t, repo, uuid.New(), time.Now().UTC())
	items := []models.OrderLineItem{
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  3,
			UnitPrice: decimal.RequireFromString("12.00"),
			LineTotal: decimal.RequireFromString("36.00"),
		},
	}
	require.NoError(t, repo.CreateLineItems(context.Background(), items))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 3, found.Items[0].Quantity)
	require.NotNil(t, found.Items[0].Product)
	assert.Equal(t, "Ceramic Mug", found.Items[0].Product.Name)
	require.Len(t, found.ProductIDs, 1)
}

func TestRepositoryListByUserPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC()
	insertOrder(t, repo, userID, now.Add(-2*time.Hour))
	middle := insertOrder(t, repo, userID, now.Add(-time.Hour))
	newest := insertOrder(t, repo, userID, now)
	insertOrder(t, repo, uuid.New(), now) // other user, excluded

	page, err := repo.ListByUser(context.Background(), userID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)

	cursor := &pagination.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID}
	rest, err := repo.ListByUser(context.Background(), userID, 2, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].CreatedAt.Before(middle.CreatedAt))
}

func TestRepositoryUniqueTransactionID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := insertOrder(t, repo, uuid.New(), time.Now().UTC())

	dup := &models.Order{
		ID:             uuid.New(),
		UserID:         order.UserID,
		AddressID:      uuid.New(),
		TotalAmount:    decimal.RequireFromString("10.00"),
		Currency:       enums.CurrencyBDT,
		TransactionID:  order.TransactionID,
		Status:         enums.OrderStatusPending,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentMethod:  enums.PaymentMethodSSLCommerz,
	}
	_, err := repo.Create(context.Background(), dup)
	require.Error(t, err)
}
