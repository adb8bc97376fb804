package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
	"github.com/mehadihasan/bazarly-backend/pkg/pagination"
)

type stubOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) CreateLineItems(_ context.Context, items []models.OrderLineItem) error {
	for i := range items {
		items[i].ID = uuid.New()
	}
	return nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderRepo) FindByTransactionID(_ context.Context, transactionID string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.TransactionID == transactionID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListAll(_ context.Context, limit int) ([]models.Order, error) {
	out := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, *order)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int, _ *pagination.Cursor) ([]models.Order, error) {
	out := []models.Order{}
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubOrderRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	order, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		order.Status = v.(enums.OrderStatus)
	}
	if v, ok := updates["delivery_status"]; ok {
		order.DeliveryStatus = v.(enums.DeliveryStatus)
	}
	if v, ok := updates["paid_status"]; ok {
		order.PaidStatus = v.(bool)
	}
	if v, ok := updates["paid_at"]; ok {
		at := v.(time.Time)
		order.PaidAt = &at
	}
	return nil
}

func (s *stubOrderRepo) MarkPaidByTransactionID(_ context.Context, transactionID string, at time.Time) (int64, error) {
	for _, order := range s.orders {
		if order.TransactionID == transactionID && !order.PaidStatus {
			order.PaidStatus = true
			order.PaidAt = &at
			order.Status = enums.OrderStatusApproved
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.orders, id)
	return nil
}

type orderStubTx struct{}

func (orderStubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(repo, orderStubTx{}, 24*time.Hour)
	require.NoError(t, err)
	return svc.(*service)
}

func validCreateInput() CreateOrderInput {
	return CreateOrderInput{
		UserID:    uuid.New(),
		AddressID: uuid.New(),
		Items: []LineItemInput{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("5.50")},
		},
		TotalAmount:   decimal.RequireFromString("25.50"),
		PaymentMethod: enums.PaymentMethodSSLCommerz,
	}
}

func TestCreateOrder(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	dto, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NotEmpty(t, dto.TransactionID)
	require.Equal(t, enums.OrderStatusPending, dto.Status)
	require.Equal(t, enums.DeliveryStatusPending, dto.DeliveryStatus)
	require.Equal(t, enums.CurrencyBDT, dto.Currency)
	require.False(t, dto.PaidStatus)
	require.Len(t, dto.Items, 2)
	require.True(t, decimal.RequireFromString("25.50").Equal(dto.TotalAmount))
}

func TestCreateOrderRejectsTotalMismatch(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	input := validCreateInput()
	input.TotalAmount = decimal.RequireFromString("99.99")
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateOrderRequiresLineSource(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	input := validCreateInput()
	input.Items = nil
	input.ProductIDs = nil
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateOrderAcceptsProductIDsOnly(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	input := validCreateInput()
	input.Items = nil
	input.ProductIDs = []uuid.UUID{uuid.New()}
	input.TotalAmount = decimal.RequireFromString("40.00")

	dto, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	// Without snapshots the supplied total is stored as-is.
	require.True(t, decimal.RequireFromString("40.00").Equal(dto.TotalAmount))
}

func TestCancelWithinWindow(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	order := repo.orders[created.ID]
	svc.now = func() time.Time { return order.CreatedAt.Add(23*time.Hour + 59*time.Minute) }

	dto, err := svc.Cancel(context.Background(), CancelInput{
		OrderID:     created.ID,
		ActorUserID: order.UserID,
		ActorRole:   enums.MemberRoleUser,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusRejected, dto.Status)
	require.Equal(t, enums.DeliveryStatusCancelled, dto.DeliveryStatus)
}

func TestCancelAfterWindowForbidden(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	order := repo.orders[created.ID]
	svc.now = func() time.Time { return order.CreatedAt.Add(24*time.Hour + time.Minute) }

	_, err = svc.Cancel(context.Background(), CancelInput{
		OrderID:     created.ID,
		ActorUserID: order.UserID,
		ActorRole:   enums.MemberRoleUser,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestCancelNonPendingConflicts(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	repo.orders[created.ID].Status = enums.OrderStatusApproved

	_, err = svc.Cancel(context.Background(), CancelInput{
		OrderID:     created.ID,
		ActorUserID: repo.orders[created.ID].UserID,
		ActorRole:   enums.MemberRoleUser,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCancelByOtherUserForbidden(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), CancelInput{
		OrderID:     created.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.MemberRoleUser,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// An admin may cancel on the user's behalf.
	dto, err := svc.Cancel(context.Background(), CancelInput{
		OrderID:     created.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.MemberRoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusRejected, dto.Status)
}

func TestMarkPaidIdempotent(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	first, err := svc.MarkPaid(context.Background(), created.TransactionID)
	require.NoError(t, err)
	require.True(t, first.Transitioned)
	require.True(t, first.Order.PaidStatus)
	require.Equal(t, enums.OrderStatusApproved, first.Order.Status)
	require.NotNil(t, first.Order.PaidAt)

	second, err := svc.MarkPaid(context.Background(), created.TransactionID)
	require.NoError(t, err)
	require.False(t, second.Transitioned)
	require.Equal(t, first.Order.PaidAt, second.Order.PaidAt)
}

func TestMarkPaidUnknownTransaction(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	_, err := svc.MarkPaid(context.Background(), "missing-tran")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateStatusPaidLatch(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	paid := true
	dto, err := svc.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{PaidStatus: &paid})
	require.NoError(t, err)
	require.True(t, dto.PaidStatus)
	require.NotNil(t, dto.PaidAt)

	unpaid := false
	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{PaidStatus: &unpaid})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestUpdateStatusValidation(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	bad := enums.OrderStatus("shipped-maybe")
	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{Status: &bad})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	status := enums.OrderStatusApproved
	delivery := enums.DeliveryStatusProcessing
	dto, err := svc.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{
		Status:         &status,
		DeliveryStatus: &delivery,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusApproved, dto.Status)
	require.Equal(t, enums.DeliveryStatusProcessing, dto.DeliveryStatus)
}

func TestDeleteOrder(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
