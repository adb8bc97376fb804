package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
	"github.com/mehadihasan/bazarly-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order ledger: creation, the status state machine, the
// paid latch, and reads.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*OrderDTO, error)
	ListAll(ctx context.Context, limit int) ([]OrderDTO, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error)
	MarkPaid(ctx context.Context, transactionID string) (*MarkPaidResult, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	window time.Duration
	now    func() time.Time
}

// NewService builds the order ledger service. window is how long after
// creation a pending order may still be cancelled.
func NewService(repo Repository, tx txRunner, window time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("cancellation window must be positive")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		window: window,
		now:    time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	if len(input.ProductIDs) == 0 && len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs product references or line items")
	}
	if !input.TotalAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item unit price cannot be negative")
		}
	}

	// When snapshots are present the caller's total must match their sum.
	// TotalAmount is frozen here and never recomputed afterwards.
	if len(input.Items) > 0 {
		sum := decimal.Zero
		for _, item := range input.Items {
			sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if !sum.Equal(input.TotalAmount) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount does not match line totals").
				WithDetails(map[string]string{
					"supplied": input.TotalAmount.StringFixed(2),
					"computed": sum.StringFixed(2),
				})
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyBDT
	}

	var dto OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			UserID:         input.UserID,
			AddressID:      input.AddressID,
			CartID:         input.CartID,
			ProductIDs:     input.ProductIDs,
			TotalAmount:    input.TotalAmount,
			Currency:       currency,
			TransactionID:  uuid.NewString(),
			Status:         enums.OrderStatusPending,
			DeliveryStatus: enums.DeliveryStatusPending,
			PaymentMethod:  input.PaymentMethod,
		}
		created, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		if len(input.Items) > 0 {
			lineItems := make([]models.OrderLineItem, 0, len(input.Items))
			for _, item := range input.Items {
				lineItems = append(lineItems, models.OrderLineItem{
					OrderID:   created.ID,
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
					LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
				})
			}
			if err := repo.CreateLineItems(ctx, lineItems); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist line items")
			}
			created.Items = lineItems
		}

		dto = ToOrderDTO(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	dto := ToOrderDTO(order)
	return &dto, nil
}

func (s *service) GetByTransactionID(ctx context.Context, transactionID string) (*OrderDTO, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	order, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := ToOrderDTO(order)
	return &dto, nil
}

func (s *service) ListAll(ctx context.Context, limit int) ([]OrderDTO, error) {
	limit = pagination.NormalizeLimit(limit)
	orders, err := s.repo.ListAll(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, ToOrderDTO(&orders[i]))
	}
	return dtos, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	orders, err := s.repo.ListByUser(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}

	page := &OrderPage{}
	if len(orders) > limit {
		last := orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		orders = orders[:limit]
	}
	page.Orders = make([]OrderDTO, 0, len(orders))
	for i := range orders {
		page.Orders = append(page.Orders, ToOrderDTO(&orders[i]))
	}
	return page, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if input.DeliveryStatus != nil && !input.DeliveryStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery status")
	}

	var dto OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Status != nil {
			updates["status"] = *input.Status
			order.Status = *input.Status
		}
		if input.DeliveryStatus != nil {
			updates["delivery_status"] = *input.DeliveryStatus
			order.DeliveryStatus = *input.DeliveryStatus
		}
		if input.PaidStatus != nil {
			// The paid flag is a one-way latch.
			if !*input.PaidStatus && order.PaidStatus {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "paid status cannot be reset")
			}
			if *input.PaidStatus && !order.PaidStatus {
				now := s.now().UTC()
				updates["paid_status"] = true
				updates["paid_at"] = now
				order.PaidStatus = true
				order.PaidAt = &now
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		dto = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var dto OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.UserID != input.ActorUserID && input.ActorRole != enums.MemberRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "only pending orders can be cancelled")
		}
		if s.now().Sub(order.CreatedAt) > s.window {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cancellation window has elapsed")
		}

		updates := map[string]any{
			"status":          enums.OrderStatusRejected,
			"delivery_status": enums.DeliveryStatusCancelled,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusRejected
		order.DeliveryStatus = enums.DeliveryStatusCancelled
		dto = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) MarkPaid(ctx context.Context, transactionID string) (*MarkPaidResult, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	var result MarkPaidResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		changed, err := repo.MarkPaidByTransactionID(ctx, transactionID, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}

		order, err := repo.FindByTransactionID(ctx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unknown transaction id")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		result = MarkPaidResult{
			Order:        ToOrderDTO(order),
			Transitioned: changed > 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.loadOrder(ctx, repo, orderID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
