package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
)

// LineItemInput is one cart-snapshot line supplied at checkout.
type LineItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

// CreateOrderInput carries everything needed to open one checkout attempt.
// At least one of ProductIDs (legacy buy-now path) or Items (cart snapshot)
// must be non-empty.
type CreateOrderInput struct {
	UserID        uuid.UUID           `json:"user_id" validate:"required"`
	AddressID     uuid.UUID           `json:"address_id" validate:"required"`
	CartID        *uuid.UUID          `json:"cart_id,omitempty"`
	ProductIDs    []uuid.UUID         `json:"product_ids,omitempty"`
	Items         []LineItemInput     `json:"items,omitempty"`
	TotalAmount   decimal.Decimal     `json:"total_amount" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	Currency      enums.Currency      `json:"currency,omitempty"`
}

// UpdateStatusInput is the explicit partial-update shape for order state.
// Only the named fields may change; anything else in a request body is
// rejected at decode time.
type UpdateStatusInput struct {
	Status         *enums.OrderStatus    `json:"status,omitempty"`
	DeliveryStatus *enums.DeliveryStatus `json:"delivery_status,omitempty"`
	PaidStatus     *bool                 `json:"paid_status,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u UpdateStatusInput) Empty() bool {
	return u.Status == nil && u.DeliveryStatus == nil && u.PaidStatus == nil
}

// CancelInput identifies who is cancelling which order.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.MemberRole
}

// MarkPaidResult reports the outcome of a settlement attempt.
type MarkPaidResult struct {
	Order        OrderDTO
	Transitioned bool // false when the order was already paid
}

// LineItemDTO is the transport shape for an order line.
type LineItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the transport shape for orders.
type OrderDTO struct {
	ID             uuid.UUID            `json:"id"`
	UserID         uuid.UUID            `json:"user_id"`
	AddressID      uuid.UUID            `json:"address_id"`
	CartID         *uuid.UUID           `json:"cart_id,omitempty"`
	ProductIDs     []uuid.UUID          `json:"product_ids,omitempty"`
	Items          []LineItemDTO        `json:"items"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	Currency       enums.Currency       `json:"currency"`
	TransactionID  string               `json:"transaction_id"`
	PaidStatus     bool                 `json:"paid_status"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
	Status         enums.OrderStatus    `json:"status"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	CreatedAt      time.Time            `json:"created_at"`
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToOrderDTO maps the persistence model to its transport shape.
func ToOrderDTO(order *models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return OrderDTO{
		ID:             order.ID,
		UserID:         order.UserID,
		AddressID:      order.AddressID,
		CartID:         order.CartID,
		ProductIDs:     order.ProductIDs,
		Items:          items,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		TransactionID:  order.TransactionID,
		PaidStatus:     order.PaidStatus,
		PaidAt:         order.PaidAt,
		Status:         order.Status,
		DeliveryStatus: order.DeliveryStatus,
		PaymentMethod:  order.PaymentMethod,
		CreatedAt:      order.CreatedAt,
	}
}
