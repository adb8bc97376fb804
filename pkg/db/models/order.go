package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/mehadihasan/bazarly-backend/pkg/db/types"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
)

// Order is one checkout attempt. TransactionID is the correlation key handed
// to the payment gateway; TotalAmount is frozen at creation and is exactly
// what the gateway charges, regardless of later catalog price changes.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID      uuid.UUID            `gorm:"column:address_id;type:uuid;not null"`
	CartID         *uuid.UUID           `gorm:"column:cart_id;type:uuid"`
	ProductIDs     dbtypes.UUIDArray    `gorm:"column:product_ids;type:uuid[]"`
	TotalAmount    decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency       enums.Currency       `gorm:"column:currency;type:text;not null;default:'BDT'"`
	TransactionID  string               `gorm:"column:transaction_id;not null;uniqueIndex"`
	PaidStatus     bool                 `gorm:"column:paid_status;not null;default:false"`
	PaidAt         *time.Time           `gorm:"column:paid_at"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'Pending'"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'Pending'"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null;default:'SSLCommerz'"`
	Items          []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem is a cart snapshot copied at checkout: product, quantity, the
// unit price at that moment, and the line total.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
