package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mehadihasan/bazarly-backend/internal/orders"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
)

// InitiateInput is a checkout request: the order payload plus the identity of
// the paying user. The shipping address is resolved server-side from the
// user's address book.
type InitiateInput struct {
	UserID        uuid.UUID
	CartID        *uuid.UUID
	ProductIDs    []uuid.UUID
	Items         []orders.LineItemInput
	TotalAmount   decimal.Decimal
	PaymentMethod enums.PaymentMethod
	Currency      enums.Currency
}

// InitiateResult carries the hosted-checkout redirect back to the client.
type InitiateResult struct {
	OrderID       uuid.UUID `json:"orderId"`
	TransactionID string    `json:"transactionId"`
	GatewayURL    string    `json:"gatewayUrl"`
	SessionKey    string    `json:"sessionKey,omitempty"`
}

// SuccessResult confirms a settled (or previously settled) transaction.
type SuccessResult struct {
	Order            orders.OrderDTO `json:"order"`
	AlreadyCompleted bool            `json:"alreadyCompleted"`
}

// IPNPayload is the subset of the gateway's instant payment notification the
// reconciliation path needs. Everything else in the POST body is ignored.
type IPNPayload struct {
	TransactionID string
	ValidationID  string
	Status        string
}
