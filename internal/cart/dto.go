package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
)

// AddItemInput carries one add-to-cart request.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// SetQuantityInput replaces the quantity of an existing line item.
type SetQuantityInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// RemoveItemInput drops one line item from the cart.
type RemoveItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// ItemDTO is one cart line with its product summary resolved.
type ItemDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartDTO is the transport shape of a user's cart.
type CartDTO struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Items      []ItemDTO       `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ToCartDTO maps the persistence model and its preloaded items.
func ToCartDTO(cart *models.Cart) CartDTO {
	items := make([]ItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		dto := ItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if item.Product != nil {
			dto.ProductName = item.Product.Name
			dto.ImageURL = item.Product.ImageURL
		}
		items = append(items, dto)
	}
	return CartDTO{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalPrice: cart.TotalPrice,
	}
}
