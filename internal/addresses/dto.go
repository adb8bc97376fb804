package addresses

import (
	"time"

	"github.com/google/uuid"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
)

// CreateAddressInput carries a new address-book entry.
type CreateAddressInput struct {
	FullName   string  `json:"full_name" validate:"required,min=1,max=200"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Street     string  `json:"street" validate:"required,min=1,max=300"`
	City       string  `json:"city" validate:"required,min=1,max=100"`
	State      string  `json:"state" validate:"required,min=1,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,min=1,max=20"`
	Country    string  `json:"country" validate:"required,min=2,max=100"`
	IsDefault  bool    `json:"is_default"`
}

// AddressDTO is the transport shape for addresses.
type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Phone      *string   `json:"phone,omitempty"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToAddressDTO maps the persistence model to its transport shape.
func ToAddressDTO(address *models.Address) AddressDTO {
	return AddressDTO{
		ID:         address.ID,
		FullName:   address.FullName,
		Phone:      address.Phone,
		Street:     address.Street,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
		Country:    address.Country,
		IsDefault:  address.IsDefault,
		CreatedAt:  address.CreatedAt,
	}
}
