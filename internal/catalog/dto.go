package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
)

// CreateProductInput carries the fields an admin supplies for a new product.
type CreateProductInput struct {
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	Description  string          `json:"description" validate:"max=5000"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	ImageURL     *string         `json:"image_url,omitempty" validate:"omitempty,url"`
	CategoryName string          `json:"category_name" validate:"omitempty,min=1,max=100"`
	Stock        int             `json:"stock" validate:"gte=0"`
}

// ProductDTO is the transport shape for catalog products.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Category    *CategoryDTO    `json:"category,omitempty"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CategoryDTO is the transport shape for categories.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ToProductDTO maps the persistence model to its transport shape.
func ToProductDTO(product *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		ImageURL:    product.ImageURL,
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt,
	}
	if product.Category != nil {
		dto.Category = &CategoryDTO{
			ID:   product.Category.ID,
			Name: product.Category.Name,
		}
	}
	return dto
}

// ToCategoryDTO maps a category model to its transport shape.
func ToCategoryDTO(category models.Category) CategoryDTO {
	return CategoryDTO{ID: category.ID, Name: category.Name}
}
