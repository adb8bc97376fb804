package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mehadihasan/bazarly-backend/pkg/db"
	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog reads and the admin creation paths.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, search string, categoryID *uuid.UUID, limit int) ([]ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	EnsureCategory(ctx context.Context, name string) (*CategoryDTO, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the catalog service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

const defaultListLimit = 50

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	dto := ToProductDTO(product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, search string, categoryID *uuid.UUID, limit int) ([]ProductDTO, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var rows []ProductDTO

	trimmed := strings.TrimSpace(search)
	if trimmed != "" {
		found, searchErr := s.repo.SearchProducts(ctx, trimmed, limit)
		if searchErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, searchErr, "search products")
		}
		rows = make([]ProductDTO, 0, len(found))
		for i := range found {
			rows = append(rows, ToProductDTO(&found[i]))
		}
		return rows, nil
	}

	found, err := s.repo.ListProducts(ctx, categoryID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	rows = make([]ProductDTO, 0, len(found))
	for i := range found {
		rows = append(rows, ToProductDTO(&found[i]))
	}
	return rows, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	var dto ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product := &models.Product{
			Name:        strings.TrimSpace(input.Name),
			Description: input.Description,
			Price:       input.Price,
			ImageURL:    input.ImageURL,
			Stock:       input.Stock,
			IsActive:    true,
		}

		if name := strings.TrimSpace(input.CategoryName); name != "" {
			category, err := ensureCategory(ctx, repo, name)
			if err != nil {
				return err
			}
			product.CategoryID = &category.ID
		}

		created, err := repo.CreateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product")
		}
		dto = ToProductDTO(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	dtos := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		dtos = append(dtos, ToCategoryDTO(category))
	}
	return dtos, nil
}

func (s *service) EnsureCategory(ctx context.Context, name string) (*CategoryDTO, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name required")
	}
	category, err := ensureCategory(ctx, s.repo, trimmed)
	if err != nil {
		return nil, err
	}
	dto := ToCategoryDTO(*category)
	return &dto, nil
}

// ensureCategory looks the category up by name and creates it when absent.
func ensureCategory(ctx context.Context, repo Repository, name string) (*models.Category, error) {
	category, err := repo.FindCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}

	created, err := repo.CreateCategory(ctx, &models.Category{Name: name})
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost the race to a concurrent create; re-read the winner.
			existing, findErr := repo.FindCategoryByName(ctx, name)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload category")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist category")
	}
	return created, nil
}
