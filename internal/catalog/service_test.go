package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
)

type stubRepo struct {
	products   map[uuid.UUID]*models.Product
	categories map[string]*models.Category

	createdCategories int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		products:   make(map[uuid.UUID]*models.Product),
		categories: make(map[string]*models.Category),
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := s.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, product := range s.products {
		if strings.Contains(strings.ToLower(product.Name), strings.ToLower(query)) {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (s *stubRepo) ListProducts(ctx context.Context, categoryID *uuid.UUID, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, product := range s.products {
		out = append(out, *product)
	}
	return out, nil
}

func (s *stubRepo) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	if category, ok := s.categories[strings.ToLower(name)]; ok {
		return category, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	s.categories[strings.ToLower(category.Name)] = category
	s.createdCategories++
	return category, nil
}

func (s *stubRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, category := range s.categories {
		out = append(out, *category)
	}
	return out, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestCreateProductEnsuresCategory(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, stubTx{})
	require.NoError(t, err)

	ctx := context.Background()
	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:         "Rice Cooker",
		Price:        decimal.RequireFromString("3450.00"),
		CategoryName: "Appliances",
		Stock:        10,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, 1, repo.createdCategories)

	// Second product in the same category reuses the existing row.
	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:         "Blender",
		Price:        decimal.RequireFromString("1200.00"),
		CategoryName: "appliances",
	})
	require.NoError(t, err)
	require.Equal(t, 1, repo.createdCategories)
}

func TestCreateProductValidation(t *testing.T) {
	svc, err := NewService(newStubRepo(), stubTx{})
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		Price: decimal.NewFromInt(10),
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		Name:  "Negative",
		Price: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetProductNotFound(t *testing.T) {
	svc, err := NewService(newStubRepo(), stubTx{})
	require.NoError(t, err)

	_, err = svc.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListProductsSearches(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, stubTx{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Ceramic Mug", Price: decimal.NewFromInt(250)})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Steel Flask", Price: decimal.NewFromInt(900)})
	require.NoError(t, err)

	rows, err := svc.ListProducts(ctx, "mug", nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Ceramic Mug", rows[0].Name)

	rows, err = svc.ListProducts(ctx, "", nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
