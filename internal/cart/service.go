package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductPricer resolves the live catalog price used when a line item is added.
type ProductPricer interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service owns the per-user cart and its derived total.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	SetItemQuantity(ctx context.Context, userID uuid.UUID, input SetQuantityInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, input RemoveItemInput) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo    Repository
	catalog ProductPricer
	tx      txRunner
}

// NewService builds the cart service.
func NewService(repo Repository, catalog ProductPricer, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product pricer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalog, tx: tx}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	// Re-price from the catalog on every add, including repeat adds.
	product, err := s.catalog.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var dto CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
			}
			cart, err = repo.Create(ctx, &models.Cart{UserID: userID, TotalPrice: decimal.Zero})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
			}
		}

		if existing := findItem(cart, input.ProductID); existing != nil {
			quantity := existing.Quantity + input.Quantity
			if err := repo.UpdateItemQuantity(ctx, existing.ID, quantity, product.Price); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line item")
			}
			existing.Quantity = quantity
			existing.UnitPrice = product.Price
		} else {
			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: input.ProductID,
				Quantity:  input.Quantity,
				UnitPrice: product.Price,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line item")
			}
			item.Product = product
			cart.Items = append(cart.Items, *item)
		}

		return s.finishMutation(ctx, repo, cart, &dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) SetItemQuantity(ctx context.Context, userID uuid.UUID, input SetQuantityInput) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var dto CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		item := findItem(cart, input.ProductID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}

		if err := repo.UpdateItemQuantity(ctx, item.ID, input.Quantity, item.UnitPrice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line item")
		}
		item.Quantity = input.Quantity

		return s.finishMutation(ctx, repo, cart, &dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, input RemoveItemInput) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var dto CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		item := findItem(cart, input.ProductID)
		if item == nil {
			// Already absent: success, total untouched.
			dto = ToCartDTO(cart)
			return nil
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete line item")
		}
		kept := cart.Items[:0]
		for _, candidate := range cart.Items {
			if candidate.ProductID != input.ProductID {
				kept = append(kept, candidate)
			}
		}
		cart.Items = kept

		return s.finishMutation(ctx, repo, cart, &dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := loadCart(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	dto := ToCartDTO(cart)
	return &dto, nil
}

// finishMutation recomputes the derived total, persists it, and fills the DTO.
func (s *service) finishMutation(ctx context.Context, repo Repository, cart *models.Cart, out *CartDTO) error {
	total := recomputeTotal(cart)
	if err := repo.UpdateTotal(ctx, cart.ID, total); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart total")
	}
	cart.TotalPrice = total
	*out = ToCartDTO(cart)
	return nil
}

func loadCart(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func findItem(cart *models.Cart, productID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}

func recomputeTotal(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
