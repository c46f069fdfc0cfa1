package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ferremas/backoffice/internal/inventory"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedQuantity is the stock every branch starts with when a product is created.
const SeedQuantity = 5

var hundred = decimal.NewFromInt(100)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, changedBy *uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	SetPrice(ctx context.Context, changedBy *uuid.UUID, productID uuid.UUID, input SetPriceInput) (*ProductDTO, error)
	PriceHistory(ctx context.Context, productID uuid.UUID) ([]PriceHistoryDTO, error)
	ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) (*ProductList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// service implements the product service.
type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// CreateProduct inserts the product, its first price history row and a seeded stock row at
// every branch.
func (s *service) CreateProduct(ctx context.Context, changedBy *uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)
	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	discount := decimal.Zero
	if input.DiscountPercentage != nil {
		discount = *input.DiscountPercentage
	}
	if err := validateDiscountPercent(discount); err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		exists, err := txRepo.SKUExists(ctx, input.SKU)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check sku")
		}
		if exists {
			return duplicateSKU(input.SKU)
		}
		if input.CategoryID != nil {
			ok, err := txRepo.CategoryExists(ctx, *input.CategoryID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "category not found")
			}
		}

		product := &models.Product{
			SKU:                input.SKU,
			Name:               input.Name,
			Description:        input.Description,
			Brand:              input.Brand,
			CategoryID:         input.CategoryID,
			Price:              input.Price,
			DiscountPercentage: discount,
			IsActive:           true,
		}
		if err := txRepo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateSKU(input.SKU)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = product.ID

		if err := txRepo.AppendPriceHistory(ctx, &models.PriceHistory{
			ProductID:          product.ID,
			Price:              product.Price,
			DiscountPercentage: discount,
			ChangedBy:          changedBy,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert price history")
		}

		branchIDs, err := txRepo.BranchIDs(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list branches")
		}
		stock := inventory.NewRepository(tx)
		for _, branchID := range branchIDs {
			if err := stock.UpsertSet(ctx, product.ID, branchID, SeedQuantity, inventory.DefaultMinStock); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seed stock")
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	product, err := s.repo.GetProductDetail(ctx, createdID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id": product.ID.String(),
		"sku":        product.SKU,
		"branches":   len(product.Stock),
	})
	s.logg.Info(logCtx, "product created")
	return NewProductDTO(product), nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

// SetPrice updates the price and appends the change to the price history.
func (s *service) SetPrice(ctx context.Context, changedBy *uuid.UUID, productID uuid.UUID, input SetPriceInput) (*ProductDTO, error) {
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.DiscountPercentage != nil {
		if err := validateDiscountPercent(*input.DiscountPercentage); err != nil {
			return nil, err
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		product.Price = input.Price
		if input.DiscountPercentage != nil {
			product.DiscountPercentage = *input.DiscountPercentage
		}
		if err := txRepo.UpdatePrice(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update price")
		}
		return txRepo.AppendPriceHistory(ctx, &models.PriceHistory{
			ProductID:          product.ID,
			Price:              product.Price,
			DiscountPercentage: product.DiscountPercentage,
			ChangedBy:          changedBy,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set price")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product price changed")
	return s.GetProduct(ctx, productID)
}

func (s *service) PriceHistory(ctx context.Context, productID uuid.UUID) ([]PriceHistoryDTO, error) {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	rows, err := s.repo.ListPriceHistory(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price history")
	}
	out := make([]PriceHistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, PriceHistoryDTO{
			Price:              row.Price,
			DiscountPercentage: row.DiscountPercentage,
			ChangedBy:          row.ChangedBy,
			CreatedAt:          row.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) (*ProductList, error) {
	rows, total, err := s.repo.ListProducts(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewProductDTO(&rows[i]))
	}
	return &ProductList{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func validateDiscountPercent(value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percentage must be between 0 and 100")
	}
	return nil
}

func duplicateSKU(sku string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "product with sku %q already exists", sku)
}
