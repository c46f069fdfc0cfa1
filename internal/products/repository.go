package product

import (
	"context"
	"strings"
	"time"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// SKUExists reports whether any product already uses sku.
func (r *Repository) SKUExists(ctx context.Context, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("sku = ?", sku).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Stock").Create(product).Error
}

func (r *Repository) AppendPriceHistory(ctx context.Context, entry *models.PriceHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// UpdatePrice writes the new base price and discount percentage.
func (r *Repository) UpdatePrice(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"price":               product.Price,
			"discount_percentage": product.DiscountPercentage,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// BranchIDs returns every branch, active or not, in name order.
func (r *Repository) BranchIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Branch{}).Order("name ASC").Pluck("id", &ids).Error
	return ids, err
}

// GetProductDetail loads the product with its stock rows and their branches.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Stock", func(db *gorm.DB) *gorm.DB { return db.Order("branch_id ASC") }).
		Preload("Stock.Branch").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]models.PriceHistory, error) {
	var rows []models.PriceHistory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// ListProducts pages through the catalog using the supplied filters.
func (r *Repository) ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Product, int64, error) {
	params = params.Normalize()
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Product{})
		if filters.CategoryID != nil {
			q = q.Where("category_id = ?", *filters.CategoryID)
		}
		if filters.Brand != nil {
			q = q.Where("LOWER(brand) = ?", strings.ToLower(*filters.Brand))
		}
		if !filters.IncludeInactive {
			q = q.Where("is_active = ?", true)
		}
		if term := strings.TrimSpace(filters.Query); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(sku) LIKE ? ESCAPE '\\'", like, like)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Product
	err := scoped().
		Order("name ASC, id ASC").
		Limit(params.PerPage).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
