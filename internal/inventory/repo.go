package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/pagination"
)

// Repository persists stock rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// LockLevel loads the (product, branch) row with a row lock held until the transaction ends.
func (r *Repository) LockLevel(ctx context.Context, productID, branchID uuid.UUID) (*models.Stock, error) {
	var row models.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Product").
		Preload("Branch").
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LockByID loads a stock row by id with a row lock.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var row models.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Product").
		Preload("Branch").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindLevel(ctx context.Context, productID, branchID uuid.UUID) (*models.Stock, error) {
	var row models.Stock
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Branch").
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AdjustQuantity applies delta in SQL so the row never round-trips a stale quantity.
func (r *Repository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) SetLevels(ctx context.Context, id uuid.UUID, quantity, minStock int) error {
	return r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":   quantity,
			"min_stock":  minStock,
			"updated_at": time.Now().UTC(),
		}).Error
}

// UpsertAdd inserts the row or adds quantity to the existing one.
func (r *Repository) UpsertAdd(ctx context.Context, productID, branchID uuid.UUID, quantity, minStock int) error {
	row := models.Stock{ProductID: productID, BranchID: branchID, Quantity: quantity, MinStock: minStock}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("stock.quantity + excluded.quantity"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&row).Error
}

// UpsertSet inserts the row or overwrites its quantity and threshold.
func (r *Repository) UpsertSet(ctx context.Context, productID, branchID uuid.UUID, quantity, minStock int) error {
	row := models.Stock{ProductID: productID, BranchID: branchID, Quantity: quantity, MinStock: minStock}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "min_stock", "updated_at"}),
		}).
		Create(&row).Error
}

// ActiveBranchIDs returns every branch that can hold stock.
func (r *Repository) ActiveBranchIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Branch{}).
		Where("is_active = ?", true).
		Order("name ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) BranchExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Branch{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Stock, int64, error) {
	params = params.Normalize()
	query := r.db.WithContext(ctx).Model(&models.Stock{})
	query = applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Stock
	err := applyFilters(r.db.WithContext(ctx), filters).
		Preload("Product").
		Preload("Branch").
		Order("quantity ASC").
		Order("id ASC").
		Limit(params.PerPage).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListAtOrBelowThreshold returns every row whose quantity is at or under min_stock.
func (r *Repository) ListAtOrBelowThreshold(ctx context.Context, branchID *uuid.UUID) ([]models.Stock, error) {
	query := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Branch").
		Where("quantity <= min_stock")
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	var rows []models.Stock
	if err := query.Order("quantity ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func applyFilters(query *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.BranchID != nil {
		query = query.Where("branch_id = ?", *filters.BranchID)
	}
	if filters.ProductID != nil {
		query = query.Where("product_id = ?", *filters.ProductID)
	}
	if filters.OutOfStock {
		query = query.Where("quantity <= 0")
	} else if filters.LowStock {
		query = query.Where("quantity <= min_stock")
	}
	return query
}
