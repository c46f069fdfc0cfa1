package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/pagination"
)

// DefaultMinStock is the threshold applied to rows created without one.
const DefaultMinStock = 5

type ListFilters struct {
	BranchID   *uuid.UUID
	ProductID  *uuid.UUID
	LowStock   bool
	OutOfStock bool
}

type TransferInput struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	SourceBranchID uuid.UUID `json:"source_branch_id" validate:"required"`
	TargetBranchID uuid.UUID `json:"target_branch_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,gt=0"`
}

type UpdateInput struct {
	Quantity *int `json:"quantity" validate:"omitempty"`
	MinStock *int `json:"min_stock" validate:"omitempty,gte=0"`
}

type BulkItem struct {
	StockID  uuid.UUID `json:"stock_id" validate:"required"`
	Quantity *int      `json:"quantity" validate:"omitempty"`
	MinStock *int      `json:"min_stock" validate:"omitempty,gte=0"`
}

type BulkResult struct {
	StockID uuid.UUID `json:"stock_id"`
	Updated bool      `json:"updated"`
	Error   string    `json:"error,omitempty"`
}

type InitializeInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
	MinStock  *int      `json:"min_stock" validate:"omitempty,gte=0"`
}

// LevelDTO is the API view of a stock row.
type LevelDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	ProductSKU  string    `json:"product_sku,omitempty"`
	BranchID    uuid.UUID `json:"branch_id"`
	BranchName  string    `json:"branch_name,omitempty"`
	Quantity    int       `json:"quantity"`
	MinStock    int       `json:"min_stock"`
	IsLow       bool      `json:"is_low_stock"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LevelList struct {
	Items []LevelDTO      `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

type TransferResult struct {
	Source LevelDTO       `json:"source"`
	Target LevelDTO       `json:"target"`
	Alerts []alerts.Alert `json:"alerts,omitempty"`
}

func ToLevelDTO(row models.Stock) LevelDTO {
	dto := LevelDTO{
		ID:        row.ID,
		ProductID: row.ProductID,
		BranchID:  row.BranchID,
		Quantity:  row.Quantity,
		MinStock:  row.MinStock,
		IsLow:     row.IsLow(),
		UpdatedAt: row.UpdatedAt,
	}
	if row.Product != nil {
		dto.ProductName = row.Product.Name
		dto.ProductSKU = row.Product.SKU
	}
	if row.Branch != nil {
		dto.BranchName = row.Branch.Name
	}
	return dto
}
