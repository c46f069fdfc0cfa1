package product

import (
	"time"

	"github.com/ferremas/backoffice/internal/pricing"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU                string           `json:"sku" validate:"required,sku"`
	Name               string           `json:"name" validate:"required,max=200"`
	Description        *string          `json:"description"`
	Brand              *string          `json:"brand"`
	CategoryID         *uuid.UUID       `json:"category_id"`
	Price              decimal.Decimal  `json:"price" validate:"gte=0"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
}

// SetPriceInput changes the base price and, optionally, the discount percentage.
type SetPriceInput struct {
	Price              decimal.Decimal  `json:"price" validate:"gte=0"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
}

// ListFilters describe the supported filter knobs for the catalog listing.
type ListFilters struct {
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	Brand           *string    `json:"brand,omitempty"`
	Query           string     `json:"q,omitempty"`
	IncludeInactive bool       `json:"include_inactive,omitempty"`
}

// BranchStock is the stock of the product at one branch.
type BranchStock struct {
	BranchID   uuid.UUID `json:"branch_id"`
	BranchName string    `json:"branch_name,omitempty"`
	Quantity   int       `json:"quantity"`
	MinStock   int       `json:"min_stock"`
}

// ProductDTO is the API representation of a product.
type ProductDTO struct {
	ID                 uuid.UUID       `json:"id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Description        *string         `json:"description,omitempty"`
	Brand              *string         `json:"brand,omitempty"`
	CategoryID         *uuid.UUID      `json:"category_id,omitempty"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	IsActive           bool            `json:"is_active"`
	Stock              []BranchStock   `json:"stock,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewProductDTO maps a product and any preloaded stock rows.
func NewProductDTO(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                 p.ID,
		SKU:                p.SKU,
		Name:               p.Name,
		Description:        p.Description,
		Brand:              p.Brand,
		CategoryID:         p.CategoryID,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		CurrentPrice:       pricing.CurrentPrice(*p).Round(2),
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	for _, row := range p.Stock {
		entry := BranchStock{BranchID: row.BranchID, Quantity: row.Quantity, MinStock: row.MinStock}
		if row.Branch != nil {
			entry.BranchName = row.Branch.Name
		}
		dto.Stock = append(dto.Stock, entry)
	}
	return dto
}

type PriceHistoryDTO struct {
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ChangedBy          *uuid.UUID      `json:"changed_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ProductList is a page of catalog entries.
type ProductList struct {
	Items []ProductDTO    `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}
