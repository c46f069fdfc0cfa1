package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products in the catalog.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Product is a catalog entry. Price is the base price before DiscountPercentage.
type Product struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU                string          `gorm:"column:sku;not null;uniqueIndex"`
	Name               string          `gorm:"column:name;not null"`
	Description        *string         `gorm:"column:description"`
	Brand              *string         `gorm:"column:brand"`
	CategoryID         *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	Stock              []Stock         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PriceHistory is an append-only record of price changes.
type PriceHistory struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0"`
	ChangedBy          *uuid.UUID      `gorm:"column:changed_by;type:uuid"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PriceHistory) TableName() string { return "price_history" }

func (h *PriceHistory) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}
