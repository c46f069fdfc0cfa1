package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock is the ledger row for one product at one branch. Quantity may go negative on oversell.
type Stock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_stock_product_branch"`
	BranchID  uuid.UUID `gorm:"column:branch_id;type:uuid;not null;uniqueIndex:uq_stock_product_branch"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	MinStock  int       `gorm:"column:min_stock;not null;default:5"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	Branch    *Branch   `gorm:"foreignKey:BranchID"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Stock) TableName() string { return "stock" }

func (s *Stock) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// IsLow reports whether the quantity sits at or below the alert threshold.
func (s Stock) IsLow() bool {
	return s.Quantity <= s.MinStock
}
