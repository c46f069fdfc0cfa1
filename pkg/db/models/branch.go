package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch is a physical store or warehouse that holds its own stock.
type Branch struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Address   string    `gorm:"column:address;not null"`
	City      string    `gorm:"column:city;not null"`
	Region    string    `gorm:"column:region;not null"`
	Phone     *string   `gorm:"column:phone"`
	IsMain    bool      `gorm:"column:is_main;not null;default:false"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Branch) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}
