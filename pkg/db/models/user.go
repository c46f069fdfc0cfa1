package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/enums"
)

// User is a customer or back-office employee.
type User struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username               string     `gorm:"column:username;not null;uniqueIndex"`
	Email                  string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash           string     `gorm:"column:password_hash;not null"`
	FirstName              *string    `gorm:"column:first_name"`
	LastName               *string    `gorm:"column:last_name"`
	Phone                  *string    `gorm:"column:phone"`
	Address                *string    `gorm:"column:address"`
	Role                   enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive               bool       `gorm:"column:is_active;not null;default:true"`
	PasswordChangeRequired bool       `gorm:"column:password_change_required;not null;default:false"`
	LastLoginAt            *time.Time `gorm:"column:last_login_at"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
