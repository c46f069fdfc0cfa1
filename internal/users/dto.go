package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/pagination"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                     uuid.UUID  `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	FirstName              *string    `json:"first_name,omitempty"`
	LastName               *string    `json:"last_name,omitempty"`
	Phone                  *string    `json:"phone,omitempty"`
	Address                *string    `json:"address,omitempty"`
	Role                   enums.Role `json:"role"`
	IsActive               bool       `json:"is_active"`
	PasswordChangeRequired bool       `json:"password_change_required"`
	LastLoginAt            *time.Time `json:"last_login_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username               string
	Email                  string
	PasswordHash           string
	FirstName              *string
	LastName               *string
	Phone                  *string
	Address                *string
	Role                   enums.Role
	IsActive               *bool
	PasswordChangeRequired bool
}

// CreateUserInput is the admin payload for provisioning an account of any role.
type CreateUserInput struct {
	Username  string     `json:"username" validate:"required,min=3,max=50"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password,omitempty" validate:"omitempty,min=8"`
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Phone     *string    `json:"phone"`
	Address   *string    `json:"address"`
	Role      enums.Role `json:"role" validate:"required,enum"`
}

// CreatedUser is returned to the admin. TemporaryPassword is set only when one was generated.
type CreatedUser struct {
	User              *UserDTO `json:"user"`
	TemporaryPassword string   `json:"temporary_password,omitempty"`
}

type ListFilters struct {
	Role   *enums.Role
	Active *bool
}

type UserList struct {
	Items []UserDTO       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                     u.ID,
		Username:               u.Username,
		Email:                  u.Email,
		FirstName:              u.FirstName,
		LastName:               u.LastName,
		Phone:                  u.Phone,
		Address:                u.Address,
		Role:                   u.Role,
		IsActive:               u.IsActive,
		PasswordChangeRequired: u.PasswordChangeRequired,
		LastLoginAt:            u.LastLoginAt,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	role := c.Role
	if role == "" {
		role = enums.RoleCustomer
	}

	return &models.User{
		Username:               c.Username,
		Email:                  c.Email,
		PasswordHash:           c.PasswordHash,
		FirstName:              c.FirstName,
		LastName:               c.LastName,
		Phone:                  c.Phone,
		Address:                c.Address,
		Role:                   role,
		IsActive:               isActive,
		PasswordChangeRequired: c.PasswordChangeRequired,
	}
}
