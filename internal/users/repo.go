package users

import (
	"context"
	"strings"
	"time"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	// is_active has a database default, so false must be written explicitly.
	if err := r.db.WithContext(ctx).Select("*").Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUsername retrieves the user matching the provided username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IdentityTaken reports which of username and email are already registered.
func (r *Repository) IdentityTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var rows []models.User
	err = r.db.WithContext(ctx).
		Select("username", "email").
		Where("username = ? OR email = ?", username, email).
		Find(&rows).Error
	if err != nil {
		return false, false, err
	}
	for _, row := range rows {
		if row.Username == username {
			usernameTaken = true
		}
		if strings.EqualFold(row.Email, email) {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// List pages through users, newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.User, int64, error) {
	params = params.Normalize()
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.User{})
		if filters.Role != nil {
			q = q.Where("role = ?", *filters.Role)
		}
		if filters.Active != nil {
			q = q.Where("is_active = ?", *filters.Active)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.User
	err := scoped().
		Order("created_at DESC, id DESC").
		Limit(params.PerPage).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
