package currency

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Latest returns the newest snapshot for the pair fetched at or after since. A zero since
// means any age. The second return is false when no row matches.
func (r *Repository) Latest(ctx context.Context, from, to enums.Currency, since time.Time) (*models.CurrencyExchangeRate, bool, error) {
	q := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", from, to)
	if !since.IsZero() {
		q = q.Where("fetched_at >= ?", since.UTC())
	}
	var rows []models.CurrencyExchangeRate
	if err := q.Order("fetched_at DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}

func (r *Repository) Insert(ctx context.Context, rows []models.CurrencyExchangeRate) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListNewestFirst returns every snapshot, optionally filtered by either side of the pair.
func (r *Repository) ListNewestFirst(ctx context.Context, from, to *enums.Currency) ([]models.CurrencyExchangeRate, error) {
	q := r.db.WithContext(ctx).Model(&models.CurrencyExchangeRate{})
	if from != nil {
		q = q.Where("from_currency = ?", *from)
	}
	if to != nil {
		q = q.Where("to_currency = ?", *to)
	}
	var rows []models.CurrencyExchangeRate
	err := q.Order("fetched_at DESC").Find(&rows).Error
	return rows, err
}
