package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) FindByToken(ctx context.Context, token string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindLive returns the payment currently occupying the order's slot, if any.
func (r *Repository) FindLive(ctx context.Context, orderID uuid.UUID) (*models.Payment, bool, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, enums.LivePaymentStatuses).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	return &rows[0], true, nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// Update writes the given columns and refreshes updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// unsettled are the statuses a gateway outcome may still overwrite.
var unsettled = []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing}

// UpdateUnsettled writes fields only while the payment is still PENDING or PROCESSING and
// reports whether a row changed.
func (r *Repository) UpdateUnsettled(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, unsettled).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// ListStaleIDs returns unconfirmed payments created before cutoff.
func (r *Repository) ListStaleIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status IN ? AND created_at < ?", unsettled, cutoff.UTC()).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
