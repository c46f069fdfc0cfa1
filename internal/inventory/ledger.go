package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

// Ledger applies quantity changes inside a transaction owned by the caller.
// Every read that precedes a write holds the row lock.
type Ledger struct {
	repo *Repository
}

func NewLedger(tx *gorm.DB) *Ledger {
	return &Ledger{repo: NewRepository(tx)}
}

// Level returns the locked row for (product, branch).
func (l *Ledger) Level(ctx context.Context, productID, branchID uuid.UUID) (*models.Stock, error) {
	row, err := l.repo.LockLevel(ctx, productID, branchID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found for product at branch").
				WithDetails(map[string]any{"product_id": productID, "branch_id": branchID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	return row, nil
}

// Check fails with INSUFFICIENT_STOCK when fewer than qty units are available.
func (l *Ledger) Check(ctx context.Context, productID, branchID uuid.UUID, qty int) (*models.Stock, error) {
	row, err := l.repo.LockLevel(ctx, productID, branchID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, insufficient(productID, branchID, 0, qty)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if row.Quantity < qty {
		return nil, insufficient(productID, branchID, row.Quantity, qty)
	}
	return row, nil
}

// Debit removes qty after verifying availability under the row lock.
func (l *Ledger) Debit(ctx context.Context, productID, branchID uuid.UUID, qty int) (*models.Stock, error) {
	if err := validateQty(qty); err != nil {
		return nil, err
	}
	row, err := l.Check(ctx, productID, branchID, qty)
	if err != nil {
		return nil, err
	}
	return l.adjust(ctx, row, -qty)
}

// DebitUnchecked removes qty with no availability check. The quantity may go negative.
func (l *Ledger) DebitUnchecked(ctx context.Context, productID, branchID uuid.UUID, qty int) (*models.Stock, error) {
	if err := validateQty(qty); err != nil {
		return nil, err
	}
	row, err := l.Level(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	return l.adjust(ctx, row, -qty)
}

// Credit adds qty, creating the row with minStock when it does not exist yet.
func (l *Ledger) Credit(ctx context.Context, productID, branchID uuid.UUID, qty, minStock int) (*models.Stock, error) {
	if err := validateQty(qty); err != nil {
		return nil, err
	}
	if minStock <= 0 {
		minStock = DefaultMinStock
	}
	if err := l.repo.UpsertAdd(ctx, productID, branchID, qty, minStock); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit stock")
	}
	return l.Level(ctx, productID, branchID)
}

func (l *Ledger) adjust(ctx context.Context, row *models.Stock, delta int) (*models.Stock, error) {
	if err := l.repo.AdjustQuantity(ctx, row.ID, delta); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
	row.Quantity += delta
	return row, nil
}

func validateQty(qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	return nil
}

func insufficient(productID, branchID uuid.UUID, available, requested int) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "insufficient stock: %d available, %d requested", available, requested).
		WithDetails(map[string]any{
			"product_id": productID,
			"branch_id":  branchID,
			"available":  available,
			"requested":  requested,
		})
}
