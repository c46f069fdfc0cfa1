package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
)

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB     dbClient
	Alerts *alerts.Dispatcher
	Logger *logger.Logger
}

// Service is the stock ledger's transactional entry point.
type Service struct {
	db     dbClient
	alerts *alerts.Dispatcher
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{db: params.DB, alerts: params.Alerts, logg: params.Logger}, nil
}

func (s *Service) Get(ctx context.Context, productID, branchID uuid.UUID) (*LevelDTO, error) {
	row, err := NewRepository(s.db.DB()).FindLevel(ctx, productID, branchID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found for product at branch")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	dto := ToLevelDTO(*row)
	return &dto, nil
}

// Transfer moves qty from source to target in one transaction. Rows are locked in a
// stable branch order so concurrent opposite transfers cannot deadlock.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.SourceBranchID == input.TargetBranchID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "source and target branch must differ")
	}
	if err := validateQty(input.Quantity); err != nil {
		return nil, err
	}

	var source, target *models.Stock
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if ok, err := repo.BranchExists(ctx, input.TargetBranchID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target branch")
		} else if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "target branch not found")
		}

		ledger := &Ledger{repo: repo}
		first, second := input.SourceBranchID, input.TargetBranchID
		if second.String() < first.String() {
			first, second = second, first
		}
		for _, branchID := range []uuid.UUID{first, second} {
			if _, err := repo.LockLevel(ctx, input.ProductID, branchID); err != nil && !db.IsNotFound(err) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock")
			}
		}

		src, err := ledger.Level(ctx, input.ProductID, input.SourceBranchID)
		if err != nil {
			return err
		}
		if source, err = ledger.Debit(ctx, input.ProductID, input.SourceBranchID, input.Quantity); err != nil {
			return err
		}
		target, err = ledger.Credit(ctx, input.ProductID, input.TargetBranchID, input.Quantity, src.MinStock)
		return err
	})
	if err != nil {
		return nil, err
	}

	raised := s.alerts.Dispatch(ctx, alerts.LevelFromStock(*source))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id":    input.ProductID.String(),
		"source_branch": input.SourceBranchID.String(),
		"target_branch": input.TargetBranchID.String(),
		"quantity":      input.Quantity,
	})
	s.logg.Info(logCtx, "stock transferred")

	return &TransferResult{
		Source: ToLevelDTO(*source),
		Target: ToLevelDTO(*target),
		Alerts: raised,
	}, nil
}

func (s *Service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*LevelList, error) {
	rows, total, err := NewRepository(s.db.DB()).List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock")
	}
	items := make([]LevelDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToLevelDTO(row))
	}
	return &LevelList{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

// Update sets quantity and/or threshold on one row and raises an alert if the result is low.
func (s *Service) Update(ctx context.Context, stockID uuid.UUID, input UpdateInput) (*LevelDTO, error) {
	if input.Quantity == nil && input.MinStock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity or min_stock is required")
	}
	if input.MinStock != nil && *input.MinStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_stock must not be negative")
	}

	var updated *models.Stock
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := repo.LockByID(ctx, stockID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}
		if input.Quantity != nil {
			row.Quantity = *input.Quantity
		}
		if input.MinStock != nil {
			row.MinStock = *input.MinStock
		}
		if err := repo.SetLevels(ctx, row.ID, row.Quantity, row.MinStock); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.alerts.Dispatch(ctx, alerts.LevelFromStock(*updated))
	dto := ToLevelDTO(*updated)
	return &dto, nil
}

// BulkUpdate applies each item in its own transaction. One failure does not stop the rest;
// the returned error aggregates every item failure.
func (s *Service) BulkUpdate(ctx context.Context, items []BulkItem) ([]BulkResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}
	results := make([]BulkResult, 0, len(items))
	var errs error
	for _, item := range items {
		result := BulkResult{StockID: item.StockID}
		if _, err := s.Update(ctx, item.StockID, UpdateInput{Quantity: item.Quantity, MinStock: item.MinStock}); err != nil {
			result.Error = err.Error()
			if typed := pkgerrors.As(err); typed != nil {
				result.Error = typed.Message()
			}
			errs = multierr.Append(errs, fmt.Errorf("stock %s: %w", item.StockID, err))
		} else {
			result.Updated = true
		}
		results = append(results, result)
	}
	if errs != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failed_items", len(multierr.Errors(errs))), "bulk stock update partially failed")
	}
	return results, errs
}

// Alerts lists every row at or below its threshold with the severity it would raise.
func (s *Service) Alerts(ctx context.Context, branchID *uuid.UUID) ([]alerts.Alert, error) {
	rows, err := NewRepository(s.db.DB()).ListAtOrBelowThreshold(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock alerts")
	}
	out := make([]alerts.Alert, 0, len(rows))
	for _, row := range rows {
		if alert, ok := alerts.Evaluate(alerts.LevelFromStock(row), row.UpdatedAt); ok {
			out = append(out, *alert)
		}
	}
	return out, nil
}

// Initialize sets the same quantity and threshold for the product at every active branch.
func (s *Service) Initialize(ctx context.Context, input InitializeInput) ([]LevelDTO, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	minStock := DefaultMinStock
	if input.MinStock != nil {
		minStock = *input.MinStock
	}

	var rows []models.Stock
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		ok, err := repo.ProductExists(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		branchIDs, err := repo.ActiveBranchIDs(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branches")
		}
		for _, branchID := range branchIDs {
			if err := repo.UpsertSet(ctx, input.ProductID, branchID, input.Quantity, minStock); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize stock")
			}
			row, err := repo.FindLevel(ctx, input.ProductID, branchID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock")
			}
			rows = append(rows, *row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]LevelDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToLevelDTO(row))
	}
	return out, nil
}
