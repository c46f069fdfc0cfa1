package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ferremas/backoffice/api/responses"
	"github.com/ferremas/backoffice/api/validators"
	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/internal/inventory"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
)

// StockService is the inventory ledger surface exposed over HTTP.
type StockService interface {
	Get(ctx context.Context, productID, branchID uuid.UUID) (*inventory.LevelDTO, error)
	List(ctx context.Context, filters inventory.ListFilters, params pagination.Params) (*inventory.LevelList, error)
	Transfer(ctx context.Context, input inventory.TransferInput) (*inventory.TransferResult, error)
	Update(ctx context.Context, stockID uuid.UUID, input inventory.UpdateInput) (*inventory.LevelDTO, error)
	BulkUpdate(ctx context.Context, items []inventory.BulkItem) ([]inventory.BulkResult, error)
	Alerts(ctx context.Context, branchID *uuid.UUID) ([]alerts.Alert, error)
	Initialize(ctx context.Context, input inventory.InitializeInput) ([]inventory.LevelDTO, error)
}

type bulkStockRequest struct {
	Items []inventory.BulkItem `json:"items" validate:"required,min=1,dive"`
}

type bulkStockResponse struct {
	Results []inventory.BulkResult `json:"results"`
	Failed  int                    `json:"failed"`
}

func ListStock(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			filters inventory.ListFilters
			err     error
		)
		if filters.BranchID, err = validators.QueryUUID(r, "branch_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.ProductID, err = validators.QueryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.LowStock, err = validators.QueryBool(r, "low_stock"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.OutOfStock, err = validators.QueryBool(r, "out_of_stock"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), filters, pagination.FromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetStock(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := pathUUID(r, "branchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		level, err := svc.Get(r.Context(), productID, branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, level)
	}
}

func TransferStock(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input inventory.TransferInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Transfer(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func UpdateStock(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stockID, err := pathUUID(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input inventory.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		level, err := svc.Update(r.Context(), stockID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, level)
	}
}

// BulkUpdateStock reports per-item outcomes with 200 even when some items failed.
func BulkUpdateStock(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		results, err := svc.BulkUpdate(r.Context(), req.Items)
		if err != nil && results == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := bulkStockResponse{Results: results}
		for _, res := range results {
			if !res.Updated {
				resp.Failed++
			}
		}
		responses.WriteSuccess(w, resp)
	}
}

func StockAlerts(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := validators.QueryUUID(r, "branch_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.Alerts(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func InitializeStock(svc StockService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input inventory.InitializeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		levels, err := svc.Initialize(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, levels)
	}
}
