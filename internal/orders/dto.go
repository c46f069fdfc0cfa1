package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/pagination"
)

// Actor is the authenticated caller on whose behalf an operation runs.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsStaff reports whether the actor sees every order rather than only their own.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput is the request to place an order.
type CreateOrderInput struct {
	Items           []ItemInput          `json:"items" validate:"required,min=1,dive"`
	DeliveryMethod  enums.DeliveryMethod `json:"delivery_method" validate:"required,enum"`
	DeliveryAddress *string              `json:"delivery_address"`
	BranchID        *uuid.UUID           `json:"branch_id"`
	DeliveryCost    *decimal.Decimal     `json:"delivery_cost" validate:"omitempty,gte=0"`
	Notes           *string              `json:"notes"`
}

// StatusUpdateInput requests a lifecycle transition.
type StatusUpdateInput struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
	Notes  *string           `json:"notes"`
}

type ListFilters struct {
	UserID   *uuid.UUID
	BranchID *uuid.UUID
	Status   *enums.OrderStatus
}

// StatusChange describes a transition that was applied.
type StatusChange struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	OldStatus   enums.OrderStatus `json:"old_status"`
	NewStatus   enums.OrderStatus `json:"new_status"`
	Notes       *string           `json:"notes,omitempty"`
	ChangedBy   *uuid.UUID        `json:"changed_by,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// TransitionResult is returned by status updates. Changed is false for the idempotent no-op.
type TransitionResult struct {
	Changed bool      `json:"changed"`
	Message string    `json:"message"`
	Order   *OrderDTO `json:"order"`
}

type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	ProductSKU  string          `json:"product_sku,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type HistoryDTO struct {
	OldStatus enums.OrderStatus `json:"old_status"`
	NewStatus enums.OrderStatus `json:"new_status"`
	Notes     *string           `json:"notes,omitempty"`
	ChangedBy *uuid.UUID        `json:"changed_by,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type PaymentSummary struct {
	ID            uuid.UUID           `json:"id"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.PaymentStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

type OrderDTO struct {
	ID              uuid.UUID            `json:"id"`
	OrderNumber     string               `json:"order_number"`
	UserID          uuid.UUID            `json:"user_id"`
	BranchID        *uuid.UUID           `json:"branch_id,omitempty"`
	Status          enums.OrderStatus    `json:"status"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	DiscountAmount  decimal.Decimal      `json:"discount_amount"`
	DeliveryMethod  enums.DeliveryMethod `json:"delivery_method"`
	DeliveryAddress *string              `json:"delivery_address,omitempty"`
	DeliveryCost    decimal.Decimal      `json:"delivery_cost"`
	FinalAmount     decimal.Decimal      `json:"final_amount"`
	Notes           *string              `json:"notes,omitempty"`
	Items           []ItemDTO            `json:"items,omitempty"`
	History         []HistoryDTO         `json:"status_history,omitempty"`
	Payments        []PaymentSummary     `json:"payments,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderList struct {
	Items []OrderDTO      `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// ToDTO maps an order and whatever associations were loaded.
func ToDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		BranchID:        order.BranchID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		DiscountAmount:  order.DiscountAmount,
		DeliveryMethod:  order.DeliveryMethod,
		DeliveryAddress: order.DeliveryAddress,
		DeliveryCost:    order.DeliveryCost,
		FinalAmount:     order.FinalAmount(),
		Notes:           order.Notes,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		row := ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.LineTotal(),
		}
		if item.Product != nil {
			row.ProductName = item.Product.Name
			row.ProductSKU = item.Product.SKU
		}
		dto.Items = append(dto.Items, row)
	}
	for _, h := range order.History {
		dto.History = append(dto.History, HistoryDTO{
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			Notes:     h.Notes,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		})
	}
	for _, p := range order.Payments {
		dto.Payments = append(dto.Payments, PaymentSummary{
			ID:            p.ID,
			Amount:        p.Amount,
			Currency:      p.Currency,
			PaymentMethod: p.PaymentMethod,
			Status:        p.Status,
			CreatedAt:     p.CreatedAt,
		})
	}
	return dto
}
