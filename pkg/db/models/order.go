package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/enums"
)

// Order is a customer order. FinalAmount is derived, never stored.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	BranchID        *uuid.UUID           `gorm:"column:branch_id;type:uuid;index"`
	Status          enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount     decimal.Decimal      `gorm:"column:total_amount;type:numeric(18,6);not null"`
	DiscountAmount  decimal.Decimal      `gorm:"column:discount_amount;type:numeric(18,6);not null;default:0"`
	DeliveryMethod  enums.DeliveryMethod `gorm:"column:delivery_method;type:text;not null"`
	DeliveryAddress *string              `gorm:"column:delivery_address"`
	DeliveryCost    decimal.Decimal      `gorm:"column:delivery_cost;type:numeric(12,2);not null;default:0"`
	Notes           *string              `gorm:"column:notes"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History         []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments        []Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// FinalAmount is total - discount + delivery cost.
func (o Order) FinalAmount() decimal.Decimal {
	return o.TotalAmount.Sub(o.DiscountAmount).Add(o.DeliveryCost)
}

// OrderItem snapshots the unit price at creation time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(16,6);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory is the append-only audit log of status changes.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	OldStatus enums.OrderStatus `gorm:"column:old_status;type:text;not null"`
	NewStatus enums.OrderStatus `gorm:"column:new_status;type:text;not null"`
	Notes     *string           `gorm:"column:notes"`
	ChangedBy *uuid.UUID        `gorm:"column:changed_by;type:uuid"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}
