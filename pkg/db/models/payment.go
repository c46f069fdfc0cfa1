package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/enums"
)

// Payment is one payment attempt against an order.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'CLP'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransactionID *string             `gorm:"column:transaction_id"`
	BuyOrder      *string             `gorm:"column:buy_order"`
	Token         *string             `gorm:"column:token;index"`
	PaymentDate   *time.Time          `gorm:"column:payment_date"`
	Notes         *string             `gorm:"column:notes"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// CurrencyExchangeRate is an immutable snapshot of a fetched rate.
type CurrencyExchangeRate struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FromCurrency enums.Currency  `gorm:"column:from_currency;type:text;not null"`
	ToCurrency   enums.Currency  `gorm:"column:to_currency;type:text;not null"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(20,10);not null"`
	FetchedAt    time.Time       `gorm:"column:fetched_at;not null"`
}

func (r *CurrencyExchangeRate) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
