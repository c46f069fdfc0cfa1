package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

type InitiateInput struct {
	OrderID       uuid.UUID           `json:"order_id" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required,enum"`
	Currency      *enums.Currency     `json:"currency" validate:"omitempty,enum"`
	Notes         *string             `json:"notes"`
}

type ConfirmTransferInput struct {
	PaymentID     uuid.UUID  `json:"payment_id" validate:"required"`
	TransactionID string     `json:"transaction_id" validate:"required"`
	PaymentDate   *time.Time `json:"payment_date"`
	Notes         *string    `json:"notes"`
}

// BankInfo is the account a bank-transfer payment is sent to.
type BankInfo struct {
	Bank          string `json:"bank"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
	RUT           string `json:"rut"`
	Email         string `json:"email"`
	Reference     string `json:"reference"`
}

// BankInfoFor returns the transfer instructions for an order.
func BankInfoFor(orderNumber string) BankInfo {
	return BankInfo{
		Bank:          "Banco de FERREMAS",
		AccountType:   "Cuenta Corriente",
		AccountNumber: "12345678",
		RUT:           "76.543.210-K",
		Email:         "pagos@ferremas.cl",
		Reference:     orderNumber,
	}
}

type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	BuyOrder      *string             `json:"buy_order,omitempty"`
	PaymentDate   *time.Time          `json:"payment_date,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func ToDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		BuyOrder:      p.BuyOrder,
		PaymentDate:   p.PaymentDate,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type InitiateResult struct {
	Payment     PaymentDTO `json:"payment"`
	Token       string     `json:"token,omitempty"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	BankInfo    *BankInfo  `json:"account_info,omitempty"`
}

// ConfirmResult reports the outcome of a gateway callback. Approved is false when the
// gateway declined the transaction.
type ConfirmResult struct {
	Approved bool       `json:"approved"`
	Payment  PaymentDTO `json:"payment"`
}

// StatusChange is the payload of payment_status events.
type StatusChange struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number,omitempty"`
	Status      enums.PaymentStatus `json:"status"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    enums.Currency      `json:"currency"`
	ChangedAt   time.Time           `json:"changed_at"`
}
