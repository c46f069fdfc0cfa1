// Package payments records payment attempts against orders and reconciles them with the card
// gateway or manual bank-transfer confirmation.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/internal/orders"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/webpay"
)

// Gateway is the card payment gateway.
type Gateway interface {
	Create(ctx context.Context, req webpay.CreateRequest) (*webpay.CreateResponse, error)
	Commit(ctx context.Context, token string) (*webpay.CommitResponse, error)
	Refund(ctx context.Context, token string, amount decimal.Decimal) (*webpay.RefundResponse, error)
}

// Converter converts order amounts out of the base currency.
type Converter interface {
	Base() enums.Currency
	Convert(ctx context.Context, amount decimal.Decimal, from, to enums.Currency) (decimal.Decimal, error)
}

// OrderApprover advances paid orders. It is satisfied by orders.Service.
type OrderApprover interface {
	ApprovePaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, changedBy *uuid.UUID) (*orders.Outcome, error)
	Publish(ctx context.Context, outcome *orders.Outcome)
}

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB        dbClient
	Orders    OrderApprover
	Gateway   Gateway
	Converter Converter
	Notifier  notify.Publisher
	Logger    *logger.Logger
	ReturnURL string
	Now       func() time.Time
}

type Service struct {
	db        dbClient
	orders    OrderApprover
	gateway   Gateway
	converter Converter
	notifier  notify.Publisher
	logg      *logger.Logger
	returnURL string
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order approver is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if params.Converter == nil {
		return nil, errors.New("currency converter is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:        params.DB,
		orders:    params.Orders,
		gateway:   params.Gateway,
		converter: params.Converter,
		notifier:  notifier,
		logg:      params.Logger,
		returnURL: params.ReturnURL,
		now:       now,
	}, nil
}

// BuyOrder is the gateway reference for a payment: the order number plus the first six hex
// characters of the payment id.
func BuyOrder(orderNumber string, paymentID uuid.UUID) string {
	return orderNumber + "-" + strings.ReplaceAll(paymentID.String(), "-", "")[:6]
}

func (s *Service) repo() *Repository {
	return NewRepository(s.db.DB())
}

// Initiate opens a payment for an order. Card payments obtain a gateway token; bank transfers
// return the account to pay into.
func (s *Service) Initiate(ctx context.Context, actor orders.Actor, input InitiateInput) (*InitiateResult, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}
	currency := s.converter.Base()
	if input.Currency != nil {
		currency = *input.Currency
	}
	if !currency.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid currency %q", currency)
	}

	order, err := s.loadOrder(ctx, actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusApproved {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot pay for an order in status %s", order.Status)
	}
	if live, ok, err := s.repo().FindLive(ctx, order.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	} else if ok {
		return nil, duplicatePayment(live.ID)
	}

	// Order amounts keep full precision; rounding happens once, here.
	amount := order.FinalAmount()
	if currency == s.converter.Base() {
		amount = amount.Round(currency.Decimals())
	} else {
		amount, err = s.converter.Convert(ctx, amount, s.converter.Base(), currency)
		if err != nil {
			return nil, err
		}
	}

	payment := &models.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Amount:        amount,
		Currency:      currency,
		PaymentMethod: input.PaymentMethod,
		Status:        enums.PaymentStatusPending,
		Notes:         input.Notes,
	}
	if err := s.repo().Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, "uq_payments_live_order") || db.IsUniqueViolation(err, "payments.order_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a payment already exists for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"order_id":   order.ID.String(),
		"method":     payment.PaymentMethod.String(),
	})
	result := &InitiateResult{}

	if payment.PaymentMethod.IsCard() {
		buyOrder := BuyOrder(order.OrderNumber, payment.ID)
		created, err := s.gateway.Create(ctx, webpay.CreateRequest{
			BuyOrder:  buyOrder,
			SessionID: actor.UserID.String(),
			Amount:    amount,
			ReturnURL: s.returnURL,
		})
		if err != nil {
			s.logg.Error(logCtx, "gateway transaction create failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeExternal, err, "payment gateway unavailable").
				WithDetails(map[string]any{"payment_id": payment.ID})
		}
		fields := map[string]any{
			"token":     created.Token,
			"buy_order": buyOrder,
			"status":    enums.PaymentStatusProcessing,
		}
		if err := s.repo().Update(ctx, payment.ID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway token")
		}
		result.Token = created.Token
		result.RedirectURL = created.RedirectURL()
	} else {
		info := BankInfoFor(order.OrderNumber)
		result.BankInfo = &info
	}

	stored, err := s.repo().FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	result.Payment = ToDTO(*stored)
	s.publishStatus(ctx, *stored, order)
	s.logg.Info(logCtx, "payment initiated")
	return result, nil
}

// Confirm handles the gateway callback for token. An authorized commit completes the payment
// and approves a pending order; any other outcome fails the payment.
func (s *Service) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token_ws is required")
	}
	payment, err := s.repo().FindByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPending && payment.Status != enums.PaymentStatusProcessing {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment already %s", payment.Status)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"order_id":   payment.OrderID.String(),
	})

	committed, err := s.gateway.Commit(ctx, token)
	if err != nil {
		s.logg.Error(logCtx, "gateway commit failed", err)
		if _, failErr := s.fail(ctx, payment.ID, "gateway confirmation failed: "+err.Error()); failErr != nil {
			if pkgerrors.Is(failErr, pkgerrors.CodeStateConflict) {
				return nil, failErr
			}
			s.logg.Error(logCtx, "mark payment failed", failErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternal, err, "confirm payment with gateway")
	}

	if !committed.Authorized() {
		status := committed.Status
		if status == "" {
			status = fmt.Sprintf("response code %d", committed.ResponseCode)
		}
		failed, err := s.fail(ctx, payment.ID, "transaction rejected: "+status)
		if err != nil {
			return nil, err
		}
		s.logg.Warn(s.logg.WithField(logCtx, "gateway_status", status), "payment rejected by gateway")
		return &ConfirmResult{Approved: false, Payment: ToDTO(*failed)}, nil
	}

	reference := committed.Reference()
	completed, err := s.complete(ctx, payment.ID, func(p *models.Payment) error {
		if p.Status != enums.PaymentStatusPending && p.Status != enums.PaymentStatusProcessing {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment already %s", p.Status)
		}
		return nil
	}, completion{transactionID: reference, paidAt: s.now().UTC()}, nil)
	if err != nil {
		return nil, err
	}
	s.logg.Info(logCtx, "payment confirmed")
	return &ConfirmResult{Approved: true, Payment: ToDTO(*completed)}, nil
}

// ConfirmTransfer records a manually verified bank transfer.
func (s *Service) ConfirmTransfer(ctx context.Context, actor orders.Actor, input ConfirmTransferInput) (*PaymentDTO, error) {
	if err := requireFinance(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.TransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction_id is required")
	}
	paidAt := s.now().UTC()
	if input.PaymentDate != nil {
		paidAt = input.PaymentDate.UTC()
	}
	changedBy := actor.UserID

	completed, err := s.complete(ctx, input.PaymentID, func(p *models.Payment) error {
		if p.PaymentMethod != enums.PaymentMethodBankTransfer {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment is not a bank transfer")
		}
		if p.Status != enums.PaymentStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is not pending (current status %s)", p.Status)
		}
		return nil
	}, completion{transactionID: input.TransactionID, paidAt: paidAt, notes: input.Notes}, &changedBy)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id": completed.ID.String(),
		"order_id":   completed.OrderID.String(),
	})
	s.logg.Info(logCtx, "bank transfer confirmed")
	dto := ToDTO(*completed)
	return &dto, nil
}

type completion struct {
	transactionID string
	paidAt        time.Time
	notes         *string
}

// complete marks the payment completed and approves its order in one transaction, then
// publishes the side effects.
func (s *Service) complete(ctx context.Context, paymentID uuid.UUID, check func(*models.Payment) error, c completion, changedBy *uuid.UUID) (*models.Payment, error) {
	var outcome *orders.Outcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo().WithTx(tx)
		payment, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if err := check(payment); err != nil {
			return err
		}
		fields := map[string]any{
			"status":         enums.PaymentStatusCompleted,
			"transaction_id": c.transactionID,
			"payment_date":   c.paidAt,
		}
		if c.notes != nil {
			fields["notes"] = *c.notes
		}
		if err := repo.Update(ctx, payment.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
		}
		outcome, err = s.orders.ApprovePaidTx(ctx, tx, payment.OrderID, changedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.orders.Publish(ctx, outcome)
	payment, err := s.repo().FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	s.publishStatus(ctx, *payment, nil)
	return payment, nil
}

// fail marks an unsettled payment failed under a row lock. A payment another callback
// already settled is left alone and reported as a state conflict.
func (s *Service) fail(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo().WithTx(tx)
		var err error
		payment, err = repo.LockByID(ctx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		changed, err := repo.UpdateUnsettled(ctx, paymentID, map[string]any{
			"status": enums.PaymentStatusFailed,
			"notes":  reason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
		}
		if !changed {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment already %s", payment.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	payment, err = s.repo().FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	s.publishStatus(ctx, *payment, nil)
	return payment, nil
}

// Cancel withdraws a payment that has not completed.
func (s *Service) Cancel(ctx context.Context, actor orders.Actor, paymentID uuid.UUID, notes *string) (*PaymentDTO, error) {
	if err := requireFinance(actor); err != nil {
		return nil, err
	}
	reason := "Payment cancelled manually"
	if notes != nil && strings.TrimSpace(*notes) != "" {
		reason = *notes
	}
	payment, err := s.cancel(ctx, paymentID, reason, func(p *models.Payment) error {
		if p.Status == enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a completed payment cannot be cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*payment)
	return &dto, nil
}

func (s *Service) cancel(ctx context.Context, paymentID uuid.UUID, reason string, check func(*models.Payment) error) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo().WithTx(tx)
		var err error
		payment, err = repo.LockByID(ctx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if err := check(payment); err != nil {
			return err
		}
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status": enums.PaymentStatusCancelled,
			"notes":  reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment")
		}
		payment.Status = enums.PaymentStatusCancelled
		payment.Notes = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishStatus(ctx, *payment, nil)
	s.logg.Info(s.logg.WithField(ctx, "payment_id", payment.ID.String()), "payment cancelled")
	return payment, nil
}

// CancelStale cancels pending and processing payments created before cutoff, one transaction each.
func (s *Service) CancelStale(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.repo().ListStaleIDs(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payments")
	}
	var errs error
	cancelled := 0
	for _, id := range ids {
		_, err := s.cancel(ctx, id, "Expired without confirmation", func(p *models.Payment) error {
			if p.Status != enums.PaymentStatusPending && p.Status != enums.PaymentStatusProcessing {
				return errSkip
			}
			return nil
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %s: %w", id, err))
			continue
		}
		cancelled++
	}
	return cancelled, errs
}

var errSkip = errors.New("payment no longer pending")

// Refund reverses a completed card payment at the gateway.
func (s *Service) Refund(ctx context.Context, actor orders.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	if err := requireFinance(actor); err != nil {
		return nil, err
	}
	payment, err := s.repo().FindByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "only completed payments can be refunded (current status %s)", payment.Status)
	}
	if !payment.PaymentMethod.IsCard() || payment.Token == nil || *payment.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only card payments can be refunded through the gateway")
	}

	logCtx := s.logg.WithField(ctx, "payment_id", payment.ID.String())
	refund, err := s.gateway.Refund(ctx, *payment.Token, payment.Amount)
	if err != nil {
		s.logg.Error(logCtx, "gateway refund failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternal, err, "refund payment with gateway")
	}

	note := "Refunded: " + refund.Type
	if err := s.repo().Update(ctx, payment.ID, map[string]any{
		"status": enums.PaymentStatusRefunded,
		"notes":  note,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
	}
	payment.Status = enums.PaymentStatusRefunded
	payment.Notes = &note
	s.publishStatus(ctx, *payment, nil)
	s.logg.Info(logCtx, "payment refunded")
	dto := ToDTO(*payment)
	return &dto, nil
}

func (s *Service) Get(ctx context.Context, actor orders.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.repo().FindByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if _, err := s.loadOrder(ctx, actor, payment.OrderID); err != nil {
		return nil, err
	}
	dto := ToDTO(*payment)
	return &dto, nil
}

func (s *Service) ByOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) ([]PaymentDTO, error) {
	if _, err := s.loadOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out, nil
}

// loadOrder returns the order when the actor owns it or is staff.
func (s *Service) loadOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo().FindOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.IsStaff() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *Service) publishStatus(ctx context.Context, payment models.Payment, order *models.Order) {
	if order == nil {
		loaded, err := s.repo().FindOrder(ctx, payment.OrderID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "payment_id", payment.ID.String()), "payment event skipped: order not loaded")
			return
		}
		order = loaded
	}
	evt := notify.NewEvent(enums.EventPaymentStatus, StatusChange{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		OrderNumber: order.OrderNumber,
		Status:      payment.Status,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		ChangedAt:   s.now().UTC(),
	}).ForUser(order.UserID)
	s.notifier.Enqueue(ctx, evt)
}

func requireFinance(actor orders.Actor) error {
	if actor.Role != enums.RoleAdmin && actor.Role != enums.RoleAccountant {
		return pkgerrors.New(pkgerrors.CodeForbidden, "requires accountant or admin role")
	}
	return nil
}

func duplicatePayment(existing uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a payment already exists for this order").
		WithDetails(map[string]any{"payment_id": existing})
}
