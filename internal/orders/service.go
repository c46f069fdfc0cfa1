package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/internal/inventory"
	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/internal/pricing"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/metrics"
	"github.com/ferremas/backoffice/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns order creation and the status state machine.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusUpdateInput) (*TransitionResult, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, notes *string) (*TransitionResult, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor Actor, filters ListFilters, params pagination.Params) (*OrderList, error)

	// ApprovePaidTx advances a pending order to approved inside the caller's transaction.
	// It returns nil when the order is no longer pending. Pass the outcome to Publish after commit.
	ApprovePaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, changedBy *uuid.UUID) (*Outcome, error)
	Publish(ctx context.Context, outcome *Outcome)
}

// Outcome carries the post-commit side effects of a transition.
type Outcome struct {
	Change   StatusChange
	UserID   uuid.UUID
	BranchID *uuid.UUID
	Levels   []models.Stock
}

type ServiceParams struct {
	Repo     Repository
	TX       txRunner
	Notifier notify.Publisher
	Alerts   *alerts.Dispatcher
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier notify.Publisher
	alerts   *alerts.Dispatcher
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TX,
		notifier: notifier,
		alerts:   params.Alerts,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	var orderID uuid.UUID
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		orderID, err = s.createOnce(ctx, actor, input)
		if err == nil || !isOrderNumberCollision(err) {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "order number collision, retrying")
	}
	if err != nil {
		if isOrderNumberCollision(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a unique order number")
		}
		return nil, err
	}

	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	s.metrics.OrderCreated(order.DeliveryMethod.String())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"final_amount": order.FinalAmount().String(),
	})
	s.logg.Info(logCtx, "order created")

	dto := ToDTO(*order)
	return &dto, nil
}

func validateCreate(input *CreateOrderInput) error {
	if !input.DeliveryMethod.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid delivery method %q", input.DeliveryMethod)
	}
	switch input.DeliveryMethod {
	case enums.DeliveryMethodDelivery:
		if input.DeliveryAddress == nil || *input.DeliveryAddress == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery_address is required for delivery orders")
		}
	case enums.DeliveryMethodPickup:
		if input.BranchID == nil || *input.BranchID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "branch_id is required for pickup orders")
		}
		input.DeliveryAddress = nil
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].product_id is required", i)
		}
		if item.Quantity <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].quantity must be greater than zero", i)
		}
	}
	if input.DeliveryCost != nil && input.DeliveryCost.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery_cost must not be negative")
	}
	return nil
}

// createOnce validates stock, prices and persists header and items in one transaction.
func (s *service) createOnce(ctx context.Context, actor Actor, input CreateOrderInput) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.BranchID != nil {
			ok, err := repo.BranchExists(ctx, *input.BranchID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load branch")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "branch not found")
			}
		}

		ids := make([]uuid.UUID, 0, len(input.Items))
		requested := map[uuid.UUID]int{}
		for _, item := range input.Items {
			if _, seen := requested[item.ProductID]; !seen {
				ids = append(ids, item.ProductID)
			}
			requested[item.ProductID] += item.Quantity
		}
		products, err := repo.FindProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		for _, id := range ids {
			product, ok := products[id]
			if !ok || !product.IsActive {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
			}
		}

		if input.BranchID != nil {
			ledger := inventory.NewLedger(tx)
			for _, id := range ids {
				if _, err := ledger.Check(ctx, id, *input.BranchID, requested[id]); err != nil {
					return err
				}
			}
		}

		lines := make([]pricing.Line, 0, len(input.Items))
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			unit := pricing.CurrentPrice(products[item.ProductID])
			lines = append(lines, pricing.Line{UnitPrice: unit, Quantity: item.Quantity})
			items = append(items, models.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unit,
			})
		}
		quote := pricing.QuoteOrder(lines, actor.Role, input.DeliveryMethod, input.DeliveryCost)

		order := &models.Order{
			OrderNumber:     NewOrderNumber(s.now()),
			UserID:          actor.UserID,
			BranchID:        input.BranchID,
			Status:          enums.OrderStatusPending,
			TotalAmount:     quote.Subtotal,
			DiscountAmount:  quote.Discount,
			DeliveryMethod:  input.DeliveryMethod,
			DeliveryAddress: input.DeliveryAddress,
			DeliveryCost:    quote.DeliveryCost,
			Notes:           input.Notes,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			if isOrderNumberCollision(err) {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		orderID = order.ID
		return nil
	})
	return orderID, err
}

func isOrderNumberCollision(err error) bool {
	return db.IsUniqueViolation(err, "uq_orders_order_number") || db.IsUniqueViolation(err, "orders.order_number")
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusUpdateInput) (*TransitionResult, error) {
	return s.transition(ctx, actor, orderID, input.Status, input.Notes, false)
}

// Cancel lets the owner, or staff allowed by the role table, cancel a pending or approved order.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, notes *string) (*TransitionResult, error) {
	return s.transition(ctx, actor, orderID, enums.OrderStatusCancelled, notes, true)
}

func (s *service) transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus, notes *string, cancelling bool) (*TransitionResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !target.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", target)
	}

	var outcome *Outcome
	var unchanged bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		role := actor.Role
		owner := order.UserID == actor.UserID
		if !actor.IsStaff() && !owner {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		// Owners and staff may cancel; the graph still limits it to PENDING and APPROVED.
		if cancelling && actor.Role != enums.RoleAdmin {
			role = enums.RoleCustomer
		}

		if order.Status == target {
			unchanged = true
			return nil
		}
		if err := Authorize(role, order.Status, target); err != nil {
			return err
		}

		changedBy := actor.UserID
		outcome, err = s.applyTx(ctx, tx, order, target, &changedBy, notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	if outcome != nil {
		s.Publish(ctx, outcome)
	}

	detail, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	dto := ToDTO(*detail)
	if unchanged {
		return &TransitionResult{Changed: false, Message: fmt.Sprintf("order already in status %s", target), Order: &dto}, nil
	}
	return &TransitionResult{Changed: true, Message: fmt.Sprintf("order status updated to %s", target), Order: &dto}, nil
}

func (s *service) ApprovePaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, changedBy *uuid.UUID) (*Outcome, error) {
	order, err := s.repo.WithTx(tx).LockOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, nil
	}
	notes := "Payment confirmed"
	return s.applyTx(ctx, tx, order, enums.OrderStatusApproved, changedBy, &notes)
}

// applyTx writes the history row and new status, and debits stock on delivery.
func (s *service) applyTx(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, changedBy *uuid.UUID, notes *string) (*Outcome, error) {
	repo := s.repo.WithTx(tx)
	from := order.Status

	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:   order.ID,
		OldStatus: from,
		NewStatus: target,
		Notes:     notes,
		ChangedBy: changedBy,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	if err := repo.UpdateStatus(ctx, order.ID, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	outcome := &Outcome{
		Change: StatusChange{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			OldStatus:   from,
			NewStatus:   target,
			Notes:       notes,
			ChangedBy:   changedBy,
			ChangedAt:   s.now().UTC(),
		},
		UserID:   order.UserID,
		BranchID: order.BranchID,
	}

	if target == enums.OrderStatusDelivered && order.BranchID != nil {
		levels, err := s.debitDelivered(ctx, tx, order)
		if err != nil {
			return nil, err
		}
		outcome.Levels = levels
	}
	order.Status = target
	return outcome, nil
}

// debitDelivered removes every item from the fulfilling branch with no availability check.
func (s *service) debitDelivered(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.Stock, error) {
	items, err := s.repo.WithTx(tx).FindItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	ledger := inventory.NewLedger(tx)
	levels := make([]models.Stock, 0, len(items))
	for _, item := range items {
		row, err := ledger.DebitUnchecked(ctx, item.ProductID, *order.BranchID, item.Quantity)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":   order.ID.String(),
					"product_id": item.ProductID.String(),
					"branch_id":  order.BranchID.String(),
				})
				s.logg.Warn(logCtx, "no stock row for delivered item, skipping debit")
				continue
			}
			return nil, err
		}
		levels = append(levels, *row)
	}
	return levels, nil
}

// Publish emits the order_status event, transition metric and any stock alerts.
func (s *service) Publish(ctx context.Context, outcome *Outcome) {
	if outcome == nil {
		return
	}
	s.metrics.OrderTransition(outcome.Change.OldStatus.String(), outcome.Change.NewStatus.String())
	evt := notify.NewEvent(enums.EventOrderStatus, outcome.Change).ForUser(outcome.UserID)
	if outcome.BranchID != nil {
		evt = evt.ForBranch(*outcome.BranchID)
	}
	s.notifier.Enqueue(ctx, evt)

	if len(outcome.Levels) > 0 {
		levels := make([]alerts.Level, 0, len(outcome.Levels))
		for _, row := range outcome.Levels {
			levels = append(levels, alerts.LevelFromStock(row))
		}
		s.alerts.Dispatch(ctx, levels...)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": outcome.Change.OrderID.String(),
		"from":     outcome.Change.OldStatus.String(),
		"to":       outcome.Change.NewStatus.String(),
	})
	s.logg.Info(logCtx, "order status changed")
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.IsStaff() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// List scopes customers to their own orders; staff may filter freely.
func (s *service) List(ctx context.Context, actor Actor, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if !actor.IsStaff() {
		id := actor.UserID
		filters.UserID = &id
	}
	rows, total, err := s.repo.ListOrders(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToDTO(row))
	}
	return &OrderList{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}
