package alerts

import (
	"context"
	"time"

	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/metrics"
)

// Dispatcher evaluates committed stock levels and hands alerts to the notification queue.
type Dispatcher struct {
	publisher notify.Publisher
	metrics   *metrics.DomainMetrics
	now       func() time.Time
}

func NewDispatcher(publisher notify.Publisher, m *metrics.DomainMetrics) *Dispatcher {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &Dispatcher{publisher: publisher, metrics: m, now: time.Now}
}

// Dispatch enqueues one stock_alert per level that needs it and returns the alerts raised.
// It never blocks on delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, levels ...Level) []Alert {
	if d == nil {
		return nil
	}
	raised := make([]Alert, 0, len(levels))
	for _, level := range levels {
		alert, ok := Evaluate(level, d.now())
		if !ok {
			continue
		}
		d.metrics.StockAlert(alert.Severity.String())
		evt := notify.NewEvent(enums.EventStockAlert, alert).ForBranch(level.BranchID)
		d.publisher.Enqueue(ctx, evt)
		raised = append(raised, *alert)
	}
	return raised
}

// LevelFromStock reads a stock row with its preloaded product and branch.
func LevelFromStock(row models.Stock) Level {
	level := Level{
		ProductID: row.ProductID,
		BranchID:  row.BranchID,
		Quantity:  row.Quantity,
		MinStock:  row.MinStock,
	}
	if row.Product != nil {
		level.ProductName = row.Product.Name
	}
	if row.Branch != nil {
		level.BranchName = row.Branch.Name
	}
	return level
}
