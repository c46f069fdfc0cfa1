package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		name     string
		qty, min int
		want     enums.AlertSeverity
		emit     bool
	}{
		{name: "oversold", qty: -3, min: 5, want: enums.AlertSeverityCritical, emit: true},
		{name: "empty", qty: 0, min: 5, want: enums.AlertSeverityCritical, emit: true},
		{name: "at threshold", qty: 5, min: 5, want: enums.AlertSeverityWarning, emit: true},
		{name: "below threshold", qty: 1, min: 5, want: enums.AlertSeverityWarning, emit: true},
		{name: "healthy", qty: 6, min: 5},
		{name: "zero threshold healthy", qty: 1, min: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SeverityFor(tt.qty, tt.min)
			assert.Equal(t, tt.emit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateBuildsPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CLT", -3*3600))
	level := Level{
		ProductID:   uuid.New(),
		ProductName: "Taladro Bosch",
		BranchID:    uuid.New(),
		BranchName:  "Santiago Centro",
		Quantity:    0,
		MinStock:    5,
	}
	alert, ok := Evaluate(level, now)
	require.True(t, ok)
	assert.Equal(t, enums.EventStockAlert, alert.Type)
	assert.Equal(t, enums.AlertSeverityCritical, alert.Severity)
	assert.Equal(t, level.ProductID, alert.ProductID)
	assert.Equal(t, "Santiago Centro", alert.BranchName)
	assert.Equal(t, 0, alert.CurrentStock)
	assert.Equal(t, 5, alert.MinStock)
	assert.Contains(t, alert.Message, "Taladro Bosch")
	assert.Equal(t, time.UTC, alert.Timestamp.Location())

	level.Quantity = 10
	_, ok = Evaluate(level, now)
	assert.False(t, ok)
}

type capturePublisher struct {
	events []notify.Event
}

func (c *capturePublisher) Enqueue(_ context.Context, evt notify.Event) bool {
	c.events = append(c.events, evt)
	return true
}

func TestDispatcherEnqueuesOnlyAlertingLevels(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDispatcher(pub, nil)

	branchID := uuid.New()
	raised := d.Dispatch(context.Background(),
		Level{ProductID: uuid.New(), ProductName: "Martillo", BranchID: branchID, BranchName: "Centro", Quantity: 0, MinStock: 5},
		Level{ProductID: uuid.New(), ProductName: "Taladro", BranchID: branchID, BranchName: "Centro", Quantity: 3, MinStock: 5},
		Level{ProductID: uuid.New(), ProductName: "Sierra", BranchID: branchID, BranchName: "Centro", Quantity: 20, MinStock: 5},
	)

	require.Len(t, raised, 2)
	assert.Equal(t, enums.AlertSeverityCritical, raised[0].Severity)
	assert.Equal(t, enums.AlertSeverityWarning, raised[1].Severity)
	require.Len(t, pub.events, 2)
	assert.Equal(t, enums.EventStockAlert, pub.events[0].Type)
	require.NotNil(t, pub.events[0].BranchID)
	assert.Equal(t, branchID, *pub.events[0].BranchID)
}

func TestLevelFromStockUsesPreloadedNames(t *testing.T) {
	row := models.Stock{
		ProductID: uuid.New(),
		BranchID:  uuid.New(),
		Quantity:  2,
		MinStock:  5,
		Product:   &models.Product{Name: "Clavos"},
		Branch:    &models.Branch{Name: "Maipú"},
	}
	level := LevelFromStock(row)
	assert.Equal(t, "Clavos", level.ProductName)
	assert.Equal(t, "Maipú", level.BranchName)
	assert.Equal(t, 2, level.Quantity)
}
