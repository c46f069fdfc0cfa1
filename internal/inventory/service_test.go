package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/internal/testdb"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
)

type capturePublisher struct {
	events []notify.Event
}

func (c *capturePublisher) Enqueue(_ context.Context, evt notify.Event) bool {
	c.events = append(c.events, evt)
	return true
}

type fixture struct {
	conn    *gorm.DB
	svc     *Service
	events  *capturePublisher
	product *models.Product
	centro  *models.Branch
	maipu   *models.Branch
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	pub := &capturePublisher{}
	svc, err := NewService(ServiceParams{
		DB:     db.NewFromConn(conn),
		Alerts: alerts.NewDispatcher(pub, nil),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return &fixture{
		conn:    conn,
		svc:     svc,
		events:  pub,
		product: testdb.MustCreateProduct(t, conn, "MART-001", 1000),
		centro:  testdb.MustCreateBranch(t, conn, "Centro"),
		maipu:   testdb.MustCreateBranch(t, conn, "Maipu"),
	}
}

func (f *fixture) quantity(t *testing.T, branchID uuid.UUID) int {
	t.Helper()
	var row models.Stock
	require.NoError(t, f.conn.Where("product_id = ? AND branch_id = ?", f.product.ID, branchID).First(&row).Error)
	return row.Quantity
}

func TestTransferMovesUnitsAtomically(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 10, 5)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.maipu.ID, 2, 5)

	res, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:      f.product.ID,
		SourceBranchID: f.centro.ID,
		TargetBranchID: f.maipu.ID,
		Quantity:       4,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, res.Source.Quantity)
	assert.Equal(t, 6, res.Target.Quantity)
	assert.Equal(t, 6, f.quantity(t, f.centro.ID))
	assert.Equal(t, 6, f.quantity(t, f.maipu.ID))
	assert.Equal(t, 12, f.quantity(t, f.centro.ID)+f.quantity(t, f.maipu.ID))
	assert.Empty(t, res.Alerts)
}

func TestTransferCreatesTargetWithSourceThreshold(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 10, 8)

	res, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:      f.product.ID,
		SourceBranchID: f.centro.ID,
		TargetBranchID: f.maipu.ID,
		Quantity:       3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Target.Quantity)
	assert.Equal(t, 8, res.Target.MinStock)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, enums.AlertSeverityWarning, res.Alerts[0].Severity)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, enums.EventStockAlert, f.events.events[0].Type)
}

func TestTransferInsufficientSourceLeavesBothUnchanged(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 3, 5)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.maipu.ID, 7, 5)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:      f.product.ID,
		SourceBranchID: f.centro.ID,
		TargetBranchID: f.maipu.ID,
		Quantity:       4,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, details["available"])
	assert.Equal(t, 4, details["requested"])
	assert.Equal(t, f.centro.ID, details["branch_id"])

	assert.Equal(t, 3, f.quantity(t, f.centro.ID))
	assert.Equal(t, 7, f.quantity(t, f.maipu.ID))
	assert.Empty(t, f.events.events)
}

func TestTransferRejectsSameBranch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:      f.product.ID,
		SourceBranchID: f.centro.ID,
		TargetBranchID: f.centro.ID,
		Quantity:       1,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestTransferMissingSourceRow(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:      f.product.ID,
		SourceBranchID: f.centro.ID,
		TargetBranchID: f.maipu.ID,
		Quantity:       1,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestLedgerDebitChecksAvailability(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 2, 5)
	ctx := context.Background()

	err := db.NewFromConn(f.conn).WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger(tx).Debit(ctx, f.product.ID, f.centro.ID, 3)
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 2, f.quantity(t, f.centro.ID))

	err = db.NewFromConn(f.conn).WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger(tx).Debit(ctx, f.product.ID, f.maipu.ID, 1)
		return err
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))
}

func TestLedgerDebitUncheckedAllowsOversell(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 2, 5)
	ctx := context.Background()

	var row *models.Stock
	err := db.NewFromConn(f.conn).WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, err = NewLedger(tx).DebitUnchecked(ctx, f.product.ID, f.centro.ID, 5)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, -3, row.Quantity)
	assert.Equal(t, -3, f.quantity(t, f.centro.ID))
	require.NotNil(t, row.Product)
	assert.Equal(t, f.product.Name, row.Product.Name)
}

func TestLedgerCreditUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := db.NewFromConn(f.conn)

	for i := 0; i < 2; i++ {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := NewLedger(tx).Credit(ctx, f.product.ID, f.centro.ID, 4, 0)
			return err
		}))
	}
	assert.Equal(t, 8, f.quantity(t, f.centro.ID))

	var row models.Stock
	require.NoError(t, f.conn.Where("product_id = ? AND branch_id = ?", f.product.ID, f.centro.ID).First(&row).Error)
	assert.Equal(t, DefaultMinStock, row.MinStock)
}

func TestUpdateRaisesAlertOnManualSet(t *testing.T) {
	f := newFixture(t)
	row := testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 20, 5)

	zero := 0
	dto, err := f.svc.Update(context.Background(), row.ID, UpdateInput{Quantity: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Quantity)
	assert.True(t, dto.IsLow)
	require.Len(t, f.events.events, 1)
	alert, ok := f.events.events[0].Data.(*alerts.Alert)
	require.True(t, ok)
	assert.Equal(t, enums.AlertSeverityCritical, alert.Severity)

	_, err = f.svc.Update(context.Background(), row.ID, UpdateInput{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestBulkUpdateContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	row := testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 20, 5)
	qty := 15

	results, err := f.svc.BulkUpdate(context.Background(), []BulkItem{
		{StockID: uuid.New(), Quantity: &qty},
		{StockID: row.ID, Quantity: &qty},
	})
	require.Error(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Updated)
	assert.Equal(t, "stock not found", results[0].Error)
	assert.True(t, results[1].Updated)
	assert.Equal(t, 15, f.quantity(t, f.centro.ID))
}

func TestAlertsListsRowsAtOrBelowThreshold(t *testing.T) {
	f := newFixture(t)
	other := testdb.MustCreateProduct(t, f.conn, "TAL-002", 5000)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 0, 5)
	testdb.MustCreateStock(t, f.conn, other.ID, f.centro.ID, 4, 5)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.maipu.ID, 40, 5)

	all, err := f.svc.Alerts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, enums.AlertSeverityCritical, all[0].Severity)
	assert.Equal(t, enums.AlertSeverityWarning, all[1].Severity)

	maipu, err := f.svc.Alerts(context.Background(), &f.maipu.ID)
	require.NoError(t, err)
	assert.Empty(t, maipu)
}

func TestInitializeSetsEveryBranch(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, 99, 5)

	min := 3
	rows, err := f.svc.Initialize(context.Background(), InitializeInput{ProductID: f.product.ID, Quantity: 12, MinStock: &min})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, 12, row.Quantity)
		assert.Equal(t, 3, row.MinStock)
	}

	_, err = f.svc.Initialize(context.Background(), InitializeInput{ProductID: uuid.New(), Quantity: 1})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.centro.ID, -1, 5)
	testdb.MustCreateStock(t, f.conn, f.product.ID, f.maipu.ID, 30, 5)

	all, err := f.svc.List(context.Background(), ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Meta.Total)

	out, err := f.svc.List(context.Background(), ListFilters{OutOfStock: true}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, f.centro.ID, out.Items[0].BranchID)
	assert.Equal(t, "Centro", out.Items[0].BranchName)
}
