package product

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/internal/testdb"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, conn
}

func TestCreateProductSeedsEveryBranch(t *testing.T) {
	svc, conn := newTestService(t)
	centro := testdb.MustCreateBranch(t, conn, "Centro")
	maipu := testdb.MustCreateBranch(t, conn, "Maipu")
	admin := testdb.MustCreateUser(t, conn, enums.RoleAdmin)

	discount := decimal.NewFromInt(10)
	out, err := svc.CreateProduct(context.Background(), &admin.ID, CreateProductInput{
		SKU:                "  MART-100 ",
		Name:               "Martillo carpintero",
		Price:              decimal.NewFromInt(12990),
		DiscountPercentage: &discount,
	})
	require.NoError(t, err)

	assert.Equal(t, "MART-100", out.SKU)
	assert.True(t, out.CurrentPrice.Equal(decimal.NewFromInt(11691)))
	require.Len(t, out.Stock, 2)
	seen := map[uuid.UUID]bool{}
	for _, row := range out.Stock {
		assert.Equal(t, SeedQuantity, row.Quantity)
		seen[row.BranchID] = true
	}
	assert.True(t, seen[centro.ID])
	assert.True(t, seen[maipu.ID])

	history, err := svc.PriceHistory(context.Background(), out.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, admin.ID, *history[0].ChangedBy)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	over := decimal.NewFromInt(101)
	missingCategory := uuid.New()

	cases := []CreateProductInput{
		{Name: "No sku", Price: decimal.NewFromInt(1)},
		{SKU: "X-1", Price: decimal.NewFromInt(1)},
		{SKU: "X-1", Name: "Negative", Price: decimal.NewFromInt(-1)},
		{SKU: "X-1", Name: "Discount", Price: decimal.NewFromInt(1), DiscountPercentage: &over},
		{SKU: "X-1", Name: "Category", Price: decimal.NewFromInt(1), CategoryID: &missingCategory},
	}
	for _, input := range cases {
		_, err := svc.CreateProduct(ctx, nil, input)
		require.Error(t, err, input.Name)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), input.Name)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, conn := newTestService(t)
	testdb.MustCreateProduct(t, conn, "MART-001", 1000)

	_, err := svc.CreateProduct(context.Background(), nil, CreateProductInput{
		SKU: "MART-001", Name: "Again", Price: decimal.NewFromInt(500),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Where("sku = ?", "MART-001").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSetPriceAppendsHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateProduct(ctx, nil, CreateProductInput{
		SKU: "TAL-002", Name: "Taladro", Price: decimal.NewFromInt(25000),
	})
	require.NoError(t, err)

	discount := decimal.NewFromInt(20)
	updated, err := svc.SetPrice(ctx, nil, created.ID, SetPriceInput{Price: decimal.NewFromInt(30000), DiscountPercentage: &discount})
	require.NoError(t, err)
	assert.True(t, updated.CurrentPrice.Equal(decimal.NewFromInt(24000)))

	history, err := svc.PriceHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	_, err = svc.SetPrice(ctx, nil, uuid.New(), SetPriceInput{Price: decimal.NewFromInt(1)})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListProductsFilters(t *testing.T) {
	svc, conn := newTestService(t)
	testdb.MustCreateProduct(t, conn, "MART-001", 1000)
	testdb.MustCreateProduct(t, conn, "TAL-002", 25000)

	page, err := svc.ListProducts(context.Background(), ListFilters{Query: "tal"}, pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TAL-002", page.Items[0].SKU)
	assert.EqualValues(t, 1, page.Meta.Total)
}
