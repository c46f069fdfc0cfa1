package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestUnitPrice(t *testing.T) {
	assert.True(t, UnitPrice(dec("100"), dec("10")).Equal(dec("90")))
	assert.True(t, UnitPrice(dec("100"), decimal.Zero).Equal(dec("100")))
	assert.True(t, UnitPrice(dec("100"), dec("150")).Equal(decimal.Zero))
	assert.True(t, UnitPrice(dec("100"), dec("-5")).Equal(dec("100")))
	assert.True(t, UnitPrice(dec("999"), dec("33")).Equal(dec("669.33")))
}

func TestOrderDiscountRoleAndThreshold(t *testing.T) {
	subtotal := dec("10000")
	assert.True(t, OrderDiscount(4, enums.RoleCustomer, subtotal).Equal(dec("500")))
	assert.True(t, OrderDiscount(3, enums.RoleCustomer, subtotal).IsZero())
	assert.True(t, OrderDiscount(10, enums.RoleVendor, subtotal).IsZero())
	assert.True(t, OrderDiscount(10, enums.RoleAdmin, subtotal).IsZero())
}

func TestDeliveryCost(t *testing.T) {
	assert.True(t, DeliveryCost(enums.DeliveryMethodPickup, nil).IsZero())
	fee := dec("7000")
	assert.True(t, DeliveryCost(enums.DeliveryMethodPickup, &fee).IsZero())
	assert.True(t, DeliveryCost(enums.DeliveryMethodDelivery, nil).Equal(DefaultDeliveryCost))
	zero := decimal.Zero
	assert.True(t, DeliveryCost(enums.DeliveryMethodDelivery, &zero).Equal(DefaultDeliveryCost))
	assert.True(t, DeliveryCost(enums.DeliveryMethodDelivery, &fee).Equal(fee))
}

func TestFinalAmountNeverNegative(t *testing.T) {
	assert.True(t, FinalAmount(dec("100"), dec("500"), decimal.Zero).IsZero())
	assert.True(t, FinalAmount(dec("5000"), dec("250"), dec("5000")).Equal(dec("9750")))
}

func TestQuoteOrderPickupScenario(t *testing.T) {
	q := QuoteOrder([]Line{{UnitPrice: dec("1000"), Quantity: 5}}, enums.RoleCustomer, enums.DeliveryMethodPickup, nil)
	assert.True(t, q.Subtotal.Equal(dec("5000")))
	assert.True(t, q.Discount.Equal(dec("250")))
	assert.True(t, q.DeliveryCost.IsZero())
	assert.True(t, q.Final().Equal(dec("4750")))
	assert.Equal(t, 5, q.Units)
}

func TestQuoteOrderStaffNoDiscount(t *testing.T) {
	lines := []Line{
		{UnitPrice: dec("100"), Quantity: 2},
		{UnitPrice: dec("50"), Quantity: 2},
	}
	q := QuoteOrder(lines, enums.RoleVendor, enums.DeliveryMethodDelivery, nil)
	assert.True(t, q.Subtotal.Equal(dec("300")))
	assert.True(t, q.Discount.IsZero())
	assert.True(t, q.Final().Equal(dec("5300")))
}

func TestRound(t *testing.T) {
	assert.Equal(t, "1235", Round(dec("1234.5"), enums.CurrencyCLP).String())
	assert.Equal(t, "1.23", Round(dec("1.2345"), enums.CurrencyUSD).String())
}

func TestCurrentPriceRoundTrip(t *testing.T) {
	p := models.Product{Price: dec("100"), DiscountPercentage: dec("10")}
	got := CurrentPrice(p)
	assert.True(t, got.Equal(dec("90")), got.String())
	f, _ := got.Float64()
	assert.Equal(t, 90.0, f)
}
