// Package pricing computes unit prices, order discounts and payable totals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

const (
	// BulkDiscountMinUnits is the number of units at which customer orders earn the bulk discount.
	BulkDiscountMinUnits = 4
)

var (
	hundred             = decimal.NewFromInt(100)
	bulkDiscountRate    = decimal.RequireFromString("0.05")
	DefaultDeliveryCost = decimal.NewFromInt(5000)
)

// UnitPrice applies a percentage discount in [0,100] to a base price. The result is not rounded.
func UnitPrice(price, discountPercentage decimal.Decimal) decimal.Decimal {
	pct := clampPercentage(discountPercentage)
	if pct.IsZero() {
		return price
	}
	return price.Mul(hundred.Sub(pct)).Div(hundred)
}

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// OrderDiscount returns 5% of subtotal when a customer buys at least BulkDiscountMinUnits units.
// Orders placed by staff never receive it.
func OrderDiscount(itemCount int, role enums.Role, subtotal decimal.Decimal) decimal.Decimal {
	if itemCount < BulkDiscountMinUnits || role != enums.RoleCustomer {
		return decimal.Zero
	}
	return subtotal.Mul(bulkDiscountRate)
}

// DeliveryCost resolves the fee for an order. Pickup is free; delivery uses the
// requested fee when positive and the base fee otherwise.
func DeliveryCost(method enums.DeliveryMethod, requested *decimal.Decimal) decimal.Decimal {
	if method != enums.DeliveryMethodDelivery {
		return decimal.Zero
	}
	if requested != nil && requested.IsPositive() {
		return *requested
	}
	return DefaultDeliveryCost
}

// FinalAmount is subtotal - discount + delivery, floored at zero.
func FinalAmount(subtotal, discount, deliveryCost decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(deliveryCost)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Round rounds an amount to the display precision of the currency.
func Round(amount decimal.Decimal, currency enums.Currency) decimal.Decimal {
	return amount.Round(currency.Decimals())
}

func clampPercentage(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// Line is one priced order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is the priced breakdown of an order.
type Quote struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	DeliveryCost decimal.Decimal
	Units        int
}

func (q Quote) Final() decimal.Decimal {
	return FinalAmount(q.Subtotal, q.Discount, q.DeliveryCost)
}

// QuoteOrder prices a set of lines for the given owner role and delivery choice.
func QuoteOrder(lines []Line, role enums.Role, method enums.DeliveryMethod, requestedDelivery *decimal.Decimal) Quote {
	q := Quote{Subtotal: decimal.Zero}
	for _, line := range lines {
		q.Subtotal = q.Subtotal.Add(LineTotal(line.UnitPrice, line.Quantity))
		q.Units += line.Quantity
	}
	q.Discount = OrderDiscount(q.Units, role, q.Subtotal)
	q.DeliveryCost = DeliveryCost(method, requestedDelivery)
	return q
}

// CurrentPrice is the product's price after its own discount percentage.
func CurrentPrice(p models.Product) decimal.Decimal {
	return UnitPrice(p.Price, p.DiscountPercentage)
}
