package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code supported by checkout and conversion.
type Currency string

const (
	CurrencyCLP Currency = "CLP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var validCurrencies = []Currency{
	CurrencyCLP,
	CurrencyUSD,
	CurrencyEUR,
}

// SupportedCurrencies lists every currency the rate source is asked for.
func SupportedCurrencies() []Currency {
	return append([]Currency(nil), validCurrencies...)
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// Decimals is the number of minor digits shown for the currency.
func (c Currency) Decimals() int32 {
	if c == CurrencyCLP {
		return 0
	}
	return 2
}

// ParseCurrency converts a raw, case-insensitive code into a Currency.
func ParseCurrency(value string) (Currency, error) {
	code := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !code.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return code, nil
}
