package enums

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the ISO 4217 code orders are priced in.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

// minor-unit exponent per supported currency
var currencyExponents = map[Currency]int32{
	CurrencyINR: 2,
	CurrencyUSD: 2,
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	_, ok := currencyExponents[c]
	return ok
}

// MinorUnits converts a major-unit amount into the integer amount payment
// gateways expect (paise, cents), rounding half away from zero.
func (c Currency) MinorUnits(amount decimal.Decimal) int64 {
	exp, ok := currencyExponents[c]
	if !ok {
		exp = 2
	}
	return amount.Shift(exp).Round(0).IntPart()
}

// ParseCurrency accepts codes in any case.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
