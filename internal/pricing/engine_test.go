package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func TestEnginePriceTwoItemsNoAddons(t *testing.T) {
	engine, err := NewEngine(DefaultTaxRate)
	require.NoError(t, err)

	breakdown, err := engine.Price([]Line{
		{ServiceID: uuid.New(), ClothTypeID: uuid.New(), BasePrice: dec(t, "100"), Multiplier: dec(t, "1.5"), Quantity: 2},
		{ServiceID: uuid.New(), ClothTypeID: uuid.New(), BasePrice: dec(t, "50"), Multiplier: dec(t, "1.0"), Quantity: 1},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "150.00", breakdown.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "300.00", breakdown.Lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, "50.00", breakdown.Lines[1].LineTotal.StringFixed(2))
	assert.Equal(t, "350.00", breakdown.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", breakdown.AddonCharges.StringFixed(2))
	assert.Equal(t, "63.00", breakdown.TaxAmount.StringFixed(2))
	assert.Equal(t, "413.00", breakdown.TotalAmount.StringFixed(2))
}

func TestEnginePriceAddonsAndRounding(t *testing.T) {
	engine, err := NewEngine(DefaultTaxRate)
	require.NoError(t, err)

	breakdown, err := engine.Price([]Line{
		{BasePrice: dec(t, "33.33"), Multiplier: dec(t, "1.25"), Quantity: 3},
	}, []AddonLine{
		{Price: dec(t, "12.345"), PerItem: true, Quantity: 2},
		{Price: dec(t, "25.00"), PerItem: false, Quantity: 4},
	})
	require.NoError(t, err)

	// 33.33 * 1.25 = 41.6625 -> 41.66; * 3 = 124.98
	assert.Equal(t, "41.66", breakdown.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "124.98", breakdown.Subtotal.StringFixed(2))
	// 12.345 * 2 = 24.69; flat addon ignores quantity
	assert.Equal(t, "24.69", breakdown.Addons[0].Total.StringFixed(2))
	assert.Equal(t, "25.00", breakdown.Addons[1].Total.StringFixed(2))
	assert.Equal(t, "49.69", breakdown.AddonCharges.StringFixed(2))
	// (124.98 + 49.69) * 0.18 = 31.4406 -> 31.44
	assert.Equal(t, "31.44", breakdown.TaxAmount.StringFixed(2))
	assert.Equal(t, "206.11", breakdown.TotalAmount.StringFixed(2))
}

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, "0.13", Round2(dec(t, "0.125")).StringFixed(2))
	assert.Equal(t, "0.12", Round2(dec(t, "0.1249")).StringFixed(2))
	assert.Equal(t, "1.01", Round2(dec(t, "1.005")).StringFixed(2))
}

func TestBreakdownWithDiscountKeepsInvariant(t *testing.T) {
	engine, err := NewEngine(DefaultTaxRate)
	require.NoError(t, err)
	breakdown, err := engine.Price([]Line{{BasePrice: dec(t, "100"), Multiplier: dec(t, "1.5"), Quantity: 2}, {BasePrice: dec(t, "50"), Multiplier: dec(t, "1"), Quantity: 1}}, nil)
	require.NoError(t, err)

	discounted := breakdown.WithDiscount(dec(t, "41.30"))
	assert.Equal(t, "413.00", breakdown.PreDiscountTotal().StringFixed(2))
	assert.Equal(t, "371.70", discounted.TotalAmount.StringFixed(2))
	want := discounted.Subtotal.Add(discounted.AddonCharges).Add(discounted.TaxAmount).Sub(discounted.DiscountAmount)
	assert.True(t, want.Equal(discounted.TotalAmount))
}

func TestEngineRejectsBadInput(t *testing.T) {
	engine, err := NewEngine(DefaultTaxRate)
	require.NoError(t, err)

	_, err = engine.Price(nil, nil)
	assert.Error(t, err)

	_, err = engine.Price([]Line{{BasePrice: dec(t, "10"), Multiplier: dec(t, "1"), Quantity: 0}}, nil)
	assert.Error(t, err)

	_, err = NewEngine(dec(t, "1.5"))
	assert.Error(t, err)
}
