package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the flat GST rate applied to subtotal plus addons.
var DefaultTaxRate = decimal.RequireFromString("0.18")

// Line is a resolved item ready to be priced.
type Line struct {
	ServiceID   uuid.UUID
	ClothTypeID uuid.UUID
	BasePrice   decimal.Decimal
	Multiplier  decimal.Decimal
	Quantity    int
}

// AddonLine is a resolved addon ready to be priced.
type AddonLine struct {
	AddonID  uuid.UUID
	Price    decimal.Decimal
	PerItem  bool
	Quantity int
}

type PricedLine struct {
	Line
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type PricedAddon struct {
	AddonLine
	Total decimal.Decimal
}

// Breakdown is the full price of an order. TotalAmount always equals
// Subtotal + AddonCharges + TaxAmount - DiscountAmount.
type Breakdown struct {
	Lines          []PricedLine
	Addons         []PricedAddon
	Subtotal       decimal.Decimal
	AddonCharges   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Engine computes order prices. It holds no state beyond the tax rate.
type Engine struct {
	taxRate decimal.Decimal
}

func NewEngine(taxRate decimal.Decimal) (*Engine, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate must be in [0, 1): %s", taxRate)
	}
	return &Engine{taxRate: taxRate}, nil
}

func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// Price computes the breakdown with a zero discount.
func (e *Engine) Price(lines []Line, addons []AddonLine) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, fmt.Errorf("at least one item is required")
	}

	out := Breakdown{
		Lines:          make([]PricedLine, 0, len(lines)),
		Addons:         make([]PricedAddon, 0, len(addons)),
		Subtotal:       decimal.Zero,
		AddonCharges:   decimal.Zero,
		DiscountAmount: decimal.Zero,
	}

	for i, line := range lines {
		if line.Quantity <= 0 {
			return Breakdown{}, fmt.Errorf("item %d: quantity must be positive", i)
		}
		unit := Round2(line.BasePrice.Mul(line.Multiplier))
		total := Round2(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
		out.Subtotal = out.Subtotal.Add(total)
		out.Lines = append(out.Lines, PricedLine{Line: line, UnitPrice: unit, LineTotal: total})
	}

	for i, addon := range addons {
		if addon.Quantity <= 0 {
			return Breakdown{}, fmt.Errorf("addon %d: quantity must be positive", i)
		}
		total := addon.Price
		if addon.PerItem {
			total = Round2(addon.Price.Mul(decimal.NewFromInt(int64(addon.Quantity))))
		}
		out.AddonCharges = out.AddonCharges.Add(total)
		out.Addons = append(out.Addons, PricedAddon{AddonLine: addon, Total: total})
	}

	out.Subtotal = Round2(out.Subtotal)
	out.AddonCharges = Round2(out.AddonCharges)
	out.TaxAmount = Round2(out.Subtotal.Add(out.AddonCharges).Mul(e.taxRate))
	out.TotalAmount = Total(out.Subtotal, out.AddonCharges, out.TaxAmount, out.DiscountAmount)
	return out, nil
}

// PreDiscountTotal is the amount a coupon discount is computed against.
func (b Breakdown) PreDiscountTotal() decimal.Decimal {
	return Round2(b.Subtotal.Add(b.AddonCharges).Add(b.TaxAmount))
}

// WithDiscount returns a copy carrying discount and a recomputed total.
func (b Breakdown) WithDiscount(discount decimal.Decimal) Breakdown {
	b.DiscountAmount = Round2(discount)
	b.TotalAmount = Total(b.Subtotal, b.AddonCharges, b.TaxAmount, b.DiscountAmount)
	return b
}

// Round2 rounds half-up to two decimal places. Amounts are never negative,
// so decimal's half-away-from-zero rounding is half-up here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Total applies the order total formula.
func Total(subtotal, addonCharges, tax, discount decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Add(addonCharges).Add(tax).Sub(discount))
}
