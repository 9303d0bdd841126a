package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/washfold-backend/internal/pricing"
)

type quoteLine struct {
	ServiceID   uuid.UUID       `json:"service_id"`
	ClothTypeID uuid.UUID       `json:"cloth_type_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type quoteAddon struct {
	AddonID  uuid.UUID       `json:"addon_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

type quoteResponse struct {
	Items          []quoteLine     `json:"items"`
	Addons         []quoteAddon    `json:"addons"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	AddonCharges   decimal.Decimal `json:"addon_charges"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

func quoteFromBreakdown(b pricing.Breakdown) quoteResponse {
	resp := quoteResponse{
		Items:          make([]quoteLine, 0, len(b.Lines)),
		Addons:         make([]quoteAddon, 0, len(b.Addons)),
		Subtotal:       b.Subtotal,
		AddonCharges:   b.AddonCharges,
		TaxAmount:      b.TaxAmount,
		DiscountAmount: b.DiscountAmount,
		TotalAmount:    b.TotalAmount,
	}
	for _, line := range b.Lines {
		resp.Items = append(resp.Items, quoteLine{
			ServiceID:   line.ServiceID,
			ClothTypeID: line.ClothTypeID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		})
	}
	for _, addon := range b.Addons {
		resp.Addons = append(resp.Addons, quoteAddon{
			AddonID:  addon.AddonID,
			Quantity: addon.Quantity,
			Price:    addon.Price,
			Total:    addon.Total,
		})
	}
	return resp
}
