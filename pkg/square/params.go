package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	CustomerID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
	// DelayCapture leaves the payment APPROVED until it is completed.
	DelayCapture bool
}

func (p PaymentCreateParams) request(key string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: key,
		SourceID:       p.SourceID,
		LocationID:     optional(p.LocationID),
		CustomerID:     optional(p.CustomerID),
		Note:           optional(p.Note),
		ReferenceID:    optional(p.ReferenceID),
	}
	if p.AmountCents > 0 {
		currency := sq.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
		if currency == "" {
			currency = sq.Currency("USD")
		}
		amount := p.AmountCents
		req.AmountMoney = &sq.Money{Amount: &amount, Currency: &currency}
	}
	if p.DelayCapture {
		autocomplete := false
		req.Autocomplete = &autocomplete
	}
	return req
}

// optional trims s and returns nil when nothing is left.
func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
