package enums

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCurrencyMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"413.00", 41300},
		{"371.70", 37170},
		{"0.005", 1},
		{"19.994", 1999},
	}
	for _, tt := range tests {
		if got := CurrencyINR.MinorUnits(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.amount, tt.want, got)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" inr ")
	if err != nil || c != CurrencyINR {
		t.Fatalf("expected INR, got %q (%v)", c, err)
	}
	if _, err := ParseCurrency("EUR"); err == nil {
		t.Fatal("expected EUR to be rejected")
	}
}

func TestPaymentStatus(t *testing.T) {
	p, err := ParsePaymentStatus("paid")
	if err != nil || p != PaymentStatusPaid {
		t.Fatalf("expected PAID, got %q (%v)", p, err)
	}
	if !p.Refundable() || PaymentStatusPending.Refundable() || PaymentStatusRefunded.Refundable() {
		t.Fatal("only PAID is refundable")
	}
	if _, err := ParsePaymentStatus("SETTLED"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}
