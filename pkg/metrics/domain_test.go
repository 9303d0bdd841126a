package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.SlotReservation("MORNING", "reserved")
	m.SlotReservation("MORNING", "reserved")
	m.SlotReservation("MORNING", "full")
	m.PaymentTransition("webhook", "paid")
	m.CouponApplication("applied")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "slot_reservations_total", map[string]string{"window": "MORNING", "result": "reserved"}); err != nil {
		t.Fatalf("fetch reservations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected reserved=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "payment_transitions_total", map[string]string{"source": "webhook", "result": "paid"}); err != nil {
		t.Fatalf("fetch payments: %v", err)
	} else if got != 1 {
		t.Fatalf("expected webhook=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "coupon_applications_total", map[string]string{"result": "applied"}); err != nil {
		t.Fatalf("fetch coupons: %v", err)
	} else if got != 1 {
		t.Fatalf("expected applied=1, got %f", got)
	}
}

func TestDomainMetricsNilSafe(t *testing.T) {
	var m *DomainMetrics
	m.SlotReservation("MORNING", "reserved")
	NewDomainMetrics(nil).PaymentTransition("verify", "paid")
}
