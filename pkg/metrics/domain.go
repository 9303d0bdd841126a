package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts outcomes on the contended order paths.
type DomainMetrics struct {
	slotReservations   *prometheus.CounterVec
	paymentTransitions *prometheus.CounterVec
	couponApplications *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	slotReservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_reservations_total",
		Help: "Slot reservation attempts by outcome.",
	}, []string{"window", "result"})
	paymentTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment confirmations by entry point and outcome.",
	}, []string{"source", "result"})
	couponApplications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_applications_total",
		Help: "Coupon applications by outcome.",
	}, []string{"result"})
	reg.MustRegister(slotReservations, paymentTransitions, couponApplications)
	return &DomainMetrics{
		slotReservations:   slotReservations,
		paymentTransitions: paymentTransitions,
		couponApplications: couponApplications,
	}
}

// SlotReservation records one reserve attempt.
func (d *DomainMetrics) SlotReservation(window, result string) {
	if d == nil || d.slotReservations == nil {
		return
	}
	d.slotReservations.WithLabelValues(normalizeLabel(window), normalizeLabel(result)).Inc()
}

// PaymentTransition records one verify or webhook outcome.
func (d *DomainMetrics) PaymentTransition(source, result string) {
	if d == nil || d.paymentTransitions == nil {
		return
	}
	d.paymentTransitions.WithLabelValues(normalizeLabel(source), normalizeLabel(result)).Inc()
}

// CouponApplication records one apply outcome.
func (d *DomainMetrics) CouponApplication(result string) {
	if d == nil || d.couponApplications == nil {
		return
	}
	d.couponApplications.WithLabelValues(normalizeLabel(result)).Inc()
}
