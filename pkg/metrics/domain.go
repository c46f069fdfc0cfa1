package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts order, stock and notification activity.
type DomainMetrics struct {
	ordersCreated *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stockAlerts   *prometheus.CounterVec
	notifier      *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on reg. A nil reg yields a no-op collector.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted, by delivery method.",
		}, []string{"delivery_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions applied.",
		}, []string{"from", "to"}),
		stockAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_alerts_total",
			Help: "Stock alerts raised, by severity.",
		}, []string{"severity"}),
		notifier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_events_total",
			Help: "Notification events by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.ordersCreated, m.transitions, m.stockAlerts, m.notifier)
	return m
}

func (m *DomainMetrics) OrderCreated(deliveryMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(deliveryMethod)).Inc()
}

func (m *DomainMetrics) OrderTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) StockAlert(severity string) {
	if m == nil || m.stockAlerts == nil {
		return
	}
	m.stockAlerts.WithLabelValues(normalizeLabel(severity)).Inc()
}

// NotifierOutcome records published, dropped or failed notification events.
func (m *DomainMetrics) NotifierOutcome(eventType, outcome string) {
	if m == nil || m.notifier == nil {
		return
	}
	m.notifier.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
