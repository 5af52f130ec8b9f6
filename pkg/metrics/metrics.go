package metrics

import (
	"net/http"

	"lending/core"
	"lending/pkg/number"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics lending operation metrics on a private registry
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	attributed *prometheus.GaugeVec
	limits     *prometheus.GaugeVec
	divergence *prometheus.GaugeVec
}

// New metrics under namespace
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lending"
	}

	registry := prometheus.NewRegistry()
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Engine operations by action and result code.",
	}, []string{"action", "result"})
	attributed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attributed_borrow_value",
		Help:      "Borrow value attributed to deposits of a reserve.",
	}, []string{"reserve"})
	limits := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attributed_borrow_limit",
		Help:      "Configured attributed borrow limit of a reserve.",
	}, []string{"reserve"})
	divergence := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attribution_divergence",
		Help:      "Recorded minus rescanned attributed borrow value, set by the auditor.",
	}, []string{"reserve"})

	registry.MustRegister(operations, attributed, limits, divergence)
	return &Metrics{
		registry:   registry,
		operations: operations,
		attributed: attributed,
		limits:     limits,
		divergence: divergence,
	}
}

// ObserveOperation count one operation, err nil counts as ok
func (m *Metrics) ObserveOperation(action core.ActionType, err error) {
	result := "ok"
	if err != nil {
		result = core.CodeOf(err).String()
	}

	m.operations.WithLabelValues(string(action), result).Inc()
}

// ObserveReserve export the reserve aggregate and its limit
func (m *Metrics) ObserveReserve(reserve *core.Reserve) {
	m.attributed.WithLabelValues(reserve.Symbol).Set(toFloat(reserve.AttributedBorrowValue))
	m.limits.WithLabelValues(reserve.Symbol).Set(toFloat(reserve.Config.AttributedBorrowLimit))
}

// SetDivergence recorded minus expected aggregate
func (m *Metrics) SetDivergence(symbol string, recorded, expected number.Decimal) {
	m.divergence.WithLabelValues(symbol).Set(toFloat(recorded) - toFloat(expected))
}

// Handler /metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer registry used by Handler
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func toFloat(d number.Decimal) float64 {
	f, _ := d.ToDecimal().Float64()
	return f
}
