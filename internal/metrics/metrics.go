// Package metrics exposes Prometheus counters for the ordering bot.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "petprint"

type Recorder struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	paymentLinks *prometheus.CounterVec
	orders       *prometheus.CounterVec
	revenue      prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "State machine transitions by source and target step.",
		}, []string{"from", "to"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failures while handling events by stage.",
		}, []string{"stage"}),
		paymentLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_links_total",
			Help:      "Payment link requests by result.",
		}, []string{"result"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_completed_total",
			Help:      "Orders acknowledged as paid by payment method.",
		}, []string{"payment_method"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_revenue_yen_total",
			Help:      "Sum of completed order totals in JPY.",
		}),
	}

	r.registry.MustRegister(
		r.events,
		r.transitions,
		r.errors,
		r.paymentLinks,
		r.orders,
		r.revenue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Event(kind string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(kind).Inc()
}

// Transition counts a step change. Calls with from == to are ignored.
func (r *Recorder) Transition(from, to string) {
	if r == nil || from == to {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) Error(stage string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(stage).Inc()
}

func (r *Recorder) PaymentLink(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.paymentLinks.WithLabelValues(result).Inc()
}

func (r *Recorder) OrderCompleted(paymentMethod string, total int) {
	if r == nil {
		return
	}
	if paymentMethod == "" {
		paymentMethod = "unknown"
	}
	r.orders.WithLabelValues(paymentMethod).Inc()
	r.revenue.Add(float64(total))
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
