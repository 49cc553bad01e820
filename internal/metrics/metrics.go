// Package metrics содержит счётчики прогона для Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// Registry агрегирует метрики конвейера.
type Registry struct {
	reg *prometheus.Registry

	OrdersTotal   prometheus.Counter
	OrdersPlaced  prometheus.Counter
	OrderRejected *prometheus.CounterVec
	OrderSeconds  prometheus.Histogram
}

// NewRegistry создаёт реестр метрик конвейера.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	total := prometheus.NewCounter(prometheus.CounterOpts{Name: "skriptendruck_orders_total"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "skriptendruck_orders_placed_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "skriptendruck_orders_rejected_total"}, []string{"reason"})
	seconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skriptendruck_order_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(total, placed, rejected, seconds)

	return &Registry{
		reg:           r,
		OrdersTotal:   total,
		OrdersPlaced:  placed,
		OrderRejected: rejected,
		OrderSeconds:  seconds,
	}
}

// ObserveTerminal учитывает терминальный заказ.
func (r *Registry) ObserveTerminal(o *model.Order, seconds float64) {
	r.OrdersTotal.Inc()
	r.OrderSeconds.Observe(seconds)
	if o.IsRejected() {
		r.OrderRejected.WithLabelValues(string(o.Reason)).Inc()
		return
	}
	r.OrdersPlaced.Inc()
}

// Handler возвращает HTTP-обработчик для отдачи метрик.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
