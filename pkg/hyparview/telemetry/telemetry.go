// Package telemetry exposes Prometheus metrics for a running hyparview.Node,
// on an isolated registry so multiple nodes (e.g. in tests) never collide
// with the process's default registry.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all meshview Prometheus metrics.
type Collector struct {
	Registry *prometheus.Registry

	ActiveViewSize  *prometheus.GaugeVec
	PassiveViewSize *prometheus.GaugeVec

	ActionsEmittedTotal      *prometheus.CounterVec
	HandlerInvocationsTotal  *prometheus.CounterVec
	NeighborTransitionsTotal *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered on a fresh
// registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,

		ActiveViewSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meshview_active_view_size",
				Help: "Current number of peers in a node's active view.",
			},
			[]string{"node"},
		),
		PassiveViewSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meshview_passive_view_size",
				Help: "Current number of peers in a node's passive view.",
			},
			[]string{"node"},
		),
		ActionsEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshview_actions_emitted_total",
				Help: "Total actions emitted by the engine, by kind.",
			},
			[]string{"kind"},
		),
		HandlerInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshview_handler_invocations_total",
				Help: "Total protocol messages handled, by message kind.",
			},
			[]string{"message"},
		),
		NeighborTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshview_neighbor_transitions_total",
				Help: "Total NeighborUp/NeighborDown events, by direction.",
			},
			[]string{"direction"},
		),
	}

	reg.MustRegister(
		c.ActiveViewSize,
		c.PassiveViewSize,
		c.ActionsEmittedTotal,
		c.HandlerInvocationsTotal,
		c.NeighborTransitionsTotal,
	)
	return c
}

// Handler returns an http.Handler serving this collector's metrics in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// ObserveViewSizes updates the gauges for nodeID's current view sizes.
func (c *Collector) ObserveViewSizes(nodeID string, activeLen, passiveLen int) {
	c.ActiveViewSize.WithLabelValues(nodeID).Set(float64(activeLen))
	c.PassiveViewSize.WithLabelValues(nodeID).Set(float64(passiveLen))
}

// ObserveAction records one emitted action of the given kind.
func (c *Collector) ObserveAction(kind string) {
	c.ActionsEmittedTotal.WithLabelValues(kind).Inc()
}

// ObserveHandler records one handled protocol message of the given kind.
func (c *Collector) ObserveHandler(message string) {
	c.HandlerInvocationsTotal.WithLabelValues(message).Inc()
}

// ObserveTransition records one NeighborUp ("up") or NeighborDown ("down") event.
func (c *Collector) ObserveTransition(direction string) {
	c.NeighborTransitionsTotal.WithLabelValues(direction).Inc()
}
