package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// registryCollector exposes a Registry to Prometheus.
type registryCollector struct {
	registry *Registry
	inflight *prometheus.Desc
}

// NewRegistryCollector returns a prometheus.Collector reporting the number
// of transport calls outstanding in r. A Registry shared between clients
// with WithRegistry has no single owning client, so it is exported on its
// own rather than through a client's meter.
//
// Example:
//
//	registry := httpclient.NewRegistry()
//	prometheus.MustRegister(httpclient.NewRegistryCollector(registry, "shared"))
func NewRegistryCollector(r *Registry, name string) prometheus.Collector {
	return &registryCollector{
		registry: r,
		inflight: prometheus.NewDesc(
			"trail_registry_inflight_requests",
			"Number of deduplicated transport calls in flight.",
			nil,
			prometheus.Labels{"registry": name},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inflight
}

// Collect implements prometheus.Collector.
func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(c.registry.Len()))
}
