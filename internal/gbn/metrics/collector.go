package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EndpointSampler is what WindowCollector calls on each scrape: a named
// endpoint plus accessors for its current occupancy. Kept as plain
// closures (rather than an interface onto *endpoint.LinkEndpoint) so
// this package never needs to import the endpoint package.
type EndpointSampler struct {
	Name       string
	WindowLen  func() int
	TxQueueLen func() int
}

// WindowCollector is a custom prometheus.Collector that samples live
// window and transmit-queue occupancy for every registered endpoint at
// scrape time, rather than tracking them as set/inc'd gauges — the same
// trade the teacher's TCPInfoCollector analogue makes for live socket
// state.
type WindowCollector struct {
	mu        sync.Mutex
	endpoints []EndpointSampler

	windowDesc  *prometheus.Desc
	txQueueDesc *prometheus.Desc
}

// NewWindowCollector creates an empty WindowCollector.
func NewWindowCollector(namespace, subsystem string) *WindowCollector {
	return &WindowCollector{
		windowDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "window_occupancy"),
			"Current number of in-flight, unacknowledged frames.",
			[]string{"endpoint"}, nil,
		),
		txQueueDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "tx_queue_occupancy"),
			"Current number of payloads backlogged awaiting window room.",
			[]string{"endpoint"}, nil,
		),
	}
}

// Add registers an endpoint to be sampled on every scrape.
func (c *WindowCollector) Add(s EndpointSampler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoints = append(c.endpoints, s)
}

// Describe implements prometheus.Collector.
func (c *WindowCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.windowDesc
	ch <- c.txQueueDesc
}

// Collect implements prometheus.Collector.
func (c *WindowCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.endpoints {
		ch <- prometheus.MustNewConstMetric(c.windowDesc, prometheus.GaugeValue, float64(e.WindowLen()), e.Name)
		ch <- prometheus.MustNewConstMetric(c.txQueueDesc, prometheus.GaugeValue, float64(e.TxQueueLen()), e.Name)
	}
}
