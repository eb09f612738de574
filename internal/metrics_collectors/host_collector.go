package metrics_collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// HostCollector exposes host MetricCollectors as gauges, collected on scrape.
type HostCollector struct {
	collectors []MetricCollector
	descs      map[string]*prometheus.Desc
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewHostCollector wraps the given collectors. Each becomes a gauge named
// co2_bridge_host_<name>_<unit>.
func NewHostCollector(logger zerolog.Logger, timeout time.Duration, collectors ...MetricCollector) *HostCollector {
	descs := make(map[string]*prometheus.Desc, len(collectors))
	for _, c := range collectors {
		descs[c.Name()] = prometheus.NewDesc(
			fmt.Sprintf("co2_bridge_host_%s_%s", c.Name(), c.Unit()),
			c.Description(),
			nil, nil,
		)
	}
	return &HostCollector{
		collectors: collectors,
		descs:      descs,
		timeout:    timeout,
		logger:     logger,
	}
}

// DefaultHostCollectors returns the cpu, memory and disk collectors.
func DefaultHostCollectors() []MetricCollector {
	return []MetricCollector{
		&CPUMetricCollector{},
		&MemoryMetricCollector{},
		&DiskMetricCollector{Path: "/"},
	}
}

// Describe implements prometheus.Collector.
func (h *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range h.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Failing collectors are skipped.
func (h *HostCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	for _, c := range h.collectors {
		value, err := c.Collect(ctx)
		if err != nil {
			h.logger.Warn().Err(err).Str("collector", c.Name()).Msg("Failed to collect host metric")
			continue
		}
		ch <- prometheus.MustNewConstMetric(h.descs[c.Name()], prometheus.GaugeValue, value)
	}
}
