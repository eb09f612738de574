package metrics_collectors

import (
	"net/http"
	"sync"

	"github.com/benmeehan/s8-co2-bridge/internal/classifier"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the CO2 instruments scraped from /metrics.
type Registry struct {
	registry      *prometheus.Registry
	concentration prometheus.Gauge
	level         *levelCollector
	alerts        *prometheus.CounterVec
	mu            sync.Mutex
}

// NewRegistry creates a Registry with the CO2 instruments, the Go runtime and
// process collectors, and any extra collectors given.
func NewRegistry(extra ...prometheus.Collector) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		concentration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "co2_concentration_ppm",
			Help: "CO2 concentration in parts per million",
		}),
		level: newLevelCollector(classifier.Bands()),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "co2_alerts_total",
			Help: "Number of CO2 alerts by severity",
		}, []string{"severity"}),
	}

	r.registry.MustRegister(
		r.concentration,
		r.level,
		r.alerts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range extra {
		r.registry.MustRegister(c)
	}

	// Alerting series start at zero so rate() works from the first scrape.
	for _, b := range classifier.Bands() {
		if classifier.IsAlerting(b) {
			r.alerts.WithLabelValues(b.Name)
		}
	}
	return r
}

// Observe records one successful poll cycle. The alert counter is incremented
// on every cycle spent in an alerting band.
func (r *Registry) Observe(snapshot models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.concentration.Set(float64(snapshot.Reading.PPM))
	r.level.set(snapshot.Band.Name)
	if snapshot.Alerting {
		r.alerts.WithLabelValues(snapshot.Band.Name).Inc()
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the HTTP handler serving the text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:      r.registry,
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// levelCollector emits co2_level with exactly one classification set to 1.
// The active band is swapped under a lock so a scrape never sees two or zero
// active labels after the first reading.
type levelCollector struct {
	desc  *prometheus.Desc
	bands []string

	mu     sync.RWMutex
	active string
}

func newLevelCollector(bands []models.Band) *levelCollector {
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = b.Name
	}
	return &levelCollector{
		desc:  prometheus.NewDesc("co2_level", "CO2 level classification", []string{"classification"}, nil),
		bands: names,
	}
}

func (l *levelCollector) set(band string) {
	l.mu.Lock()
	l.active = band
	l.mu.Unlock()
}

func (l *levelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- l.desc
}

func (l *levelCollector) Collect(ch chan<- prometheus.Metric) {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	for _, name := range l.bands {
		value := 0.0
		if name == active {
			value = 1
		}
		ch <- prometheus.MustNewConstMetric(l.desc, prometheus.GaugeValue, value, name)
	}
}
