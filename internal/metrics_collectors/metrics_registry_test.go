package metrics_collectors

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/classifier"
	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFor(ppm int) models.Snapshot {
	band := classifier.Classify(ppm)
	return models.Snapshot{
		Reading:  models.Reading{PPM: ppm, Timestamp: time.Now()},
		Band:     band,
		Alerting: classifier.IsAlerting(band),
	}
}

func levelExposition(active string) string {
	var b strings.Builder
	b.WriteString("# HELP co2_level CO2 level classification\n# TYPE co2_level gauge\n")
	for _, band := range classifier.Bands() {
		value := "0"
		if band.Name == active {
			value = "1"
		}
		b.WriteString(`co2_level{classification="` + band.Name + `"} ` + value + "\n")
	}
	return b.String()
}

func TestRegistry_InitialState(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 0.0, testutil.ToFloat64(r.concentration))
	assert.NoError(t, testutil.CollectAndCompare(r.level, strings.NewReader(levelExposition("")), "co2_level"))
	assert.Equal(t, 2, testutil.CollectAndCount(r.alerts, "co2_alerts_total"))
}

func TestRegistry_Observe_Scenario(t *testing.T) {
	r := NewRegistry()

	for _, ppm := range []int{400, 1200, 4999, 5001} {
		r.Observe(snapshotFor(ppm))
	}

	assert.Equal(t, 5001.0, testutil.ToFloat64(r.concentration))
	assert.NoError(t, testutil.CollectAndCompare(r.level, strings.NewReader(levelExposition(classifier.Alert)), "co2_level"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues(classifier.Warning)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues(classifier.Alert)))
}

func TestRegistry_Observe_CountsEveryAlertingCycle(t *testing.T) {
	r := NewRegistry()

	r.Observe(snapshotFor(3000))
	r.Observe(snapshotFor(3000))
	r.Observe(snapshotFor(800))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.alerts.WithLabelValues(classifier.Warning)))
	assert.Equal(t, 800.0, testutil.ToFloat64(r.concentration))
}

func TestRegistry_Observe_SameReadingOverwrites(t *testing.T) {
	r := NewRegistry()

	r.Observe(snapshotFor(700))
	r.Observe(snapshotFor(700))

	assert.Equal(t, 700.0, testutil.ToFloat64(r.concentration))
	assert.NoError(t, testutil.CollectAndCompare(r.level, strings.NewReader(levelExposition(classifier.Normal)), "co2_level"))
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.Observe(snapshotFor(1500))

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, "co2_concentration_ppm 1500")
	assert.Contains(t, text, `co2_level{classification="SLEEPY"} 1`)
	assert.Contains(t, text, `co2_level{classification="GREAT"} 0`)
	assert.Contains(t, text, `co2_alerts_total{severity="WARNING"} 0`)
	assert.Contains(t, text, "go_goroutines")
}
