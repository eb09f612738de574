package metrics_collectors

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeCollector struct {
	name  string
	value float64
	err   error
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(ctx context.Context) (float64, error) { return f.value, f.err }

func (f *fakeCollector) Unit() string { return "percent" }

func (f *fakeCollector) Description() string { return "Fake " + f.name + " usage." }

func TestHostCollector_Collect(t *testing.T) {
	h := NewHostCollector(zerolog.Nop(), time.Second,
		&fakeCollector{name: "cpu", value: 12.5},
		&fakeCollector{name: "memory", value: 40},
	)

	expected := `
# HELP co2_bridge_host_cpu_percent Fake cpu usage.
# TYPE co2_bridge_host_cpu_percent gauge
co2_bridge_host_cpu_percent 12.5
# HELP co2_bridge_host_memory_percent Fake memory usage.
# TYPE co2_bridge_host_memory_percent gauge
co2_bridge_host_memory_percent 40
`
	assert.NoError(t, testutil.CollectAndCompare(h, strings.NewReader(expected)))
}

func TestHostCollector_SkipsFailingCollector(t *testing.T) {
	h := NewHostCollector(zerolog.Nop(), time.Second,
		&fakeCollector{name: "cpu", value: 3},
		&fakeCollector{name: "disk", err: errors.New("statfs failed")},
	)

	assert.Equal(t, 1, testutil.CollectAndCount(h))
}

func TestDefaultHostCollectors(t *testing.T) {
	names := []string{}
	for _, c := range DefaultHostCollectors() {
		names = append(names, c.Name())
		assert.Equal(t, "percent", c.Unit())
		assert.NotEmpty(t, c.Description())
	}
	assert.Equal(t, []string{"cpu", "memory", "disk"}, names)
}

func TestRegistry_WithHostCollector(t *testing.T) {
	r := NewRegistry(NewHostCollector(zerolog.Nop(), time.Second, &fakeCollector{name: "cpu", value: 1}))

	families, err := r.Gatherer().Gather()
	assert.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "co2_bridge_host_cpu_percent" {
			found = true
		}
	}
	assert.True(t, found)
}
