package metrics_collectors

import (
	"context"

	"github.com/shirou/gopsutil/disk"
)

// DiskMetricCollector collects disk usage metrics.
type DiskMetricCollector struct {
	Path string
}

func (d *DiskMetricCollector) Name() string {
	return "disk"
}

func (d *DiskMetricCollector) Collect(ctx context.Context) (float64, error) {
	path := d.Path
	if path == "" {
		path = "/"
	}
	diskStats, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return diskStats.UsedPercent, nil
}

func (d *DiskMetricCollector) Unit() string {
	return "percent"
}

func (d *DiskMetricCollector) Description() string {
	return "Percentage of disk space used on the root filesystem."
}
