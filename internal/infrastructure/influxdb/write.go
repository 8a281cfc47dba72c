package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the tracker.
const (
	MeasurementCycle   = "tracker_cycle"
	MeasurementRegion  = "tracker_region"
	MeasurementRelease = "firmware_release"
)

// WriteCycleMetric records the outcome of one tracking cycle.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteCycleMetric("official", 0, 42, 1, 3, 95*time.Second)
func (c *Client) WriteCycleMetric(source string, regionsFailed, devicesChecked, devicesFailed, newReleases int, elapsed time.Duration) {
	c.WritePoint(MeasurementCycle,
		map[string]string{"source": source},
		map[string]interface{}{
			"regions_failed":  regionsFailed,
			"devices_checked": devicesChecked,
			"devices_failed":  devicesFailed,
			"new_releases":    newReleases,
			"duration_ms":     elapsed.Milliseconds(),
		})
}

// WriteRegionMetric records per-region fetch statistics.
//
// Parameters:
//   - region: Vendor store code (e.g., "eu")
//   - devices: Devices listed by the vendor for the region
//   - failed: Devices whose update lookup failed
//   - newReleases: Releases reported as new
//   - elapsed: Wall time spent on the region
func (c *Client) WriteRegionMetric(region string, devices, failed, newReleases int, elapsed time.Duration) {
	c.WritePoint(MeasurementRegion,
		map[string]string{"region": region},
		map[string]interface{}{
			"devices":      devices,
			"failed":       failed,
			"new_releases": newReleases,
			"duration_ms":  elapsed.Milliseconds(),
		})
}

// WriteReleaseEvent records a newly detected release at its publication time.
//
// Product and branch are tags so dashboards can group by them; the version
// string is a field because it is high-cardinality.
func (c *Client) WriteReleaseEvent(product, branch, region, version string, released time.Time) {
	c.WritePointWithTime(MeasurementRelease,
		map[string]string{
			"product": product,
			"branch":  branch,
			"region":  region,
		},
		map[string]interface{}{
			"version": version,
		},
		released)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., a release date).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
