// Package influxdb provides InfluxDB connectivity for tracker metrics.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// Each cycle writes:
//   - One tracker_cycle point with totals and duration
//   - One tracker_region point per region processed
//   - One firmware_release point per new release, stamped with its release date
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRegionMetric("eu", 42, 0, 3, 12*time.Second)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a callback.
// Connection and health check errors are returned directly.
package influxdb
