// Package tracker runs one tracking cycle end to end.
//
// A cycle walks the configured regions in order. For each region it lists
// the vendor's devices, persists the list, records newly listed devices, and
// then checks every device's updates with bounded concurrency. Each update is
// mapped to a firmware.Record and handed to the detector, which persists it
// and decides whether it is a new release.
//
// After the last region the orchestrator rebuilds the merged views, posts the
// accumulated new releases to the notifier, and commits the snapshot tree.
//
// Failure policy:
//   - A failed device is logged and skipped.
//   - A failed region is logged and skipped; the next region still runs.
//   - Only when every region fails does RunCycle return ErrAllRegionsFailed.
//   - Notifier and VCS failures are recorded on the Report, not returned.
//
// Concurrency: regions run sequentially. Within a region, devices are fanned
// out to at most Options.Concurrency workers and joined before the next
// region starts. Devices whose snapshot file names collide are handled by one
// worker, so no two goroutines ever write the same storage key.
package tracker
