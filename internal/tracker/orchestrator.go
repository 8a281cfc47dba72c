package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/optracker/internal/cycle"
	"github.com/nerrad567/optracker/internal/firmware"
	"github.com/nerrad567/optracker/internal/merge"
	"github.com/nerrad567/optracker/internal/release"
)

// Fetcher lists devices and their updates for a region.
// An empty slice with a nil error means the vendor had no data.
type Fetcher interface {
	ListDevices(ctx context.Context, region string) ([]firmware.DeviceRef, error)
	ListUpdates(ctx context.Context, region string, device firmware.DeviceRef) ([]firmware.RawUpdate, error)
}

// Store is the subset of the snapshot store the orchestrator writes.
type Store interface {
	Root() string
	Put(key string, v any) error
	DiffNewKeys(key string, current firmware.DeviceList) (firmware.DeviceList, error)
	WriteView(key, ext string, v any) error
}

// Mapper converts vendor updates to records.
type Mapper interface {
	Map(ctx context.Context, raw firmware.RawUpdate, regionCode, regionName string) (firmware.Record, error)
}

// Detector persists a candidate and reports it if it is new.
type Detector interface {
	Check(ctx context.Context, key string, candidate firmware.Record) (*firmware.Record, error)
}

// Merger rebuilds the cross-region views.
type Merger interface {
	Run(ctx context.Context, regionCodes []string) (*merge.View, error)
}

// Notifier announces new releases.
type Notifier interface {
	Post(ctx context.Context, records []firmware.Record) error
}

// VCS commits and publishes the snapshot tree.
type VCS interface {
	CommitAndPush(ctx context.Context, dirs []string) error
}

// Metrics receives cycle statistics.
type Metrics interface {
	WriteRegionMetric(region string, devices, failed, newReleases int, elapsed time.Duration)
	WriteReleaseEvent(product, branch, region, version string, released time.Time)
	WriteCycleMetric(source string, regionsFailed, devicesChecked, devicesFailed, newReleases int, elapsed time.Duration)
}

// RunLog persists one row per cycle.
type RunLog interface {
	Start(ctx context.Context, run *cycle.Run) error
	Finish(ctx context.Context, run *cycle.Run) error
}

// Logger defines the logging interface used by the Orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Region is a vendor store code and its display name.
type Region struct {
	Code string
	Name string
}

// Options controls a cycle.
type Options struct {
	Regions []Region

	// Concurrency bounds device workers per region. Values below 1 mean 1.
	Concurrency int

	// FetchTimeout bounds each vendor call. Zero disables the deadline.
	FetchTimeout time.Duration

	// Source names the fetch strategy for logs and the run log.
	Source string
}

// Deps are the collaborators of an Orchestrator. Fetcher, Store, Mapper,
// Detector and Merger are required; the rest are skipped when nil.
type Deps struct {
	Fetcher  Fetcher
	Store    Store
	Mapper   Mapper
	Detector Detector
	Merger   Merger

	Notifier Notifier
	VCS      VCS
	Metrics  Metrics
	Runs     RunLog
}

// Orchestrator runs tracking cycles.
type Orchestrator struct {
	opts   Options
	deps   Deps
	logger Logger
}

// New creates an Orchestrator.
func New(opts Options, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("tracker: fetcher is required")
	case deps.Store == nil:
		return nil, errors.New("tracker: store is required")
	case deps.Mapper == nil:
		return nil, errors.New("tracker: mapper is required")
	case deps.Detector == nil:
		return nil, errors.New("tracker: detector is required")
	case deps.Merger == nil:
		return nil, errors.New("tracker: merger is required")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{opts: opts, deps: deps, logger: noopLogger{}}, nil
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// RunCycle runs one full cycle. The returned Report is non-nil whenever
// the cycle started, including when the error is ErrAllRegionsFailed or a
// context error.
func (o *Orchestrator) RunCycle(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Source: o.opts.Source}
	run := o.startRun(ctx, report)

	err := o.runCycle(ctx, report)
	report.Elapsed = time.Since(start)

	o.finishRun(ctx, run, report, err)
	if o.deps.Metrics != nil {
		o.deps.Metrics.WriteCycleMetric(o.opts.Source, report.RegionsFailed(),
			report.DevicesChecked(), report.DevicesFailed(), len(report.NewReleases), report.Elapsed)
	}

	o.logger.Info("cycle finished",
		"run_id", report.RunID,
		"regions", len(report.Regions),
		"regions_failed", report.RegionsFailed(),
		"devices", report.DevicesChecked(),
		"devices_failed", report.DevicesFailed(),
		"new_devices", report.NewDevices(),
		"new_releases", len(report.NewReleases),
		"pushed", report.Pushed,
		"elapsed", report.Elapsed,
	)
	return report, err
}

func (o *Orchestrator) runCycle(ctx context.Context, report *Report) error {
	codes := make([]string, 0, len(o.opts.Regions))
	for _, region := range o.opts.Regions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cycle interrupted before region %s: %w", region.Code, err)
		}
		codes = append(codes, region.Code)

		rr, found := o.runRegion(ctx, region)
		report.Regions = append(report.Regions, rr)
		report.NewReleases = append(report.NewReleases, found...)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cycle interrupted: %w", err)
	}

	if report.AllRegionsFailed() {
		o.logger.Error("all regions failed", "regions", len(report.Regions))
		return ErrAllRegionsFailed
	}

	if _, err := o.deps.Merger.Run(ctx, codes); err != nil {
		report.MergeErr = err
		o.logger.Error("merge failed", "error", err)
	}

	if o.deps.Notifier != nil && len(report.NewReleases) > 0 {
		if err := o.deps.Notifier.Post(ctx, report.NewReleases); err != nil {
			report.NotifyErr = err
			o.logger.Warn("notification failed", "error", err)
		}
	}

	if o.deps.VCS != nil {
		if err := o.deps.VCS.CommitAndPush(ctx, []string{o.deps.Store.Root()}); err != nil {
			report.PushErr = err
			o.logger.Error("commit and push failed", "error", err)
		} else {
			report.Pushed = true
		}
	}
	return nil
}

// runRegion processes one region. It never returns an error; region-level
// failure is recorded on the RegionReport.
func (o *Orchestrator) runRegion(ctx context.Context, region Region) (RegionReport, []firmware.Record) {
	start := time.Now()
	rr := RegionReport{Code: region.Code, Name: region.Name}
	if rr.Name == "" {
		rr.Name = region.Code
	}
	o.logger.Info("fetching region", "region", region.Code)

	devices, err := o.listDevices(ctx, region.Code)
	if err != nil {
		rr.Err = err
		rr.Elapsed = time.Since(start)
		o.logger.Error("listing devices failed", "region", region.Code, "error", err)
		return rr, nil
	}
	rr.Devices = len(devices)

	if len(devices) == 0 {
		o.logger.Warn("region listed no devices", "region", region.Code)
	} else {
		if err := o.persistDevices(region.Code, devices, &rr); err != nil {
			rr.Err = err
			rr.Elapsed = time.Since(start)
			o.logger.Error("saving device list failed", "region", region.Code, "error", err)
			return rr, nil
		}
	}

	found, failed := o.checkDevices(ctx, region, rr.Name, devices)
	rr.Failed = failed
	rr.NewReleases = len(found)
	rr.Elapsed = time.Since(start)

	if o.deps.Metrics != nil {
		o.deps.Metrics.WriteRegionMetric(region.Code, rr.Devices, rr.Failed, rr.NewReleases, rr.Elapsed)
		for _, rec := range found {
			released, err := firmware.ParseDate(rec.Date)
			if err != nil {
				continue
			}
			o.deps.Metrics.WriteReleaseEvent(rec.Product, string(rec.Branch), region.Code, rec.Version, released)
		}
	}

	o.logger.Info("region done",
		"region", region.Code,
		"devices", rr.Devices,
		"failed", rr.Failed,
		"new_releases", rr.NewReleases,
	)
	return rr, found
}

func (o *Orchestrator) listDevices(ctx context.Context, region string) ([]firmware.DeviceRef, error) {
	fctx, cancel := o.fetchContext(ctx)
	defer cancel()
	return o.deps.Fetcher.ListDevices(fctx, region)
}

// persistDevices writes the region's device list and records newly listed
// devices in <code>/<code>.changes.
func (o *Orchestrator) persistDevices(code string, devices []firmware.DeviceRef, rr *RegionReport) error {
	key := code + "/" + code
	list := firmware.NewDeviceList(devices)
	if err := o.deps.Store.Put(key, list); err != nil {
		return err
	}

	added, err := o.deps.Store.DiffNewKeys(key, list)
	if err != nil {
		o.logger.Warn("diffing device list failed", "region", code, "error", err)
		return nil
	}
	if len(added) == 0 {
		return nil
	}

	for name := range added {
		rr.NewDevices = append(rr.NewDevices, name)
	}
	sort.Strings(rr.NewDevices)
	o.logger.Info("new devices listed", "region", code, "devices", rr.NewDevices)

	if err := o.deps.Store.WriteView(key, ".changes", added); err != nil {
		o.logger.Warn("writing device changes failed", "region", code, "error", err)
	}
	return nil
}

// checkDevices fans devices out to workers and returns new releases in
// device list order plus the number of failed devices.
func (o *Orchestrator) checkDevices(ctx context.Context, region Region, regionName string, devices []firmware.DeviceRef) ([]firmware.Record, int) {
	groups := groupByStorageName(devices)
	results := make([]groupResult, len(groups))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			results[i] = o.checkGroup(ctx, region.Code, regionName, group)
			return nil
		})
	}
	_ = g.Wait() // Workers record failures in results and never return errors.

	var found []firmware.Record
	failed := 0
	for _, r := range results {
		found = append(found, r.found...)
		failed += r.failed
	}
	return found, failed
}

type groupResult struct {
	found  []firmware.Record
	failed int
}

// checkGroup processes devices sharing one storage name sequentially.
func (o *Orchestrator) checkGroup(ctx context.Context, code, regionName string, group []firmware.DeviceRef) groupResult {
	var res groupResult
	for _, device := range group {
		found, err := o.checkDevice(ctx, code, regionName, device)
		res.found = append(res.found, found...)
		if err != nil {
			res.failed++
			o.logger.Warn("device check failed", "region", code, "device", device.Name, "error", err)
		}
	}
	return res
}

// checkDevice fetches and evaluates every update of one device in release
// order. Updates after a failed one are still evaluated; the first error is
// returned.
func (o *Orchestrator) checkDevice(ctx context.Context, code, regionName string, device firmware.DeviceRef) ([]firmware.Record, error) {
	fctx, cancel := o.fetchContext(ctx)
	updates, err := o.deps.Fetcher.ListUpdates(fctx, code, device)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("listing updates: %w", err)
	}
	if len(updates) == 0 {
		o.logger.Debug("device has no updates", "region", code, "device", device.Name)
		return nil, nil
	}

	// Oldest first, so each key's live snapshot ends on its newest package.
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].ReleaseTime < updates[j].ReleaseTime
	})

	var found []firmware.Record
	var firstErr error
	for _, raw := range updates {
		// The device list names the snapshot file; workers are grouped by it.
		raw.PhoneName = device.Name
		if raw.PhoneCode == "" {
			raw.PhoneCode = device.Code
		}

		rec, err := o.deps.Mapper.Map(ctx, raw, code, regionName)
		if err != nil {
			firstErr = cmpErr(firstErr, fmt.Errorf("mapping %s: %w", raw.VersionNo, err))
			continue
		}

		key := release.Key(code, rec)
		got, err := o.deps.Detector.Check(ctx, key, rec)
		if err != nil {
			firstErr = cmpErr(firstErr, fmt.Errorf("checking %s: %w", key, err))
			continue
		}
		if got != nil {
			found = append(found, *got)
		}
	}
	return found, firstErr
}

func cmpErr(first, next error) error {
	if first != nil {
		return first
	}
	return next
}

func (o *Orchestrator) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.opts.FetchTimeout)
}

// groupByStorageName buckets devices whose snapshot file names collide,
// keeping first-seen order of both groups and members.
func groupByStorageName(devices []firmware.DeviceRef) [][]firmware.DeviceRef {
	index := make(map[string]int, len(devices))
	var groups [][]firmware.DeviceRef
	for _, d := range devices {
		stem := firmware.StorageName(d.Name)
		i, ok := index[stem]
		if !ok {
			i = len(groups)
			index[stem] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], d)
	}
	return groups
}

func (o *Orchestrator) startRun(ctx context.Context, report *Report) *cycle.Run {
	if o.deps.Runs == nil {
		return nil
	}
	run := &cycle.Run{Source: o.opts.Source, RegionsTotal: len(o.opts.Regions)}
	if err := o.deps.Runs.Start(ctx, run); err != nil {
		o.logger.Warn("recording cycle start failed", "error", err)
		return nil
	}
	report.RunID = run.ID
	return run
}

func (o *Orchestrator) finishRun(ctx context.Context, run *cycle.Run, report *Report, cycleErr error) {
	if run == nil {
		return
	}
	run.RegionsFailed = report.RegionsFailed()
	run.DevicesChecked = report.DevicesChecked()
	run.DevicesFailed = report.DevicesFailed()
	run.NewDevices = report.NewDevices()
	run.NewReleases = len(report.NewReleases)

	switch {
	case report.PushErr != nil:
		run.PushStatus = cycle.PushFailed
	case report.Pushed:
		run.PushStatus = cycle.PushOK
	default:
		run.PushStatus = cycle.PushSkipped
	}

	var msgs []string
	for _, err := range []error{cycleErr, report.MergeErr, report.NotifyErr, report.PushErr} {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	run.Error = strings.Join(msgs, "; ")

	// The cycle context may be cancelled; the final row is still worth writing.
	if err := o.deps.Runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Warn("recording cycle finish failed", "error", err)
	}
}
