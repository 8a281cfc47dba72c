package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nerrad567/optracker/internal/firmware"
	"github.com/nerrad567/optracker/internal/snapshot"
)

const (
	// devicesKey holds the merged device name list.
	devicesKey = "devices"

	// latestDir holds one merged file per device. It is skipped when
	// scanning for region directories.
	latestDir = "latest"

	// latestKey holds the newest record per product slot.
	latestKey = "latest"
)

// Store is the subset of the snapshot store the merger reads and writes.
type Store interface {
	Get(key string, v any) error
	Exists(key string) bool
	SubDirs(key string) ([]string, error)
	WriteView(key, ext string, v any) error
}

// History supplies the newest indexed Full record per (product, branch).
// It lets latest.yml reflect releases a snapshot has since moved past.
type History interface {
	Latest(ctx context.Context) ([]firmware.Record, error)
}

// Logger defines the logging interface used by the Merger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// View is the result of one merge pass.
type View struct {
	Devices []string
	Updates map[string][]firmware.Record
	Latest  []firmware.Record
}

// Merger builds merged views from a snapshot store.
type Merger struct {
	store   Store
	history History
	logger  Logger
}

// New creates a Merger over store.
func New(store Store) *Merger {
	return &Merger{store: store, logger: noopLogger{}}
}

// SetHistory adds indexed releases to the latest view. Nil disables it.
func (m *Merger) SetHistory(h History) {
	m.history = h
}

// SetLogger sets the logger for the merger.
func (m *Merger) SetLogger(logger Logger) {
	m.logger = logger
}

// Run merges devices, per-device updates and the latest view, in that order.
func (m *Merger) Run(ctx context.Context, regionCodes []string) (*View, error) {
	devices, err := m.MergeDevices(regionCodes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updates, err := m.MergeUpdates(devices)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	latest, err := m.MergeLatest(ctx, devices, updates)
	if err != nil {
		return nil, err
	}

	m.logger.Info("merged views written",
		"devices", len(devices),
		"latest", len(latest),
	)
	return &View{Devices: devices, Updates: updates, Latest: latest}, nil
}

// MergeDevices writes the sorted union of device names found in each
// region's device list. A region without a snapshot contributes nothing.
func (m *Merger) MergeDevices(regionCodes []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, code := range regionCodes {
		var list firmware.DeviceList
		err := m.store.Get(code+"/"+code, &list)
		if errors.Is(err, snapshot.ErrNotFound) {
			m.logger.Debug("region has no device list", "region", code)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading devices of %s: %w", code, err)
		}
		for name := range list {
			seen[name] = struct{}{}
		}
	}

	devices := make([]string, 0, len(seen))
	for name := range seen {
		devices = append(devices, name)
	}
	sort.Strings(devices)

	if err := m.store.WriteView(devicesKey, "", devices); err != nil {
		return nil, fmt.Errorf("writing merged devices: %w", err)
	}
	return devices, nil
}

// MergeUpdates collects, for each device, every stored record across
// region and branch directories and writes latest/<device>.yml.
// Directories are visited in name order. A device with no records gets an
// empty list.
func (m *Merger) MergeUpdates(devices []string) (map[string][]firmware.Record, error) {
	partitions, err := m.partitions()
	if err != nil {
		return nil, err
	}

	updates := make(map[string][]firmware.Record, len(devices))
	for _, device := range devices {
		stem := firmware.StorageName(device)
		records := []firmware.Record{}
		for _, p := range partitions {
			key := p + "/" + stem
			if !m.store.Exists(key) {
				continue
			}
			var rec firmware.Record
			err := m.store.Get(key, &rec)
			if errors.Is(err, snapshot.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", key, err)
			}
			records = append(records, rec)
		}

		if err := m.store.WriteView(latestDir+"/"+stem, "", records); err != nil {
			return nil, fmt.Errorf("writing merged updates for %s: %w", device, err)
		}
		updates[device] = records
	}
	return updates, nil
}

// partitions lists <region>/<branch> directories in name order.
func (m *Merger) partitions() ([]string, error) {
	regions, err := m.store.SubDirs("")
	if err != nil {
		return nil, err
	}

	var out []string
	for _, region := range regions {
		if region == latestDir {
			continue
		}
		branches, err := m.store.SubDirs(region)
		if err != nil {
			return nil, err
		}
		for _, branch := range branches {
			out = append(out, region+"/"+branch)
		}
	}
	return out, nil
}

// slot identifies the "current" position a release supersedes.
type slot struct {
	product string
	branch  firmware.Branch
	typ     firmware.ReleaseType
}

// MergeLatest writes the newest record per (product, branch, type) to
// latest.yml, sorted by product, branch and type. Indexed history of the
// listed devices is considered before snapshots; on equal dates the record
// found first wins. Records with malformed dates are skipped.
func (m *Merger) MergeLatest(ctx context.Context, devices []string, updates map[string][]firmware.Record) ([]firmware.Record, error) {
	candidates, err := m.historyFor(ctx, devices)
	if err != nil {
		return nil, err
	}
	for _, device := range devices {
		candidates = append(candidates, updates[device]...)
	}

	best := make(map[slot]firmware.Record)
	for _, rec := range candidates {
		s := slot{product: rec.Product, branch: rec.Branch, typ: rec.Type}
		current, ok := best[s]
		if !ok {
			if _, err := firmware.ParseDate(rec.Date); err != nil {
				m.logger.Warn("skipping record with malformed date", "device", rec.Device, "date", rec.Date)
				continue
			}
			best[s] = rec
			continue
		}
		newer, err := isStrictlyNewer(current.Date, rec.Date)
		if err != nil {
			m.logger.Warn("skipping record with malformed date", "device", rec.Device, "date", rec.Date)
			continue
		}
		if newer {
			best[s] = rec
		}
	}

	latest := make([]firmware.Record, 0, len(best))
	for _, rec := range best {
		latest = append(latest, rec)
	}
	sort.Slice(latest, func(i, j int) bool {
		a, b := latest[i], latest[j]
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		if a.Branch != b.Branch {
			return a.Branch < b.Branch
		}
		return a.Type < b.Type
	})

	if err := m.store.WriteView(latestKey, "", latest); err != nil {
		return nil, fmt.Errorf("writing latest view: %w", err)
	}
	return latest, nil
}

// historyFor returns indexed records of the listed devices only, so a
// device dropped from every region leaves latest.yml.
func (m *Merger) historyFor(ctx context.Context, devices []string) ([]firmware.Record, error) {
	if m.history == nil {
		return nil, nil
	}
	records, err := m.history.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading release history: %w", err)
	}

	listed := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		listed[d] = struct{}{}
	}
	out := records[:0]
	for _, rec := range records {
		if _, ok := listed[rec.Device]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func isStrictlyNewer(oldDate, newDate string) (bool, error) {
	o, err := firmware.ParseDate(oldDate)
	if err != nil {
		return false, err
	}
	n, err := firmware.ParseDate(newDate)
	if err != nil {
		return false, err
	}
	return n.After(o), nil
}
