package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/optracker/internal/firmware"
	"github.com/nerrad567/optracker/internal/snapshot"
)

// State is the position of a candidate in the detection workflow.
type State string

const (
	StateFetched     State = "fetched"
	StateCompared    State = "compared"
	StateReportedNew State = "reported_new"
	StateSuppressed  State = "suppressed"
)

// Reason explains a suppression.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonDuplicate Reason = "duplicate_checksum"
	ReasonNotNewer  Reason = "not_newer"
)

// Verdict is the outcome of evaluating one candidate.
type Verdict struct {
	State  State
	Reason Reason

	// Record is set only when State is StateReportedNew.
	Record *firmware.Record
}

// Store is the subset of the snapshot store the detector needs.
type Store interface {
	Get(key string, v any) error
	Put(key string, v any) error
}

// Index is the subset of the release index the detector needs.
type Index interface {
	Exists(ctx context.Context, md5 string) (bool, error)
	Insert(ctx context.Context, rec firmware.Record) error
}

// Logger defines the logging interface used by the Detector.
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

// Detector classifies fetched records against stored snapshots.
// It is safe for concurrent use as long as no two calls share a key.
type Detector struct {
	store  Store
	index  Index
	logger Logger
}

// NewDetector creates a Detector.
func NewDetector(store Store, index Index) *Detector {
	return &Detector{
		store:  store,
		index:  index,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the detector.
func (d *Detector) SetLogger(logger Logger) {
	d.logger = logger
}

// Key returns the snapshot key for a record in a region:
// <region>/<branch>/<device file stem>.
func Key(regionCode string, rec firmware.Record) string {
	return regionCode + "/" + string(rec.Branch) + "/" + firmware.StorageName(rec.Device)
}

// Check persists candidate under key and returns it if it is a new release.
// A nil record with a nil error means the candidate was suppressed.
func (d *Detector) Check(ctx context.Context, key string, candidate firmware.Record) (*firmware.Record, error) {
	v, err := d.Evaluate(ctx, key, candidate)
	if err != nil {
		return nil, err
	}
	return v.Record, nil
}

// Evaluate runs the full workflow and returns the verdict.
// On error the verdict holds the last state reached.
func (d *Detector) Evaluate(ctx context.Context, key string, candidate firmware.Record) (Verdict, error) {
	v := Verdict{State: StateFetched}

	if candidate.MD5 != "" {
		seen, err := d.index.Exists(ctx, candidate.MD5)
		if err != nil {
			return v, fmt.Errorf("checking %s: %w", key, err)
		}
		if seen {
			d.logger.Debug("duplicate checksum suppressed", "key", key, "md5", candidate.MD5)
			v.State, v.Reason = StateSuppressed, ReasonDuplicate
			return v, nil
		}
	}

	// Compare against the live value before Put rotates it into the backup,
	// so a failed comparison leaves the snapshot untouched.
	var previous *firmware.Record
	var old firmware.Record
	switch err := d.store.Get(key, &old); {
	case err == nil:
		previous = &old
	case errors.Is(err, snapshot.ErrNotFound):
	default:
		return v, err
	}

	isNew, err := firmware.IsNewRelease(previous, candidate)
	if err != nil {
		return v, fmt.Errorf("comparing %s: %w", key, err)
	}
	v.State = StateCompared

	if err := d.store.Put(key, candidate); err != nil {
		return v, err
	}

	// The unique index settles races between workers holding the same package.
	if candidate.MD5 != "" {
		err := d.index.Insert(ctx, candidate)
		if errors.Is(err, ErrDuplicate) {
			v.State, v.Reason = StateSuppressed, ReasonDuplicate
			return v, nil
		}
		if err != nil {
			return v, fmt.Errorf("indexing %s: %w", key, err)
		}
	}

	if !isNew {
		v.State, v.Reason = StateSuppressed, ReasonNotNewer
		return v, nil
	}

	rec := candidate
	v.State, v.Record = StateReportedNew, &rec
	d.logger.Info("new release", "key", key, "version", rec.Version, "date", rec.Date)
	return v, nil
}
