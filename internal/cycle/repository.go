package cycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PushStatus is the outcome of the commit-and-push step.
type PushStatus string

const (
	PushSkipped PushStatus = "skipped"
	PushOK      PushStatus = "pushed"
	PushFailed  PushStatus = "failed"
)

// sortableTime is a fixed-width UTC timestamp that orders lexicographically.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("cycle: run not found")

// Run is one tracking cycle.
type Run struct {
	ID             string     `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     time.Time  `json:"finished_at,omitempty"`
	Source         string     `json:"source"`
	RegionsTotal   int        `json:"regions_total"`
	RegionsFailed  int        `json:"regions_failed"`
	DevicesChecked int        `json:"devices_checked"`
	DevicesFailed  int        `json:"devices_failed"`
	NewDevices     int        `json:"new_devices"`
	NewReleases    int        `json:"new_releases"`
	PushStatus     PushStatus `json:"push_status"`
	Error          string     `json:"error,omitempty"`
}

// Finished reports whether the run completed.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Repository defines the interface for cycle log operations.
type Repository interface {
	Start(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// SQLiteRepository stores runs in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new cycle log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Start inserts a run. The ID and StartedAt are generated if empty.
func (r *SQLiteRepository) Start(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = "cyc-" + uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.PushStatus == "" {
		run.PushStatus = PushSkipped
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cycles (id, started_at, source, regions_total, push_status)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(sortableTime), run.Source, run.RegionsTotal, string(run.PushStatus),
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}
	return nil
}

// Finish stores the final counters of a started run. FinishedAt is set to
// now if empty.
func (r *SQLiteRepository) Finish(ctx context.Context, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if run.PushStatus == "" {
		run.PushStatus = PushSkipped
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE cycles SET
			finished_at = ?, regions_total = ?, regions_failed = ?,
			devices_checked = ?, devices_failed = ?, new_devices = ?,
			new_releases = ?, push_status = ?, error = ?
		 WHERE id = ?`,
		run.FinishedAt.UTC().Format(sortableTime), run.RegionsTotal, run.RegionsFailed,
		run.DevicesChecked, run.DevicesFailed, run.NewDevices,
		run.NewReleases, string(run.PushStatus), run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating cycle %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating cycle %s: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

// Recent returns up to limit runs, most recent first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 { //nolint:mnd // max page size for cycle queries
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, source, regions_total, regions_failed,
			devices_checked, devices_failed, new_devices, new_releases, push_status, error
		 FROM cycles ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt sql.NullString
		var push string

		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Source,
			&run.RegionsTotal, &run.RegionsFailed, &run.DevicesChecked, &run.DevicesFailed,
			&run.NewDevices, &run.NewReleases, &push, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		run.PushStatus = PushStatus(push)

		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid && strings.TrimSpace(finishedAt.String) != "" {
			if run.FinishedAt, err = parseTime(finishedAt.String); err != nil {
				return nil, err
			}
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}

	return runs, nil
}

// Last returns the most recent run.
func (r *SQLiteRepository) Last(ctx context.Context) (*Run, error) {
	runs, err := r.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return &runs[0], nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sortableTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing cycle timestamp %q: %w", s, err)
	}
	return t, nil
}
