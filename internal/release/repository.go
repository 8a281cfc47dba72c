package release

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/optracker/internal/firmware"
)

// sortableTime is a fixed-width UTC timestamp that orders lexicographically.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// Repository is the persistent release index.
type Repository interface {
	// Exists reports whether a record with this checksum was indexed before.
	Exists(ctx context.Context, md5 string) (bool, error)

	// Insert indexes rec. Returns ErrDuplicate if its checksum is known.
	Insert(ctx context.Context, rec firmware.Record) error

	// LastFullVersion returns the newest Full version of device on branch,
	// or "" when none is known.
	LastFullVersion(ctx context.Context, device string, branch firmware.Branch) (string, error)

	// Latest returns the newest Full record per (product, branch).
	Latest(ctx context.Context) ([]firmware.Record, error)
}

// SQLiteRepository implements Repository on the releases table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a release index over db.
// The releases migration must have been applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Exists implements Repository.
func (r *SQLiteRepository) Exists(ctx context.Context, md5 string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM releases WHERE md5 = ?", md5).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking checksum: %w", err)
	}
	return n > 0, nil
}

// Insert implements Repository.
func (r *SQLiteRepository) Insert(ctx context.Context, rec firmware.Record) error {
	if rec.MD5 == "" {
		return fmt.Errorf("%w: %s %s has no checksum", ErrInvalidRecord, rec.Device, rec.Version)
	}
	released, err := firmware.ParseDate(rec.Date)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO releases (
			id, device, code, region, version, branch, type, size, md5,
			filename, link, date, released_at, changelog, product, insert_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"rel-"+uuid.NewString(),
		rec.Device, rec.Code, rec.Region, rec.Version,
		string(rec.Branch), string(rec.Type), rec.Size, rec.MD5,
		rec.Filename, rec.Link, rec.Date, released.Unix(),
		rec.Changelog, rec.Product,
		time.Now().UTC().Format(sortableTime),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.MD5)
		}
		return fmt.Errorf("inserting release: %w", err)
	}
	return nil
}

// LastFullVersion implements Repository and firmware.FullVersionLookup.
func (r *SQLiteRepository) LastFullVersion(ctx context.Context, device string, branch firmware.Branch) (string, error) {
	if device == "" {
		return "", nil
	}

	var version string
	err := r.db.QueryRowContext(ctx, `
		SELECT version FROM releases
		WHERE device = ? AND branch = ? AND type = ?
		ORDER BY released_at DESC, insert_date DESC
		LIMIT 1`,
		device, string(branch), string(firmware.TypeFull),
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying last full version: %w", err)
	}
	return version, nil
}

// Latest implements Repository.
func (r *SQLiteRepository) Latest(ctx context.Context) ([]firmware.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device, code, region, version, branch, type, size, md5,
		       filename, link, date, changelog, product
		FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY product, branch
				ORDER BY released_at DESC, insert_date DESC
			) AS rn
			FROM releases
			WHERE type = ?
		)
		WHERE rn = 1
		ORDER BY product, branch`,
		string(firmware.TypeFull),
	)
	if err != nil {
		return nil, fmt.Errorf("querying latest releases: %w", err)
	}
	defer rows.Close()

	var records []firmware.Record
	for rows.Next() {
		var rec firmware.Record
		var branch, typ string
		if err := rows.Scan(
			&rec.Device, &rec.Code, &rec.Region, &rec.Version, &branch, &typ,
			&rec.Size, &rec.MD5, &rec.Filename, &rec.Link, &rec.Date,
			&rec.Changelog, &rec.Product,
		); err != nil {
			return nil, fmt.Errorf("scanning release row: %w", err)
		}
		rec.Branch = firmware.Branch(branch)
		rec.Type = firmware.ReleaseType(typ)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating releases: %w", err)
	}
	return records, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
