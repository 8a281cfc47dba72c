package firmware

import (
	"fmt"
	"time"
)

// ParseDate parses a DD-MM-YYYY release date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

// FormatDate renders an epoch-milliseconds timestamp as a UTC DD-MM-YYYY date.
func FormatDate(epochMillis int64) string {
	return time.UnixMilli(epochMillis).UTC().Format(DateLayout)
}

// IsNewer reports whether newDate is on or after oldDate.
// Equal dates count as newer.
func IsNewer(oldDate, newDate string) (bool, error) {
	o, err := ParseDate(oldDate)
	if err != nil {
		return false, err
	}
	n, err := ParseDate(newDate)
	if err != nil {
		return false, err
	}
	return !n.Before(o), nil
}

// IsNewRelease reports whether candidate supersedes old.
// A nil old record means nothing was stored before, so the candidate is new.
// Otherwise the version must differ and the date must not go backwards.
func IsNewRelease(old *Record, candidate Record) (bool, error) {
	if old == nil {
		return true, nil
	}
	if old.Version == candidate.Version {
		return false, nil
	}
	return IsNewer(old.Date, candidate.Date)
}
