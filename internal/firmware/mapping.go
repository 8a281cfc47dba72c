package firmware

import (
	"context"
	"fmt"
	"strings"
)

// FullVersionLookup finds the most recent Full version recorded for a
// device on a branch. It returns "" when none is known.
type FullVersionLookup interface {
	LastFullVersion(ctx context.Context, device string, branch Branch) (string, error)
}

// Mapper turns raw vendor updates into Records.
type Mapper struct {
	lookup FullVersionLookup
}

// NewMapper creates a Mapper. A nil lookup disables irregular-name recovery.
func NewMapper(lookup FullVersionLookup) *Mapper {
	return &Mapper{lookup: lookup}
}

// Map converts raw into a Record for the given region.
// regionName is the display name stored in the record; regionCode feeds the
// product key.
func (m *Mapper) Map(ctx context.Context, raw RawUpdate, regionCode, regionName string) (Record, error) {
	if raw.PhoneName == "" {
		return Record{}, fmt.Errorf("%w: missing phone name", ErrInvalidUpdate)
	}
	if raw.ReleaseTime <= 0 {
		return Record{}, fmt.Errorf("%w: %s has no release time", ErrInvalidUpdate, raw.PhoneName)
	}

	branch := BranchBeta
	if raw.VersionType == 1 {
		branch = BranchStable
	}

	filename := FilenameFromLink(raw.Link)
	info := ParseFilename(filename)

	version, err := m.resolveVersion(ctx, raw.PhoneName, info, branch)
	if err != nil {
		return Record{}, err
	}
	if version == "" {
		version = raw.VersionNo
	}

	prefix := info.Prefix
	if prefix == "" {
		prefix = strings.ReplaceAll(strings.TrimSpace(raw.PhoneName), " ", "")
	}

	return Record{
		Device:    raw.PhoneName,
		Code:      raw.PhoneCode,
		Region:    regionName,
		Branch:    branch,
		Version:   version,
		Type:      info.Type,
		Size:      string(raw.Size),
		MD5:       raw.Sign,
		Filename:  filename,
		Link:      raw.Link,
		Date:      FormatDate(raw.ReleaseTime),
		Changelog: CleanChangelog(raw.Log),
		Product:   prefix + "_" + regionCode,
	}, nil
}

// resolveVersion rebuilds an irregular version from the last Full version
// of the same device. File-name prefixes are shared between models
// (OnePlus9, OnePlus9Pro) so they cannot key the lookup.
func (m *Mapper) resolveVersion(ctx context.Context, device string, info FilenameInfo, branch Branch) (string, error) {
	if !info.Irregular {
		return info.Version, nil
	}
	if m.lookup == nil {
		return "", nil
	}
	full, err := m.lookup.LastFullVersion(ctx, device, branch)
	if err != nil {
		return "", fmt.Errorf("looking up full version for %s: %w", device, err)
	}
	return ReconstructVersion(full, info), nil
}
