package firmware

import (
	"path"
	"regexp"
	"strings"
)

var (
	// canonicalVersionRe matches the NN.X.NN build segment of a canonical name.
	canonicalVersionRe = regexp.MustCompile(`_\d{2}\.[A-Z]\.\d{2}_`)

	// irregularRe matches <prefix>_NN_OTA_NNN_all[_timestamp][_hash].
	irregularRe = regexp.MustCompile(`^(.+?)_(\d{2})_OTA_(\d{3})_all(?:_(\d{10}))?(?:_[0-9a-fA-F]{16})?$`)

	// hashSuffixRe matches the trailing 16-hex content hash.
	hashSuffixRe = regexp.MustCompile(`_[0-9a-fA-F]{16}$`)
)

// FilenameInfo is what can be recovered from a package file name.
type FilenameInfo struct {
	// Version is the canonical version, empty for irregular names.
	Version string

	// Irregular is set for ..._NN_OTA_NNN_all... names.
	Irregular bool

	// Prefix is the device/variant part before the version fields.
	Prefix string

	// Sequence and Timestamp are the OTA fragments of an irregular name.
	Sequence  string
	Timestamp string

	Type ReleaseType
}

// FilenameFromLink returns the last path element of a download link.
func FilenameFromLink(link string) string {
	if link == "" {
		return ""
	}
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return path.Base(link)
}

// ParseFilename recovers version information from a package file name.
// Names matching neither shape yield a zero Version and Irregular unset;
// callers fall back to the vendor version number.
func ParseFilename(filename string) FilenameInfo {
	base := strings.TrimSuffix(filename, ".zip")
	info := FilenameInfo{Type: TypeFull}
	if strings.Contains(strings.ToLower(base), "patch") {
		info.Type = TypeIncremental
	}

	if loc := canonicalVersionRe.FindStringIndex(base); loc != nil {
		v := strings.ReplaceAll(base, "_OTA", "")
		v = strings.ReplaceAll(v, "_all", "")
		v = hashSuffixRe.ReplaceAllString(v, "")
		info.Version = v
		info.Prefix = base[:loc[0]]
		return info
	}

	if m := irregularRe.FindStringSubmatch(base); m != nil {
		info.Irregular = true
		info.Type = TypeIncremental
		info.Prefix = m[1]
		info.Sequence = m[3]
		info.Timestamp = m[4]
		return info
	}

	return info
}

// ReconstructVersion splices the OTA sequence and timestamp of an irregular
// file name into a known Full version for the same device and branch.
//
//	ReconstructVersion("OnePlus9Oxygen_22.E.13_0130_2111112106",
//	    FilenameInfo{Sequence: "003", Timestamp: "2112012233"})
//	    == "OnePlus9Oxygen_22.E.13_003_2112012233"
//
// It returns "" when fullVersion is empty or has no NN.X.NN segment.
func ReconstructVersion(fullVersion string, info FilenameInfo) string {
	if fullVersion == "" || info.Sequence == "" {
		return ""
	}
	loc := canonicalVersionRe.FindStringIndex(fullVersion + "_")
	if loc == nil {
		return ""
	}

	// head keeps everything up to and including the NN.X.NN segment.
	head := fullVersion[:loc[1]-1]

	parts := []string{head, info.Sequence}
	if info.Timestamp != "" {
		parts = append(parts, info.Timestamp)
	}
	return strings.Join(parts, "_")
}
