package firmware

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Branch is the release channel.
type Branch string

const (
	BranchStable Branch = "Stable"
	BranchBeta   Branch = "Beta"
)

// ReleaseType distinguishes complete images from differential packages.
type ReleaseType string

const (
	TypeFull        ReleaseType = "Full"
	TypeIncremental ReleaseType = "Incremental"
)

// DateLayout is the Go layout for the DD-MM-YYYY release date form.
const DateLayout = "02-01-2006"

// Record is a single firmware release.
// The same type is persisted in snapshot files, stored in the release index,
// written to merged views and handed to notifiers.
type Record struct {
	Device    string      `yaml:"device" json:"device"`
	Code      string      `yaml:"code" json:"code"`
	Region    string      `yaml:"region" json:"region"`
	Branch    Branch      `yaml:"branch" json:"branch"`
	Version   string      `yaml:"version" json:"version"`
	Type      ReleaseType `yaml:"type" json:"type"`
	Size      string      `yaml:"size" json:"size"`
	MD5       string      `yaml:"md5" json:"md5"`
	Filename  string      `yaml:"filename" json:"filename"`
	Link      string      `yaml:"link" json:"link"`
	Date      string      `yaml:"date" json:"date"`
	Changelog string      `yaml:"changelog" json:"changelog"`

	// Product groups variants of the same device and region across time.
	Product string `yaml:"product" json:"product"`
}

// DeviceRef is a device as listed by the vendor for one region.
type DeviceRef struct {
	Name  string `json:"phoneName" yaml:"name"`
	Code  string `json:"phoneCode" yaml:"code"`
	Image string `json:"phoneImage" yaml:"image"`
}

// DeviceList maps device name to vendor code for one region.
type DeviceList map[string]string

// NewDeviceList builds the persisted form of a region's devices.
// Later duplicates of a name win.
func NewDeviceList(refs []DeviceRef) DeviceList {
	list := make(DeviceList, len(refs))
	for _, d := range refs {
		if d.Name == "" {
			continue
		}
		list[d.Name] = d.Code
	}
	return list
}

// RawUpdate is one entry of the vendor's find-phone-systems response.
type RawUpdate struct {
	PhoneName   string     `json:"phoneName"`
	PhoneCode   string     `json:"phoneCode"`
	PhoneImage  string     `json:"phoneImage"`
	VersionNo   string     `json:"versionNo"`
	VersionType int        `json:"versionType"`
	ReleaseTime int64      `json:"versionReleaseTime"`
	Size        FlexString `json:"versionSize"`
	Sign        string     `json:"versionSign"`
	Link        string     `json:"versionLink"`
	Log         string     `json:"versionLog"`
}

// FlexString accepts either a JSON string or number.
// The vendor reports package sizes in both forms.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// StorageName returns the snapshot file stem for a device name.
// Distinct names may share a stem; callers must serialise writes per stem.
func StorageName(device string) string {
	name := strings.TrimSpace(device)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
