package tracker

import (
	"time"

	"github.com/nerrad567/optracker/internal/firmware"
)

// RegionReport summarises one region of a cycle.
type RegionReport struct {
	Code string
	Name string

	// Devices is the number of devices the vendor listed.
	Devices int

	// Failed counts devices whose updates could not be fetched or processed.
	Failed int

	// NewDevices are names absent from the previous device list, sorted.
	NewDevices []string

	// NewReleases counts releases reported as new in this region.
	NewReleases int

	// Err is set when the region as a whole failed.
	Err error

	Elapsed time.Duration
}

// Report is the outcome of one cycle.
type Report struct {
	RunID  string
	Source string

	Regions []RegionReport

	// NewReleases in region order, then device list order.
	NewReleases []firmware.Record

	MergeErr  error
	NotifyErr error
	PushErr   error

	// Pushed is set when the VCS step ran and succeeded.
	Pushed bool

	Elapsed time.Duration
}

// RegionsFailed counts regions that failed as a whole.
func (r *Report) RegionsFailed() int {
	n := 0
	for _, reg := range r.Regions {
		if reg.Err != nil {
			n++
		}
	}
	return n
}

// DevicesChecked counts devices listed across all regions.
func (r *Report) DevicesChecked() int {
	n := 0
	for _, reg := range r.Regions {
		n += reg.Devices
	}
	return n
}

// DevicesFailed counts failed devices across all regions.
func (r *Report) DevicesFailed() int {
	n := 0
	for _, reg := range r.Regions {
		n += reg.Failed
	}
	return n
}

// NewDevices counts newly listed devices across all regions.
func (r *Report) NewDevices() int {
	n := 0
	for _, reg := range r.Regions {
		n += len(reg.NewDevices)
	}
	return n
}

// AllRegionsFailed reports whether every region failed.
func (r *Report) AllRegionsFailed() bool {
	return len(r.Regions) > 0 && r.RegionsFailed() == len(r.Regions)
}

// Failed reports whether the process should exit non-zero: the push failed
// or every region failed.
func (r *Report) Failed() bool {
	return r.PushErr != nil || r.AllRegionsFailed()
}
