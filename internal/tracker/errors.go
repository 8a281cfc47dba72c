package tracker

import "errors"

// ErrAllRegionsFailed is returned when no region could be processed.
var ErrAllRegionsFailed = errors.New("tracker: all regions failed")
