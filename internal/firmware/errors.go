package firmware

import "errors"

// Domain errors for the firmware package.
//
//	if errors.Is(err, firmware.ErrMalformedDate) {
//	    // skip the record
//	}
var (
	// ErrMalformedDate is returned when a date is not in DD-MM-YYYY form.
	ErrMalformedDate = errors.New("firmware: malformed date")

	// ErrInvalidUpdate is returned when a raw vendor update lacks required fields.
	ErrInvalidUpdate = errors.New("firmware: invalid update")
)
