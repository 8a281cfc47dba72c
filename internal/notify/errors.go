package notify

import "errors"

// ErrPublish is returned when one or more releases could not be announced.
var ErrPublish = errors.New("notify: publish failed")
