package mqtt

import "errors"

var (
	// ErrConnectionFailed is returned by Connect when the broker is unreachable
	// or refuses the session.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned while the session is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed wraps broker-side and timeout failures of Publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned for QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for empty topics and topics containing wildcards.
	ErrInvalidTopic = errors.New("mqtt: invalid publish topic")
)
