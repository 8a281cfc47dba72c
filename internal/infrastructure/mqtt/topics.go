package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "optracker"

// Topics builds tracker topics under a common prefix.
//
//	topics := mqtt.NewTopics("optracker")
//	topics.Release("OnePlus9_eu", "Stable")
//	// Returns: "optracker/release/OnePlus9_eu/Stable"
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix. Leading and trailing
// slashes are trimmed and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root segment.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Status returns the retained online/offline topic.
//
// Example: optracker/status
func (t Topics) Status() string {
	return t.Prefix() + "/status"
}

// Release returns the topic a new release is announced on.
//
// Example: optracker/release/OnePlus9_eu/Stable
func (t Topics) Release(product, branch string) string {
	return t.Prefix() + "/release/" + segment(product) + "/" + segment(branch)
}

// Cycle returns the topic cycle summaries are published on.
//
// Example: optracker/cycle
func (t Topics) Cycle() string {
	return t.Prefix() + "/cycle"
}

// AllReleases returns a wildcard matching every release topic.
//
// Example: optracker/release/#
func (t Topics) AllReleases() string {
	return t.Prefix() + "/release/#"
}

// segment makes s safe as a single topic level. MQTT reserves '/' as the
// level separator and '+' and '#' as wildcards.
func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}
