package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/optracker/internal/tracker"
)

// CycleSummary is the retained document describing the last cycle.
type CycleSummary struct {
	RunID          string   `json:"run_id,omitempty"`
	Source         string   `json:"source"`
	FinishedAt     string   `json:"finished_at"`
	ElapsedMS      int64    `json:"elapsed_ms"`
	Regions        int      `json:"regions"`
	RegionsFailed  []string `json:"regions_failed,omitempty"`
	DevicesChecked int      `json:"devices_checked"`
	DevicesFailed  int      `json:"devices_failed"`
	NewDevices     int      `json:"new_devices"`
	NewReleases    int      `json:"new_releases"`
	Pushed         bool     `json:"pushed"`
	OK             bool     `json:"ok"`
}

// Summarize condenses a cycle report. finished is stamped in UTC.
func Summarize(r *tracker.Report, finished time.Time) CycleSummary {
	s := CycleSummary{
		RunID:          r.RunID,
		Source:         r.Source,
		FinishedAt:     finished.UTC().Format(time.RFC3339),
		ElapsedMS:      r.Elapsed.Milliseconds(),
		Regions:        len(r.Regions),
		DevicesChecked: r.DevicesChecked(),
		DevicesFailed:  r.DevicesFailed(),
		NewDevices:     r.NewDevices(),
		NewReleases:    len(r.NewReleases),
		Pushed:         r.Pushed,
		OK:             !r.Failed(),
	}
	for _, reg := range r.Regions {
		if reg.Err != nil {
			s.RegionsFailed = append(s.RegionsFailed, reg.Code)
		}
	}
	return s
}

// PostCycle publishes s retained on the cycle topic.
func (n *MQTTNotifier) PostCycle(_ context.Context, s CycleSummary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: encoding cycle summary: %w", ErrPublish, err)
	}
	if err := n.pub.Publish(n.topics.Cycle(), payload, n.qos, true); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// PostCycle logs s.
func (n *LogNotifier) PostCycle(_ context.Context, s CycleSummary) error {
	n.logger.Info("cycle summary",
		"run_id", s.RunID,
		"ok", s.OK,
		"new_releases", s.NewReleases,
		"regions_failed", s.RegionsFailed,
		"pushed", s.Pushed,
	)
	return nil
}
