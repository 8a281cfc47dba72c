package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/optracker/internal/firmware"
)

// Message is the JSON body published for a release.
type Message struct {
	Device    string               `json:"device"`
	Code      string               `json:"code,omitempty"`
	Region    string               `json:"region"`
	Branch    firmware.Branch      `json:"branch"`
	Version   string               `json:"version"`
	Type      firmware.ReleaseType `json:"type"`
	Date      string               `json:"date"`
	Size      string               `json:"size,omitempty"`
	MD5       string               `json:"md5,omitempty"`
	Filename  string               `json:"filename,omitempty"`
	Link      string               `json:"link,omitempty"`
	Product   string               `json:"product"`
	Changelog string               `json:"changelog,omitempty"`

	// Text is a ready-to-post rendering for chat bridges.
	Text string `json:"text"`
}

// NewMessage builds the message for rec.
func NewMessage(rec firmware.Record) Message {
	return Message{
		Device:    rec.Device,
		Code:      rec.Code,
		Region:    rec.Region,
		Branch:    rec.Branch,
		Version:   rec.Version,
		Type:      rec.Type,
		Date:      rec.Date,
		Size:      rec.Size,
		MD5:       rec.MD5,
		Filename:  rec.Filename,
		Link:      rec.Link,
		Product:   rec.Product,
		Changelog: rec.Changelog,
		Text:      FormatText(rec),
	}
}

// Encode returns the JSON payload.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message for %s: %w", m.Product, err)
	}
	return data, nil
}

// FormatText renders rec as a short Markdown announcement.
func FormatText(rec firmware.Record) string {
	var b strings.Builder
	b.WriteString("New update available!\n")
	fmt.Fprintf(&b, "*Device*: %s\n", rec.Device)
	fmt.Fprintf(&b, "*Region*: %s\n", rec.Region)
	fmt.Fprintf(&b, "*Branch*: %s\n", rec.Branch)
	fmt.Fprintf(&b, "*Version*: %s\n", rec.Version)
	fmt.Fprintf(&b, "*Release Date*: %s\n", rec.Date)
	if rec.Size != "" {
		fmt.Fprintf(&b, "*Size*: %s\n", rec.Size)
	}
	if rec.MD5 != "" {
		fmt.Fprintf(&b, "*MD5*: `%s`\n", rec.MD5)
	}
	if rec.Link != "" {
		fmt.Fprintf(&b, "*Download*: %s\n", rec.Link)
	}
	if rec.Changelog != "" {
		fmt.Fprintf(&b, "*Changelog*:\n%s\n", rec.Changelog)
	}
	return strings.TrimRight(b.String(), "\n")
}
