package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/optracker/internal/firmware"
	"github.com/nerrad567/optracker/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client the notifier needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by notifiers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTNotifier publishes releases to an MQTT broker.
type MQTTNotifier struct {
	pub      Publisher
	topics   mqtt.Topics
	qos      byte
	interval time.Duration
	logger   Logger
}

// NewMQTTNotifier creates a notifier that waits interval between messages.
func NewMQTTNotifier(pub Publisher, topics mqtt.Topics, qos byte, interval time.Duration) *MQTTNotifier {
	return &MQTTNotifier{
		pub:      pub,
		topics:   topics,
		qos:      qos,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the notifier.
func (n *MQTTNotifier) SetLogger(logger Logger) {
	n.logger = logger
}

// Post publishes one message per record in order. A failed record is logged
// and skipped; the returned error wraps ErrPublish and every failure.
// Cancellation stops the remaining records.
func (n *MQTTNotifier) Post(ctx context.Context, records []firmware.Record) error {
	var errs []error
	for i, rec := range records {
		if i > 0 {
			if err := sleep(ctx, n.interval); err != nil {
				return fmt.Errorf("%w: %d of %d unsent: %w", ErrPublish, len(records)-i, len(records), err)
			}
		}

		topic := n.topics.Release(rec.Product, string(rec.Branch))
		payload, err := NewMessage(rec).Encode()
		if err == nil {
			err = n.pub.Publish(topic, payload, n.qos, true)
		}
		if err != nil {
			n.logger.Warn("release notification failed", "topic", topic, "version", rec.Version, "error", err)
			errs = append(errs, err)
			continue
		}
		n.logger.Info("release notification sent", "topic", topic, "version", rec.Version)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPublish, errors.Join(errs...))
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LogNotifier writes releases to the log instead of a broker.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogNotifier{logger: logger}
}

// Post logs each record. It never fails.
func (n *LogNotifier) Post(_ context.Context, records []firmware.Record) error {
	for _, rec := range records {
		n.logger.Info("new release",
			"device", rec.Device,
			"region", rec.Region,
			"branch", rec.Branch,
			"version", rec.Version,
			"type", rec.Type,
			"date", rec.Date,
			"link", rec.Link,
		)
	}
	return nil
}
