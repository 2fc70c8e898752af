// Package notify delivers rendered reports to the configured channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Channel is one delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Dispatcher fans a message out to every channel. Partial delivery is
// reported per channel; the dispatch fails only when no channel succeeds,
// so the once-per-day marker is not consumed by a total outage.
type Dispatcher struct {
	channels []Channel
	log      *slog.Logger
}

func NewDispatcher(log *slog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, log: log}
}

func (d *Dispatcher) HasChannels() bool {
	return len(d.channels) > 0
}

// SendAll delivers text to every channel and returns an error when all of
// them failed.
func (d *Dispatcher) SendAll(ctx context.Context, text string) error {
	if len(d.channels) == 0 {
		return fmt.Errorf("no notification channels configured")
	}

	var failed []string
	for _, ch := range d.channels {
		if err := ch.Send(ctx, text); err != nil {
			d.log.Error("notification failed", "channel", ch.Name(), "error", err)
			failed = append(failed, ch.Name())
			continue
		}
		d.log.Info("notification sent", "channel", ch.Name())
	}

	if len(failed) == len(d.channels) {
		return fmt.Errorf("all notification channels failed: %s", strings.Join(failed, ", "))
	}
	return nil
}
