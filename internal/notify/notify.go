// Package notify delivers plain-text status messages to the configured
// external channels. Delivery is strictly best-effort: a channel failure is
// logged and never reaches the caller.
package notify

import (
	"context"
	"log"
	"strings"
)

// Channel is one delivery target for status messages.
type Channel interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Dispatcher fans a message out to every configured channel.
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// IsConfigured reports whether at least one channel can receive messages.
func (d *Dispatcher) IsConfigured() bool {
	return len(d.channels) > 0
}

// Describe lists the configured channel names for user-facing messages.
func (d *Dispatcher) Describe() string {
	if len(d.channels) == 0 {
		return "none"
	}
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return strings.Join(names, ", ")
}

// Notify attempts delivery to every channel. One channel failing never
// prevents the others from being tried, and no error propagates.
func (d *Dispatcher) Notify(ctx context.Context, text string) {
	for _, ch := range d.channels {
		if err := ch.Send(ctx, text); err != nil {
			log.Printf("Notification via %s failed: %v", ch.Name(), err)
		}
	}
}
