package realtime

import (
	"context"
	"errors"
	"time"
)

var errInvalidInterval = errors.New("realtime: synthetic interval must be positive")

// SampleRotation is the default cycle of synthetic updates.
var SampleRotation = []Update{
	{Type: "disaster_update", Content: "Flood waters rising in Downtown Area; evacuation routes updated"},
	{Type: "report_verified", Content: "Field report near Suburban District verified by responders"},
	{Type: "resource_update", Content: "Downtown Emergency Shelter at 80% capacity"},
	{Type: "social_media", Content: "Spike in urgent posts requesting medical supplies"},
	{Type: "alert", Content: "Aftershock reported; structural inspections paused"},
}

// SyntheticConfig configures the timer adapter.
type SyntheticConfig struct {
	Interval time.Duration
	Rotation []Update
	Clock    func() time.Time
}

// SyntheticTransport stands in for a push backend: it connects immediately and emits the next
// sample of a fixed rotation on every tick.
type SyntheticTransport struct {
	interval time.Duration
	rotation []Update
	clock    func() time.Time
}

// NewSyntheticTransport validates cfg and returns a timer-driven transport.
func NewSyntheticTransport(cfg SyntheticConfig) (*SyntheticTransport, error) {
	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}
	rotation := cfg.Rotation
	if len(rotation) == 0 {
		rotation = SampleRotation
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SyntheticTransport{
		interval: cfg.Interval,
		rotation: append([]Update(nil), rotation...),
		clock:    clock,
	}, nil
}

// Run implements Transport.
func (t *SyntheticTransport) Run(ctx context.Context, lifecycle Lifecycle) error {
	lifecycle.Connecting()
	lifecycle.Connected()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			lifecycle.Disconnected(ReasonClientClose)
			return nil
		case <-ticker.C:
			update := t.rotation[next%len(t.rotation)]
			update.Timestamp = t.clock().UTC()
			lifecycle.Received(update)
			next++
		}
	}
}
