// Package monitor provides periodic sampling of bridge counters for
// dashboards and the CLI stats command.
package monitor

import (
	"context"
	"time"

	"github.com/swarmgate/swarmgate-go/bridge"
)

// Source exposes the counters the watcher samples. *bridge.Bridge and
// *swarmgate.Client both satisfy it.
type Source interface {
	Stats() bridge.Stats
	State() bridge.State
	PendingCount() int
}

// Sample is one observation of a source.
type Sample struct {
	Timestamp time.Time     `json:"timestamp"`
	State     bridge.State  `json:"-"`
	StateName string        `json:"state"`
	Pending   int           `json:"pending"`
	Stats     bridge.Stats  `json:"stats"`
	Delta     bridge.Stats  `json:"delta"`
	Interval  time.Duration `json:"interval"`
}

// RequestRate returns requests per second over the sample interval.
func (s Sample) RequestRate() float64 {
	if s.Interval <= 0 {
		return 0
	}
	return float64(s.Delta.Requests) / s.Interval.Seconds()
}

// EventRate returns events per second over the sample interval.
func (s Sample) EventRate() float64 {
	if s.Interval <= 0 {
		return 0
	}
	return float64(s.Delta.Events) / s.Interval.Seconds()
}

// StatsWatcher polls a source on a fixed interval and reports each sample
// to a callback.
type StatsWatcher struct {
	source   Source
	interval time.Duration
	onSample func(Sample)
}

// NewStatsWatcher creates a watcher. Intervals below one second are raised
// to one second.
func NewStatsWatcher(source Source, interval time.Duration, onSample func(Sample)) *StatsWatcher {
	if interval < time.Second {
		interval = time.Second
	}
	return &StatsWatcher{
		source:   source,
		interval: interval,
		onSample: onSample,
	}
}

// Watch samples immediately, then on every tick until ctx is cancelled.
func (w *StatsWatcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	prev := w.observe(time.Time{}, bridge.Stats{})
	w.onSample(prev)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			prev = w.observe(prev.Timestamp, prev.Stats)
			w.onSample(prev)
		}
	}
}

// Snapshot takes a single sample with no delta.
func (w *StatsWatcher) Snapshot() Sample {
	return w.observe(time.Time{}, bridge.Stats{})
}

func (w *StatsWatcher) observe(prevAt time.Time, prevStats bridge.Stats) Sample {
	now := time.Now()
	state := w.source.State()
	stats := w.source.Stats()

	sample := Sample{
		Timestamp: now,
		State:     state,
		StateName: state.String(),
		Pending:   w.source.PendingCount(),
		Stats:     stats,
	}
	if !prevAt.IsZero() {
		sample.Interval = now.Sub(prevAt)
		sample.Delta = bridge.Stats{
			Requests:        counterDelta(stats.Requests, prevStats.Requests),
			Responses:       counterDelta(stats.Responses, prevStats.Responses),
			Timeouts:        counterDelta(stats.Timeouts, prevStats.Timeouts),
			LateResponses:   counterDelta(stats.LateResponses, prevStats.LateResponses),
			Events:          counterDelta(stats.Events, prevStats.Events),
			HandlerPanics:   counterDelta(stats.HandlerPanics, prevStats.HandlerPanics),
			MalformedFrames: counterDelta(stats.MalformedFrames, prevStats.MalformedFrames),
		}
	}
	return sample
}

func counterDelta(current, previous uint64) uint64 {
	if current < previous {
		return 0
	}
	return current - previous
}
