// Package telemetry emits categorical pipeline events. Events never carry
// titles, bodies or other free text: only ids, enum values and latencies.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Kind names a pipeline event.
type Kind string

const (
	KindAdmitted       Kind = "admitted"
	KindRejected       Kind = "rejected"
	KindDelivered      Kind = "delivered"
	KindDeliveryFailed Kind = "delivery_failed"
	KindExpired        Kind = "expired"
	KindFeedback       Kind = "feedback"
)

type Event struct {
	Kind           Kind           `json:"kind"`
	InterventionID string         `json:"intervention_id,omitempty"`
	Category       nudge.Category `json:"category,omitempty"`
	Urgency        nudge.Urgency  `json:"urgency,omitempty"`
	Channel        nudge.Channel  `json:"channel,omitempty"`
	Response       nudge.Response `json:"response,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Latency        time.Duration  `json:"latency,omitempty"`
	At             time.Time      `json:"at"`
}

// EventFor fills the categorical fields of an event from iv.
func EventFor(kind Kind, iv *nudge.Intervention, at time.Time) Event {
	return Event{
		Kind:           kind,
		InterventionID: iv.ID,
		Category:       iv.Category,
		Urgency:        iv.Urgency,
		Channel:        iv.Channel,
		Response:       iv.Response,
		At:             at,
	}
}

// Sink receives events. Emit must not block for long; it is called from the
// request path and the delivery loop.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}

// Nop discards events.
func Nop() Sink { return nopSink{} }

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// LogSink writes events as structured log lines.
type LogSink struct {
	Log *logger.Logger
}

func (s LogSink) Emit(_ context.Context, ev Event) {
	s.Log.Info("nudge event",
		"kind", string(ev.Kind),
		"intervention", ev.InterventionID,
		"category", string(ev.Category),
		"urgency", string(ev.Urgency),
		"channel", string(ev.Channel),
		"response", string(ev.Response),
		"reason", ev.Reason,
		"latency_ms", ev.Latency.Milliseconds(),
	)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}
