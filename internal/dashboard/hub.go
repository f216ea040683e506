package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

// defaultHubBuffer is the per-subscriber backlog before messages are dropped.
const defaultHubBuffer = 32

// Message is one item on the live feed. UserID is empty for telemetry.
type Message struct {
	Event  string
	UserID string
	Data   any
}

// Hub fans delivered interventions and pipeline telemetry out to SSE
// subscribers. It is the in-app delivery channel and implements both the
// scheduler's Notifier and telemetry.Sink. Slow subscribers lose messages
// rather than block delivery.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	buffer int
}

type subscriber struct {
	userID string
	ch     chan Message
}

// NewHub returns a Hub. buffer <= 0 uses the default backlog.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultHubBuffer
	}
	return &Hub{subs: make(map[int]*subscriber), buffer: buffer}
}

// Subscribe registers a feed. A non-empty userID receives only that user's
// interventions; an empty userID receives telemetry only. The returned
// function unsubscribes and closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{userID: userID, ch: make(chan Message, h.buffer)}
	h.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Subscribers returns the number of open feeds.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish sends m to every matching subscriber without blocking.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.userID != m.UserID {
			continue
		}
		select {
		case sub.ch <- m:
		default:
		}
	}
}

// Deliver publishes iv to the owning user's feeds. Delivery succeeds even
// with no listener; the app picks the intervention up from the active list.
func (h *Hub) Deliver(_ context.Context, iv *nudge.Intervention) error {
	h.Publish(Message{Event: "intervention", UserID: iv.UserID, Data: iv.Clone()})
	return nil
}

// Emit publishes a telemetry event to operator feeds.
func (h *Hub) Emit(_ context.Context, ev telemetry.Event) {
	h.Publish(Message{Event: "telemetry", Data: eventView(ev)})
}

type telemetryView struct {
	Kind           telemetry.Kind `json:"kind"`
	InterventionID string         `json:"intervention_id,omitempty"`
	Category       nudge.Category `json:"category,omitempty"`
	Urgency        nudge.Urgency  `json:"urgency,omitempty"`
	Channel        nudge.Channel  `json:"channel,omitempty"`
	Response       nudge.Response `json:"response,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	LatencyMS      int64          `json:"latency_ms,omitempty"`
	At             time.Time      `json:"at"`
}

func eventView(ev telemetry.Event) telemetryView {
	return telemetryView{
		Kind:           ev.Kind,
		InterventionID: ev.InterventionID,
		Category:       ev.Category,
		Urgency:        ev.Urgency,
		Channel:        ev.Channel,
		Response:       ev.Response,
		Reason:         ev.Reason,
		LatencyMS:      ev.Latency.Milliseconds(),
		At:             ev.At.UTC(),
	}
}
