package dashboard

import (
	"context"
	"testing"

	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

func TestHub_RoutesByUser(t *testing.T) {
	h := NewHub(4)
	u1, stop1 := h.Subscribe("u1")
	defer stop1()
	ops, stopOps := h.Subscribe("")
	defer stopOps()

	h.Deliver(context.Background(), &nudge.Intervention{ID: "a", UserID: "u1"})
	h.Deliver(context.Background(), &nudge.Intervention{ID: "b", UserID: "u2"})
	h.Emit(context.Background(), telemetry.Event{Kind: telemetry.KindDelivered, InterventionID: "a"})

	if len(u1) != 1 {
		t.Fatalf("u1 feed has %d messages, want 1", len(u1))
	}
	m := <-u1
	if m.Event != "intervention" || m.Data.(*nudge.Intervention).ID != "a" {
		t.Errorf("u1 message = %+v", m)
	}

	if len(ops) != 1 {
		t.Fatalf("ops feed has %d messages, want 1", len(ops))
	}
	m = <-ops
	if v, ok := m.Data.(telemetryView); !ok || v.Kind != telemetry.KindDelivered {
		t.Errorf("ops message = %+v", m)
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub(1)
	feed, stop := h.Subscribe("u1")
	defer stop()
	for i := 0; i < 3; i++ {
		h.Deliver(context.Background(), &nudge.Intervention{UserID: "u1"})
	}
	if len(feed) != 1 {
		t.Errorf("feed backlog = %d, want 1", len(feed))
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(0)
	feed, stop := h.Subscribe("u1")
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d, want 1", h.Subscribers())
	}
	stop()
	stop()
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers = %d after unsubscribe, want 0", h.Subscribers())
	}
	if _, ok := <-feed; ok {
		t.Error("feed should be closed")
	}
	h.Deliver(context.Background(), &nudge.Intervention{UserID: "u1"})
}
