package scheduler

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

func ids(ivs []*nudge.Intervention) []string {
	out := make([]string, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.ID
	}
	return out
}

func TestTick_DeliversDueInOrder(t *testing.T) {
	h := newHarness(t)
	for _, iv := range []*nudge.Intervention{
		queued("low-10m", nudge.UrgencyLow, -10*time.Minute),
		queued("high-1m", nudge.UrgencyHigh, -time.Minute),
		queued("medium-5m", nudge.UrgencyMedium, -5*time.Minute),
		queued("medium-6m", nudge.UrgencyMedium, -6*time.Minute),
		queued("immediate-future", nudge.UrgencyImmediate, time.Minute),
		queued("high-future", nudge.UrgencyHigh, 10*time.Minute),
	} {
		h.svc.queues.Enqueue(iv)
	}

	got := ids(h.svc.Tick(context.Background(), base))
	want := []string{"high-1m", "medium-6m", "medium-5m", "low-10m"}
	if !slices.Equal(got, want) {
		t.Errorf("delivered = %v, want %v", got, want)
	}
	if !slices.Equal(h.notifier.delivered(), want) {
		t.Errorf("notified = %v, want %v", h.notifier.delivered(), want)
	}
	if p := ids(h.svc.PendingInterventions("u1")); !slices.Equal(p, []string{"immediate-future", "high-future"}) {
		t.Errorf("pending = %v", p)
	}
	if a := h.svc.ActiveInterventions("u1"); len(a) != 4 {
		t.Errorf("active = %d, want 4", len(a))
	}
}

func TestTick_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.svc.queues.Enqueue(queued("a", nudge.UrgencyHigh, 0))
	h.svc.queues.Enqueue(queued("b", nudge.UrgencyLow, 0))
	ctx := context.Background()

	first := h.svc.Tick(ctx, base)
	second := h.svc.Tick(ctx, base)
	if len(first) != 2 || len(second) != 0 {
		t.Errorf("ticks delivered %d then %d, want 2 then 0", len(first), len(second))
	}
	if n := len(h.notifier.delivered()); n != 2 {
		t.Errorf("notifier called %d times, want 2", n)
	}
}

func TestTick_NeverDeliversExpired(t *testing.T) {
	h := newHarness(t)
	stale := queued("stale", nudge.UrgencyImmediate, -2*time.Hour)
	h.svc.queues.Enqueue(stale)

	if got := h.svc.Tick(context.Background(), base); len(got) != 0 {
		t.Errorf("delivered %v, want nothing", ids(got))
	}
	if len(h.svc.PendingInterventions("u1")) != 0 {
		t.Error("expired item not purged")
	}
	evs := h.events.Events()
	if len(evs) != 1 || evs[0].Kind != telemetry.KindExpired || evs[0].Reason != "queued" {
		t.Errorf("events = %+v, want one queued expiry", evs)
	}
}

func TestTick_GarbageCollectsActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.svc.queues.Enqueue(queued("a", nudge.UrgencyMedium, 0))
	h.svc.Tick(ctx, base)
	if len(h.svc.ActiveInterventions("u1")) != 1 {
		t.Fatal("expected one active intervention")
	}

	h.svc.Tick(ctx, base.Add(time.Hour))
	if len(h.svc.ActiveInterventions("u1")) != 0 {
		t.Error("expired active intervention not collected")
	}
	if h.svc.RecordFeedback(ctx, "a", nudge.ResponseCompleted, nil) {
		t.Error("feedback after expiry should be a no-op")
	}
}

func TestTick_DeliveryFailureKeepsDelivered(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("push gateway down")
	h.svc.queues.Enqueue(queued("a", nudge.UrgencyHigh, 0))

	got := h.svc.Tick(context.Background(), base)
	if len(got) != 1 || !got[0].Delivered {
		t.Fatalf("delivered = %v", got)
	}
	if len(h.svc.ActiveInterventions("u1")) != 1 {
		t.Error("failed delivery should remain active")
	}
	if kinds := h.events.Kinds(); !slices.Equal(kinds, []telemetry.Kind{telemetry.KindDeliveryFailed}) {
		t.Errorf("events = %v, want [delivery_failed]", kinds)
	}
}

func TestTick_ReportsLatency(t *testing.T) {
	h := newHarness(t)
	iv := queued("a", nudge.UrgencyMedium, 0)
	iv.CreatedAt = base.Add(-5 * time.Minute)
	h.svc.queues.Enqueue(iv)
	h.svc.Tick(context.Background(), base)

	evs := h.events.Events()
	if len(evs) != 1 || evs[0].Latency != 5*time.Minute {
		t.Errorf("events = %+v, want delivered with 5m latency", evs)
	}
}

func TestTick_AfterTrigger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.snaps.put(stressed("u1"))
	iv, _ := h.svc.TriggerContextual(ctx, "u1")
	if iv == nil {
		t.Fatal("expected intervention")
	}

	if got := h.svc.Tick(ctx, base.Add(4*time.Minute)); len(got) != 0 {
		t.Errorf("delivered early: %v", ids(got))
	}
	got := h.svc.Tick(ctx, base.Add(5*time.Minute))
	if len(got) != 1 || got[0].ID != iv.ID {
		t.Fatalf("delivered = %v, want [%s]", ids(got), iv.ID)
	}
	rec, ok := h.history.get(iv.ID)
	if !ok || !rec.Delivered {
		t.Errorf("history record = %+v, %v", rec, ok)
	}
}

func TestTick_LapsedCrisisNeedsFollowUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	crisis, err := h.svc.TriggerCrisis(ctx, "u1", nudge.RiskHigh, nil)
	if err != nil || crisis == nil {
		t.Fatalf("TriggerCrisis = %v, %v", crisis, err)
	}
	h.svc.queues.Enqueue(queued("calm", nudge.UrgencyMedium, 0))
	h.svc.Tick(ctx, base)

	h.svc.Tick(ctx, base.Add(2*time.Hour))
	if n := len(h.svc.ActiveInterventions("u1")); n != 0 {
		t.Fatalf("active = %d, want 0", n)
	}
	saved, ok := h.history.get(crisis.ID)
	if !ok {
		t.Fatal("crisis intervention not persisted")
	}
	if !saved.FollowUpRequired || saved.Response != "" {
		t.Errorf("saved crisis: follow_up=%v response=%q, want follow-up with no response", saved.FollowUpRequired, saved.Response)
	}
	if other, _ := h.history.get("calm"); other.FollowUpRequired {
		t.Error("non-crisis intervention flagged for follow-up")
	}
}

// gatedSnapshots blocks lookups for one user until release is closed.
type gatedSnapshots struct {
	*memSnapshots
	user    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSnapshots) Snapshot(ctx context.Context, userID string) (nudge.Snapshot, error) {
	if userID == g.user {
		close(g.entered)
		<-g.release
	}
	return g.memSnapshots.Snapshot(ctx, userID)
}

func TestTick_NotStalledBySlowSnapshot(t *testing.T) {
	gated := &gatedSnapshots{
		memSnapshots: &memSnapshots{snaps: map[string]nudge.Snapshot{}},
		user:         "slow",
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	gated.put(stressed("slow"))
	h := newHarness(t, func(o *Opts) { o.Snapshots = gated })
	ctx := context.Background()

	triggered := make(chan struct{})
	go func() {
		defer close(triggered)
		h.svc.TriggerContextual(ctx, "slow")
	}()
	<-gated.entered

	h.svc.queues.Enqueue(queued("due", nudge.UrgencyHigh, 0))
	ticked := make(chan []*nudge.Intervention, 1)
	go func() { ticked <- h.svc.Tick(ctx, base) }()

	select {
	case got := <-ticked:
		if !slices.Equal(ids(got), []string{"due"}) {
			t.Errorf("delivered = %v, want [due]", ids(got))
		}
	case <-time.After(2 * time.Second):
		t.Error("Tick stalled behind a slow snapshot lookup")
	}
	close(gated.release)
	<-triggered
}
