package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func item(id string, u nudge.Urgency, scheduledIn time.Duration) *nudge.Intervention {
	return &nudge.Intervention{
		ID:           id,
		UserID:       "u1",
		Urgency:      u,
		ScheduledFor: base.Add(scheduledIn),
		ExpiresAt:    base.Add(scheduledIn + time.Hour),
	}
}

func ids(items []*nudge.Intervention) []string {
	out := make([]string, len(items))
	for i, iv := range items {
		out[i] = iv.ID
	}
	return out
}

func TestQueue_PushOrdersByUrgencyThenTime(t *testing.T) {
	var q Queue
	q.Push(item("low-early", nudge.UrgencyLow, 0))
	q.Push(item("medium-late", nudge.UrgencyMedium, 10*time.Minute))
	q.Push(item("high", nudge.UrgencyHigh, 20*time.Minute))
	q.Push(item("medium-early", nudge.UrgencyMedium, 5*time.Minute))
	q.Push(item("scheduled", nudge.UrgencyScheduled, -time.Minute))

	got := fmt.Sprint(ids(q.Items()))
	want := "[high medium-early medium-late low-early scheduled]"
	if got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestQueue_TakeDue(t *testing.T) {
	var q Queue
	q.Push(item("low-now", nudge.UrgencyLow, 0))
	q.Push(item("high-now", nudge.UrgencyHigh, -time.Minute))
	q.Push(item("medium-future", nudge.UrgencyMedium, 5*time.Minute))

	due := q.TakeDue(base)
	if got := fmt.Sprint(ids(due)); got != "[high-now low-now]" {
		t.Errorf("due = %s, want [high-now low-now]", got)
	}
	for _, iv := range due {
		if !iv.Delivered || iv.DeliveredAt == nil || !iv.DeliveredAt.Equal(base) {
			t.Errorf("%s not stamped delivered at %v", iv.ID, base)
		}
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
	if again := q.TakeDue(base); len(again) != 0 {
		t.Errorf("second TakeDue at same instant returned %v", ids(again))
	}
}

func TestQueue_TakeDueSkipsExpired(t *testing.T) {
	var q Queue
	iv := item("stale", nudge.UrgencyImmediate, -2*time.Hour) // expired an hour ago
	q.Push(iv)

	if due := q.TakeDue(base); len(due) != 0 {
		t.Fatalf("expired item delivered: %v", ids(due))
	}
	purged := q.Purge(base)
	if len(purged) != 1 || purged[0].ID != "stale" {
		t.Errorf("purged = %v, want [stale]", ids(purged))
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after purge, want 0", q.Len())
	}
	if iv.Delivered {
		t.Error("expired item must not be marked delivered")
	}
}

func TestQueue_PurgeKeepsLiveItems(t *testing.T) {
	var q Queue
	q.Push(item("live", nudge.UrgencyLow, 10*time.Minute))
	if purged := q.Purge(base); len(purged) != 0 {
		t.Errorf("purged live item: %v", ids(purged))
	}
}

func TestQueue_Remove(t *testing.T) {
	var q Queue
	q.Push(item("a", nudge.UrgencyLow, 0))
	q.Push(item("b", nudge.UrgencyLow, time.Minute))
	if !q.Remove("a") {
		t.Fatal("Remove(a) = false")
	}
	if q.Remove("missing") {
		t.Error("Remove(missing) = true")
	}
	if got := fmt.Sprint(ids(q.Items())); got != "[b]" {
		t.Errorf("items = %s, want [b]", got)
	}
}

func TestQueue_ItemsAreCopies(t *testing.T) {
	var q Queue
	q.Push(item("a", nudge.UrgencyLow, 0))
	q.Items()[0].Title = "mutated"
	if q.items[0].Title != "" {
		t.Error("Items exposed internal pointer")
	}
}

func TestSet_UsersAndPending(t *testing.T) {
	s := NewSet()
	a := item("a", nudge.UrgencyLow, 0)
	b := item("b", nudge.UrgencyHigh, 0)
	b.UserID = "u2"
	s.Enqueue(a)
	s.Enqueue(b)

	if got := fmt.Sprint(s.Users()); got != "[u1 u2]" {
		t.Errorf("Users = %s, want [u1 u2]", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if p := s.Pending("u2"); len(p) != 1 || p[0].ID != "b" {
		t.Errorf("Pending(u2) = %v", ids(p))
	}

	s.With("u1", func(q *Queue) { q.TakeDue(base) })
	if got := fmt.Sprint(s.Users()); got != "[u2]" {
		t.Errorf("Users after drain = %s, want [u2]", got)
	}
}

func TestSet_ConcurrentEnqueue(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			iv := item(fmt.Sprintf("iv-%d", i), nudge.UrgencyMedium, time.Duration(i)*time.Second)
			iv.UserID = fmt.Sprintf("u%d", i%5)
			s.Enqueue(iv)
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
	if len(s.Users()) != 5 {
		t.Errorf("Users = %v, want 5 users", s.Users())
	}
}

func TestSet_UsersSkipsBusyQueue(t *testing.T) {
	s := NewSet()
	a := item("a", nudge.UrgencyLow, 0)
	b := item("b", nudge.UrgencyLow, 0)
	b.UserID = "u2"
	s.Enqueue(a)
	s.Enqueue(b)

	var got []string
	s.With("u1", func(*Queue) { got = s.Users() })
	if fmt.Sprint(got) != "[u2]" {
		t.Errorf("Users while u1 is locked = %v, want [u2]", got)
	}
	if got := fmt.Sprint(s.Users()); got != "[u1 u2]" {
		t.Errorf("Users after unlock = %s, want [u1 u2]", got)
	}
}
