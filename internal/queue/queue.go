// Package queue holds undelivered interventions per user, ordered by urgency
// (highest first) and then by scheduled time (earliest first).
package queue

import (
	"slices"
	"sync"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Queue is one user's ordered collection of undelivered interventions. It is
// not safe for concurrent use; Set serializes access per user.
type Queue struct {
	items []*nudge.Intervention
}

// Push inserts iv and re-sorts the queue.
func (q *Queue) Push(iv *nudge.Intervention) {
	q.items = append(q.items, iv)
	slices.SortStableFunc(q.items, compare)
}

// compare orders by urgency rank descending, then scheduled time ascending.
func compare(a, b *nudge.Intervention) int {
	if ra, rb := a.Urgency.Rank(), b.Urgency.Rank(); ra != rb {
		return rb - ra
	}
	return a.ScheduledFor.Compare(b.ScheduledFor)
}

// TakeDue removes and returns, in queue order, every item that is due at now.
// Returned items are marked delivered with DeliveredAt = now, so a second call
// at the same instant returns nothing.
func (q *Queue) TakeDue(now time.Time) []*nudge.Intervention {
	var due []*nudge.Intervention
	kept := q.items[:0]
	for _, iv := range q.items {
		if iv.Due(now) {
			at := now
			iv.Delivered = true
			iv.DeliveredAt = &at
			due = append(due, iv)
			continue
		}
		kept = append(kept, iv)
	}
	clear(q.items[len(kept):])
	q.items = kept
	return due
}

// Purge drops every item whose TTL has passed at now, delivered or not, and
// returns the dropped items.
func (q *Queue) Purge(now time.Time) []*nudge.Intervention {
	var expired []*nudge.Intervention
	kept := q.items[:0]
	for _, iv := range q.items {
		if iv.Expired(now) || iv.Delivered {
			expired = append(expired, iv)
			continue
		}
		kept = append(kept, iv)
	}
	clear(q.items[len(kept):])
	q.items = kept
	return expired
}

// Remove drops the item with the given id. It reports whether it was found.
func (q *Queue) Remove(id string) bool {
	for i, iv := range q.items {
		if iv.ID == id {
			q.items = slices.Delete(q.items, i, i+1)
			return true
		}
	}
	return false
}

// Len returns the number of queued items.
func (q *Queue) Len() int { return len(q.items) }

// Items returns copies of the queued items in delivery order.
func (q *Queue) Items() []*nudge.Intervention {
	out := make([]*nudge.Intervention, len(q.items))
	for i, iv := range q.items {
		out[i] = iv.Clone()
	}
	return out
}

// Set is the arena of per-user queues. Each user's queue has its own mutex so
// the delivery loop can scan one user while another is being enqueued.
type Set struct {
	mu     sync.Mutex
	queues map[string]*entry
}

type entry struct {
	mu sync.Mutex
	q  Queue
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{queues: make(map[string]*entry)}
}

func (s *Set) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queues[userID]
	if !ok {
		e = &entry{}
		s.queues[userID] = e
	}
	return e
}

// Enqueue adds iv to its user's queue.
func (s *Set) Enqueue(iv *nudge.Intervention) {
	s.With(iv.UserID, func(q *Queue) { q.Push(iv) })
}

// With runs fn with exclusive access to userID's queue.
func (s *Set) With(userID string, fn func(q *Queue)) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.q)
}

// Users returns the ids of users that currently have queued items. A user
// whose queue is locked by another caller is left out of this scan.
func (s *Set) Users() []string {
	s.mu.Lock()
	entries := make(map[string]*entry, len(s.queues))
	for id, e := range s.queues {
		entries[id] = e
	}
	s.mu.Unlock()

	users := make([]string, 0, len(entries))
	for id, e := range entries {
		if !e.mu.TryLock() {
			continue
		}
		n := e.q.Len()
		e.mu.Unlock()
		if n > 0 {
			users = append(users, id)
		}
	}
	slices.Sort(users)
	return users
}

// Pending returns copies of userID's queued items in delivery order.
func (s *Set) Pending(userID string) []*nudge.Intervention {
	var out []*nudge.Intervention
	s.With(userID, func(q *Queue) { out = q.Items() })
	return out
}

// Len returns the total number of queued items across users.
func (s *Set) Len() int {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.queues))
	for _, e := range s.queues {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	total := 0
	for _, e := range entries {
		e.mu.Lock()
		total += e.q.Len()
		e.mu.Unlock()
	}
	return total
}
