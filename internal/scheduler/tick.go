package scheduler

import (
	"context"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/queue"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

// Tick delivers every queued intervention that is due at now, purges
// expired queue entries and garbage-collects expired active interventions.
// An unresolved crisis-support intervention that lapses is saved with
// follow-up required.
// It returns copies of the interventions delivered by this call, in per-user
// queue order. Calling Tick twice with the same now delivers nothing new.
func (s *Service) Tick(ctx context.Context, now time.Time) []*nudge.Intervention {
	if !s.enabled {
		return nil
	}

	var due, purged []*nudge.Intervention
	for _, userID := range s.queues.Users() {
		s.queues.With(userID, func(q *queue.Queue) {
			due = append(due, q.TakeDue(now)...)
			purged = append(purged, q.Purge(now)...)
		})
	}

	delivered := make([]*nudge.Intervention, 0, len(due))
	var lapsed []*nudge.Intervention
	s.mu.Lock()
	for _, iv := range due {
		s.active[iv.ID] = iv
		delivered = append(delivered, iv.Clone())
	}
	for id, iv := range s.active {
		if iv.Expired(now) {
			if iv.Category == nudge.CategoryCrisisSupport {
				iv.FollowUpRequired = true
			}
			lapsed = append(lapsed, iv.Clone())
			delete(s.active, id)
		}
	}
	s.mu.Unlock()

	for _, iv := range delivered {
		s.dispatch(ctx, iv, now)
	}
	for _, iv := range purged {
		s.emit(ctx, telemetry.KindExpired, iv, now, "queued")
	}
	for _, iv := range lapsed {
		if iv.FollowUpRequired {
			s.persist(ctx, iv)
			s.log.Warn("crisis intervention lapsed, needs follow-up", "intervention", iv.ID, "user", iv.UserID)
		}
		s.emit(ctx, telemetry.KindExpired, iv, now, "unresolved")
	}
	if n := len(delivered) + len(purged) + len(lapsed); n > 0 {
		s.log.Debug("tick", "delivered", len(delivered), "purged", len(purged), "lapsed", len(lapsed))
	}

	out := make([]*nudge.Intervention, len(delivered))
	for i, iv := range delivered {
		out[i] = iv.Clone()
	}
	return out
}
