package scheduler

import (
	"context"

	"github.com/zulandar/nudgeyard/internal/feedback"
	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

// RecordFeedback resolves an active intervention with the user's response
// and optional 1-5 rating, and feeds the resulting score into the
// category's effectiveness history. Unknown or already resolved ids are a
// logged no-op; it reports whether the feedback was applied.
func (s *Service) RecordFeedback(ctx context.Context, id string, resp nudge.Response, rating *int) bool {
	if !s.enabled {
		return false
	}
	if !resp.Valid() {
		s.log.Info("feedback: invalid response", "intervention", id, "response", string(resp))
		return false
	}
	if rating != nil {
		if _, ok := feedback.RatingScore(*rating); !ok {
			s.log.Info("feedback: rating out of range, ignoring", "intervention", id, "rating", *rating)
			rating = nil
		}
	}

	now := s.now()
	s.mu.Lock()
	iv, ok := s.active[id]
	if !ok {
		s.mu.Unlock()
		s.log.Info("feedback: unknown intervention", "intervention", id)
		return false
	}
	delete(s.active, id)
	iv.Response = resp
	if rating != nil {
		r := *rating
		iv.Effectiveness = &r
	}
	if resp == nudge.ResponseCompleted {
		iv.CompletedAt = &now
	} else if iv.Category == nudge.CategoryCrisisSupport {
		iv.FollowUpRequired = true
	}
	resolved := iv.Clone()
	s.mu.Unlock()

	if score, ok := feedback.Score(resp, rating); ok {
		if err := s.feedback.Record(ctx, resolved.UserID, resolved.Category, score); err != nil {
			s.log.Warn("feedback: record score failed", "intervention", id, "error", err)
		}
	}
	s.persist(ctx, resolved)
	s.emit(ctx, telemetry.KindFeedback, resolved, now, "")
	if resolved.FollowUpRequired {
		s.log.Warn("crisis intervention needs follow-up", "intervention", id, "user", resolved.UserID, "response", string(resp))
	}
	return true
}
