package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zulandar/nudgeyard/internal/gate"
	"github.com/zulandar/nudgeyard/internal/need"
	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/queue"
	"github.com/zulandar/nudgeyard/internal/selector"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

// historyWindow bounds the delivered history read for gating.
const historyWindow = 24 * time.Hour

// TriggerContextual analyzes userID's current context and, if an
// intervention is needed and admitted, queues it. Crisis-support
// interventions are delivered before returning. It returns nil with no error
// when nothing is needed, the request is gated, the scheduler is disabled, or
// an upstream collaborator fails.
func (s *Service) TriggerContextual(ctx context.Context, userID string) (*nudge.Intervention, error) {
	if userID == "" {
		return nil, fmt.Errorf("scheduler: user id is required")
	}
	if !s.enabled {
		return nil, nil
	}

	now := s.now()
	in, ok := s.gather(ctx, userID, now)
	if !ok {
		return nil, nil
	}

	var (
		iv       *nudge.Intervention
		decision gate.Decision
	)
	s.queues.With(userID, func(q *queue.Queue) {
		decision = gate.Admit(in.cfg, in.category, withPending(in.recent, q, now), now)
		if !decision.Admitted {
			return
		}
		iv = s.build(userID, in.category, in.verdict.Urgency, in.snap, in.snap.TriggerFor(), in.cfg, in.prior, now)
		if iv.Category != nudge.CategoryCrisisSupport {
			q.Push(iv)
			iv = iv.Clone()
		}
	})

	log := s.log.With("user", userID)
	if !decision.Admitted {
		log.Info("intervention gated",
			"category", string(in.category),
			"reason", decision.Reason,
			"hourly", decision.Hourly,
			"daily", decision.Daily,
		)
		s.events.Emit(ctx, telemetry.Event{
			Kind:     telemetry.KindRejected,
			Category: in.category,
			Urgency:  in.verdict.Urgency,
			Reason:   decision.Reason,
			At:       now,
		})
		return nil, nil
	}

	log.Info("intervention admitted",
		"intervention", iv.ID,
		"category", string(iv.Category),
		"urgency", string(iv.Urgency),
		"channel", string(iv.Channel),
		"rationale", in.verdict.Rationale,
	)
	s.emit(ctx, telemetry.KindAdmitted, iv, now, decision.Reason)
	if iv.Category == nudge.CategoryCrisisSupport {
		return s.deliverNow(ctx, iv, now), nil
	}
	return iv, nil
}

// candidate is everything admission needs that comes from a collaborator.
type candidate struct {
	cfg      nudge.UserConfig
	snap     nudge.Snapshot
	recent   []nudge.Intervention
	verdict  need.Verdict
	category nudge.Category
	prior    float64
}

// gather loads userID's config, snapshot, history and scores and runs the
// analyzer and selector. It holds no lock. ok is false when nothing is
// needed or a collaborator fails.
func (s *Service) gather(ctx context.Context, userID string, now time.Time) (candidate, bool) {
	log := s.log.With("user", userID)

	cfg, err := s.UserConfig(ctx, userID)
	if err != nil {
		log.Warn("config unavailable, skipping", "error", err)
		return candidate{}, false
	}
	snap, err := s.snapshots.Snapshot(ctx, userID)
	if err != nil {
		log.Warn("context snapshot unavailable, skipping", "error", err)
		return candidate{}, false
	}
	recent, err := s.history.Recent(ctx, userID, now.Add(-historyWindow))
	if err != nil {
		log.Warn("history unavailable, skipping", "error", err)
		return candidate{}, false
	}

	verdict := s.analyzer.Analyze(snap, recent, now.In(cfg.Location()))
	if !verdict.Required {
		log.Debug("no intervention needed", "rationale", verdict.Rationale)
		return candidate{}, false
	}

	scores, err := s.feedback.Scores(ctx, userID, verdict.Categories)
	if err != nil {
		log.Warn("feedback scores unavailable, using prior", "error", err)
		scores = nil
	}
	cat := selector.Category(verdict.Categories, scores, s.feedback.Prior())
	prior, ok := scores[cat]
	if !ok {
		prior = s.feedback.Prior()
	}
	return candidate{cfg: cfg, snap: snap, recent: recent, verdict: verdict, category: cat, prior: prior}, true
}

// withPending returns recent plus q's queued items, stamped as delivered at
// now so they count toward the rate limits. Called with q's lock held.
func withPending(recent []nudge.Intervention, q *queue.Queue, now time.Time) []nudge.Intervention {
	counted := slices.Clone(recent)
	for _, p := range q.Items() {
		at := now
		p.Delivered, p.DeliveredAt = true, &at
		counted = append(counted, *p)
	}
	return counted
}

// TriggerCrisis builds a crisis-support intervention and delivers it before
// returning, bypassing analysis, gating and the queue. A user who has
// disabled interventions still receives it when crisis override is on.
func (s *Service) TriggerCrisis(ctx context.Context, userID string, risk nudge.RiskLevel, factors []string) (*nudge.Intervention, error) {
	if userID == "" {
		return nil, fmt.Errorf("scheduler: user id is required")
	}
	if !s.enabled {
		return nil, nil
	}
	log := s.log.With("user", userID)
	now := s.now()

	cfg, err := s.UserConfig(ctx, userID)
	if err != nil {
		log.Warn("config unavailable, using defaults for crisis", "error", err)
		cfg = s.defaults.WithUser(userID)
	}
	if !cfg.Enabled && !cfg.CrisisOverride {
		log.Info("crisis intervention suppressed: interventions disabled without override")
		return nil, nil
	}

	// The snapshot only refines locale and device state here.
	snap, err := s.snapshots.Snapshot(ctx, userID)
	if err != nil {
		log.Debug("crisis without snapshot", "error", err)
		snap = nudge.Snapshot{UserID: userID}
	}
	if risk == "" {
		risk = nudge.RiskHigh
	}
	trigger := nudge.Trigger{
		RiskLevel:     risk,
		StressLevel:   snap.StressLevel,
		ActivityState: snap.ActivityState,
		Factors:       slices.Clone(factors),
	}

	prior, err := s.feedback.Mean(ctx, userID, nudge.CategoryCrisisSupport)
	if err != nil {
		prior = s.feedback.Prior()
	}
	iv := s.build(userID, nudge.CategoryCrisisSupport, nudge.UrgencyImmediate, snap, trigger, cfg, prior, now)
	s.emit(ctx, telemetry.KindAdmitted, iv, now, gate.ReasonCrisis)
	log.Info("crisis intervention", "intervention", iv.ID, "risk", string(risk))
	return s.deliverNow(ctx, iv, now), nil
}

func (s *Service) build(userID string, cat nudge.Category, u nudge.Urgency, snap nudge.Snapshot, trigger nudge.Trigger, cfg nudge.UserConfig, prior float64, now time.Time) *nudge.Intervention {
	local := now.In(cfg.Location())
	tone := nudge.ToneFor(u)
	c := s.content.Generate(cat, snap.Locale, tone, local)

	crisis := cat == nudge.CategoryCrisisSupport
	channel := selector.Channel(u, selector.Device{AppForeground: snap.AppForeground, ScreenActive: snap.ScreenActive}, cfg)
	if crisis {
		channel = nudge.ChannelModal
	}
	scheduled := now.Add(nudge.ScheduleDelay(u))

	return &nudge.Intervention{
		ID:                s.newID(),
		UserID:            userID,
		Category:          cat,
		Urgency:           u,
		Title:             c.Title,
		Body:              c.Body,
		Instructions:      c.Instructions,
		Duration:          c.Duration,
		Channel:           channel,
		ScheduledFor:      scheduled,
		ExpiresAt:         scheduled.Add(nudge.TTL(cat)),
		CanBeDelayed:      !crisis && u != nudge.UrgencyImmediate,
		AllowUserOverride: selector.AllowOverride(cat, cfg.Autonomy),
		Trigger:           trigger,
		Personalization: nudge.Personalization{
			Tone:       tone,
			Culture:    snap.Locale,
			PriorScore: prior,
		},
		CreatedAt: now,
	}
}

// deliverNow marks iv delivered at now, makes it active and hands it to the
// notifier. It returns a copy of the delivered intervention.
func (s *Service) deliverNow(ctx context.Context, iv *nudge.Intervention, now time.Time) *nudge.Intervention {
	at := now
	iv.Delivered = true
	iv.DeliveredAt = &at

	s.mu.Lock()
	s.active[iv.ID] = iv
	out := iv.Clone()
	s.mu.Unlock()

	s.dispatch(ctx, out, now)
	return out.Clone()
}

// dispatch persists, notifies and reports a delivered intervention. Notifier
// failures are reported but the intervention stays delivered.
func (s *Service) dispatch(ctx context.Context, iv *nudge.Intervention, now time.Time) {
	s.persist(ctx, iv)
	if err := s.notifier.Deliver(ctx, iv); err != nil {
		s.log.Warn("delivery failed", "intervention", iv.ID, "channel", string(iv.Channel), "error", err)
		s.emit(ctx, telemetry.KindDeliveryFailed, iv, now, "notifier_error")
		return
	}
	s.emit(ctx, telemetry.KindDelivered, iv, now, "")
}
