// Package scheduler runs the intervention pipeline: need analysis, category
// and channel selection, gating, per-user queueing, timed delivery and
// feedback.
//
// All queue and active-intervention state is owned by Service and mutated
// only through its methods. Each user's queue is guarded by its own mutex;
// the active map has a single mutex. Slow collaborators (notifiers, stores,
// feedback history) are called with no lock held.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zulandar/nudgeyard/internal/content"
	"github.com/zulandar/nudgeyard/internal/feedback"
	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/need"
	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/queue"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

// SnapshotProvider supplies the latest classified context for a user.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, userID string) (nudge.Snapshot, error)
}

// ConfigStore persists per-user intervention configs. LoadConfig reports
// found=false when the user has none yet.
type ConfigStore interface {
	LoadConfig(ctx context.Context, userID string) (nudge.UserConfig, bool, error)
	SaveConfig(ctx context.Context, cfg nudge.UserConfig) error
}

// HistoryStore keeps delivered interventions. SaveIntervention upserts by id;
// MarkViewed writes only the viewed timestamp.
type HistoryStore interface {
	Recent(ctx context.Context, userID string, since time.Time) ([]nudge.Intervention, error)
	SaveIntervention(ctx context.Context, iv *nudge.Intervention) error
	MarkViewed(ctx context.Context, id string, at time.Time) error
}

// Notifier hands a delivered intervention to a delivery channel.
type Notifier interface {
	Deliver(ctx context.Context, iv *nudge.Intervention) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, iv *nudge.Intervention) error

func (f NotifierFunc) Deliver(ctx context.Context, iv *nudge.Intervention) error { return f(ctx, iv) }

// Opts configures a Service. Snapshots, Configs and History are required.
type Opts struct {
	Snapshots SnapshotProvider
	Configs   ConfigStore
	History   HistoryStore
	Notifier  Notifier
	Feedback  *feedback.Tracker
	Content   *content.Generator
	Telemetry telemetry.Sink
	Log       *logger.Logger

	// Defaults is applied to users with no stored config.
	Defaults *nudge.UserConfig
	// RecentWindow is how far back a delivered category is demoted.
	RecentWindow time.Duration
	// Disabled turns every public call into a no-op.
	Disabled bool

	Now   func() time.Time
	NewID func() string
}

// Service is the scheduler. Construct it with New.
type Service struct {
	snapshots SnapshotProvider
	configs   ConfigStore
	history   HistoryStore
	notifier  Notifier
	feedback  *feedback.Tracker
	content   *content.Generator
	events    telemetry.Sink
	log       *logger.Logger
	analyzer  need.Analyzer
	defaults  nudge.UserConfig
	enabled   bool
	now       func() time.Time
	newID     func() string

	queues *queue.Set

	mu     sync.Mutex
	active map[string]*nudge.Intervention
}

// New validates opts and builds a Service.
func New(opts Opts) (*Service, error) {
	if opts.Snapshots == nil {
		return nil, fmt.Errorf("scheduler: snapshots is required")
	}
	if opts.Configs == nil {
		return nil, fmt.Errorf("scheduler: configs is required")
	}
	if opts.History == nil {
		return nil, fmt.Errorf("scheduler: history is required")
	}

	s := &Service{
		snapshots: opts.Snapshots,
		configs:   opts.Configs,
		history:   opts.History,
		notifier:  opts.Notifier,
		feedback:  opts.Feedback,
		content:   opts.Content,
		events:    opts.Telemetry,
		log:       opts.Log,
		analyzer:  need.Analyzer{RecentWindow: opts.RecentWindow},
		enabled:   !opts.Disabled,
		now:       opts.Now,
		newID:     opts.NewID,
		queues:    queue.NewSet(),
		active:    make(map[string]*nudge.Intervention),
	}
	if s.notifier == nil {
		s.notifier = NotifierFunc(func(context.Context, *nudge.Intervention) error { return nil })
	}
	if s.feedback == nil {
		s.feedback = feedback.NewTracker(nil, feedback.DefaultHistorySize, feedback.DefaultNeutralPrior)
	}
	if s.content == nil {
		s.content = content.NewGenerator()
	}
	if s.events == nil {
		s.events = telemetry.Nop()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.analyzer.RecentWindow <= 0 {
		s.analyzer.RecentWindow = need.DefaultRecentWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if opts.Defaults != nil {
		if err := opts.Defaults.Validate(); err != nil {
			return nil, fmt.Errorf("scheduler: defaults: %w", err)
		}
		s.defaults = opts.Defaults.WithUser("")
	} else {
		s.defaults = nudge.DefaultUserConfig("")
	}
	return s, nil
}

// Enabled reports whether the scheduler acts on calls.
func (s *Service) Enabled() bool { return s.enabled }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

// ActiveInterventions returns copies of userID's delivered, unresolved
// interventions ordered by delivery time.
func (s *Service) ActiveInterventions(userID string) []*nudge.Intervention {
	s.mu.Lock()
	var out []*nudge.Intervention
	for _, iv := range s.active {
		if iv.UserID == userID {
			out = append(out, iv.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b *nudge.Intervention) int {
		if c := deliveredAt(a).Compare(deliveredAt(b)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// PendingInterventions returns copies of userID's queued interventions in
// delivery order.
func (s *Service) PendingInterventions(userID string) []*nudge.Intervention {
	return s.queues.Pending(userID)
}

// MarkViewed stamps viewed_at on an active intervention. It reports whether
// the id was active.
func (s *Service) MarkViewed(ctx context.Context, id string) bool {
	if !s.enabled {
		return false
	}
	now := s.now()
	s.mu.Lock()
	iv, ok := s.active[id]
	if !ok {
		s.mu.Unlock()
		s.log.Info("viewed: unknown intervention", "intervention", id)
		return false
	}
	if iv.ViewedAt != nil {
		s.mu.Unlock()
		return true
	}
	iv.ViewedAt = &now
	s.mu.Unlock()

	if err := s.history.MarkViewed(ctx, id, now); err != nil {
		s.log.Warn("persist viewed failed", "intervention", id, "error", err)
	}
	return true
}

// EffectivenessSummary reports the mean feedback score for every category.
func (s *Service) EffectivenessSummary(ctx context.Context, userID string) ([]feedback.CategorySummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("scheduler: user id is required")
	}
	return s.feedback.Summary(ctx, userID)
}

func (s *Service) persist(ctx context.Context, iv *nudge.Intervention) {
	if err := s.history.SaveIntervention(ctx, iv); err != nil {
		s.log.Warn("persist intervention failed", "intervention", iv.ID, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, kind telemetry.Kind, iv *nudge.Intervention, at time.Time, reason string) {
	ev := telemetry.EventFor(kind, iv, at)
	ev.Reason = reason
	if kind == telemetry.KindDelivered && iv.DeliveredAt != nil {
		ev.Latency = iv.DeliveredAt.Sub(iv.CreatedAt)
	}
	s.events.Emit(ctx, ev)
}

func deliveredAt(iv *nudge.Intervention) time.Time {
	if iv.DeliveredAt == nil {
		return time.Time{}
	}
	return *iv.DeliveredAt
}
