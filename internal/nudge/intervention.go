package nudge

import (
	"slices"
	"time"
)

// Intervention is the unit of work moved through the pipeline.
type Intervention struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	Category Category `json:"category"`
	Urgency  Urgency  `json:"urgency"`

	Title        string        `json:"title"`
	Body         string        `json:"body"`
	Instructions []string      `json:"instructions"`
	Duration     time.Duration `json:"duration"`

	Channel           Channel   `json:"channel"`
	ScheduledFor      time.Time `json:"scheduled_for"`
	ExpiresAt         time.Time `json:"expires_at"`
	CanBeDelayed      bool      `json:"can_be_delayed"`
	AllowUserOverride bool      `json:"allow_user_override"`

	Trigger         Trigger         `json:"trigger"`
	Personalization Personalization `json:"personalization"`

	CreatedAt        time.Time  `json:"created_at"`
	Delivered        bool       `json:"delivered"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	ViewedAt         *time.Time `json:"viewed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Response         Response   `json:"response,omitempty"`
	Effectiveness    *int       `json:"effectiveness,omitempty"`
	FollowUpRequired bool       `json:"follow_up_required"`
}

// Trigger is the snapshot of context that caused an intervention. It is
// immutable once the intervention is created.
type Trigger struct {
	RiskLevel     RiskLevel   `json:"risk_level"`
	StressLevel   StressLevel `json:"stress_level"`
	ActivityState string      `json:"activity_state"`
	Factors       []string    `json:"factors"`
}

// Personalization records how content was tailored at generation time.
type Personalization struct {
	Tone       Tone    `json:"tone"`
	Culture    string  `json:"culture"`
	PriorScore float64 `json:"prior_score"`
}

// Expired reports whether the intervention's TTL has passed at now.
func (iv *Intervention) Expired(now time.Time) bool {
	return !iv.ExpiresAt.After(now)
}

// Due reports whether the intervention should be delivered at now.
func (iv *Intervention) Due(now time.Time) bool {
	return !iv.Delivered && !iv.ScheduledFor.After(now) && iv.ExpiresAt.After(now)
}

// Clone returns a deep copy so callers cannot mutate scheduler-owned state.
func (iv *Intervention) Clone() *Intervention {
	if iv == nil {
		return nil
	}
	c := *iv
	c.Instructions = slices.Clone(iv.Instructions)
	c.Trigger.Factors = slices.Clone(iv.Trigger.Factors)
	c.DeliveredAt = cloneTime(iv.DeliveredAt)
	c.ViewedAt = cloneTime(iv.ViewedAt)
	c.CompletedAt = cloneTime(iv.CompletedAt)
	if iv.Effectiveness != nil {
		e := *iv.Effectiveness
		c.Effectiveness = &e
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ScheduleDelay is the offset from now at which an urgency is scheduled.
func ScheduleDelay(u Urgency) time.Duration {
	switch u {
	case UrgencyImmediate:
		return 0
	case UrgencyHigh:
		return 2 * time.Minute
	case UrgencyMedium:
		return 5 * time.Minute
	case UrgencyLow:
		return 15 * time.Minute
	default:
		return 60 * time.Minute
	}
}

// TTL is how long an intervention of category c stays deliverable or active.
func TTL(c Category) time.Duration {
	switch c {
	case CategoryCrisisSupport:
		return time.Hour
	case CategoryStressReduction:
		return 4 * time.Hour
	case CategoryMoodRegulation:
		return 8 * time.Hour
	case CategoryEnergyBoost:
		return 6 * time.Hour
	case CategorySleepHygiene:
		return 12 * time.Hour
	default:
		return 4 * time.Hour
	}
}
