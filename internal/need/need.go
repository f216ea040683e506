// Package need decides whether a user needs an intervention right now.
//
// Analyze is a pure function of the context snapshot, recent interventions
// and the user's local time. Rules are checked in clinical priority order and
// the first match wins; lower-priority simultaneous needs are not reported.
package need

import (
	"fmt"
	"slices"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

const (
	// LowEnergyThreshold is the energy level (0-100) below which an energy
	// boost is suggested.
	LowEnergyThreshold = 30
	// LowSocialThreshold is the social-engagement level (0-100) below which a
	// social-connection nudge is suggested.
	LowSocialThreshold = 20

	// DefaultRecentWindow is how far back a delivered category counts as
	// "recently tried" when ordering candidates.
	DefaultRecentWindow = 30 * time.Minute
)

// Verdict is the analyzer's decision.
type Verdict struct {
	Required   bool
	Urgency    nudge.Urgency
	Categories []nudge.Category
	Rationale  string
}

// Analyzer holds the tunables for Analyze.
type Analyzer struct {
	RecentWindow time.Duration
}

// Analyze runs the default analyzer.
func Analyze(snap nudge.Snapshot, recent []nudge.Intervention, localNow time.Time) Verdict {
	return Analyzer{RecentWindow: DefaultRecentWindow}.Analyze(snap, recent, localNow)
}

// Analyze maps a snapshot to a verdict. localNow must already be in the
// user's timezone.
func (a Analyzer) Analyze(snap nudge.Snapshot, recent []nudge.Intervention, localNow time.Time) Verdict {
	v := classify(snap, localNow)
	if v.Required {
		v.Categories = a.demoteRecent(v.Categories, recent, localNow)
	}
	return v
}

func classify(snap nudge.Snapshot, localNow time.Time) Verdict {
	switch {
	case snap.RiskLevel == nudge.RiskHigh:
		return Verdict{
			Required:   true,
			Urgency:    nudge.UrgencyImmediate,
			Categories: []nudge.Category{nudge.CategoryCrisisSupport},
			Rationale:  "overall risk is high",
		}

	case snap.StressLevel == nudge.StressVeryHigh || snap.StressLevel == nudge.StressHigh:
		urgency := nudge.UrgencyMedium
		if snap.StressLevel == nudge.StressVeryHigh {
			urgency = nudge.UrgencyHigh
		}
		return Verdict{
			Required:   true,
			Urgency:    urgency,
			Categories: []nudge.Category{nudge.CategoryStressReduction, nudge.CategoryMindfulness},
			Rationale:  fmt.Sprintf("stress level is %s", snap.StressLevel),
		}

	case snap.EnergyLevel < LowEnergyThreshold:
		return Verdict{
			Required:   true,
			Urgency:    nudge.UrgencyLow,
			Categories: []nudge.Category{nudge.CategoryEnergyBoost, nudge.CategoryBehavioralActivation},
			Rationale:  fmt.Sprintf("energy level %d is below %d", snap.EnergyLevel, LowEnergyThreshold),
		}

	case snap.SocialEngagement < LowSocialThreshold:
		return Verdict{
			Required:   true,
			Urgency:    nudge.UrgencyLow,
			Categories: []nudge.Category{nudge.CategorySocialConnection},
			Rationale:  fmt.Sprintf("social engagement %d is below %d", snap.SocialEngagement, LowSocialThreshold),
		}

	case isLateNight(localNow):
		return Verdict{
			Required:   true,
			Urgency:    nudge.UrgencyMedium,
			Categories: []nudge.Category{nudge.CategorySleepHygiene},
			Rationale:  fmt.Sprintf("local time %s is late night", localNow.Format("15:04")),
		}

	case snap.HasPattern(nudge.PatternRoutineDisruption):
		return Verdict{
			Required:   true,
			Urgency:    nudge.UrgencyLow,
			Categories: []nudge.Category{nudge.CategoryRoutineSupport},
			Rationale:  "routine disruption detected",
		}
	}

	return Verdict{Rationale: "no need detected"}
}

// isLateNight covers [23:00, 24:00) and [00:00, 05:59].
func isLateNight(t time.Time) bool {
	h := t.Hour()
	return h >= 23 || h <= 5
}

// demoteRecent moves categories delivered within the recent window behind the
// others, keeping relative order within each group.
func (a Analyzer) demoteRecent(cats []nudge.Category, recent []nudge.Intervention, now time.Time) []nudge.Category {
	if len(cats) < 2 || len(recent) == 0 || a.RecentWindow <= 0 {
		return cats
	}
	since := now.Add(-a.RecentWindow)
	tried := make(map[nudge.Category]bool)
	for _, iv := range recent {
		if iv.DeliveredAt != nil && iv.DeliveredAt.After(since) {
			tried[iv.Category] = true
		}
	}
	if len(tried) == 0 {
		return cats
	}
	out := slices.Clone(cats)
	slices.SortStableFunc(out, func(x, y nudge.Category) int {
		switch {
		case tried[x] == tried[y]:
			return 0
		case tried[x]:
			return 1
		default:
			return -1
		}
	})
	return out
}
