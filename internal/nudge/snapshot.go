package nudge

import "time"

// Snapshot is a point-in-time read of a user's inferred situational state,
// produced by the upstream context classifier.
type Snapshot struct {
	UserID               string      `json:"user_id"`
	RiskLevel            RiskLevel   `json:"risk_level"`
	StressLevel          StressLevel `json:"stress_level"`
	EnergyLevel          int         `json:"energy_level"`      // 0-100
	SocialEngagement     int         `json:"social_engagement"` // 0-100
	ActivityState        string      `json:"activity_state"`
	EnvironmentalFactors []string    `json:"environmental_factors"`
	InsightPatterns      []string    `json:"insight_patterns"`
	AppForeground        bool        `json:"app_foreground"`
	ScreenActive         bool        `json:"screen_active"`
	Locale               string      `json:"locale"`
	TakenAt              time.Time   `json:"taken_at"`
}

// PatternRoutineDisruption is the insight pattern emitted when the user's
// daily routine deviates from its baseline.
const PatternRoutineDisruption = "routine-disruption"

// HasPattern reports whether the snapshot carries the named insight pattern.
func (s Snapshot) HasPattern(name string) bool {
	for _, p := range s.InsightPatterns {
		if p == name {
			return true
		}
	}
	return false
}

// TriggerFor captures the provenance fields of s.
func (s Snapshot) TriggerFor() Trigger {
	factors := make([]string, 0, len(s.EnvironmentalFactors)+2)
	factors = append(factors, s.EnvironmentalFactors...)
	if s.RiskLevel == RiskHigh {
		factors = append(factors, "risk:high")
	}
	switch s.StressLevel {
	case StressHigh, StressVeryHigh:
		factors = append(factors, "stress:"+string(s.StressLevel))
	}
	return Trigger{
		RiskLevel:     s.RiskLevel,
		StressLevel:   s.StressLevel,
		ActivityState: s.ActivityState,
		Factors:       factors,
	}
}
