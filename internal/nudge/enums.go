// Package nudge defines the core intervention types shared by the analyzer,
// generator, gate, queue and scheduler.
package nudge

// Category is the therapeutic kind of an intervention.
type Category string

const (
	CategoryCrisisSupport        Category = "crisis-support"
	CategoryStressReduction      Category = "stress-reduction"
	CategoryMoodRegulation       Category = "mood-regulation"
	CategoryEnergyBoost          Category = "energy-boost"
	CategorySocialConnection     Category = "social-connection"
	CategoryMindfulness          Category = "mindfulness"
	CategoryCBTTechnique         Category = "cbt-technique"
	CategoryBehavioralActivation Category = "behavioral-activation"
	CategoryRoutineSupport       Category = "routine-support"
	CategorySleepHygiene         Category = "sleep-hygiene"
)

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryCrisisSupport,
		CategoryStressReduction,
		CategoryMoodRegulation,
		CategoryEnergyBoost,
		CategorySocialConnection,
		CategoryMindfulness,
		CategoryCBTTechnique,
		CategoryBehavioralActivation,
		CategoryRoutineSupport,
		CategorySleepHygiene,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Urgency controls both queue order and how soon an intervention is scheduled.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyHigh      Urgency = "high"
	UrgencyMedium    Urgency = "medium"
	UrgencyLow       Urgency = "low"
	UrgencyScheduled Urgency = "scheduled"
)

// Rank orders urgencies: immediate is highest. Unknown values rank below scheduled.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyImmediate:
		return 4
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 1
	case UrgencyScheduled:
		return 0
	default:
		return -1
	}
}

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool { return u.Rank() >= 0 }

// Channel is how an intervention reaches the user.
type Channel string

const (
	ChannelModal      Channel = "modal"       // blocking in-app dialog
	ChannelPush       Channel = "push"        // push notification
	ChannelReminder   Channel = "reminder"    // gentle in-app reminder
	ChannelText       Channel = "text"        // deferred banner shown at next app open
	ChannelHaptic     Channel = "haptic"
	ChannelAudioGuide Channel = "audio-guide"
)

// Valid reports whether ch is a known delivery channel.
func (ch Channel) Valid() bool {
	switch ch {
	case ChannelModal, ChannelPush, ChannelReminder, ChannelText, ChannelHaptic, ChannelAudioGuide:
		return true
	}
	return false
}

// Response is the user's reaction to a delivered intervention.
type Response string

const (
	ResponseNone      Response = ""
	ResponseCompleted Response = "completed"
	ResponseDismissed Response = "dismissed"
	ResponseDelayed   Response = "delayed"
	ResponseIgnored   Response = "ignored"
)

// Valid reports whether r is a recordable response.
func (r Response) Valid() bool {
	switch r {
	case ResponseCompleted, ResponseDismissed, ResponseDelayed, ResponseIgnored:
		return true
	}
	return false
}

// RiskLevel is the upstream classifier's overall risk assessment.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskModerate || r == RiskHigh
}

// StressLevel is the upstream classifier's stress assessment.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressVeryHigh StressLevel = "very-high"
)

// Valid reports whether s is a known stress level.
func (s StressLevel) Valid() bool {
	switch s {
	case StressLow, StressModerate, StressHigh, StressVeryHigh:
		return true
	}
	return false
}

// Autonomy is how much control the user keeps over delivered interventions.
type Autonomy string

const (
	AutonomyLow    Autonomy = "low"
	AutonomyMedium Autonomy = "medium"
	AutonomyHigh   Autonomy = "high"
)

// Valid reports whether a is a known autonomy level.
func (a Autonomy) Valid() bool {
	return a == AutonomyLow || a == AutonomyMedium || a == AutonomyHigh
}

// Tone is the voice used when personalizing content.
type Tone string

const (
	ToneCalmDirect Tone = "calm-direct"
	ToneCalm       Tone = "calm"
	ToneGentle     Tone = "gentle"
)

// ToneFor picks the personalization tone for an urgency.
func ToneFor(u Urgency) Tone {
	switch u {
	case UrgencyImmediate:
		return ToneCalmDirect
	case UrgencyHigh:
		return ToneCalm
	default:
		return ToneGentle
	}
}
