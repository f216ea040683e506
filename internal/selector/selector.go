// Package selector ranks candidate categories and picks a delivery channel.
package selector

import "github.com/zulandar/nudgeyard/internal/nudge"

// Device is the device/focus state relevant to channel choice.
type Device struct {
	AppForeground bool
	ScreenActive  bool
}

// Scores maps a category to its mean effectiveness for one user.
type Scores map[nudge.Category]float64

// Category picks the candidate with the highest score. Ties keep the
// candidate order. Categories missing from scores get prior. Returns "" when
// there are no candidates.
func Category(candidates []nudge.Category, scores Scores, prior float64) nudge.Category {
	var (
		best      nudge.Category
		bestScore float64
	)
	for i, c := range candidates {
		s, ok := scores[c]
		if !ok {
			s = prior
		}
		if i == 0 || s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// Channel picks how to deliver an intervention of the given urgency.
// Immediate interventions always use a modal. Otherwise the first of
// reminder (app in use), push (permission granted) and text that the user
// allows is chosen; text is the fallback when nothing else is allowed.
func Channel(u nudge.Urgency, dev Device, cfg nudge.UserConfig) nudge.Channel {
	if u == nudge.UrgencyImmediate {
		return nudge.ChannelModal
	}
	if dev.AppForeground && dev.ScreenActive && cfg.AllowsChannel(nudge.ChannelReminder) {
		return nudge.ChannelReminder
	}
	if cfg.NotificationsGranted && cfg.AllowsChannel(nudge.ChannelPush) {
		return nudge.ChannelPush
	}
	return nudge.ChannelText
}

// AllowOverride reports whether the user may postpone or dismiss the
// intervention. Only high-autonomy users get the override, and never for
// crisis support.
func AllowOverride(c nudge.Category, a nudge.Autonomy) bool {
	if c == nudge.CategoryCrisisSupport {
		return false
	}
	return a == nudge.AutonomyHigh
}
