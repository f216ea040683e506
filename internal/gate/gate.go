// Package gate is the admission check run before an intervention is queued:
// hourly and daily rate limits plus the quiet-hours window.
//
// A rejection is an expected outcome, not an error. Admit never does I/O; the
// caller supplies the user's delivered history.
package gate

import (
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Reason codes for a decision. They are categorical so they can be emitted
// to telemetry as-is.
const (
	ReasonAdmitted    = "admitted"
	ReasonDisabled    = "disabled"
	ReasonHourlyLimit = "hourly_limit"
	ReasonDailyLimit  = "daily_limit"
	ReasonQuietHours  = "quiet_hours"
	ReasonCrisis      = "crisis_override"
)

// Decision is the gate's verdict.
type Decision struct {
	Admitted bool
	Reason   string
	Hourly   int
	Daily    int
}

// Admit decides whether an intervention of category c may be queued for the
// user at now. history holds the user's interventions; only delivered ones
// count toward the limits.
func Admit(cfg nudge.UserConfig, c nudge.Category, history []nudge.Intervention, now time.Time) Decision {
	crisis := c == nudge.CategoryCrisisSupport
	if crisis && cfg.CrisisOverride {
		return Decision{Admitted: true, Reason: ReasonCrisis}
	}
	if !cfg.Enabled {
		return Decision{Reason: ReasonDisabled}
	}

	hourly, daily := Counts(history, now)
	d := Decision{Hourly: hourly, Daily: daily}

	switch {
	case hourly >= cfg.MaxPerHour:
		d.Reason = ReasonHourlyLimit
		return d
	case daily >= cfg.MaxPerDay:
		d.Reason = ReasonDailyLimit
		return d
	}

	if !crisis && cfg.RespectQuietHours && cfg.QuietHours.Contains(now.In(cfg.Location())) {
		d.Reason = ReasonQuietHours
		return d
	}

	d.Admitted = true
	d.Reason = ReasonAdmitted
	return d
}

// Counts returns how many interventions were delivered in the trailing hour
// and trailing 24 hours before now.
func Counts(history []nudge.Intervention, now time.Time) (hourly, daily int) {
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)
	for _, iv := range history {
		if !iv.Delivered || iv.DeliveredAt == nil {
			continue
		}
		at := *iv.DeliveredAt
		if at.After(now) {
			continue
		}
		if at.After(dayAgo) {
			daily++
		}
		if at.After(hourAgo) {
			hourly++
		}
	}
	return hourly, daily
}
