package nudge

import (
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"
)

// UserConfig is a user's intervention preferences. It is created with
// defaults on first use, mutated only through explicit updates, and reset
// rather than deleted.
type UserConfig struct {
	UserID               string     `json:"user_id"`
	Enabled              bool       `json:"enabled"`
	Autonomy             Autonomy   `json:"autonomy"`
	MaxPerHour           int        `json:"max_per_hour"`
	MaxPerDay            int        `json:"max_per_day"`
	QuietHours           QuietHours `json:"quiet_hours"`
	RespectQuietHours    bool       `json:"respect_quiet_hours"`
	Timezone             string     `json:"timezone"`
	Channels             []Channel  `json:"channels"`
	NotificationsGranted bool       `json:"notifications_granted"`
	CrisisOverride       bool       `json:"crisis_override"`
}

// QuietHours is a local-time do-not-disturb window in "HH:MM" form. A window
// whose start is after its end wraps past midnight.
type QuietHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether the local wall-clock time of t falls inside the
// window. An empty or zero-length window contains nothing.
func (q QuietHours) Contains(t time.Time) bool {
	start, err := ParseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(q.End)
	if err != nil {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	switch {
	case start == end:
		return false
	case start < end:
		return m >= start && m < end
	default:
		return m >= start || m < end
	}
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("nudge: invalid clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DefaultUserConfig returns the built-in defaults for a new user.
func DefaultUserConfig(userID string) UserConfig {
	return UserConfig{
		UserID:               userID,
		Enabled:              true,
		Autonomy:             AutonomyMedium,
		MaxPerHour:           3,
		MaxPerDay:            12,
		QuietHours:           QuietHours{Start: "22:00", End: "08:00"},
		RespectQuietHours:    true,
		Timezone:             "UTC",
		Channels:             []Channel{ChannelModal, ChannelPush, ChannelReminder, ChannelText},
		NotificationsGranted: true,
		CrisisOverride:       true,
	}
}

// WithUser returns a copy of c owned by userID.
func (c UserConfig) WithUser(userID string) UserConfig {
	c.UserID = userID
	c.Channels = slices.Clone(c.Channels)
	return c
}

// Location resolves the configured timezone, falling back to UTC.
func (c UserConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowsChannel reports whether ch may be used. An empty allow-list permits all.
func (c UserConfig) AllowsChannel(ch Channel) bool {
	return len(c.Channels) == 0 || slices.Contains(c.Channels, ch)
}

// Validate checks the config for values the gate cannot work with.
func (c UserConfig) Validate() error {
	if c.MaxPerHour < 1 {
		return fmt.Errorf("nudge: max_per_hour must be at least 1")
	}
	if c.MaxPerDay < c.MaxPerHour {
		return fmt.Errorf("nudge: max_per_day must be >= max_per_hour")
	}
	if !c.Autonomy.Valid() {
		return fmt.Errorf("nudge: unknown autonomy %q", c.Autonomy)
	}
	if _, err := ParseClock(c.QuietHours.Start); err != nil {
		return err
	}
	if _, err := ParseClock(c.QuietHours.End); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("nudge: unknown timezone %q", c.Timezone)
	}
	for _, ch := range c.Channels {
		if !ch.Valid() {
			return fmt.Errorf("nudge: unknown channel %q", ch)
		}
	}
	return nil
}

// ConfigPatch is a partial update. Nil fields are left unchanged.
type ConfigPatch struct {
	Enabled              *bool       `json:"enabled,omitempty"`
	Autonomy             *Autonomy   `json:"autonomy,omitempty"`
	MaxPerHour           *int        `json:"max_per_hour,omitempty"`
	MaxPerDay            *int        `json:"max_per_day,omitempty"`
	QuietHours           *QuietHours `json:"quiet_hours,omitempty"`
	RespectQuietHours    *bool       `json:"respect_quiet_hours,omitempty"`
	Timezone             *string     `json:"timezone,omitempty"`
	Channels             []Channel   `json:"channels,omitempty"`
	NotificationsGranted *bool       `json:"notifications_granted,omitempty"`
	CrisisOverride       *bool       `json:"crisis_override,omitempty"`
}

// Apply returns c with the patch applied. The result is validated.
func (p ConfigPatch) Apply(c UserConfig) (UserConfig, error) {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.Autonomy != nil {
		c.Autonomy = *p.Autonomy
	}
	if p.MaxPerHour != nil {
		c.MaxPerHour = *p.MaxPerHour
	}
	if p.MaxPerDay != nil {
		c.MaxPerDay = *p.MaxPerDay
	}
	if p.QuietHours != nil {
		c.QuietHours = *p.QuietHours
	}
	if p.RespectQuietHours != nil {
		c.RespectQuietHours = *p.RespectQuietHours
	}
	if p.Timezone != nil {
		c.Timezone = *p.Timezone
	}
	if p.Channels != nil {
		c.Channels = slices.Clone(p.Channels)
	}
	if p.NotificationsGranted != nil {
		c.NotificationsGranted = *p.NotificationsGranted
	}
	if p.CrisisOverride != nil {
		c.CrisisOverride = *p.CrisisOverride
	}
	if err := c.Validate(); err != nil {
		return UserConfig{}, err
	}
	return c, nil
}
