package store

import (
	"fmt"
	"time"

	"github.com/zulandar/nudgeyard/internal/models"
	"github.com/zulandar/nudgeyard/internal/nudge"
)

func configToRow(c nudge.UserConfig) (models.UserConfig, error) {
	channels, err := marshalJSON(c.Channels)
	if err != nil {
		return models.UserConfig{}, err
	}
	return models.UserConfig{
		UserID:               c.UserID,
		Enabled:              c.Enabled,
		Autonomy:             string(c.Autonomy),
		MaxPerHour:           c.MaxPerHour,
		MaxPerDay:            c.MaxPerDay,
		QuietStart:           c.QuietHours.Start,
		QuietEnd:             c.QuietHours.End,
		RespectQuietHours:    c.RespectQuietHours,
		Timezone:             c.Timezone,
		Channels:             channels,
		NotificationsGranted: c.NotificationsGranted,
		CrisisOverride:       c.CrisisOverride,
	}, nil
}

func configFromRow(r models.UserConfig) (nudge.UserConfig, error) {
	channels, err := unmarshalList[nudge.Channel](r.Channels)
	if err != nil {
		return nudge.UserConfig{}, fmt.Errorf("channels: %w", err)
	}
	return nudge.UserConfig{
		UserID:               r.UserID,
		Enabled:              r.Enabled,
		Autonomy:             nudge.Autonomy(r.Autonomy),
		MaxPerHour:           r.MaxPerHour,
		MaxPerDay:            r.MaxPerDay,
		QuietHours:           nudge.QuietHours{Start: r.QuietStart, End: r.QuietEnd},
		RespectQuietHours:    r.RespectQuietHours,
		Timezone:             r.Timezone,
		Channels:             channels,
		NotificationsGranted: r.NotificationsGranted,
		CrisisOverride:       r.CrisisOverride,
	}, nil
}

func interventionToRow(iv *nudge.Intervention) (models.Intervention, error) {
	steps, err := marshalJSON(iv.Instructions)
	if err != nil {
		return models.Intervention{}, err
	}
	factors, err := marshalJSON(iv.Trigger.Factors)
	if err != nil {
		return models.Intervention{}, err
	}
	return models.Intervention{
		ID:                iv.ID,
		UserID:            iv.UserID,
		Category:          string(iv.Category),
		Urgency:           string(iv.Urgency),
		Channel:           string(iv.Channel),
		Title:             iv.Title,
		Body:              iv.Body,
		Instructions:      steps,
		DurationSeconds:   int(iv.Duration / time.Second),
		CanBeDelayed:      iv.CanBeDelayed,
		AllowUserOverride: iv.AllowUserOverride,
		RiskLevel:         string(iv.Trigger.RiskLevel),
		StressLevel:       string(iv.Trigger.StressLevel),
		ActivityState:     iv.Trigger.ActivityState,
		TriggerFactors:    factors,
		Tone:              string(iv.Personalization.Tone),
		Culture:           iv.Personalization.Culture,
		PriorScore:        iv.Personalization.PriorScore,
		Delivered:         iv.Delivered,
		Response:          string(iv.Response),
		Effectiveness:     iv.Effectiveness,
		FollowUpRequired:  iv.FollowUpRequired,
		ScheduledFor:      iv.ScheduledFor.UTC(),
		ExpiresAt:         iv.ExpiresAt.UTC(),
		CreatedAt:         iv.CreatedAt.UTC(),
		DeliveredAt:       utc(iv.DeliveredAt),
		ViewedAt:          utc(iv.ViewedAt),
		CompletedAt:       utc(iv.CompletedAt),
	}, nil
}

// utc normalizes stored times so range queries compare like with like.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func interventionFromRow(r models.Intervention) (nudge.Intervention, error) {
	steps, err := unmarshalList[string](r.Instructions)
	if err != nil {
		return nudge.Intervention{}, fmt.Errorf("instructions: %w", err)
	}
	factors, err := unmarshalList[string](r.TriggerFactors)
	if err != nil {
		return nudge.Intervention{}, fmt.Errorf("trigger factors: %w", err)
	}
	return nudge.Intervention{
		ID:                r.ID,
		UserID:            r.UserID,
		Category:          nudge.Category(r.Category),
		Urgency:           nudge.Urgency(r.Urgency),
		Title:             r.Title,
		Body:              r.Body,
		Instructions:      steps,
		Duration:          time.Duration(r.DurationSeconds) * time.Second,
		Channel:           nudge.Channel(r.Channel),
		ScheduledFor:      r.ScheduledFor,
		ExpiresAt:         r.ExpiresAt,
		CanBeDelayed:      r.CanBeDelayed,
		AllowUserOverride: r.AllowUserOverride,
		Trigger: nudge.Trigger{
			RiskLevel:     nudge.RiskLevel(r.RiskLevel),
			StressLevel:   nudge.StressLevel(r.StressLevel),
			ActivityState: r.ActivityState,
			Factors:       factors,
		},
		Personalization: nudge.Personalization{
			Tone:       nudge.Tone(r.Tone),
			Culture:    r.Culture,
			PriorScore: r.PriorScore,
		},
		CreatedAt:        r.CreatedAt,
		Delivered:        r.Delivered,
		DeliveredAt:      r.DeliveredAt,
		ViewedAt:         r.ViewedAt,
		CompletedAt:      r.CompletedAt,
		Response:         nudge.Response(r.Response),
		Effectiveness:    r.Effectiveness,
		FollowUpRequired: r.FollowUpRequired,
	}, nil
}

func interventionsFromRows(rows []models.Intervention) ([]nudge.Intervention, error) {
	out := make([]nudge.Intervention, 0, len(rows))
	for _, r := range rows {
		iv, err := interventionFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("store: decode intervention %s: %w", r.ID, err)
		}
		out = append(out, iv)
	}
	return out, nil
}

func snapshotToRow(s nudge.Snapshot) (models.ContextSnapshot, error) {
	env, err := marshalJSON(s.EnvironmentalFactors)
	if err != nil {
		return models.ContextSnapshot{}, err
	}
	patterns, err := marshalJSON(s.InsightPatterns)
	if err != nil {
		return models.ContextSnapshot{}, err
	}
	return models.ContextSnapshot{
		UserID:               s.UserID,
		RiskLevel:            string(s.RiskLevel),
		StressLevel:          string(s.StressLevel),
		EnergyLevel:          s.EnergyLevel,
		SocialEngagement:     s.SocialEngagement,
		ActivityState:        s.ActivityState,
		EnvironmentalFactors: env,
		InsightPatterns:      patterns,
		AppForeground:        s.AppForeground,
		ScreenActive:         s.ScreenActive,
		Locale:               s.Locale,
		TakenAt:              s.TakenAt.UTC(),
	}, nil
}

func snapshotFromRow(r models.ContextSnapshot) (nudge.Snapshot, error) {
	env, err := unmarshalList[string](r.EnvironmentalFactors)
	if err != nil {
		return nudge.Snapshot{}, fmt.Errorf("store: decode snapshot %s: %w", r.UserID, err)
	}
	patterns, err := unmarshalList[string](r.InsightPatterns)
	if err != nil {
		return nudge.Snapshot{}, fmt.Errorf("store: decode snapshot %s: %w", r.UserID, err)
	}
	return nudge.Snapshot{
		UserID:               r.UserID,
		RiskLevel:            nudge.RiskLevel(r.RiskLevel),
		StressLevel:          nudge.StressLevel(r.StressLevel),
		EnergyLevel:          r.EnergyLevel,
		SocialEngagement:     r.SocialEngagement,
		ActivityState:        r.ActivityState,
		EnvironmentalFactors: env,
		InsightPatterns:      patterns,
		AppForeground:        r.AppForeground,
		ScreenActive:         r.ScreenActive,
		Locale:               r.Locale,
		TakenAt:              r.TakenAt,
	}, nil
}
