package models

import "time"

// Intervention is the persisted record of a delivered intervention and its
// outcome. Queued interventions are not stored.
type Intervention struct {
	ID                string  `gorm:"primaryKey;size:36"`
	UserID            string  `gorm:"size:64;not null;index:idx_intervention_user_delivered"`
	Category          string  `gorm:"size:32;not null;index"`
	Urgency           string  `gorm:"size:16;not null"`
	Channel           string  `gorm:"size:16"`
	Title             string  `gorm:"size:255"`
	Body              string  `gorm:"type:text"`
	Instructions      string  `gorm:"type:json"`
	DurationSeconds   int     `gorm:"default:0"`
	CanBeDelayed      bool    `gorm:"not null"`
	AllowUserOverride bool    `gorm:"default:false"`
	RiskLevel         string  `gorm:"size:16"`
	StressLevel       string  `gorm:"size:16"`
	ActivityState     string  `gorm:"size:32"`
	TriggerFactors    string  `gorm:"type:json"`
	Tone              string  `gorm:"size:16"`
	Culture           string  `gorm:"size:16"`
	PriorScore        float64 `gorm:"default:0"`
	Delivered         bool    `gorm:"default:false"`
	Response          string  `gorm:"size:16"`
	Effectiveness     *int
	FollowUpRequired  bool `gorm:"default:false;index"`
	ScheduledFor      time.Time
	ExpiresAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeliveredAt       *time.Time `gorm:"index:idx_intervention_user_delivered"`
	ViewedAt          *time.Time
	CompletedAt       *time.Time
}
