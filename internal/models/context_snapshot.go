package models

import "time"

// ContextSnapshot holds the latest classified context per user, written by
// the upstream classifier through the API.
type ContextSnapshot struct {
	UserID               string `gorm:"primaryKey;size:64"`
	RiskLevel            string `gorm:"size:16;default:low"`
	StressLevel          string `gorm:"size:16;default:low"`
	EnergyLevel          int    `gorm:"not null"`
	SocialEngagement     int    `gorm:"not null"`
	ActivityState        string `gorm:"size:32"`
	EnvironmentalFactors string `gorm:"type:json"`
	InsightPatterns      string `gorm:"type:json"`
	AppForeground        bool   `gorm:"not null"`
	ScreenActive         bool   `gorm:"not null"`
	Locale               string `gorm:"size:16;default:en"`
	TakenAt              time.Time
	UpdatedAt            time.Time
}
