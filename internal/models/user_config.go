package models

import "time"

// UserConfig stores a user's intervention preferences. Rows are reset to
// defaults, never deleted.
type UserConfig struct {
	UserID               string `gorm:"primaryKey;size:64"`
	Enabled              bool   `gorm:"not null"`
	Autonomy             string `gorm:"size:16;default:medium"`
	MaxPerHour           int    `gorm:"default:3"`
	MaxPerDay            int    `gorm:"default:12"`
	QuietStart           string `gorm:"size:5;default:22:00"`
	QuietEnd             string `gorm:"size:5;default:08:00"`
	RespectQuietHours    bool   `gorm:"not null"`
	Timezone             string `gorm:"size:64;default:UTC"`
	Channels             string `gorm:"type:json"`
	NotificationsGranted bool   `gorm:"not null"`
	CrisisOverride       bool   `gorm:"not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
