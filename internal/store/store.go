// Package store persists user configs, delivered interventions and context
// snapshots through GORM. It implements the scheduler's ConfigStore,
// HistoryStore and SnapshotProvider.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zulandar/nudgeyard/internal/models"
	"github.com/zulandar/nudgeyard/internal/nudge"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps a migrated GORM connection.
type Store struct {
	db *gorm.DB
}

// New returns a Store. The schema must already be migrated.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{db: db}, nil
}

// LoadConfig returns userID's config; found is false when none is stored.
func (s *Store) LoadConfig(ctx context.Context, userID string) (nudge.UserConfig, bool, error) {
	var row models.UserConfig
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nudge.UserConfig{}, false, nil
	}
	if err != nil {
		return nudge.UserConfig{}, false, fmt.Errorf("store: load config %s: %w", userID, err)
	}
	cfg, err := configFromRow(row)
	if err != nil {
		return nudge.UserConfig{}, false, fmt.Errorf("store: decode config %s: %w", userID, err)
	}
	return cfg, true, nil
}

// SaveConfig upserts cfg.
func (s *Store) SaveConfig(ctx context.Context, cfg nudge.UserConfig) error {
	row, err := configToRow(cfg)
	if err != nil {
		return fmt.Errorf("store: encode config %s: %w", cfg.UserID, err)
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("store: save config %s: %w", cfg.UserID, result.Error)
	}
	return nil
}

// Recent returns userID's interventions delivered after since, oldest first.
func (s *Store) Recent(ctx context.Context, userID string, since time.Time) ([]nudge.Intervention, error) {
	var rows []models.Intervention
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND delivered = ? AND delivered_at > ?", userID, true, since.UTC()).
		Order("delivered_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent interventions %s: %w", userID, err)
	}
	return interventionsFromRows(rows)
}

// SaveIntervention upserts iv by id.
func (s *Store) SaveIntervention(ctx context.Context, iv *nudge.Intervention) error {
	row, err := interventionToRow(iv)
	if err != nil {
		return fmt.Errorf("store: encode intervention %s: %w", iv.ID, err)
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("store: save intervention %s: %w", iv.ID, result.Error)
	}
	return nil
}

// MarkViewed sets viewed_at on intervention id if it is not set yet. No
// other column is written.
func (s *Store) MarkViewed(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Intervention{}).
		Where("id = ? AND viewed_at IS NULL", id).
		Update("viewed_at", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("store: mark viewed %s: %w", id, err)
	}
	return nil
}

// HistoryFilter narrows History.
type HistoryFilter struct {
	UserID   string
	Category nudge.Category
	FollowUp bool
	Since    time.Time
	Limit    int
}

// History lists delivered interventions, newest first.
func (s *Store) History(ctx context.Context, f HistoryFilter) ([]nudge.Intervention, error) {
	q := s.db.WithContext(ctx).Model(&models.Intervention{}).Where("delivered = ?", true)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if f.FollowUp {
		q = q.Where("follow_up_required = ?", true)
	}
	if !f.Since.IsZero() {
		q = q.Where("delivered_at >= ?", f.Since.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []models.Intervention
	if err := q.Order("delivered_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	return interventionsFromRows(rows)
}

// PutSnapshot stores snap as userID's latest context.
func (s *Store) PutSnapshot(ctx context.Context, snap nudge.Snapshot) error {
	row, err := snapshotToRow(snap)
	if err != nil {
		return fmt.Errorf("store: encode snapshot %s: %w", snap.UserID, err)
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("store: save snapshot %s: %w", snap.UserID, result.Error)
	}
	return nil
}

// Snapshot returns userID's latest context, or ErrNotFound.
func (s *Store) Snapshot(ctx context.Context, userID string) (nudge.Snapshot, error) {
	var row models.ContextSnapshot
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nudge.Snapshot{}, fmt.Errorf("store: snapshot %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nudge.Snapshot{}, fmt.Errorf("store: snapshot %s: %w", userID, err)
	}
	return snapshotFromRow(row)
}

// marshalJSON marshals a value to a JSON string, returning empty string for nil.
func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalList decodes a JSON array column. Empty columns decode to nil.
func unmarshalList[T any](s string) ([]T, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
