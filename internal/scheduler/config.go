package scheduler

import (
	"context"
	"fmt"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// UserConfig returns userID's config, creating it from the defaults on
// first use.
func (s *Service) UserConfig(ctx context.Context, userID string) (nudge.UserConfig, error) {
	if userID == "" {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: user id is required")
	}
	cfg, found, err := s.configs.LoadConfig(ctx, userID)
	if err != nil {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: load config: %w", err)
	}
	if found {
		return cfg, nil
	}
	cfg = s.defaults.WithUser(userID)
	if err := s.configs.SaveConfig(ctx, cfg); err != nil {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: save default config: %w", err)
	}
	return cfg, nil
}

// UpdateUserConfig applies a partial update to userID's config. Invalid
// results are rejected and nothing is saved.
func (s *Service) UpdateUserConfig(ctx context.Context, userID string, patch nudge.ConfigPatch) (nudge.UserConfig, error) {
	cur, err := s.UserConfig(ctx, userID)
	if err != nil {
		return nudge.UserConfig{}, err
	}
	next, err := patch.Apply(cur)
	if err != nil {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: update config: %w", err)
	}
	if err := s.configs.SaveConfig(ctx, next); err != nil {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: save config: %w", err)
	}
	s.log.Info("user config updated", "user", userID)
	return next, nil
}

// ResetUserConfig restores userID's config to the defaults.
func (s *Service) ResetUserConfig(ctx context.Context, userID string) (nudge.UserConfig, error) {
	if userID == "" {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: user id is required")
	}
	cfg := s.defaults.WithUser(userID)
	if err := s.configs.SaveConfig(ctx, cfg); err != nil {
		return nudge.UserConfig{}, fmt.Errorf("scheduler: reset config: %w", err)
	}
	s.log.Info("user config reset", "user", userID)
	return cfg, nil
}
