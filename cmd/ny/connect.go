package main

import (
	"errors"
	"fmt"
	"io/fs"

	"gorm.io/gorm"

	"github.com/zulandar/nudgeyard/internal/config"
	"github.com/zulandar/nudgeyard/internal/db"
	"github.com/zulandar/nudgeyard/internal/scheduler"
	"github.com/zulandar/nudgeyard/internal/store"
)

const defaultConfigPath = "nudgeyard.yaml"

// loadConfig reads configPath. A missing file at the default path yields the
// built-in defaults; an explicit path must exist.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// openOffline builds a store and a scheduler with no delivery side effects,
// for commands that only read or edit persisted state.
func openOffline(configPath string) (*store.Store, *scheduler.Service, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(gormDB)
	if err != nil {
		return nil, nil, err
	}
	defaults := cfg.UserDefaults()
	svc, err := scheduler.New(scheduler.Opts{
		Snapshots:    st,
		Configs:      st,
		History:      st,
		Defaults:     &defaults,
		RecentWindow: cfg.Scheduler.RecentWindow,
	})
	if err != nil {
		return nil, nil, err
	}
	return st, svc, nil
}
