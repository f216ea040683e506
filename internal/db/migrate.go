package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/nudgeyard/internal/config"
	"github.com/zulandar/nudgeyard/internal/models"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Intervention{},
		&models.UserConfig{},
		&models.ContextSnapshot{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// ResetSchema drops every table and migrates again. All data is lost.
func ResetSchema(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return AutoMigrate(db)
}

// Init prepares the configured database: for mysql it creates the database
// first. It returns a migrated connection.
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "mysql" {
		admin, err := ConnectAdmin(cfg)
		if err != nil {
			return nil, err
		}
		err = CreateDatabase(admin, cfg.Name)
		if sqlDB, e := admin.DB(); e == nil {
			sqlDB.Close()
		}
		if err != nil {
			return nil, err
		}
	}
	gdb, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
