//go:build integration

package db

import (
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/zulandar/nudgeyard/internal/config"
)

// TestInit_MySQL runs against the MySQL server at NUDGEYARD_TEST_MYSQL_HOST:3306
// as root with no password.
func TestInit_MySQL(t *testing.T) {
	addr := os.Getenv("NUDGEYARD_TEST_MYSQL_HOST")
	if addr == "" {
		t.Skip("NUDGEYARD_TEST_MYSQL_HOST not set")
	}
	cfg := config.DatabaseConfig{
		Driver: "mysql",
		User:   "root",
		Host:   addr,
		Port:   3306,
		Name:   "nudgeyard_test_" + uuid.NewString()[:8],
	}
	gdb, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		admin, err := ConnectAdmin(cfg)
		if err == nil {
			DropDatabase(admin, cfg.Name)
		}
	})

	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}
