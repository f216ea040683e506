package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/nudgeyard/internal/config"
	"github.com/zulandar/nudgeyard/internal/feedback"
	"github.com/zulandar/nudgeyard/internal/logger"
)

func TestServeCmd_Help(t *testing.T) {
	out, err := runCmd(t, "", "serve", "--help")
	if err != nil {
		t.Fatalf("serve --help: %v", err)
	}
	if !strings.Contains(out, "--port") || !strings.Contains(out, "delivery loop") {
		t.Errorf("help output = %s", out)
	}
}

func TestServeCmd_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nudgeyard.yaml")
	if err := writeTestFile(cfgPath, "telegraph:\n  platform: irc\n"); err != nil {
		t.Fatal(err)
	}
	_, err := runCmd(t, "", "serve", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "telegraph.platform") {
		t.Errorf("err = %v, want telegraph.platform validation error", err)
	}
}

func TestOpenFeedbackStore_MemoryWithoutRedis(t *testing.T) {
	cfg := config.Default()
	s, closeFn, err := openFeedbackStore(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("openFeedbackStore: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*feedback.MemoryStore); !ok {
		t.Errorf("store = %T, want *feedback.MemoryStore", s)
	}
}

func TestOpenTelegraph_DisabledReturnsNil(t *testing.T) {
	a, err := openTelegraph(context.Background(), config.Default(), logger.Nop())
	if err != nil || a != nil {
		t.Errorf("openTelegraph(disabled) = %v, %v; want nil, nil", a, err)
	}
}

func TestLoadConfig_DefaultPathFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Dashboard.Port != 8080 {
		t.Errorf("defaults not applied: %+v", cfg.Database)
	}
}
