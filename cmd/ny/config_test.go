package main

import (
	"strings"
	"testing"
)

// configValue returns the value printed for key by printUserConfig.
func configValue(out, key string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == key {
			return fields[1]
		}
	}
	return ""
}

func TestConfigShow_CreatesDefaults(t *testing.T) {
	cfgPath := sqliteConfig(t)

	out, err := runCmd(t, "", "config", "show", "u1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	want := map[string]string{
		"user":            "u1",
		"enabled":         "true",
		"autonomy":        "medium",
		"max_per_hour":    "3",
		"max_per_day":     "12",
		"quiet_hours":     "22:00-08:00",
		"channels":        "modal,push,reminder,text",
		"crisis_override": "true",
	}
	for k, v := range want {
		if got := configValue(out, k); got != v {
			t.Errorf("%s = %q, want %q\n%s", k, got, v, out)
		}
	}
}

func TestConfigShow_RequiresUser(t *testing.T) {
	if _, err := runCmd(t, "", "config", "show", "--config", sqliteConfig(t)); err == nil {
		t.Fatal("expected error without user id")
	}
}

func TestConfigSet_PartialUpdate(t *testing.T) {
	cfgPath := sqliteConfig(t)

	out, err := runCmd(t, "", "config", "set", "u1", "--config", cfgPath,
		"--max-per-hour", "2", "--quiet-start", "23:30", "--channels", "modal,text", "--enabled=false")
	if err != nil {
		t.Fatalf("config set: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Updated config for u1") {
		t.Errorf("output = %s", out)
	}

	out, err = runCmd(t, "", "config", "show", "u1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	checks := map[string]string{
		"max_per_hour": "2",
		"max_per_day":  "12",
		"quiet_hours":  "23:30-08:00",
		"channels":     "modal,text",
		"enabled":      "false",
		"autonomy":     "medium",
	}
	for k, v := range checks {
		if got := configValue(out, k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	cfgPath := sqliteConfig(t)

	_, err := runCmd(t, "", "config", "set", "u1", "--config", cfgPath, "--max-per-day", "1")
	if err == nil {
		t.Fatal("expected error for max_per_day below max_per_hour")
	}
	if !strings.Contains(err.Error(), "max_per_day") {
		t.Errorf("error = %q, want to mention max_per_day", err)
	}

	out, _ := runCmd(t, "", "config", "show", "u1", "--config", cfgPath)
	if got := configValue(out, "max_per_day"); got != "12" {
		t.Errorf("max_per_day = %q after rejected update, want 12", got)
	}

	if _, err := runCmd(t, "", "config", "set", "u1", "--config", cfgPath, "--autonomy", "total"); err == nil {
		t.Error("expected error for unknown autonomy")
	}
}

func TestConfigReset(t *testing.T) {
	cfgPath := sqliteConfig(t)

	if _, err := runCmd(t, "", "config", "set", "u1", "--config", cfgPath, "--autonomy", "high"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := runCmd(t, "", "config", "reset", "u1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config reset: %v", err)
	}
	if got := configValue(out, "autonomy"); got != "medium" {
		t.Errorf("autonomy after reset = %q, want medium", got)
	}
}

func TestConfigShow_UsesConfiguredDefaults(t *testing.T) {
	cfgPath := sqliteConfig(t)
	extra := "defaults:\n  max_per_hour: 1\n  max_per_day: 4\n  autonomy: low\n"
	if err := appendTestFile(cfgPath, extra); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "config", "show", "u9", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if configValue(out, "max_per_hour") != "1" || configValue(out, "autonomy") != "low" {
		t.Errorf("configured defaults not applied:\n%s", out)
	}
}
