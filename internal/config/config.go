// Package config provides YAML-based configuration loading for nudgeyard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Config is the top-level nudgeyard configuration, loaded from nudgeyard.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Telegraph TelegraphConfig `yaml:"telegraph"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig selects the SQL backend. sqlite uses Path; mysql uses the
// network fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SchedulerConfig controls the delivery loop.
type SchedulerConfig struct {
	Enabled      *bool         `yaml:"enabled"`
	TickInterval time.Duration `yaml:"tick_interval"`
	RecentWindow time.Duration `yaml:"recent_window"`
}

// DefaultsConfig is the intervention config given to new users.
type DefaultsConfig struct {
	Enabled              *bool            `yaml:"enabled"`
	Autonomy             string           `yaml:"autonomy"`
	MaxPerHour           int              `yaml:"max_per_hour"`
	MaxPerDay            int              `yaml:"max_per_day"`
	QuietHours           QuietHoursConfig `yaml:"quiet_hours"`
	RespectQuietHours    *bool            `yaml:"respect_quiet_hours"`
	Timezone             string           `yaml:"timezone"`
	Channels             []string         `yaml:"channels"`
	NotificationsGranted *bool            `yaml:"notifications_granted"`
	CrisisOverride       *bool            `yaml:"crisis_override"`
}

type QuietHoursConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// FeedbackConfig bounds the effectiveness history. An empty Redis.Addr
// keeps scores in memory.
type FeedbackConfig struct {
	HistorySize  int         `yaml:"history_size"`
	NeutralPrior *float64    `yaml:"neutral_prior"`
	Redis        RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// TelegraphConfig routes push deliveries to a chat platform. An empty
// Platform disables it. An empty DigestChannel disables the care-team digest.
type TelegraphConfig struct {
	Platform       string            `yaml:"platform"`
	BotToken       string            `yaml:"bot_token"`
	ChannelID      string            `yaml:"channel_id"`
	UserChannels   map[string]string `yaml:"user_channels"`
	DigestChannel  string            `yaml:"digest_channel"`
	DigestSchedule string            `yaml:"digest_schedule"`
}

type DashboardConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Mode string `yaml:"mode"`
}

type TelemetryConfig struct {
	OTelEnabled bool   `yaml:"otel_enabled"`
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func boolPtr(v bool) *bool { return &v }

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "nudgeyard.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "nudgeyard"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}

	if c.Scheduler.Enabled == nil {
		c.Scheduler.Enabled = boolPtr(true)
	}
	if c.Scheduler.TickInterval == 0 {
		c.Scheduler.TickInterval = 30 * time.Second
	}
	if c.Scheduler.RecentWindow == 0 {
		c.Scheduler.RecentWindow = 30 * time.Minute
	}

	d := &c.Defaults
	base := nudge.DefaultUserConfig("")
	if d.Enabled == nil {
		d.Enabled = boolPtr(base.Enabled)
	}
	if d.Autonomy == "" {
		d.Autonomy = string(base.Autonomy)
	}
	if d.MaxPerHour == 0 {
		d.MaxPerHour = base.MaxPerHour
	}
	if d.MaxPerDay == 0 {
		d.MaxPerDay = base.MaxPerDay
	}
	if d.QuietHours.Start == "" && d.QuietHours.End == "" {
		d.QuietHours = QuietHoursConfig{Start: base.QuietHours.Start, End: base.QuietHours.End}
	}
	if d.RespectQuietHours == nil {
		d.RespectQuietHours = boolPtr(base.RespectQuietHours)
	}
	if d.Timezone == "" {
		d.Timezone = base.Timezone
	}
	if d.Channels == nil {
		for _, ch := range base.Channels {
			d.Channels = append(d.Channels, string(ch))
		}
	}
	if d.NotificationsGranted == nil {
		d.NotificationsGranted = boolPtr(base.NotificationsGranted)
	}
	if d.CrisisOverride == nil {
		d.CrisisOverride = boolPtr(base.CrisisOverride)
	}

	if c.Feedback.HistorySize == 0 {
		c.Feedback.HistorySize = 10
	}
	if c.Feedback.NeutralPrior == nil {
		p := 0.7
		c.Feedback.NeutralPrior = &p
	}
	if c.Feedback.Redis.Prefix == "" {
		c.Feedback.Redis.Prefix = "nudgeyard"
	}

	if c.Telegraph.DigestSchedule == "" {
		c.Telegraph.DigestSchedule = "0 8 * * *"
	}

	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Logging.Mode == "" {
		c.Logging.Mode = "development"
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = "stdout"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "nudgeyard"
	}
}

// UserDefaults converts the defaults section to a user config template.
func (c *Config) UserDefaults() nudge.UserConfig {
	d := c.Defaults
	channels := make([]nudge.Channel, len(d.Channels))
	for i, ch := range d.Channels {
		channels[i] = nudge.Channel(ch)
	}
	return nudge.UserConfig{
		Enabled:              deref(d.Enabled),
		Autonomy:             nudge.Autonomy(d.Autonomy),
		MaxPerHour:           d.MaxPerHour,
		MaxPerDay:            d.MaxPerDay,
		QuietHours:           nudge.QuietHours{Start: d.QuietHours.Start, End: d.QuietHours.End},
		RespectQuietHours:    deref(d.RespectQuietHours),
		Timezone:             d.Timezone,
		Channels:             channels,
		NotificationsGranted: deref(d.NotificationsGranted),
		CrisisOverride:       deref(d.CrisisOverride),
	}
}

// SchedulerEnabled reports whether the scheduler should act on calls.
func (c *Config) SchedulerEnabled() bool { return deref(c.Scheduler.Enabled) }

func deref(b *bool) bool { return b != nil && *b }

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Scheduler.TickInterval < time.Second {
		errs = append(errs, "scheduler.tick_interval must be at least 1s")
	}
	if c.Scheduler.RecentWindow < 0 {
		errs = append(errs, "scheduler.recent_window must not be negative")
	}
	if err := c.UserDefaults().Validate(); err != nil {
		errs = append(errs, "defaults: "+strings.TrimPrefix(err.Error(), "nudge: "))
	}
	if c.Feedback.HistorySize < 1 {
		errs = append(errs, "feedback.history_size must be at least 1")
	}
	if p := *c.Feedback.NeutralPrior; p < 0 || p > 1 {
		errs = append(errs, "feedback.neutral_prior must be within [0, 1]")
	}
	switch c.Telegraph.Platform {
	case "":
	case "slack", "discord":
		if c.Telegraph.BotToken == "" {
			errs = append(errs, "telegraph.bot_token is required")
		}
		if c.Telegraph.ChannelID == "" && len(c.Telegraph.UserChannels) == 0 {
			errs = append(errs, "telegraph.channel_id or telegraph.user_channels is required")
		}
		if _, err := cron.ParseStandard(c.Telegraph.DigestSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("telegraph.digest_schedule %q is not a valid cron expression", c.Telegraph.DigestSchedule))
		}
	default:
		errs = append(errs, fmt.Sprintf("telegraph.platform %q must be slack or discord", c.Telegraph.Platform))
	}
	switch c.Telemetry.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.exporter %q must be stdout or otlp", c.Telemetry.Exporter))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
