package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/nudgeyard/internal/config"
	"github.com/zulandar/nudgeyard/internal/dashboard"
	"github.com/zulandar/nudgeyard/internal/db"
	"github.com/zulandar/nudgeyard/internal/feedback"
	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/scheduler"
	"github.com/zulandar/nudgeyard/internal/store"
	"github.com/zulandar/nudgeyard/internal/telegraph"
	"github.com/zulandar/nudgeyard/internal/telegraph/discord"
	"github.com/zulandar/nudgeyard/internal/telegraph/slack"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, delivery loop and HTTP API",
		Long: `Starts the intervention scheduler with its periodic delivery loop and
serves the HTTP API with a live event stream.

When telegraph is configured, push deliveries are posted to Slack or Discord
and a care-team digest is posted on the digest schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides dashboard.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Dashboard.Port = port
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownOTel, err := telemetry.InitOTel(ctx, log, telemetry.OTelConfig{
		Enabled:     cfg.Telemetry.OTelEnabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	gormDB, err := db.Init(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	scores, closeScores, err := openFeedbackStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeScores()
	tracker := feedback.NewTracker(scores, cfg.Feedback.HistorySize, *cfg.Feedback.NeutralPrior)

	hub := dashboard.NewHub(0)
	router := scheduler.NewChannelRouter(hub)

	adapter, err := openTelegraph(ctx, cfg, log)
	if err != nil {
		return err
	}
	if adapter != nil {
		defer adapter.Close()
		notifier, err := telegraph.NewNotifier(adapter, telegraph.NotifierOpts{
			DefaultChannel: cfg.Telegraph.ChannelID,
			UserChannels:   cfg.Telegraph.UserChannels,
			Log:            log,
		})
		if err != nil {
			return err
		}
		router.Route(nudge.ChannelPush, scheduler.Fanout{hub, notifier})

		if cfg.Telegraph.DigestChannel != "" {
			digester, err := telegraph.NewDigester(telegraph.DigesterOpts{
				Adapter:   adapter,
				ChannelID: cfg.Telegraph.DigestChannel,
				Schedule:  cfg.Telegraph.DigestSchedule,
				Log:       log,
				Source: func(ctx context.Context, since time.Time) ([]nudge.Intervention, error) {
					return st.History(ctx, store.HistoryFilter{Since: since})
				},
			})
			if err != nil {
				return err
			}
			if err := digester.Start(ctx); err != nil {
				return err
			}
			defer digester.Stop()
		}
	}

	defaults := cfg.UserDefaults()
	svc, err := scheduler.New(scheduler.Opts{
		Snapshots:    st,
		Configs:      st,
		History:      st,
		Notifier:     router,
		Feedback:     tracker,
		Telemetry:    telemetry.Multi{telemetry.LogSink{Log: log}, telemetry.NewTraceSink(nil), hub},
		Log:          log,
		Defaults:     &defaults,
		RecentWindow: cfg.Scheduler.RecentWindow,
		Disabled:     !cfg.SchedulerEnabled(),
	})
	if err != nil {
		return err
	}

	if svc.Enabled() {
		loop := scheduler.NewLoop(svc, cfg.Scheduler.TickInterval, log)
		if err := loop.Start(); err != nil {
			return err
		}
		defer loop.Stop()
	} else {
		log.Warn("scheduler disabled by config; API calls are no-ops")
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		Scheduler: svc,
		Store:     st,
		Hub:       hub,
		Port:      cfg.Dashboard.Port,
		Log:       log,
	})
}

// openFeedbackStore returns the Redis-backed score store when configured and
// the in-memory store otherwise.
func openFeedbackStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (feedback.Store, func(), error) {
	if cfg.Feedback.Redis.Addr == "" {
		return feedback.NewMemoryStore(), func() {}, nil
	}
	rs, err := feedback.DialRedis(ctx, cfg.Feedback.Redis.Addr, cfg.Feedback.Redis.Prefix)
	if err != nil {
		return nil, nil, err
	}
	log.Info("feedback scores stored in redis", "addr", cfg.Feedback.Redis.Addr)
	return rs, func() { _ = rs.Close() }, nil
}

// openTelegraph connects the configured chat adapter. It returns nil when
// telegraph is disabled.
func openTelegraph(ctx context.Context, cfg *config.Config, log *logger.Logger) (telegraph.Adapter, error) {
	var (
		adapter telegraph.Adapter
		err     error
	)
	switch cfg.Telegraph.Platform {
	case "":
		return nil, nil
	case "slack":
		adapter, err = slack.New(slack.AdapterOpts{
			BotToken:  cfg.Telegraph.BotToken,
			ChannelID: cfg.Telegraph.ChannelID,
		})
	case "discord":
		adapter, err = discord.New(discord.AdapterOpts{
			BotToken:  cfg.Telegraph.BotToken,
			ChannelID: cfg.Telegraph.ChannelID,
			Log:       log,
		})
	default:
		return nil, fmt.Errorf("unknown telegraph platform %q", cfg.Telegraph.Platform)
	}
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, fmt.Errorf("telegraph: connect %s: %w", cfg.Telegraph.Platform, err)
	}
	log.Info("telegraph connected", "platform", cfg.Telegraph.Platform)
	return adapter, nil
}
