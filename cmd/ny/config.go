package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit per-user intervention configs",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigResetCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's intervention config",
		Long:  "Prints the user's stored config, creating it from the configured defaults on first use.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := openOffline(configPath)
			if err != nil {
				return err
			}
			cfg, err := svc.UserConfig(context.Background(), args[0])
			if err != nil {
				return err
			}
			printUserConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var (
		configPath     string
		enabled        bool
		autonomy       string
		maxPerHour     int
		maxPerDay      int
		quietStart     string
		quietEnd       string
		respectQuiet   bool
		timezone       string
		channels       []string
		notifications  bool
		crisisOverride bool
	)

	cmd := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Update fields of a user's intervention config",
		Long: `Applies a partial update to a user's config. Only flags that are given
change; the result is validated before it is saved.`,
		Example: `  ny config set u123 --max-per-hour 2 --quiet-start 23:00 --quiet-end 07:00
  ny config set u123 --channels modal,text --autonomy high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch nudge.ConfigPatch
			flags := cmd.Flags()
			if flags.Changed("enabled") {
				patch.Enabled = &enabled
			}
			if flags.Changed("autonomy") {
				a := nudge.Autonomy(autonomy)
				patch.Autonomy = &a
			}
			if flags.Changed("max-per-hour") {
				patch.MaxPerHour = &maxPerHour
			}
			if flags.Changed("max-per-day") {
				patch.MaxPerDay = &maxPerDay
			}
			if flags.Changed("quiet-start") || flags.Changed("quiet-end") {
				patch.QuietHours = &nudge.QuietHours{Start: quietStart, End: quietEnd}
			}
			if flags.Changed("respect-quiet-hours") {
				patch.RespectQuietHours = &respectQuiet
			}
			if flags.Changed("timezone") {
				patch.Timezone = &timezone
			}
			if flags.Changed("channels") {
				for _, ch := range channels {
					patch.Channels = append(patch.Channels, nudge.Channel(strings.TrimSpace(ch)))
				}
			}
			if flags.Changed("notifications-granted") {
				patch.NotificationsGranted = &notifications
			}
			if flags.Changed("crisis-override") {
				patch.CrisisOverride = &crisisOverride
			}
			return runConfigSet(cmd, configPath, args[0], patch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "enable interventions for the user")
	cmd.Flags().StringVar(&autonomy, "autonomy", "", "autonomy level (low, medium, high)")
	cmd.Flags().IntVar(&maxPerHour, "max-per-hour", 0, "maximum interventions per rolling hour")
	cmd.Flags().IntVar(&maxPerDay, "max-per-day", 0, "maximum interventions per rolling day")
	cmd.Flags().StringVar(&quietStart, "quiet-start", "", "quiet hours start (HH:MM)")
	cmd.Flags().StringVar(&quietEnd, "quiet-end", "", "quiet hours end (HH:MM)")
	cmd.Flags().BoolVar(&respectQuiet, "respect-quiet-hours", true, "suppress non-urgent interventions during quiet hours")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for quiet hours")
	cmd.Flags().StringSliceVar(&channels, "channels", nil, "allowed delivery channels")
	cmd.Flags().BoolVar(&notifications, "notifications-granted", true, "whether notification permission is granted")
	cmd.Flags().BoolVar(&crisisOverride, "crisis-override", true, "deliver crisis support even when disabled")
	return cmd
}

func runConfigSet(cmd *cobra.Command, configPath, userID string, patch nudge.ConfigPatch) error {
	_, svc, err := openOffline(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if patch.QuietHours != nil && (patch.QuietHours.Start == "" || patch.QuietHours.End == "") {
		cur, err := svc.UserConfig(ctx, userID)
		if err != nil {
			return err
		}
		if patch.QuietHours.Start == "" {
			patch.QuietHours.Start = cur.QuietHours.Start
		}
		if patch.QuietHours.End == "" {
			patch.QuietHours.End = cur.QuietHours.End
		}
	}

	cfg, err := svc.UpdateUserConfig(ctx, userID, patch)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Updated config for %s\n", userID)
	printUserConfig(out, cfg)
	return nil
}

func newConfigResetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Restore a user's config to the configured defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := openOffline(configPath)
			if err != nil {
				return err
			}
			cfg, err := svc.ResetUserConfig(context.Background(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reset config for %s\n", args[0])
			printUserConfig(out, cfg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	return cmd
}

func printUserConfig(w io.Writer, cfg nudge.UserConfig) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	channels := make([]string, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		channels[i] = string(ch)
	}
	if len(channels) == 0 {
		channels = []string{"(any)"}
	}
	fmt.Fprintf(tw, "user\t%s\n", cfg.UserID)
	fmt.Fprintf(tw, "enabled\t%t\n", cfg.Enabled)
	fmt.Fprintf(tw, "autonomy\t%s\n", cfg.Autonomy)
	fmt.Fprintf(tw, "max_per_hour\t%d\n", cfg.MaxPerHour)
	fmt.Fprintf(tw, "max_per_day\t%d\n", cfg.MaxPerDay)
	fmt.Fprintf(tw, "quiet_hours\t%s-%s\n", cfg.QuietHours.Start, cfg.QuietHours.End)
	fmt.Fprintf(tw, "respect_quiet_hours\t%t\n", cfg.RespectQuietHours)
	fmt.Fprintf(tw, "timezone\t%s\n", cfg.Timezone)
	fmt.Fprintf(tw, "channels\t%s\n", strings.Join(channels, ","))
	fmt.Fprintf(tw, "notifications_granted\t%t\n", cfg.NotificationsGranted)
	fmt.Fprintf(tw, "crisis_override\t%t\n", cfg.CrisisOverride)
	tw.Flush()
}
