package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		category   string
		since      time.Duration
		limit      int
		followUp   bool
	)

	cmd := &cobra.Command{
		Use:   "history [user-id]",
		Short: "List delivered interventions",
		Long:  "Lists delivered interventions newest first. Without a user id, lists across all users.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := store.HistoryFilter{
				Category: nudge.Category(category),
				FollowUp: followUp,
				Limit:    limit,
			}
			if len(args) == 1 {
				f.UserID = args[0]
			}
			if category != "" && !f.Category.Valid() {
				return fmt.Errorf("unknown category %q", category)
			}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}
			return runHistory(cmd, configPath, f)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Nudgeyard config file")
	cmd.Flags().StringVar(&category, "category", "", "only show this category")
	cmd.Flags().DurationVar(&since, "since", 0, "only show deliveries within this long ago (e.g. 24h)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows")
	cmd.Flags().BoolVar(&followUp, "follow-up", false, "only show crisis interventions that need follow-up")
	return cmd
}

func runHistory(cmd *cobra.Command, configPath string, f store.HistoryFilter) error {
	st, _, err := openOffline(configPath)
	if err != nil {
		return err
	}
	rows, err := st.History(context.Background(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No interventions found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DELIVERED\tUSER\tCATEGORY\tURGENCY\tCHANNEL\tRESPONSE\tTITLE")
	for _, iv := range rows {
		delivered := "-"
		if iv.DeliveredAt != nil {
			delivered = iv.DeliveredAt.Local().Format("2006-01-02 15:04")
		}
		response := string(iv.Response)
		if response == "" {
			response = "-"
		}
		if iv.FollowUpRequired {
			response += " (follow-up)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			delivered, iv.UserID, iv.Category, iv.Urgency, iv.Channel, response, iv.Title)
	}
	return tw.Flush()
}
