package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/ghostwalk/pkg/analytics"
	"github.com/user/ghostwalk/pkg/analytics/mixpanel"
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	fetchCmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	fetchCmd.Flags().Int("limit", 0, "maximum number of records")
	fetchCmd.Flags().StringSlice("event", nil, "event name to include (repeatable)")
	fetchCmd.Flags().String("where", "", "raw filter expression")
	fetchCmd.Flags().String("out", "", "output recording file (required)")
	_ = fetchCmd.MarkFlagRequired("out")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Export recorded events from Mixpanel into a recording file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		limit, _ := cmd.Flags().GetInt("limit")
		events, _ := cmd.Flags().GetStringSlice("event")
		where, _ := cmd.Flags().GetString("where")
		out, _ := cmd.Flags().GetString("out")

		opts := map[string]any{}
		if from != "" {
			opts["from_date"] = from
		}
		if to != "" {
			opts["to_date"] = to
		}
		if limit > 0 {
			opts["limit"] = limit
		}
		if len(events) > 0 {
			opts["event"] = events
		}
		if where != "" {
			opts["where"] = where
		}

		params, err := analytics.NewParams(opts)
		if err != nil {
			return fmt.Errorf("build export params: %w", err)
		}

		var provider analytics.Provider = mixpanel.New(&analytics.Config{
			BaseURL:   cfg.Mixpanel.BaseURL,
			ProjectID: cfg.Mixpanel.ProjectID,
			Username:  cfg.Mixpanel.Username,
			Secret:    cfg.Mixpanel.Secret,
		})

		records, err := provider.Export(context.Background(), params)
		if err != nil {
			return fmt.Errorf("export events: %w", err)
		}

		if err := analytics.SaveRecording(out, records); err != nil {
			return fmt.Errorf("save recording: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Saved %d records to %s\n", len(records), out)
		return nil
	},
}
