package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/ghostwalk/internal/config"
	"github.com/user/ghostwalk/internal/normalize"
	"github.com/user/ghostwalk/internal/replay"
	"github.com/user/ghostwalk/internal/schema"
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("provider", normalize.ProviderMixpanel, "recording provider")
	replayCmd.Flags().Float64("fixed-delay", 0, "seconds between events (0 uses recorded timing)")
}

// schemaMapping builds the property mapping from config.
func schemaMapping(cfg *config.Config) (*schema.Mapping, error) {
	return schema.New(schema.Mapping{
		ReplayDataKey:    cfg.Schema.ReplayDataKey,
		DimensionKey:     cfg.Schema.DimensionKey,
		ScrollTopKey:     cfg.Schema.ScrollTopKey,
		MousePositionKey: cfg.Schema.MousePositionKey,
		TimeKey:          cfg.Schema.TimeKey,
		PageKey:          cfg.Schema.PageKey,
		QueryKey:         cfg.Schema.QueryKey,
	})
}

// timingPolicy picks the delay policy for a replay. Zero or negative fixed
// delay means recorded timing.
func timingPolicy(fixedDelaySeconds float64) replay.TimingPolicy {
	if fixedDelaySeconds > 0 {
		return replay.FixedDelay(time.Duration(fixedDelaySeconds * float64(time.Second)))
	}
	return replay.RecordedTiming()
}

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Replay a recording against a logging navigator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		provider, _ := cmd.Flags().GetString("provider")
		fixedDelay, _ := cmd.Flags().GetFloat64("fixed-delay")

		mapping, err := schemaMapping(cfg)
		if err != nil {
			return fmt.Errorf("build schema mapping: %w", err)
		}

		normalizer, err := normalize.New(provider, mapping)
		if err != nil {
			return err
		}
		stream, err := normalizer.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("load recording: %w", err)
		}
		if stream.Len() == 0 {
			fmt.Fprintln(os.Stdout, "Recording contains no events.")
			return nil
		}

		engine := replay.New(replay.LogNavigator{},
			replay.WithTiming(timingPolicy(fixedDelay)),
		)
		if err := engine.Run(context.Background(), stream); err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Replayed %d events.\n", stream.Len())
		return nil
	},
}
