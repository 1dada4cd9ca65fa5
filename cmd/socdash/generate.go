package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"socdash/internal/generator"
	"socdash/internal/logger"
)

var genOpts = generator.DefaultOptions()

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic demo event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		start, _ := cmd.Flags().GetString("start")

		opts := genOpts
		if start != "" {
			t, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("invalid --start %q (want YYYY-MM-DD)", start)
			}
			opts.Start = t
		}

		events, err := generator.Generate(opts)
		if err != nil {
			return err
		}

		if dir := filepath.Dir(out); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		if err := generator.WriteCSV(f, events); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Infof("Wrote %d synthetic events to %s", len(events), out)
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringP("out", "o", "insights_events.csv", "output CSV path")
	f.String("start", "", "first day of the log (YYYY-MM-DD)")
	f.Int64Var(&genOpts.Seed, "seed", genOpts.Seed, "random seed")
	f.IntVar(&genOpts.Count, "count", genOpts.Count, "number of background events")
	f.IntVar(&genOpts.Days, "days", genOpts.Days, "number of days covered")
	f.IntVar(&genOpts.Devices, "devices", genOpts.Devices, "number of distinct devices")
	f.IntVar(&genOpts.Bursts, "bursts", genOpts.Bursts, "number of injected emulator bursts")
	f.IntVar(&genOpts.BurstSize, "burst-size", genOpts.BurstSize, "events per burst")
}
