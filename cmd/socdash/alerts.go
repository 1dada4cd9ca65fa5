package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"socdash/internal/alerts"
	"socdash/internal/logger"
	"socdash/internal/output/alertjson"
	"socdash/internal/pipeline"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Run the rolling-window alert rule over the filtered events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ds, err := loadFiltered(cmd)
		if err != nil {
			return err
		}

		ac := cfg.SocDash.Alerts
		flags := cmd.Flags()
		if flags.Changed("window") {
			ac.Window, _ = flags.GetDuration("window")
		}
		if flags.Changed("threshold") {
			ac.Threshold, _ = flags.GetInt("threshold")
		}
		if flags.Changed("scope") {
			ac.GroupBy, _ = flags.GetString("scope")
		}
		if flags.Changed("trigger") {
			ac.TriggerEvent, _ = flags.GetString("trigger")
			ac.Label = ""
		}
		if flags.Changed("out") {
			ac.Output.Path, _ = flags.GetString("out")
		}

		detector, err := alerts.NewDetector(pipeline.DetectorConfig(ac))
		if err != nil {
			return err
		}

		var writer pipeline.AlertWriter
		if ac.Output.Path != "" {
			w, err := alertjson.NewWriter(ac.Output.Path)
			if err != nil {
				return err
			}
			defer w.Close()
			writer = w
		}

		res, err := pipeline.RunAlerts(ds, detector, writer)
		if err != nil {
			return err
		}

		fmt.Printf("Rule: %s (per %s)\n", detector.Rule(), detector.Config().GroupBy)
		if len(res.Alerts) == 0 {
			color.Green("No alerts triggered")
			return nil
		}

		color.New(color.FgRed, color.Bold).Printf("ALERTS TRIGGERED: %d\n", len(res.Alerts))
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSCOPE\tGROUP\tCOUNT\tRULE")
		for _, a := range res.Alerts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", a.Time.Format("2006-01-02 15:04:05"), a.Scope, a.Group, a.Count, a.Rule)
		}
		tw.Flush()
		if ac.Output.Path != "" {
			logger.Infof("Wrote %d alerts to %s", len(res.Alerts), ac.Output.Path)
		}
		return nil
	},
}

func init() {
	addFilterFlags(alertsCmd)
	alertsCmd.Flags().Duration("window", 5*time.Minute, "rolling window (whole minutes)")
	alertsCmd.Flags().Int("threshold", 10, "events per window that raise an alert")
	alertsCmd.Flags().String("scope", alerts.GroupByCountry, "group events per country or device")
	alertsCmd.Flags().String("trigger", "emulator_detected", "event type counted by the rule")
	alertsCmd.Flags().String("out", "", "also write alerts as JSON lines to this file")
}
