package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"socdash/internal/dataset"
	"socdash/pkg/models"
)

var headerColor = color.New(color.FgWhite, color.Bold)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print KPIs and the risk distribution of the filtered events",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ds, err := loadFiltered(cmd)
		if err != nil {
			return err
		}

		s := ds.Summary()
		headerColor.Println("Summary")
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Total events\t%d\n", s.TotalEvents)
		fmt.Fprintf(tw, "Critical events\t%d\n", s.CriticalEvents)
		fmt.Fprintf(tw, "Unique devices\t%d\n", s.UniqueDevices)
		fmt.Fprintf(tw, "Avg risk score\t%.1f\n", s.AvgRiskScore)
		tw.Flush()

		printCounts("Risk level", ds.CountsBy(models.FieldRiskLevel))
		printCounts("Events by type", ds.CountsBy(models.FieldEvent))
		printCounts("Events by country", ds.CountsBy(models.FieldCountry))

		if n := len(ds.Failures()); n > 0 {
			color.Yellow("%d malformed rows skipped", n)
		}
		return nil
	},
}

func init() {
	addFilterFlags(scoreCmd)
}

func printCounts(title string, counts []dataset.Count) {
	fmt.Println()
	headerColor.Println(title)
	if len(counts) == 0 {
		fmt.Println("  (none)")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range counts {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Value, c.Count)
	}
	tw.Flush()
}
