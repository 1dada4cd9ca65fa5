package main

import (
	"github.com/spf13/cobra"

	"socdash/internal/logger"
	"socdash/internal/output/csvexport"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered, scored events as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		_, ds, err := loadFiltered(cmd)
		if err != nil {
			return err
		}
		if err := csvexport.WriteFile(out, ds.Events()); err != nil {
			return err
		}
		logger.Infof("Exported %d events to %s", ds.Len(), out)
		return nil
	},
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringP("out", "o", csvexport.DefaultFileName, "output CSV path")
}
