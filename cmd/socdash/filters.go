package main

import (
	"context"
	"net/url"

	"github.com/spf13/cobra"

	"socdash/config"
	"socdash/internal/api"
	"socdash/internal/dataset"
	"socdash/internal/pipeline"
	"socdash/pkg/models"
)

var filterSliceFlags = []string{
	models.FieldEvent,
	models.FieldCountry,
	"level",
	models.FieldPackage,
	models.FieldAppVersion,
	models.FieldBuildNumber,
	models.FieldEnvironment,
	models.FieldSessionID,
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date to include (YYYY-MM-DD)")
	for _, name := range filterSliceFlags {
		cmd.Flags().StringSlice(name, nil, "only rows with this "+name+" (repeatable, comma-separated)")
	}
}

// filterFromFlags maps the filter flags onto the API query format so both
// surfaces share one parser.
func filterFromFlags(cmd *cobra.Command) (dataset.Filter, error) {
	q := url.Values{}
	for _, name := range []string{"from", "to"} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			q.Set(name, v)
		}
	}
	for _, name := range filterSliceFlags {
		values, _ := cmd.Flags().GetStringSlice(name)
		for _, v := range values {
			q.Add(name, v)
		}
	}
	return api.ParseFilter(q)
}

// loadDataset runs the load pipeline once.
func loadDataset(ctx context.Context, cfg *config.Config) (*dataset.Dataset, error) {
	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Load(ctx)
}

// loadFiltered loads the dataset and applies the command's filter flags.
func loadFiltered(cmd *cobra.Command) (*config.Config, *dataset.Dataset, error) {
	f, err := filterFromFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	ds, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ds.Filter(f), nil
}
