package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socdash/internal/alerts"
	"socdash/internal/dataset"
	"socdash/pkg/models"
)

const dateLayout = "2006-01-02"

// ParseFilter reads the dashboard filters from query parameters. The CLI
// builds the same values from its flags.
func ParseFilter(q url.Values) (dataset.Filter, error) {
	var f dataset.Filter
	var err error
	if f.From, err = parseDate(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseDate(q, "to"); err != nil {
		return f, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("to (%s) is before from (%s)", f.To.Format(dateLayout), f.From.Format(dateLayout))
	}

	f.Events = multi(q, models.FieldEvent)
	f.Countries = multi(q, models.FieldCountry)
	f.Packages = multi(q, models.FieldPackage)
	f.AppVersions = multi(q, models.FieldAppVersion)
	f.BuildNumbers = multi(q, models.FieldBuildNumber)
	f.Environments = multi(q, models.FieldEnvironment)
	f.SessionIDs = multi(q, models.FieldSessionID)
	for _, v := range multi(q, "level") {
		level, ok := models.ParseRiskLevel(v)
		if !ok {
			return f, fmt.Errorf("unknown risk level %q", v)
		}
		f.Levels = append(f.Levels, level)
	}
	return f, nil
}

func parseDate(q url.Values, key string) (time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q (want YYYY-MM-DD)", key, v)
	}
	return t, nil
}

// multi accepts repeated and comma-separated values.
func multi(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// alertOverrides applies the window, threshold, scope and trigger query
// parameters on top of base. A bare number for window is read as minutes.
func alertOverrides(q url.Values, base alerts.Config) (alerts.Config, error) {
	cfg := base
	if v := strings.TrimSpace(q.Get("window")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Window = time.Duration(n) * time.Minute
		} else if d, err := time.ParseDuration(v); err == nil {
			cfg.Window = d
		} else {
			return cfg, fmt.Errorf("invalid window %q", v)
		}
	}
	if v := strings.TrimSpace(q.Get("threshold")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid threshold %q", v)
		}
		cfg.Threshold = n
	}
	if v := strings.TrimSpace(q.Get("scope")); v != "" {
		cfg.GroupBy = strings.ToLower(v)
	}
	if v := strings.TrimSpace(q.Get("trigger")); v != "" {
		cfg.TriggerEvent = v
		cfg.Label = ""
	}
	return cfg, nil
}
