// Package csvexport writes scored events as CSV.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"socdash/pkg/models"
)

// TimeLayout is the timestamp format used in exported rows.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultFileName is the download name used by the API.
const DefaultFileName = "filtered_events.csv"

// Columns is the export header.
var Columns = []string{
	models.FieldTimestamp,
	models.FieldEvent,
	models.FieldCountry,
	models.FieldDevice,
	models.FieldPackage,
	models.FieldAppVersion,
	models.FieldBuildNumber,
	models.FieldEnvironment,
	models.FieldSessionID,
	models.FieldRiskScore,
	models.FieldRiskLevel,
	"tags",
}

// Write writes the header followed by one row per event, oldest first.
// The input slice is not modified.
func Write(w io.Writer, events []models.ScoredEvent) error {
	ordered := make([]*models.ScoredEvent, len(events))
	for i := range events {
		ordered[i] = &events[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range ordered {
		if err := cw.Write(record(ev)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the export to path, creating parent directories.
func WriteFile(path string, events []models.ScoredEvent) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func record(ev *models.ScoredEvent) []string {
	return []string{
		ev.Timestamp.Format(TimeLayout),
		ev.Event.Event,
		ev.Country,
		ev.Device,
		ev.Package,
		ev.AppVersion,
		ev.BuildNumber,
		ev.Environment,
		ev.SessionID,
		strconv.Itoa(ev.RiskScore),
		string(ev.RiskLevel),
		strings.Join(ev.Tags, ";"),
	}
}
