// Package generator produces synthetic mobile security telemetry for demos.
package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"socdash/internal/output/csvexport"
	"socdash/pkg/models"
)

// Options controls the generated log.
type Options struct {
	Seed    int64
	Count   int
	Start   time.Time
	Days    int
	Devices int
	// Bursts is the number of emulator bursts injected so the rolling
	// alert rule has something to find.
	Bursts    int
	BurstSize int
}

// DefaultOptions returns a one-week log of 500 events.
func DefaultOptions() Options {
	return Options{
		Seed:      42,
		Count:     500,
		Start:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Days:      7,
		Devices:   25,
		Bursts:    2,
		BurstSize: 12,
	}
}

var (
	eventTypes = []string{
		models.EventRootDetected,
		models.EventHookingAttempt,
		models.EventEmulatorDetected,
		models.EventDebuggerAttached,
	}
	countries    = []string{"USA", "Germany", "France", "Brazil", "India", "Japan", "Canada", "Nigeria"}
	packages     = []string{"com.example.bank", "com.example.wallet", "com.example.shop"}
	environments = []string{"production", "staging"}

	// inputColumns is the export header without the derived columns.
	inputColumns = csvexport.Columns[:9]
)

// Generate returns events in timestamp order. The same options always
// produce the same events.
func Generate(opts Options) ([]models.Event, error) {
	if opts.Count < 0 || opts.Days < 1 || opts.Devices < 1 {
		return nil, fmt.Errorf("invalid generator options: count=%d days=%d devices=%d", opts.Count, opts.Days, opts.Devices)
	}
	if opts.Start.IsZero() {
		opts.Start = DefaultOptions().Start
	}

	f := gofakeit.New(opts.Seed)
	devices := make([]string, opts.Devices)
	for i := range devices {
		devices[i] = fmt.Sprintf("dev-%s", f.UUID()[:8])
	}
	versions := []string{f.AppVersion(), f.AppVersion(), f.AppVersion()}
	end := opts.Start.Add(time.Duration(opts.Days) * 24 * time.Hour)

	events := make([]models.Event, 0, opts.Count+opts.Bursts*opts.BurstSize)
	for i := 0; i < opts.Count; i++ {
		events = append(events, randomEvent(f, devices, versions, f.DateRange(opts.Start, end).UTC()))
	}
	for b := 0; b < opts.Bursts; b++ {
		country := f.RandomString(countries)
		at := f.DateRange(opts.Start, end.Add(-time.Hour)).UTC().Truncate(time.Minute)
		for i := 0; i < opts.BurstSize; i++ {
			ev := randomEvent(f, devices, versions, at.Add(time.Duration(f.Number(0, 239))*time.Second))
			ev.Event = models.EventEmulatorDetected
			ev.Country = country
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	for i := range events {
		events[i].Row = i + 2
	}
	return events, nil
}

func randomEvent(f *gofakeit.Faker, devices, versions []string, ts time.Time) models.Event {
	return models.Event{
		Timestamp:   ts.Truncate(time.Second),
		Event:       f.RandomString(eventTypes),
		Country:     f.RandomString(countries),
		Device:      f.RandomString(devices),
		Package:     f.RandomString(packages),
		AppVersion:  f.RandomString(versions),
		BuildNumber: fmt.Sprintf("%d", f.Number(1000, 1099)),
		Environment: f.RandomString(environments),
		SessionID:   fmt.Sprintf("sess-%s", f.UUID()[:8]),
	}
}

// WriteCSV writes events in the loader's input format.
func WriteCSV(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(inputColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range events {
		ev := &events[i]
		row := []string{
			ev.Timestamp.Format(csvexport.TimeLayout),
			ev.Event,
			ev.Country,
			ev.Device,
			ev.Package,
			ev.AppVersion,
			ev.BuildNumber,
			ev.Environment,
			ev.SessionID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
