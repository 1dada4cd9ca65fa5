package dataset

import (
	"sort"
	"time"

	"socdash/pkg/models"
)

// Summary is the KPI row of the dashboard.
type Summary struct {
	TotalEvents    int     `json:"total_events"`
	CriticalEvents int     `json:"critical_events"`
	UniqueDevices  int     `json:"unique_devices"`
	AvgRiskScore   float64 `json:"avg_risk_score"`
}

// Count is one bucket of a value count.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SeriesPoint holds per-event-type counts for one calendar date.
type SeriesPoint struct {
	Date   string         `json:"date"`
	Counts map[string]int `json:"counts"`
}

// Summary computes the KPIs. AvgRiskScore is 0 for an empty dataset.
func (d *Dataset) Summary() Summary {
	var s Summary
	if d.Empty() {
		return s
	}
	devices := make(map[string]struct{})
	total := 0
	for i := range d.events {
		ev := &d.events[i]
		if ev.RiskLevel == models.RiskCritical {
			s.CriticalEvents++
		}
		if ev.Device != "" {
			devices[ev.Device] = struct{}{}
		}
		total += ev.RiskScore
	}
	s.TotalEvents = len(d.events)
	s.UniqueDevices = len(devices)
	s.AvgRiskScore = float64(total) / float64(len(d.events))
	return s
}

// CountsBy returns value counts for a field, largest first. Ties are
// ordered by value. Empty values are not counted.
func (d *Dataset) CountsBy(field string) []Count {
	out := d.counts(field)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Geo returns per-country event counts ordered by country name.
func (d *Dataset) Geo() []Count {
	out := d.counts(models.FieldCountry)
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func (d *Dataset) counts(field string) []Count {
	if d.Empty() {
		return []Count{}
	}
	byValue := make(map[string]int)
	for i := range d.events {
		if v := d.events[i].Field(field); v != "" {
			byValue[v]++
		}
	}
	out := make([]Count, 0, len(byValue))
	for v, n := range byValue {
		out = append(out, Count{Value: v, Count: n})
	}
	return out
}

// TimeSeries returns per-date counts of each event type, ordered by date.
// Every point carries every event type seen in the dataset, zero-filled.
func (d *Dataset) TimeSeries() []SeriesPoint {
	if d.Empty() {
		return []SeriesPoint{}
	}
	types := d.Distinct(models.FieldEvent)
	var out []SeriesPoint
	index := make(map[string]int)
	for i := range d.events {
		ev := &d.events[i]
		date := ev.Date()
		pos, ok := index[date]
		if !ok {
			counts := make(map[string]int, len(types))
			for _, t := range types {
				counts[t] = 0
			}
			out = append(out, SeriesPoint{Date: date, Counts: counts})
			pos = len(out) - 1
			index[date] = pos
		}
		out[pos].Counts[ev.Event.Event]++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Distinct returns the sorted non-empty values of a field.
func (d *Dataset) Distinct(field string) []string {
	if d.Empty() {
		return []string{}
	}
	seen := make(map[string]struct{})
	for i := range d.events {
		if v := d.events[i].Field(field); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Devices returns the sorted distinct device identifiers.
func (d *Dataset) Devices() []string {
	return d.Distinct(models.FieldDevice)
}

// DeviceEvents returns one device's rows in timestamp order.
func (d *Dataset) DeviceEvents(device string) *Dataset {
	if d == nil {
		return New(nil, nil)
	}
	return d.derive(func(ev *models.ScoredEvent) bool { return ev.Device == device })
}

// DateBounds returns the first and last timestamps.
func (d *Dataset) DateBounds() (time.Time, time.Time, bool) {
	if d.Empty() {
		return time.Time{}, time.Time{}, false
	}
	return d.events[0].Timestamp, d.events[len(d.events)-1].Timestamp, true
}
