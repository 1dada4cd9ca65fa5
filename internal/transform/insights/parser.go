// Package insights normalizes mobile security telemetry rows into events.
package insights

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"socdash/internal/risk"
	"socdash/pkg/models"
)

// Header maps column names to record positions.
type Header map[string]int

// RequiredColumns must be present in every CSV header.
var RequiredColumns = []string{models.FieldTimestamp, models.FieldEvent, models.FieldCountry, models.FieldDevice}

// NewHeader indexes a CSV header row and checks the required columns.
func NewHeader(columns []string) (Header, error) {
	h := make(Header, len(columns))
	for i, c := range columns {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return h, nil
}

// Has reports whether the header contains a column.
func (h Header) Has(name string) bool {
	_, ok := h[name]
	return ok
}

func (h Header) get(record []string, name string) string {
	idx, ok := h[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// ParseRecord converts one CSV record. row is the 1-based line number used
// in error reports.
func ParseRecord(h Header, record []string, row int) (models.Event, error) {
	ev := models.Event{
		Row:         row,
		Event:       h.get(record, models.FieldEvent),
		Country:     h.get(record, models.FieldCountry),
		Device:      h.get(record, models.FieldDevice),
		Package:     h.get(record, models.FieldPackage),
		AppVersion:  h.get(record, models.FieldAppVersion),
		BuildNumber: h.get(record, models.FieldBuildNumber),
		Environment: h.get(record, models.FieldEnvironment),
		SessionID:   h.get(record, models.FieldSessionID),
	}
	ts, err := timestampFrom(h.get(record, models.FieldTimestamp), row)
	if err != nil {
		return ev, err
	}
	ev.Timestamp = ts
	return ev, nil
}

// Parse converts one JSON payload. Flat keys and a few nested aliases are
// accepted.
func Parse(data []byte, row int) (models.Event, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Event{Row: row}, &risk.MalformedEventError{Row: row, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	ev := models.Event{
		Row:         row,
		Event:       getString(raw, "event", "event_type", "event.type"),
		Country:     getString(raw, "country", "geo.country"),
		Device:      getString(raw, "device", "device_id", "device.id"),
		Package:     getString(raw, "package", "app.package"),
		AppVersion:  getString(raw, "app_version", "app.version"),
		BuildNumber: getString(raw, "build_number", "app.build"),
		Environment: getString(raw, "environment", "env"),
		SessionID:   getString(raw, "session_id", "session.id"),
	}

	if v, ok := getPath(raw, "timestamp"); ok {
		if f, isNum := v.(float64); isNum {
			sec, frac := math.Modf(f)
			ev.Timestamp = time.Unix(int64(sec), int64(frac*1e9)).UTC()
			return ev, nil
		}
	}
	ts, err := timestampFrom(getString(raw, "timestamp", "@timestamp", "ts"), row)
	if err != nil {
		return ev, err
	}
	ev.Timestamp = ts
	return ev, nil
}

func timestampFrom(value string, row int) (time.Time, error) {
	if value == "" {
		return time.Time{}, &risk.MalformedEventError{Row: row, Reason: "missing timestamp"}
	}
	ts, ok := ParseTimestamp(value)
	if !ok {
		return time.Time{}, &risk.MalformedEventError{Row: row, Reason: fmt.Sprintf("unparseable timestamp %q", value)}
	}
	return ts, nil
}

// ParseTimestamp accepts RFC3339 and common naive layouts. Naive values are
// read as wall-clock time and kept in UTC without conversion; values with an
// explicit offset keep that offset.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case string:
				if s := strings.TrimSpace(val); s != "" {
					return s
				}
			case float64:
				if val == float64(int64(val)) {
					return fmt.Sprintf("%d", int64(val))
				}
				return fmt.Sprintf("%g", val)
			case bool:
				return fmt.Sprintf("%t", val)
			}
		}
	}
	return ""
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := root[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}
