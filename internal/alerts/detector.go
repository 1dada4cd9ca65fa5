package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"socdash/pkg/models"
)

// Supported grouping fields.
const (
	GroupByCountry = models.FieldCountry
	GroupByDevice  = models.FieldDevice
)

// Config controls the rolling-window alert rule.
type Config struct {
	TriggerEvent string
	Window       time.Duration
	Threshold    int
	GroupBy      string
	// Label names the trigger in the rule description. Derived from
	// TriggerEvent when empty.
	Label string
	// MaxGroups caps the number of groups evaluated; 0 means no cap.
	MaxGroups int
}

// Detector emits an alert at every event whose trailing-window count for
// its group reaches the threshold. It keeps no state between calls.
type Detector struct {
	cfg  Config
	rule string
}

// Result is the detector output plus evaluation stats.
type Result struct {
	Alerts        []models.Alert
	Groups        int
	SkippedGroups int
}

// NewDetector validates cfg and creates a detector.
func NewDetector(cfg Config) (*Detector, error) {
	cfg.TriggerEvent = strings.TrimSpace(cfg.TriggerEvent)
	if cfg.TriggerEvent == "" {
		cfg.TriggerEvent = models.EventEmulatorDetected
	}
	if cfg.Window < time.Minute || cfg.Window%time.Minute != 0 {
		return nil, fmt.Errorf("alert window must be a whole number of minutes >= 1, got %s", cfg.Window)
	}
	if cfg.Threshold < 1 {
		return nil, fmt.Errorf("alert threshold must be >= 1, got %d", cfg.Threshold)
	}
	switch cfg.GroupBy {
	case GroupByCountry, GroupByDevice:
	case "":
		cfg.GroupBy = GroupByCountry
	default:
		return nil, fmt.Errorf("unsupported alert group_by %q (want country or device)", cfg.GroupBy)
	}
	if cfg.MaxGroups < 0 {
		cfg.MaxGroups = 0
	}
	if strings.TrimSpace(cfg.Label) == "" {
		cfg.Label = labelFor(cfg.TriggerEvent)
	}

	return &Detector{
		cfg:  cfg,
		rule: fmt.Sprintf("%s≥%d in %d min", cfg.Label, cfg.Threshold, int(cfg.Window/time.Minute)),
	}, nil
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Rule returns the human-readable rule description.
func (d *Detector) Rule() string {
	return d.rule
}

// Detect returns alerts sorted by time. Events of other types are ignored.
func (d *Detector) Detect(events []models.ScoredEvent) []models.Alert {
	return d.Run(events).Alerts
}

// Run evaluates the rule and reports group stats alongside the alerts.
func (d *Detector) Run(events []models.ScoredEvent) Result {
	byGroup := make(map[string][]time.Time)
	for i := range events {
		ev := &events[i]
		if ev.Event.Event != d.cfg.TriggerEvent || ev.Timestamp.IsZero() {
			continue
		}
		key := ev.Field(d.cfg.GroupBy)
		if key == "" {
			continue
		}
		byGroup[key] = append(byGroup[key], ev.Timestamp)
	}

	keys := make([]string, 0, len(byGroup))
	for k := range byGroup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := Result{Groups: len(keys)}
	if d.cfg.MaxGroups > 0 && len(keys) > d.cfg.MaxGroups {
		res.SkippedGroups = len(keys) - d.cfg.MaxGroups
		keys = keys[:d.cfg.MaxGroups]
	}

	for _, key := range keys {
		res.Alerts = append(res.Alerts, d.scanGroup(key, byGroup[key])...)
	}

	sort.SliceStable(res.Alerts, func(i, j int) bool {
		if !res.Alerts[i].Time.Equal(res.Alerts[j].Time) {
			return res.Alerts[i].Time.Before(res.Alerts[j].Time)
		}
		return res.Alerts[i].Group < res.Alerts[j].Group
	})
	return res
}

// scanGroup slides a trailing (t-window, t] window over one group's
// timestamps. Events sharing an instant count up one by one, so a burst of
// N simultaneous events yields counts 1..N.
func (d *Detector) scanGroup(key string, times []time.Time) []models.Alert {
	sort.SliceStable(times, func(i, j int) bool { return times[i].Before(times[j]) })

	var out []models.Alert
	left := 0
	for right, t := range times {
		cutoff := t.Add(-d.cfg.Window)
		for !times[left].After(cutoff) {
			left++
		}
		count := right - left + 1
		if count < d.cfg.Threshold {
			continue
		}
		out = append(out, models.Alert{
			ID:    alertID(d.rule, d.cfg.GroupBy, key, t, count),
			Time:  t,
			Scope: d.cfg.GroupBy,
			Group: key,
			Rule:  d.rule,
			Count: count,
		})
	}
	return out
}

func labelFor(eventType string) string {
	word := eventType
	if idx := strings.IndexAny(word, "_- "); idx > 0 {
		word = word[:idx]
	}
	if word == "" {
		return "Event"
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func alertID(rule, scope, group string, t time.Time, count int) string {
	name := fmt.Sprintf("%s|%s|%s|%s|%d", rule, scope, group, t.Format(time.RFC3339Nano), count)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
