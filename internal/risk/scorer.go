// Package risk derives a heuristic risk score and level for telemetry events.
package risk

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"socdash/pkg/models"
)

// MaxScore is the upper clamp for every score.
const MaxScore = 100

// OffHours controls the time-of-day bonus. An event is off-hours when its
// stored hour is strictly before Before or strictly after After.
type OffHours struct {
	Before int `yaml:"before"`
	After  int `yaml:"after"`
	Bonus  int `yaml:"bonus"`
}

// Thresholds are the inclusive lower bounds of the upper three levels.
// Everything below Medium is Low.
type Thresholds struct {
	Medium   int `yaml:"medium"`
	High     int `yaml:"high"`
	Critical int `yaml:"critical"`
}

// Config controls risk scoring.
type Config struct {
	BaseScores        map[string]int `yaml:"base_scores"`
	DefaultScore      int            `yaml:"default_score"`
	HighRiskCountries []string       `yaml:"high_risk_countries"`
	HighRiskBonus     int            `yaml:"high_risk_bonus"`
	OffHours          OffHours       `yaml:"off_hours"`
	Levels            Thresholds     `yaml:"levels"`
}

// DefaultConfig returns the demo weights.
func DefaultConfig() Config {
	return Config{
		BaseScores: map[string]int{
			models.EventRootDetected:     30,
			models.EventHookingAttempt:   25,
			models.EventEmulatorDetected: 20,
			models.EventDebuggerAttached: 15,
		},
		DefaultScore:      10,
		HighRiskCountries: []string{"USA", "Germany"},
		HighRiskBonus:     10,
		OffHours:          OffHours{Before: 6, After: 22, Bonus: 5},
		Levels:            Thresholds{Medium: 26, High: 51, Critical: 76},
	}
}

// Scorer maps events to scores. It holds only immutable configuration and
// is safe for concurrent use.
type Scorer struct {
	base          map[string]int
	defaultScore  int
	countries     map[string]struct{}
	highRiskBonus int
	offHours      OffHours
	levels        Thresholds
}

// UnmarshalYAML decodes over DefaultConfig, so keys missing from the
// document keep their default values and explicit zeros are kept.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	p := plain(DefaultConfig())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}

// New validates cfg and creates a scorer. cfg is used as given; start from
// DefaultConfig to change only some weights.
func New(cfg Config) (*Scorer, error) {
	for event, score := range cfg.BaseScores {
		if score < 0 {
			return nil, fmt.Errorf("base score for %q is negative: %d", event, score)
		}
	}
	if cfg.DefaultScore < 0 {
		return nil, fmt.Errorf("default score is negative: %d", cfg.DefaultScore)
	}
	if cfg.HighRiskBonus < 0 {
		return nil, fmt.Errorf("high-risk country bonus is negative: %d", cfg.HighRiskBonus)
	}
	if cfg.OffHours.Before < 0 || cfg.OffHours.Before > 23 || cfg.OffHours.After < 0 || cfg.OffHours.After > 23 {
		return nil, fmt.Errorf("off-hours bounds must be within 0..23: before=%d after=%d", cfg.OffHours.Before, cfg.OffHours.After)
	}
	if cfg.OffHours.Bonus < 0 {
		return nil, fmt.Errorf("off-hours bonus is negative: %d", cfg.OffHours.Bonus)
	}
	lv := cfg.Levels
	if lv.Medium <= 0 || lv.High <= lv.Medium || lv.Critical <= lv.High || lv.Critical > MaxScore {
		return nil, fmt.Errorf("level thresholds must satisfy 0 < medium < high < critical <= %d: %+v", MaxScore, lv)
	}

	base := make(map[string]int, len(cfg.BaseScores))
	for event, score := range cfg.BaseScores {
		base[strings.TrimSpace(event)] = score
	}
	countries := make(map[string]struct{}, len(cfg.HighRiskCountries))
	for _, c := range cfg.HighRiskCountries {
		if c = strings.TrimSpace(c); c != "" {
			countries[c] = struct{}{}
		}
	}

	return &Scorer{
		base:          base,
		defaultScore:  cfg.DefaultScore,
		countries:     countries,
		highRiskBonus: cfg.HighRiskBonus,
		offHours:      cfg.OffHours,
		levels:        lv,
	}, nil
}

// Score computes the clamped risk score. The hour is read as stored,
// without any time zone conversion.
func (s *Scorer) Score(eventType, country string, ts time.Time) int {
	score, ok := s.base[eventType]
	if !ok {
		score = s.defaultScore
	}
	if _, ok := s.countries[country]; ok {
		score += s.highRiskBonus
	}
	if s.IsOffHours(ts) {
		score += s.offHours.Bonus
	}
	if score > MaxScore {
		return MaxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// IsOffHours reports whether ts falls in the off-hours range.
func (s *Scorer) IsOffHours(ts time.Time) bool {
	hour := ts.Hour()
	return hour < s.offHours.Before || hour > s.offHours.After
}

// Level maps a score to its level.
func (s *Scorer) Level(score int) models.RiskLevel {
	switch {
	case score >= s.levels.Critical:
		return models.RiskCritical
	case score >= s.levels.High:
		return models.RiskHigh
	case score >= s.levels.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Range returns the inclusive score range of a level.
func (s *Scorer) Range(level models.RiskLevel) (int, int) {
	switch level {
	case models.RiskCritical:
		return s.levels.Critical, MaxScore
	case models.RiskHigh:
		return s.levels.High, s.levels.Critical - 1
	case models.RiskMedium:
		return s.levels.Medium, s.levels.High - 1
	default:
		return 0, s.levels.Medium - 1
	}
}

// ScoreEvent annotates one event. Events without a timestamp are rejected
// with a *MalformedEventError.
func (s *Scorer) ScoreEvent(ev models.Event) (models.ScoredEvent, error) {
	if ev.Timestamp.IsZero() {
		return models.ScoredEvent{}, &MalformedEventError{Row: ev.Row, Reason: "missing timestamp"}
	}
	score := s.Score(ev.Event, ev.Country, ev.Timestamp)
	return models.ScoredEvent{
		Event:     ev,
		RiskScore: score,
		RiskLevel: s.Level(score),
	}, nil
}

// Annotate scores every event. Malformed rows are skipped and returned in
// the failure list; they never abort the remaining rows.
func (s *Scorer) Annotate(events []models.Event) ([]models.ScoredEvent, []error) {
	out := make([]models.ScoredEvent, 0, len(events))
	var failures []error
	for _, ev := range events {
		scored, err := s.ScoreEvent(ev)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		out = append(out, scored)
	}
	return out, failures
}
