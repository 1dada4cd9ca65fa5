package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"socdash/pkg/models"
)

var noon = time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

func newDefault(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestScoreWithoutBonusesEqualsBase(t *testing.T) {
	s := newDefault(t)
	for event, base := range DefaultConfig().BaseScores {
		assert.Equal(t, base, s.Score(event, "", noon), event)
	}
	assert.Equal(t, 10, s.Score("screen_recorder", "", noon))
	assert.Equal(t, 10, s.Score("", "France", noon))
}

func TestScoreBonuses(t *testing.T) {
	s := newDefault(t)
	late := time.Date(2025, 3, 4, 23, 15, 0, 0, time.UTC)

	assert.Equal(t, 40, s.Score(models.EventRootDetected, "USA", noon))
	assert.Equal(t, 35, s.Score(models.EventRootDetected, "", late))
	assert.Equal(t, 45, s.Score(models.EventRootDetected, "Germany", late))
	assert.Equal(t, 15, s.Score(models.EventDebuggerAttached, "usa", noon), "country match is exact")
}

func TestOffHoursBoundaries(t *testing.T) {
	s := newDefault(t)
	cases := map[int]bool{0: true, 5: true, 6: false, 12: false, 22: false, 23: true}
	for hour, want := range cases {
		ts := time.Date(2025, 1, 1, hour, 59, 0, 0, time.UTC)
		assert.Equal(t, want, s.IsOffHours(ts), "hour %d", hour)
	}
}

func TestOffHoursUsesStoredHour(t *testing.T) {
	s := newDefault(t)
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2025, 1, 1, 3, 0, 0, 0, loc)
	assert.True(t, s.IsOffHours(ts))
}

func TestScoreIsMonotonicAndBounded(t *testing.T) {
	s := newDefault(t)
	events := []string{models.EventRootDetected, models.EventHookingAttempt, models.EventEmulatorDetected, models.EventDebuggerAttached, "other"}
	for _, ev := range events {
		plain := s.Score(ev, "France", noon)
		country := s.Score(ev, "USA", noon)
		night := s.Score(ev, "France", noon.Add(-9*time.Hour))
		assert.Equal(t, plain+10, country)
		assert.Equal(t, plain+5, night)
		for _, got := range []int{plain, country, night} {
			assert.GreaterOrEqual(t, got, 10)
			assert.LessOrEqual(t, got, MaxScore)
		}
	}
}

func TestScoreClampsAtMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseScores = map[string]int{"jailbreak": 95}
	s, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 95, s.Score("jailbreak", "", noon))
	assert.Equal(t, 100, s.Score("jailbreak", "USA", noon))
	assert.Equal(t, 100, s.Score("jailbreak", "USA", noon.Add(-10*time.Hour)))
}

func TestLevelBoundaries(t *testing.T) {
	s := newDefault(t)
	cases := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{25, models.RiskLow},
		{26, models.RiskMedium},
		{50, models.RiskMedium},
		{51, models.RiskHigh},
		{75, models.RiskHigh},
		{76, models.RiskCritical},
		{100, models.RiskCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.Level(tc.score), "score %d", tc.score)
	}
}

func TestRangeMatchesLevel(t *testing.T) {
	s := newDefault(t)
	for _, level := range models.RiskLevels() {
		lo, hi := s.Range(level)
		for score := 0; score <= MaxScore; score++ {
			inRange := score >= lo && score <= hi
			assert.Equal(t, inRange, s.Level(score) == level, "level %s score %d", level, score)
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"unordered levels":   func(c *Config) { c.Levels = Thresholds{Medium: 50, High: 40, Critical: 76} },
		"critical above max": func(c *Config) { c.Levels = Thresholds{Medium: 26, High: 51, Critical: 101} },
		"negative base":      func(c *Config) { c.BaseScores = map[string]int{"x": -1} },
		"bad off-hours":      func(c *Config) { c.OffHours = OffHours{Before: 6, After: 30, Bonus: 5} },
		"before past 23":     func(c *Config) { c.OffHours.Before = 24 },
		"negative after":     func(c *Config) { c.OffHours.After = -1 },
		"negative bonus":     func(c *Config) { c.HighRiskBonus = -1 },
		"negative default":   func(c *Config) { c.DefaultScore = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewKeepsExplicitZeroWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultScore = 0
	cfg.HighRiskBonus = 0
	cfg.OffHours.Bonus = 0
	s, err := New(cfg)
	require.NoError(t, err)

	late := time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, s.Score(models.EventRootDetected, "USA", late))
	assert.Equal(t, 0, s.Score("unknown", "USA", late))
}

func TestNewRejectsZeroConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestYAMLKeepsDefaultsPerField(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("off_hours: { bonus: 8 }\nhigh_risk_bonus: 0\n"), &cfg))

	assert.Equal(t, OffHours{Before: 6, After: 22, Bonus: 8}, cfg.OffHours)
	assert.Equal(t, 0, cfg.HighRiskBonus)
	assert.Equal(t, DefaultConfig().Levels, cfg.Levels)
	assert.Equal(t, 10, cfg.DefaultScore)

	s, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, s.IsOffHours(noon))
	assert.Equal(t, 30, s.Score(models.EventRootDetected, "USA", noon))
	assert.Equal(t, 38, s.Score(models.EventRootDetected, "USA", noon.Add(11*time.Hour)))
}

func TestYAMLOverridesListsAndMergesBaseScores(t *testing.T) {
	var cfg Config
	doc := "base_scores: { root_detected: 50, jailbreak: 60 }\nhigh_risk_countries: [France]\n"
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))

	assert.Equal(t, []string{"France"}, cfg.HighRiskCountries)
	assert.Equal(t, 50, cfg.BaseScores[models.EventRootDetected])
	assert.Equal(t, 60, cfg.BaseScores["jailbreak"])
	assert.Equal(t, 25, cfg.BaseScores[models.EventHookingAttempt])
}

func TestAnnotateIsolatesMalformedRows(t *testing.T) {
	s := newDefault(t)
	events := []models.Event{
		{Row: 2, Timestamp: noon, Event: models.EventHookingAttempt, Country: "USA", Device: "a"},
		{Row: 3, Event: models.EventRootDetected, Country: "USA", Device: "b"},
		{Row: 4, Timestamp: noon, Event: models.EventRootDetected, Country: "Brazil", Device: "c"},
	}

	scored, failures := s.Annotate(events)
	require.Len(t, scored, 2)
	require.Len(t, failures, 1)

	var malformed *MalformedEventError
	require.True(t, errors.As(failures[0], &malformed))
	assert.Equal(t, 3, malformed.Row)
	assert.Contains(t, failures[0].Error(), "row 3")

	assert.Equal(t, 35, scored[0].RiskScore)
	assert.Equal(t, models.RiskMedium, scored[0].RiskLevel)
	assert.Equal(t, "c", scored[1].Device)
	assert.Equal(t, models.EventHookingAttempt, events[0].Event, "input is not mutated")
}

func TestAnnotateEmpty(t *testing.T) {
	scored, failures := newDefault(t).Annotate(nil)
	assert.Empty(t, scored)
	assert.Empty(t, failures)
}
