package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socdash/config"
	"socdash/internal/alerts"
	"socdash/internal/output/alertjson"
	"socdash/internal/risk"
	"socdash/pkg/models"
)

const eventsCSV = `timestamp,event,country,device,package
2025-05-01 10:00:00,emulator_detected,USA,dev-a,com.example.bank
2025-05-01 10:01:00,emulator_detected,USA,dev-b,com.example.bank
not-a-time,root_detected,France,dev-c,com.example.bank
2025-05-01 10:02:00,emulator_detected,USA,dev-c,com.example.bank
2025-05-01 23:30:00,root_detected,Germany,dev-a,com.example.bank
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte(eventsCSV), 0644))
	return path
}

func fileConfig(path string) *config.Config {
	cfg := config.Default()
	cfg.SocDash.Input.File.Path = path
	return cfg
}

func TestLoadFromFile(t *testing.T) {
	p, err := FromConfig(fileConfig(writeCSV(t)))
	require.NoError(t, err)
	defer p.Close()

	ds, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())
	require.Len(t, ds.Failures(), 1)

	var malformed *risk.MalformedEventError
	require.True(t, errors.As(ds.Failures()[0], &malformed))
	assert.Equal(t, 4, malformed.Row)

	events := ds.Events()
	last := events[len(events)-1]
	assert.Equal(t, "dev-a", last.Device)
	assert.Equal(t, 45, last.RiskScore)
	assert.Equal(t, models.RiskMedium, last.RiskLevel)
}

func TestLoadMissingFile(t *testing.T) {
	p, err := FromConfig(fileConfig(filepath.Join(t.TempDir(), "missing.csv")))
	require.NoError(t, err)
	_, err = p.Load(context.Background())
	assert.Error(t, err)
}

func TestFromConfigRejectsBadScoring(t *testing.T) {
	cfg := fileConfig("events.csv")
	cfg.SocDash.Scoring.Levels = risk.Thresholds{Medium: 50, High: 40, Critical: 90}
	_, err := FromConfig(cfg)
	assert.Error(t, err)
}

func TestFromConfigLoadsRules(t *testing.T) {
	dir := t.TempDir()
	rule := `title: Night root
logsource:
  product: android
detection:
  selection:
    event: root_detected
    country: Germany
  condition: selection
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "night.yml"), []byte(rule), 0644))

	cfg := fileConfig(writeCSV(t))
	cfg.SocDash.Rules = config.RulesConfig{Enabled: true, Path: dir}
	p, err := FromConfig(cfg)
	require.NoError(t, err)

	ds, err := p.Load(context.Background())
	require.NoError(t, err)
	var tagged []string
	for _, ev := range ds.Events() {
		tagged = append(tagged, ev.Tags...)
	}
	assert.Equal(t, []string{"Night root"}, tagged)
}

func TestLoadFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := mr.RPush("insights_events",
		`{"timestamp":"2025-05-01T10:00:00Z","event":"hooking_attempt","country":"USA","device":"dev-a"}`,
		`{"event":"hooking_attempt"}`,
	)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.SocDash.Input.Mode = config.InputModeRedis
	cfg.SocDash.Input.Redis.Addr = mr.Addr()
	p, err := FromConfig(cfg)
	require.NoError(t, err)
	defer p.Close()

	ds, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Len(t, ds.Failures(), 1)
	assert.Equal(t, 35, ds.Events()[0].RiskScore)
}

func TestNewSourceRejectsUnknownMode(t *testing.T) {
	_, _, err := NewSource(config.InputConfig{Mode: "kafka"})
	assert.Error(t, err)
}

func TestRunAlertsWritesJSONLines(t *testing.T) {
	p, err := FromConfig(fileConfig(writeCSV(t)))
	require.NoError(t, err)
	ds, err := p.Load(context.Background())
	require.NoError(t, err)

	ac := config.Default().SocDash.Alerts
	ac.Threshold = 3
	ac.Label = "Emu"
	detector, err := alerts.NewDetector(DetectorConfig(ac))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "alerts.jsonl")
	writer, err := alertjson.NewWriter(out)
	require.NoError(t, err)

	res, err := RunAlerts(ds, detector, writer)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "USA", res.Alerts[0].Group)
	assert.Equal(t, 3, res.Alerts[0].Count)
	assert.Equal(t, "Emu≥3 in 5 min", res.Alerts[0].Rule)
	assert.True(t, res.Alerts[0].Time.Equal(time.Date(2025, 5, 1, 10, 2, 0, 0, time.UTC)))
	assert.Equal(t, 1, writer.Written())
}
