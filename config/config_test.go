package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socdash/internal/risk"
)

const sampleYAML = `socdash:
  input:
    mode: redis
    redis: { addr: "10.0.0.5:6379", key: events, batch: 100 }
  scoring:
    high_risk_countries: [France]
    off_hours: { before: 7, after: 21, bonus: 3 }
  alerts:
    window: 10m
    threshold: 3
    group_by: device
  server: { addr: ":9090", read_timeout: 5s }
  logging: { enabled: true, level: debug, console: true }
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "socdash.yml", sampleYAML))
	require.NoError(t, err)
	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))

	c := cfg.SocDash
	assert.Equal(t, InputModeRedis, c.Input.Mode)
	assert.Equal(t, "10.0.0.5:6379", c.Input.Redis.Addr)
	assert.Equal(t, int64(100), c.Input.Redis.Batch)
	assert.Equal(t, []string{"France"}, c.Scoring.HighRiskCountries)
	assert.Equal(t, 7, c.Scoring.OffHours.Before)
	assert.Equal(t, 10*time.Minute, c.Alerts.Window)
	assert.Equal(t, 3, c.Alerts.Threshold)
	assert.Equal(t, "device", c.Alerts.GroupBy)
	assert.Equal(t, "emulator_detected", c.Alerts.TriggerEvent)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, c.Server.WriteTimeout)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadConfigKeepsUnsetScoringFields(t *testing.T) {
	body := "socdash:\n  scoring:\n    off_hours: { bonus: 8 }\n    high_risk_bonus: 0\n  alerts:\n    label: Emu\n"
	cfg, err := LoadConfig(writeFile(t, "socdash.yml", body))
	require.NoError(t, err)

	s := cfg.SocDash.Scoring
	assert.Equal(t, risk.OffHours{Before: 6, After: 22, Bonus: 8}, s.OffHours)
	assert.Equal(t, 0, s.HighRiskBonus)
	assert.Equal(t, 10, s.DefaultScore)
	assert.Equal(t, "Emu", cfg.SocDash.Alerts.Label)

	scorer, err := risk.New(s)
	require.NoError(t, err)
	noon := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, scorer.Score("root_detected", "USA", noon))
}

func TestLoadConfigWithoutScoringUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "socdash.yml", "socdash:\n  input: { mode: file }\n"))
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultConfig(), cfg.SocDash.Scoring)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.yml", "socdash: [unclosed"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	c := cfg.SocDash
	assert.Equal(t, InputModeFile, c.Input.Mode)
	assert.Equal(t, "insights_events.csv", c.Input.File.Path)
	assert.Equal(t, 5*time.Minute, c.Alerts.Window)
	assert.Equal(t, 10, c.Alerts.Threshold)
	assert.Equal(t, "country", c.Alerts.GroupBy)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.SocDash.Input.Mode = "kafka"
	assert.Error(t, Validate(cfg))
}

func TestApplyEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "SOCDASH_LISTEN_ADDR=:7000\n")
	t.Setenv(EnvDataPath, "/data/events.csv")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvListenAddr, "")
	os.Unsetenv(EnvListenAddr)

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, envFile))

	c := cfg.SocDash
	assert.Equal(t, "/data/events.csv", c.Input.File.Path)
	assert.Equal(t, "redis:6379", c.Input.Redis.Addr)
	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, "warn", c.Logging.Level)
}

func TestApplyEnvMissingFile(t *testing.T) {
	cfg := Default()
	assert.NoError(t, ApplyEnv(cfg, filepath.Join(t.TempDir(), ".env")))
}
