package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"socdash/internal/risk"
)

// Config is the root configuration.
type Config struct {
	SocDash SocDashConfig `yaml:"socdash"`
}

// SocDashConfig is the project configuration.
type SocDashConfig struct {
	Input   InputConfig   `yaml:"input"`
	Scoring risk.Config   `yaml:"scoring"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Rules   RulesConfig   `yaml:"rules"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig selects where events are loaded from.
type InputConfig struct {
	Mode  string          `yaml:"mode"` // file|redis
	File  FileInputConfig `yaml:"file"`
	Redis RedisConfig     `yaml:"redis"`
}

// FileInputConfig points at a CSV export.
type FileInputConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig controls Redis input.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	Batch    int64  `yaml:"batch"`
}

// AlertsConfig controls the rolling-window alert rule.
type AlertsConfig struct {
	TriggerEvent string           `yaml:"trigger_event"`
	Window       time.Duration    `yaml:"window"`
	Threshold    int              `yaml:"threshold"`
	GroupBy      string           `yaml:"group_by"`
	Label        string           `yaml:"label"`
	MaxGroups    int              `yaml:"max_groups"`
	Output       FileOutputConfig `yaml:"output"`
}

// RulesConfig controls Sigma tagging rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// Input modes.
const (
	InputModeFile  = "file"
	InputModeRedis = "redis"
)

// Environment overrides.
const (
	EnvDataPath   = "SOCDASH_DATA_PATH"
	EnvRedisAddr  = "SOCDASH_REDIS_ADDR"
	EnvListenAddr = "SOCDASH_LISTEN_ADDR"
	EnvLogLevel   = "SOCDASH_LOG_LEVEL"
)

// New returns an unset configuration whose scoring block already holds the
// default weights. Scoring keys present in a YAML document override them
// one by one.
func New() *Config {
	return &Config{SocDash: SocDashConfig{Scoring: risk.DefaultConfig()}}
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := New()
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	c := &cfg.SocDash
	if c.Input.Mode == "" {
		c.Input.Mode = InputModeFile
	}
	if c.Input.File.Path == "" {
		c.Input.File.Path = "insights_events.csv"
	}
	if c.Input.Redis.Addr == "" {
		c.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Input.Redis.Key == "" {
		c.Input.Redis.Key = "insights_events"
	}
	if c.Input.Redis.Batch <= 0 {
		c.Input.Redis.Batch = 500
	}
	if c.Alerts.TriggerEvent == "" {
		c.Alerts.TriggerEvent = "emulator_detected"
	}
	if c.Alerts.Window <= 0 {
		c.Alerts.Window = 5 * time.Minute
	}
	if c.Alerts.Threshold <= 0 {
		c.Alerts.Threshold = 10
	}
	if c.Alerts.GroupBy == "" {
		c.Alerts.GroupBy = "country"
	}
	if c.Rules.Path == "" {
		c.Rules.Path = "rules/"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// ApplyEnv loads envFile when it exists and applies SOCDASH_* overrides.
// Variables already set in the process environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	c := &cfg.SocDash
	if v := strings.TrimSpace(os.Getenv(EnvDataPath)); v != "" {
		c.Input.File.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		c.Input.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListenAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks values that have no sensible default.
func Validate(cfg *Config) error {
	switch cfg.SocDash.Input.Mode {
	case InputModeFile, InputModeRedis:
	default:
		return fmt.Errorf("unsupported input mode %q (want file or redis)", cfg.SocDash.Input.Mode)
	}
	return nil
}
