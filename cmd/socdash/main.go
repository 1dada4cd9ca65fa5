package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"socdash/config"
	"socdash/internal/logger"
)

const defaultConfigName = "socdash.yml"

var (
	configArg string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:           "socdash",
	Short:         "Mobile security telemetry dashboard",
	Long:          "Scores mobile app security events, serves dashboard views over HTTP and runs the rolling-window alert rule.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configArg, "config", "c", "", "config file (default: ./socdash.yml, then next to the binary)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with SOCDASH_* overrides")

	rootCmd.AddCommand(serveCmd, scoreCmd, alertsCmd, exportCmd, generateCmd)
}

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	if exePath, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(exePath), defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadConfig resolves, loads and validates the configuration, then starts
// the logger. Without a config file the built-in defaults are used.
func loadConfig() (*config.Config, error) {
	path := findConfigFile(configArg)

	cfg := config.New()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		cfg.SocDash.Logging = config.LoggingConfig{Enabled: true, Console: true}
	}
	config.ApplyDefaults(cfg)
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	l := cfg.SocDash.Logging
	if err := logger.Init(l.Enabled, l.Level, l.File, l.Console); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if path != "" {
		logger.Infof("Config loaded from: %s", path)
	} else {
		logger.Infof("No %s found, using defaults", defaultConfigName)
	}
	return cfg, nil
}

func main() {
	err := rootCmd.Execute()
	logger.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
