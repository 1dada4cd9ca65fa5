package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socdash/pkg/models"
)

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(explicit, []byte("socdash: {}\n"), 0644))
	assert.Equal(t, explicit, findConfigFile(explicit))

	origWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	assert.Equal(t, "", findConfigFile(filepath.Join(dir, "missing.yml")))

	require.NoError(t, os.WriteFile(defaultConfigName, []byte("socdash: {}\n"), 0644))
	assert.Equal(t, defaultConfigName, findConfigFile(""))
}

func newFilterCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFilterFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestFilterFromFlags(t *testing.T) {
	cmd := newFilterCmd(t,
		"--from", "2025-05-01", "--to", "2025-05-03",
		"--country", "USA,Germany", "--country", "France",
		"--level", "high", "--event", "root_detected",
	)
	f, err := filterFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, []string{"USA", "Germany", "France"}, f.Countries)
	assert.Equal(t, []models.RiskLevel{models.RiskHigh}, f.Levels)
	assert.Equal(t, []string{models.EventRootDetected}, f.Events)
}

func TestFilterFromFlagsRejectsBadDate(t *testing.T) {
	_, err := filterFromFlags(newFilterCmd(t, "--from", "yesterday"))
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "score", "alerts", "export", "generate"} {
		assert.Contains(t, names, want)
	}
}
