package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tisops-insights-go/internal/registry"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "./tisops.db", cfg.DBDSN)
	assert.Equal(t, 32, cfg.MaxUploadMB)
	assert.NotNil(t, cfg.Location)
	assert.Contains(t, cfg.StatusTiers.L3, registry.DefaultStatus)
	assert.NotEmpty(t, cfg.StatusTiers.L2)
	assert.False(t, cfg.SlackConfigured())
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	writeConfig(t, `
port: "9000"
db_driver: sqlite3
db_dsn: /tmp/x.db
timezone: America/Lima
weekly_report_schedule: "0 8 * * 5"
status_tiers:
  l2: ["Resolved by L2"]
  l3: ["Dev in Progress"]
`)
	t.Setenv("PORT", "9100")
	t.Setenv("STATUS_TIERS_L2", "In L2 Analysis, Closed ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBDSN)
	assert.Equal(t, []string{"In L2 Analysis", "Closed"}, cfg.StatusTiers.L2)
	assert.Equal(t, []string{registry.DefaultStatus, "Dev in Progress"}, cfg.StatusTiers.L3)

	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)
	assert.Equal(t, lima.String(), cfg.Location.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown driver", yaml: "db_driver: postgres\ndb_dsn: x\n"},
		{name: "mysql without dsn", yaml: "db_driver: mysql\n"},
		{name: "bad timezone", yaml: "timezone: Mars/Olympus\n"},
		{name: "bad schedule", yaml: "weekly_report_schedule: every friday\n"},
		{name: "bad upload size", yaml: "", env: map[string]string{"MAX_UPLOAD_MB": "lots"}},
		{name: "broken yaml", yaml: "port: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.yaml)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("0 8 * * 5")
	require.NoError(t, err)
	from := time.Date(2025, 11, 26, 12, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.Equal(t, 8, next.Hour())
}
