package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"tisops-insights-go/internal/registry"
	"tisops-insights-go/internal/types"
)

type Config struct {
	Port string `yaml:"port"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	RegistrySeedPath string `yaml:"registry_seed_path"`
	ReportOutputDir  string `yaml:"report_output_dir"`
	MaxUploadMB      int    `yaml:"max_upload_mb"`

	WeeklyReportSchedule string `yaml:"weekly_report_schedule"`
	SlackBotToken        string `yaml:"slack_bot_token"`
	SlackChannelID       string `yaml:"slack_channel_id"`

	StatusTiers types.StatusTiers `yaml:"status_tiers"`
	Timezone    string            `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone
}

var defaultTiers = types.StatusTiers{
	L2: []string{"In L2 Analysis", "Pending User Response", "Resolved by L2", "Closed"},
	L3: []string{registry.DefaultStatus, "Dev in Progress", "In Testing", "Ready for Deploy", "Deployed"},
}

// Load reads config.yaml (or CONFIG_PATH), applies env overrides, fills
// defaults and validates.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", configPath, err)
	}

	envOverride(&cfg.Port, "PORT")
	envOverride(&cfg.DBDriver, "DB_DRIVER")
	envOverride(&cfg.DBDSN, "DB_DSN")
	envOverride(&cfg.RegistrySeedPath, "REGISTRY_SEED_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.WeeklyReportSchedule, "WEEKLY_REPORT_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.Timezone, "TIMEZONE")
	if err := envOverrideInt(&cfg.MaxUploadMB, "MAX_UPLOAD_MB"); err != nil {
		return Config{}, err
	}
	envOverrideList(&cfg.StatusTiers.L2, "STATUS_TIERS_L2")
	envOverrideList(&cfg.StatusTiers.L3, "STATUS_TIERS_L3")

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite3"
	}
	if cfg.DBDSN == "" && cfg.DBDriver == "sqlite3" {
		cfg.DBDSN = "./tisops.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 32
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if len(cfg.StatusTiers.L2) == 0 {
		cfg.StatusTiers.L2 = defaultTiers.L2
	}
	if len(cfg.StatusTiers.L3) == 0 {
		cfg.StatusTiers.L3 = defaultTiers.L3
	}
	// the fallback status must always count as L3
	if !slices.Contains(cfg.StatusTiers.L3, registry.DefaultStatus) {
		cfg.StatusTiers.L3 = append([]string{registry.DefaultStatus}, cfg.StatusTiers.L3...)
	}

	switch cfg.DBDriver {
	case "sqlite3", "mysql":
	default:
		return Config{}, fmt.Errorf("db_driver must be 'sqlite3' or 'mysql', got '%s'", cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("db_dsn is required when db_driver=%s", cfg.DBDriver)
	}
	if cfg.MaxUploadMB < 1 {
		return Config{}, fmt.Errorf("invalid max_upload_mb '%d': must be >= 1", cfg.MaxUploadMB)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
		cfg.Timezone = time.Local.String()
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if s := strings.TrimSpace(cfg.WeeklyReportSchedule); s != "" {
		if _, err := ParseSchedule(s); err != nil {
			return Config{}, fmt.Errorf("invalid weekly_report_schedule '%s': %w", s, err)
		}
	}

	return cfg, nil
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(s string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(s))
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			*field = append(*field, item)
		}
	}
}
