// Package config loads engine settings from an optional config file,
// KALIMAX_* environment variables and bound command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/logging"
	"github.com/valpere/kalimax-triage/internal/risk"
)

const EnvPrefix = "KALIMAX"

type Config struct {
	DB     string         `mapstructure:"db"`
	Log    logging.Config `mapstructure:"log"`
	Queue  QueueConfig    `mapstructure:"queue"`
	Batch  BatchConfig    `mapstructure:"batch"`
	Report ReportConfig   `mapstructure:"report"`
	Sweep  SweepConfig    `mapstructure:"sweep"`
	Risk   RiskConfig     `mapstructure:"risk"`
}

type QueueConfig struct {
	Limit              int  `mapstructure:"limit"`
	IncludeExpressions bool `mapstructure:"include_expressions"`
}

type BatchConfig struct {
	Size      int    `mapstructure:"size"`
	ExportDir string `mapstructure:"export_dir"`
}

type ReportConfig struct {
	Path       string `mapstructure:"path"`
	QueueLimit int    `mapstructure:"queue_limit"`
}

type SweepConfig struct {
	WriteBatch int `mapstructure:"write_batch"`
}

// RiskConfig extends the built-in rule set.
type RiskConfig struct {
	ExtraRules     []risk.RuleSpec `mapstructure:"extra_rules"`
	LoadStoreTerms bool            `mapstructure:"load_store_terms"`
}

// New returns a viper instance with defaults and environment lookup set up.
// Nested keys map to variables such as KALIMAX_BATCH_SIZE.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "./data/kalimax.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("queue.limit", 50)
	v.SetDefault("queue.include_expressions", false)

	v.SetDefault("batch.size", 20)
	v.SetDefault("batch.export_dir", "./batches")

	v.SetDefault("report.path", "./reports/curation_report.json")
	v.SetDefault("report.queue_limit", 0)

	v.SetDefault("sweep.write_batch", risk.DefaultWriteBatch)

	v.SetDefault("risk.load_store_terms", true)
}

// Load reads path when it is set, then decodes and validates the merged
// settings of v.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DB) == "":
		return fmt.Errorf("%w: db path is required", internal.ErrInvalidArgument)
	case c.Queue.Limit < 0:
		return fmt.Errorf("%w: queue.limit must not be negative", internal.ErrInvalidArgument)
	case c.Batch.Size <= 0:
		return fmt.Errorf("%w: batch.size must be positive", internal.ErrInvalidArgument)
	case c.Report.QueueLimit < 0:
		return fmt.Errorf("%w: report.queue_limit must not be negative", internal.ErrInvalidArgument)
	case c.Sweep.WriteBatch <= 0:
		return fmt.Errorf("%w: sweep.write_batch must be positive", internal.ErrInvalidArgument)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
