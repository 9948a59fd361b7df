// config/config.go
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	DBName    string `yaml:"dbname"`
	BatchSize int    `yaml:"batch_size"`
}

// SourceConfig describes where the air-quality extract lives: a local path
// for one-shot ingestion, and the portal URLs used by the refresh flow.
type SourceConfig struct {
	Path            string `yaml:"path"`
	CSVURL          string `yaml:"csv_url"`
	PageURL         string `yaml:"page_url"`
	UpdatedSelector string `yaml:"updated_selector"`
	DownloadDir     string `yaml:"download_dir"`
}

type ValidationConfig struct {
	RequiredFields []string `yaml:"required_fields"`
	NumericFields  []string `yaml:"numeric_fields"`
	DateFields     []string `yaml:"date_fields"`
}

type DeduplicationConfig struct {
	Enabled bool     `yaml:"enabled"`
	Keys    []string `yaml:"keys"`
}

type AppConfig struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// TestingConfig holds knobs that only exist to exercise the pipeline.
// force_reject appends a copy of the first record with its name blanked so a
// run always produces at least one reject.
type TestingConfig struct {
	ForceReject bool `yaml:"force_reject"`
}

type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Source        SourceConfig        `yaml:"data_source"`
	Validation    ValidationConfig    `yaml:"validation"`
	Deduplication DeduplicationConfig `yaml:"deduplication"`
	Testing       TestingConfig       `yaml:"testing"`
}

// Default field lists for the NYC air-quality extract. Used whenever the
// config file leaves the validation section empty.
var (
	DefaultRequiredFields = []string{
		"unique_id",
		"indicator_id",
		"name",
		"geo_type_name",
		"geo_place_name",
		"start_date",
	}
	DefaultNumericFields = []string{"data_value"}
	DefaultDateFields    = []string{"start_date"}
	DefaultDedupKeys     = []string{"unique_id", "indicator_id", "geo_place_name", "start_date"}
)

const DefaultBatchSize = 500

// LoadConfig reads the yaml config file, applies defaults, and then lets the
// environment (optionally seeded from a .env file) override the database
// credentials so they never have to live in the yaml.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}
	// Defaults that yaml only overrides when the key is present.
	cfg.Deduplication.Enabled = true
	cfg.Database.BatchSize = DefaultBatchSize
	cfg.App.LogLevel = "info"

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Validation.RequiredFields) == 0 {
		cfg.Validation.RequiredFields = DefaultRequiredFields
	}
	if len(cfg.Validation.NumericFields) == 0 {
		cfg.Validation.NumericFields = DefaultNumericFields
	}
	if len(cfg.Validation.DateFields) == 0 {
		cfg.Validation.DateFields = DefaultDateFields
	}
	if len(cfg.Deduplication.Keys) == 0 {
		cfg.Deduplication.Keys = DefaultDedupKeys
	}
	if cfg.Database.BatchSize <= 0 {
		cfg.Database.BatchSize = DefaultBatchSize
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides loads .env if present and lets DB_* variables win over
// whatever the yaml said.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load() // a missing .env file is fine

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
}
