package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds SQLite database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SourceConfig holds the location of the input CSV distribution
type SourceConfig struct {
	// Dir is the directory holding nutrient.csv, food_category.csv, food.csv,
	// food_nutrient.csv and food_portion.csv
	Dir string `mapstructure:"dir"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

// ImporterConfig holds fact importer configuration
type ImporterConfig struct {
	BatchSize          int64        `mapstructure:"batch_size"`
	CheckpointInterval int64        `mapstructure:"checkpoint_interval"`
	Worker             WorkerConfig `mapstructure:"worker"`
}

// ClassifierConfig holds category classifier configuration
type ClassifierConfig struct {
	DefaultCategoryID int64 `mapstructure:"default_category_id"`
}

// VerifyConfig holds integrity verifier configuration
type VerifyConfig struct {
	// Strict makes integrity discrepancies fail the run instead of being
	// logged as warnings
	Strict bool `mapstructure:"strict"`
}

// BuilderConfig holds configuration for the builder program
type BuilderConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Source     SourceConfig     `mapstructure:"source"`
	Importer   ImporterConfig   `mapstructure:"importer"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Verify     VerifyConfig     `mapstructure:"verify"`
}

// VerifierConfig holds configuration for the standalone verify program
type VerifierConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Verify     VerifyConfig   `mapstructure:"verify"`
}

// LoadBuilderConfig loads configuration for the builder program
func LoadBuilderConfig(configFile string, envPath string) (*BuilderConfig, error) {
	v := configureViper("builder", configFile, envPath)

	// Set defaults
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("importer.batch_size", 100000)
	v.SetDefault("importer.checkpoint_interval", 500000)
	v.SetDefault("importer.worker.pool_size", 4)
	v.SetDefault("importer.worker.queue_size", 8)
	v.SetDefault("classifier.default_category_id", 1)
	v.SetDefault("verify.strict", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg BuilderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Database.Path == "" {
		return nil, errors.New("database.path is required")
	}
	if cfg.Source.Dir == "" {
		return nil, errors.New("source.dir is required")
	}
	if cfg.Importer.CheckpointInterval < cfg.Importer.BatchSize {
		return nil, errors.New("importer.checkpoint_interval must be >= importer.batch_size")
	}

	return &cfg, nil
}

// LoadVerifierConfig loads configuration for the verify program
func LoadVerifierConfig(configFile string, envPath string) (*VerifierConfig, error) {
	v := configureViper("verify", configFile, envPath)

	// Set defaults
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("verify.strict", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg VerifierConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Path == "" {
		return nil, errors.New("database.path is required")
	}

	return &cfg, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/builder/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FDC_BUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.path",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		// Source
		"source.dir",
		// Importer
		"importer.batch_size",
		"importer.checkpoint_interval",
		"importer.worker.pool_size",
		"importer.worker.queue_size",
		// Classifier
		"classifier.default_category_id",
		// Verify
		"verify.strict",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}
