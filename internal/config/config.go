package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ecostim/internal/errors"
)

// Config represents the complete application configuration. All design
// parameters are plain scalars.
type Config struct {
	Design  DesignConfig  `yaml:"design"`
	Paths   PathConfig    `yaml:"paths"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// DesignConfig holds the construction parameters
type DesignConfig struct {
	Seed        int64 `yaml:"seed"`
	TargetTotal int   `yaml:"target_total"`
	PerCell     int   `yaml:"per_cell"` // 0 derives floor(target_total/4)
	NTrials     int   `yaml:"n_trials"`
	MaxRepeats  int   `yaml:"max_repeats"`
	Blocks      int   `yaml:"blocks"`
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir       string `yaml:"data_dir"`
	NameOverrides string `yaml:"name_overrides"`
}

// StoreConfig selects the SQL backend for runs and responses
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig holds delivery API settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the parameters the original experiment ran with.
func Default() *Config {
	return &Config{
		Design: DesignConfig{
			Seed:        637,
			TargetTotal: 240,
			NTrials:     160,
			MaxRepeats:  5,
			Blocks:      4,
		},
		Paths:   PathConfig{DataDir: "data"},
		Store:   StoreConfig{Driver: "sqlite"},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// Load reads configuration: defaults, then envFile (if present), then the
// environment, then the YAML params file when paramsFile is non-empty.
func Load(envFile, paramsFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load env file %s", envFile)
		}
	}

	cfg := Default()
	applyEnv(cfg)

	if paramsFile != "" {
		if err := mergeFile(cfg, paramsFile); err != nil {
			return nil, err
		}
	}

	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = filepath.Join(cfg.Paths.DataDir, "ecostim.sqlite")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	d := &cfg.Design
	d.Seed = getEnvInt64OrDefault("ECOSTIM_SEED", d.Seed)
	d.TargetTotal = getEnvIntOrDefault("ECOSTIM_TARGET_TOTAL", d.TargetTotal)
	d.PerCell = getEnvIntOrDefault("ECOSTIM_PER_CELL", d.PerCell)
	d.NTrials = getEnvIntOrDefault("ECOSTIM_N_TRIALS", d.NTrials)
	d.MaxRepeats = getEnvIntOrDefault("ECOSTIM_MAX_REPEATS", d.MaxRepeats)
	d.Blocks = getEnvIntOrDefault("ECOSTIM_BLOCKS", d.Blocks)

	cfg.Paths.DataDir = getEnvOrDefault("ECOSTIM_DATA_DIR", cfg.Paths.DataDir)
	cfg.Paths.NameOverrides = getEnvOrDefault("ECOSTIM_NAME_OVERRIDES", cfg.Paths.NameOverrides)
	cfg.Store.Driver = getEnvOrDefault("ECOSTIM_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnvOrDefault("ECOSTIM_STORE_DSN", cfg.Store.DSN)
	cfg.Server.Addr = getEnvOrDefault("ECOSTIM_HTTP_ADDR", cfg.Server.Addr)
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
}

func mergeFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read params file %s", path)
	}
	// decoding into the populated struct keeps fields the file omits
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse params file %s", path))
	}
	return nil
}

// Validate rejects parameters no construction can run with.
func (c *Config) Validate() error {
	d := c.Design
	if d.TargetTotal <= 0 && d.PerCell <= 0 {
		return errors.ConfigInvalid("target_total or per_cell must be positive")
	}
	if d.PerCell < 0 {
		return errors.ConfigInvalid("per_cell cannot be negative")
	}
	if d.NTrials <= 0 {
		return errors.ConfigInvalid("n_trials must be positive")
	}
	if d.MaxRepeats <= 0 {
		return errors.ConfigInvalid("max_repeats must be positive")
	}
	if d.Blocks <= 0 {
		return errors.ConfigInvalid("blocks must be positive")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigInvalid("store driver must be sqlite or postgres, got " + c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return errors.ConfigInvalid("ECOSTIM_STORE_DSN is required for postgres")
	}
	return nil
}

// PerCellTarget resolves the single-item quota: explicit per_cell, else floor(target_total/4).
func (d DesignConfig) PerCellTarget() int {
	if d.PerCell > 0 {
		return d.PerCell
	}
	return d.TargetTotal / 4
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
