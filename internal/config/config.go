package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	PatientCount   int      `mapstructure:"PATIENT_COUNT"`
	Seed           int64    `mapstructure:"SEED"`
	ForestTrees    int      `mapstructure:"FOREST_TREES"`
	TrainOnStart   bool     `mapstructure:"TRAIN_ON_START"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	AuthSecret     string   `mapstructure:"AUTH_SECRET"`
	LogFile        string   `mapstructure:"LOG_FILE"`
	LogMaxSizeMB   int      `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int      `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays  int      `mapstructure:"LOG_MAX_AGE_DAYS"`
	SimWindow      int      `mapstructure:"SIM_WINDOW"`
	SimBatch       int      `mapstructure:"SIM_BATCH"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "PATIENT_COUNT", "SEED", "FOREST_TREES", "TRAIN_ON_START",
	"CORS_ORIGINS", "AUTH_SECRET", "LOG_FILE", "LOG_MAX_SIZE_MB",
	"LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS", "SIM_WINDOW", "SIM_BATCH",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("PATIENT_COUNT", 1000)
	v.SetDefault("SEED", 0) // 0 -> time-based seed
	v.SetDefault("FOREST_TREES", 100)
	v.SetDefault("TRAIN_ON_START", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_MAX_SIZE_MB", 5)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("SIM_WINDOW", 100)
	v.SetDefault("SIM_BATCH", 15)
	v.SetDefault("RATE_LIMIT_RPS", 0.5)
	v.SetDefault("RATE_LIMIT_BURST", 3)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AuthEnabled reports whether mutating routes require a signed token.
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

// ResolvedSeed returns the configured seed, or a time-based one when SEED is 0.
func (c *Config) ResolvedSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}

// Validate checks that the configuration is safe to run. In production
// AUTH_SECRET must be set so that the write routes are protected.
func (c *Config) Validate() error {
	if c.PatientCount <= 0 {
		return fmt.Errorf("PATIENT_COUNT must be positive, got %d", c.PatientCount)
	}
	if c.ForestTrees <= 0 {
		return fmt.Errorf("FOREST_TREES must be positive, got %d", c.ForestTrees)
	}
	if c.SimBatch <= 0 {
		return fmt.Errorf("SIM_BATCH must be positive, got %d", c.SimBatch)
	}
	if c.SimWindow < c.SimBatch {
		return fmt.Errorf("SIM_WINDOW (%d) must be at least SIM_BATCH (%d)", c.SimWindow, c.SimBatch)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.IsProduction() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required in production")
	}
	return nil
}
