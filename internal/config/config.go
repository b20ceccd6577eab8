// Package config loads settings from defaults, an optional config file and
// QUEENWATCH_* environment variables, in increasing precedence. Command-line
// flags are applied on top by the caller.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"queenwatch/internal/detector"
	"queenwatch/internal/engine"
)

const EnvPrefix = "QUEENWATCH"

type Config struct {
	EnginePath  string `mapstructure:"engine_path" validate:"required"`
	Depth       int    `mapstructure:"depth" validate:"min=1,max=40"`
	Threshold   int    `mapstructure:"threshold" validate:"min=1,max=10000"`
	Workers     int    `mapstructure:"workers" validate:"min=1,max=64"`
	Player      string `mapstructure:"player"`
	CacheDir    string `mapstructure:"cache_dir"`
	StoragePath string `mapstructure:"storage_path"`
	APIHost     string `mapstructure:"api_host"`
	APIPort     int    `mapstructure:"api_port" validate:"min=1,max=65535"`
	// RateLimit is requests per minute per client IP on the analysis endpoint
	RateLimit int  `mapstructure:"rate_limit" validate:"min=1"`
	Dev       bool `mapstructure:"dev"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine_path", engine.DefaultEngine)
	v.SetDefault("depth", detector.DefaultDepth)
	v.SetDefault("threshold", detector.DefaultThreshold)
	v.SetDefault("workers", 2)
	v.SetDefault("player", "")
	v.SetDefault("cache_dir", "")
	v.SetDefault("storage_path", "")
	v.SetDefault("api_host", "localhost")
	v.SetDefault("api_port", 8080)
	v.SetDefault("rate_limit", 10)
	v.SetDefault("dev", false)
}

// Load reads the configuration. cfgPath may be empty.
func Load(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DetectorOptions returns the detector settings of c
func (c *Config) DetectorOptions() detector.Options {
	return detector.Options{Depth: c.Depth, Threshold: c.Threshold}
}
