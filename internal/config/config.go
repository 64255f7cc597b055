// Package config loads swirl settings from .swirl.yaml, SWIRL_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/swirl/internal/expr"
)

// Defaults for settings not given anywhere else.
const (
	DefaultEnvPath   = "swirl/swirlenv"
	DefaultCachePath = "swirl/cache"
	DefaultOwner     = "client@guest"
	DefaultFormat    = "text"
	DefaultDebounce  = 100 * time.Millisecond
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "SWIRL"

// Config holds all runtime configuration for a swirl invocation.
type Config struct {
	EnvPath   string        `mapstructure:"envpath"`   // Record directory
	CachePath string        `mapstructure:"cachepath"` // Cache directory
	Owner     string        `mapstructure:"owner"`     // Owner of created macros
	Format    string        `mapstructure:"format"`    // "json" | "text"
	Verbose   bool          `mapstructure:"verbose"`
	Seed      uint64        `mapstructure:"seed"` // Self-test sampler seed
	MaxDepth  int           `mapstructure:"max_depth"`
	MaxSteps  int           `mapstructure:"max_steps"`
	Debounce  time.Duration `mapstructure:"debounce"` // Watch debounce window
}

// Limits returns the evaluation limits.
func (c Config) Limits() expr.Limits {
	return expr.Limits{MaxDepth: c.MaxDepth, MaxSteps: c.MaxSteps}
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("envpath", DefaultEnvPath)
	v.SetDefault("cachepath", DefaultCachePath)
	v.SetDefault("owner", DefaultOwner)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("verbose", false)
	v.SetDefault("seed", 0)
	v.SetDefault("max_depth", expr.DefaultLimits.MaxDepth)
	v.SetDefault("max_steps", expr.DefaultLimits.MaxSteps)
	v.SetDefault("debounce", DefaultDebounce)
}

// Load reads configuration into a Config. When configFile is empty,
// .swirl.yaml is searched for in the working directory and then the home
// directory, and a missing file is not an error. An explicit configFile must
// exist. Flags bound to v with BindPFlag take precedence over both.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".swirl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		return Config{}, fmt.Errorf("invalid format %q: must be one of [text json]", cfg.Format)
	}
	return cfg, nil
}
