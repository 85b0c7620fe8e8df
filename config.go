package streamrt

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hostgpu/go-stream-runtime/core"
	"github.com/hostgpu/go-stream-runtime/observability/zaplog"
)

// Config is the file/env-loadable runtime configuration. Every field has a
// working default, so an empty config is valid.
type Config struct {
	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`

	// SpinBackoffMin / SpinBackoffMax bound the worker's randomized idle
	// spin (inclusive).
	SpinBackoffMin int `mapstructure:"spin_backoff_min"`
	SpinBackoffMax int `mapstructure:"spin_backoff_max"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Backend: "zap" or "stdlib"
	Backend string `mapstructure:"backend"`
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json (zap backend only)
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Backend: "stdlib",
			Level:   "info",
			Format:  "console",
		},
		SpinBackoffMin: core.DefaultSpinBackoffMin,
		SpinBackoffMax: core.DefaultSpinBackoffMax,
	}
}

// LoadConfig reads configuration from the given file (YAML; optional, pass
// "" to skip) with STREAMRT_* environment variables taking precedence,
// e.g. STREAMRT_LOG_LEVEL=debug or STREAMRT_SPIN_BACKOFF_MAX=64.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("log.backend", def.Log.Backend)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("spin_backoff_min", def.SpinBackoffMin)
	v.SetDefault("spin_backoff_max", def.SpinBackoffMax)

	v.SetEnvPrefix("STREAMRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.SpinBackoffMin <= 0 || cfg.SpinBackoffMax < cfg.SpinBackoffMin {
		return Config{}, fmt.Errorf("invalid spin backoff bounds [%d, %d]",
			cfg.SpinBackoffMin, cfg.SpinBackoffMax)
	}
	return cfg, nil
}

// Options converts the config into runtime options, constructing the
// configured logger backend.
func (c Config) Options() core.Options {
	opts := core.DefaultOptions()
	opts.SpinBackoffMin = c.SpinBackoffMin
	opts.SpinBackoffMax = c.SpinBackoffMax

	if strings.ToLower(c.Log.Backend) == "zap" {
		opts.Logger = zaplog.New(c.Log.Level, c.Log.Format)
	}
	return opts
}
