// Package config loads metricalg settings from a YAML file, METRICALG_
// environment variables and built-in defaults, in that order of precedence
// (environment wins over file).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/simplify"
)

// EnvPrefix is the prefix for environment overrides.
// METRICALG_SWEEP_MAX_TOTAL_TRUE sets sweep.max_total_true.
const EnvPrefix = "METRICALG"

// Backend names for Simplifier.Backend.
const (
	BackendRational = "rational"
	BackendCommand  = "command"
)

// Config holds all configuration settings.
type Config struct {
	Simplifier SimplifierConfig `mapstructure:"simplifier" yaml:"simplifier"`

	// Witness bounds the search for a differing matrix in `check --witness`.
	Witness BoundsConfig `mapstructure:"witness" yaml:"witness"`

	// Sweep is the default enumeration for `sweep`.
	Sweep BoundsConfig `mapstructure:"sweep" yaml:"sweep"`

	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// SimplifierConfig selects and tunes the simplification backend.
// Command and Args apply to the command backend only; Cache wraps either
// backend in a formula-keyed memo.
type SimplifierConfig struct {
	Backend  string        `mapstructure:"backend" yaml:"backend" validate:"oneof=rational command"`
	MaxTerms int           `mapstructure:"max_terms" yaml:"max_terms" validate:"gte=0"`
	Command  string        `mapstructure:"command" yaml:"command" validate:"required_if=Backend command"`
	Args     []string      `mapstructure:"args" yaml:"args"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	Cache    bool          `mapstructure:"cache" yaml:"cache"`
}

// BoundsConfig is a pair of class-total bounds, each in [1, 1000].
type BoundsConfig struct {
	MaxTotalTrue  int `mapstructure:"max_total_true" yaml:"max_total_true" validate:"gte=1,lte=1000"`
	MaxTotalFalse int `mapstructure:"max_total_false" yaml:"max_total_false" validate:"gte=1,lte=1000"`
}

// Bounds converts to the enumeration type.
func (b BoundsConfig) Bounds() confusion.Bounds {
	return confusion.Bounds{MaxTotalTrue: b.MaxTotalTrue, MaxTotalFalse: b.MaxTotalFalse}
}

// StoreConfig locates the results database.
type StoreConfig struct {
	// Path of the SQLite results database. Empty disables persistence.
	Path string `mapstructure:"path" yaml:"path"`
}

// CatalogConfig lists extra metric directories.
type CatalogConfig struct {
	// Dirs are loaded in order on top of the standard catalog.
	Dirs []string `mapstructure:"dirs" yaml:"dirs" validate:"dive,required"`
}

// LogConfig sets the minimum slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Simplifier: SimplifierConfig{
			Backend:  BackendRational,
			MaxTerms: simplify.DefaultMaxTerms,
			Timeout:  simplify.DefaultCommandTimeout,
			Cache:    true,
		},
		Witness: BoundsConfig{MaxTotalTrue: 3, MaxTotalFalse: 3},
		Sweep:   BoundsConfig{MaxTotalTrue: 5, MaxTotalFalse: 5},
		Log:     LogConfig{Level: "info"},
	}
}

// ConfigError reports settings that failed validation.
type ConfigError struct {
	Fields []string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Fields, "; "))
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return &ConfigError{Fields: fields, Err: err}
}

// Load reads configuration. With an empty path, metricalg.yaml is searched
// in the current directory and .metricalg/; a missing file is not an
// error. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metricalg")
		v.AddConfigPath(".")
		v.AddConfigPath(".metricalg")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("simplifier.backend", cfg.Simplifier.Backend)
	v.SetDefault("simplifier.max_terms", cfg.Simplifier.MaxTerms)
	v.SetDefault("simplifier.command", cfg.Simplifier.Command)
	v.SetDefault("simplifier.args", cfg.Simplifier.Args)
	v.SetDefault("simplifier.timeout", cfg.Simplifier.Timeout)
	v.SetDefault("simplifier.cache", cfg.Simplifier.Cache)
	v.SetDefault("witness.max_total_true", cfg.Witness.MaxTotalTrue)
	v.SetDefault("witness.max_total_false", cfg.Witness.MaxTotalFalse)
	v.SetDefault("sweep.max_total_true", cfg.Sweep.MaxTotalTrue)
	v.SetDefault("sweep.max_total_false", cfg.Sweep.MaxTotalFalse)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("catalog.dirs", cfg.Catalog.Dirs)
	v.SetDefault("log.level", cfg.Log.Level)
}
