// Package config provides configuration management for scriptlet using
// Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// Configuration comes from .scriptlet.yml, environment variables with the
// SCRIPTLET_ prefix, and bound flags. Four options (cache.ttl,
// security.denied_functions, security.max_nesting_depth,
// security.max_expression_length) are recognized and surfaced but advisory:
// they are not enforced by the pipeline, and enforcing them would change
// which existing templates are accepted.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/scriptlet/internal/errors"
)

// Config is the full recognized configuration surface.
type Config struct {
	// Enabled is the master switch. When false the runtime returns every
	// template unchanged.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Debug turns on operator logging of rejected or errored compilations.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Security SecurityConfig `yaml:"security" mapstructure:"security"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CacheConfig controls the persistent cache tier.
type CacheConfig struct {
	// Enabled controls whether the persistent tier is consulted/written.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Dir is the persistent tier's root directory.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// TTL in seconds. 0 means no expiration. Advisory: not enforced.
	TTL int `yaml:"ttl" mapstructure:"ttl"`
}

// SecurityConfig extends the expression security policy.
type SecurityConfig struct {
	// AdditionalAllowedFunctions are unioned into the allow-set at startup.
	AdditionalAllowedFunctions []string `yaml:"additional_allowed_functions" mapstructure:"additional_allowed_functions"`
	// DeniedFunctions is recognized but advisory: not enforced.
	DeniedFunctions []string `yaml:"denied_functions" mapstructure:"denied_functions"`
	// MaxNestingDepth is recognized but advisory: not enforced.
	MaxNestingDepth int `yaml:"max_nesting_depth" mapstructure:"max_nesting_depth"`
	// MaxExpressionLength is recognized but advisory: not enforced.
	MaxExpressionLength int `yaml:"max_expression_length" mapstructure:"max_expression_length"`
}

// StoreConfig locates the template store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Enabled: true,
		Debug:   false,
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".scriptlet/cache",
			TTL:     0,
		},
		Store: StoreConfig{
			Path: "./templates",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8420,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// EnvKeyReplacer maps nested config keys to SCRIPTLET_* variable names,
// e.g. server.port -> SCRIPTLET_SERVER_PORT.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// SetDefaults registers the defaults with viper so env/file overrides layer
// on top of them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load unmarshals the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("cannot read configuration: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the components cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewConfigError("server.port out of range")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.NewConfigError("cache.dir must be set when cache.enabled")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.NewConfigError("store.path must be set")
	}
	if c.Cache.TTL < 0 {
		return errors.NewConfigError("cache.ttl must not be negative")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.NewConfigError("log.format must be text or json")
	}
	return nil
}
