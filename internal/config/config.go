package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration. Nothing here changes protocol
// behavior; it only controls the side channels around it.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// DiscoveryConfig controls node announcement to etcd. No endpoints
// disables it.
type DiscoveryConfig struct {
	Endpoints []string      `mapstructure:"endpoints"`
	Prefix    string        `mapstructure:"prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
	TTL       int64         `mapstructure:"ttl"`
}

func (d DiscoveryConfig) Enabled() bool {
	return len(d.Endpoints) > 0
}

// Load reads configuration into v from defaults, an optional YAML file and
// GLOMERS_* environment variables, in increasing precedence. Flags bound to
// v beforehand win over all of them.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("GLOMERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("discovery.endpoints", []string{})
	v.SetDefault("discovery.prefix", "/glomers/nodes")
	v.SetDefault("discovery.timeout", 2*time.Second)
	v.SetDefault("discovery.ttl", 30)
}

func validate(cfg *Config) error {
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format)
	}
	if cfg.Metrics.Addr != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path)
	}
	if cfg.Discovery.Enabled() {
		if cfg.Discovery.Prefix == "" {
			return errors.New("discovery.prefix is required when discovery is enabled")
		}
		if cfg.Discovery.TTL <= 0 {
			return fmt.Errorf("discovery.ttl must be positive, got %d", cfg.Discovery.TTL)
		}
		if cfg.Discovery.Timeout <= 0 {
			return fmt.Errorf("discovery.timeout must be positive, got %s", cfg.Discovery.Timeout)
		}
	}
	return nil
}
