package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// Config holds all server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	JWT     JWTConfig     `yaml:"jwt"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Dataset DatasetConfig `yaml:"dataset"`
	Adjust  AdjustConfig  `yaml:"adjust"`
	Costs   CostsConfig   `yaml:"costs"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host           string `yaml:"host" env:"FACTORYLAB_HOST"`
	Port           int    `yaml:"port" env:"FACTORYLAB_PORT"`
	MaxConnections int    `yaml:"max_connections" env:"FACTORYLAB_MAX_CONNECTIONS"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer" env:"FACTORYLAB_JWT_ISSUER"`
	PublicKeyURL        string `yaml:"public_key_url" env:"FACTORYLAB_JWT_PUBLIC_KEY_URL"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours" env:"FACTORYLAB_JWT_PUBLIC_KEY_REFRESH_HOURS"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address" env:"FACTORYLAB_REDIS_ADDRESS"`
	Password        string `yaml:"password" env:"FACTORYLAB_REDIS_PASSWORD"`
	DB              int    `yaml:"db" env:"FACTORYLAB_REDIS_DB"`
	BlacklistPrefix string `yaml:"blacklist_prefix" env:"FACTORYLAB_REDIS_BLACKLIST_PREFIX"`
}

// CacheConfig holds adjusted dataset cache settings
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" env:"FACTORYLAB_CACHE_ENABLED"`
	Prefix     string `yaml:"prefix" env:"FACTORYLAB_CACHE_PREFIX"`
	TTLSeconds int    `yaml:"ttl_seconds" env:"FACTORYLAB_CACHE_TTL_SECONDS"`
}

// StoreConfig holds the settings preset database location
type StoreConfig struct {
	Path string `yaml:"path" env:"FACTORYLAB_STORE_PATH"`
}

// DatasetConfig holds the dataset file location
type DatasetConfig struct {
	Path string `yaml:"path" env:"FACTORYLAB_DATASET_PATH"`
}

// AdjustConfig holds the numeric rules of recipe adjustment.
// Fractions are written as text, e.g. "1/5".
type AdjustConfig struct {
	EffectFloor    string  `yaml:"effect_floor" env:"FACTORYLAB_EFFECT_FLOOR"`
	MinTime        string  `yaml:"min_time" env:"FACTORYLAB_MIN_TIME"`
	TicksPerSecond string  `yaml:"ticks_per_second" env:"FACTORYLAB_TICKS_PER_SECOND"`
	Workers        int     `yaml:"workers" env:"FACTORYLAB_WORKERS"`
	FloatTolerance float64 `yaml:"float_tolerance" env:"FACTORYLAB_FLOAT_TOLERANCE"`
}

// CostsConfig holds the default recipe cost weights
type CostsConfig struct {
	Factor  string `yaml:"factor" env:"FACTORYLAB_COST_FACTOR"`
	Machine string `yaml:"machine" env:"FACTORYLAB_COST_MACHINE"`
	Module  string `yaml:"module" env:"FACTORYLAB_COST_MODULE"`
	Beacon  string `yaml:"beacon" env:"FACTORYLAB_COST_BEACON"`
}

// Load reads configuration from a YAML file, then applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// FromEnv builds a configuration from environment variables only
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// setDefaults fills values not provided by the file or environment
func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = 1000
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "blacklist:"
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "factorylab:adjusted:"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 3600
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./data/presets.db"
	}
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = "./data/factorio.json"
	}
	if cfg.Adjust.EffectFloor == "" {
		cfg.Adjust.EffectFloor = "1/5"
	}
	if cfg.Adjust.MinTime == "" {
		cfg.Adjust.MinTime = "1/60"
	}
	if cfg.Adjust.TicksPerSecond == "" {
		cfg.Adjust.TicksPerSecond = "60"
	}
	if cfg.Adjust.Workers == 0 {
		cfg.Adjust.Workers = 8
	}
	if cfg.Adjust.FloatTolerance == 0 {
		cfg.Adjust.FloatTolerance = rational.DefaultTolerance
	}
	if cfg.Costs.Factor == "" {
		cfg.Costs.Factor = "1"
	}
	if cfg.Costs.Machine == "" {
		cfg.Costs.Machine = "1"
	}
	if cfg.Costs.Module == "" {
		cfg.Costs.Module = "0"
	}
	if cfg.Costs.Beacon == "" {
		cfg.Costs.Beacon = "0"
	}
}

// AdjusterConfig converts the adjust and costs sections into adjuster rules
func (cfg *Config) AdjusterConfig() (adjust.Config, error) {
	var out adjust.Config
	fields := []struct {
		name   string
		value  string
		target *rational.Rational
	}{
		{"adjust.effect_floor", cfg.Adjust.EffectFloor, &out.Floor},
		{"adjust.min_time", cfg.Adjust.MinTime, &out.MinTime},
		{"adjust.ticks_per_second", cfg.Adjust.TicksPerSecond, &out.TicksPerSecond},
		{"costs.factor", cfg.Costs.Factor, &out.Costs.Factor},
		{"costs.machine", cfg.Costs.Machine, &out.Costs.Machine},
		{"costs.module", cfg.Costs.Module, &out.Costs.Module},
		{"costs.beacon", cfg.Costs.Beacon, &out.Costs.Beacon},
	}
	for _, f := range fields {
		v, err := rational.Parse(f.value)
		if err != nil {
			return adjust.Config{}, fmt.Errorf("invalid %s %q: %w", f.name, f.value, err)
		}
		*f.target = v
	}

	if out.Floor.Sign() <= 0 || out.Floor.Gt(rational.One) {
		return adjust.Config{}, fmt.Errorf("invalid adjust.effect_floor %s: must be in (0, 1]", out.Floor)
	}
	out.Workers = cfg.Adjust.Workers
	out.Tolerance = cfg.Adjust.FloatTolerance
	return out, nil
}
