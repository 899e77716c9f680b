// Package config loads the server configuration from config.yaml, a .env file
// and MEMORIA_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mentesana/memoria/internal/domain/deck"
)

// EnvPrefix is prepended to every environment override, e.g.
// MEMORIA_SERVER_ADDRESS.
const EnvPrefix = "MEMORIA"

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // empty allows any origin
}

type GameConfig struct {
	RevealDelay       time.Duration `mapstructure:"reveal_delay"`
	DefaultDifficulty string        `mapstructure:"default_difficulty"`
}

type StorageConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// CacheConfig configures the Redis leaderboard cache. An empty RedisAddr
// disables caching.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Enabled reports whether a Redis address is configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// Difficulty returns the parsed default difficulty.
func (g GameConfig) Difficulty() deck.Difficulty {
	d, _ := deck.ParseDifficulty(g.DefaultDifficulty)
	return d
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("game.reveal_delay", "1s")
	v.SetDefault("game.default_difficulty", string(deck.DifficultyEasy))
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "memoria.db")
	v.SetDefault("storage.max_open_conns", 8)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("log.debug", false)
}

// Load reads the configuration. searchPaths are the directories probed for
// config.yaml and .env; they default to "." and "./config". Missing files are
// not an error.
func Load(searchPaths ...string) (*Config, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./config"}
	}

	for _, dir := range searchPaths {
		envFile := filepath.Join(dir, ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range searchPaths {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
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

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage.driver %q: want sqlite or postgres", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage.dsn must not be empty")
	}
	if c.Game.RevealDelay <= 0 {
		return fmt.Errorf("game.reveal_delay must be positive, got %s", c.Game.RevealDelay)
	}
	if _, ok := deck.ParseDifficulty(c.Game.DefaultDifficulty); !ok {
		return fmt.Errorf("invalid game.default_difficulty %q", c.Game.DefaultDifficulty)
	}
	if c.Cache.Enabled() && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}
