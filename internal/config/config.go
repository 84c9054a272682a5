package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Search    SearchConfig    `mapstructure:"search"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Cast      CastConfig      `mapstructure:"cast"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// RateLimit is the per-client request rate on the API. Zero disables it.
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SearchConfig controls the aggregator.
type SearchConfig struct {
	// ProviderTimeout bounds every single provider call.
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// LocalLimit caps the rows the local adapter reads from the datastore.
	LocalLimit int `mapstructure:"local_limit"`
}

// ProvidersConfig holds settings for the external catalog sources.
type ProvidersConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Douban            DoubanConfig  `mapstructure:"douban"`
	TMDB              TMDBConfig    `mapstructure:"tmdb"`
	OMDB              OMDBConfig    `mapstructure:"omdb"`
	YouTube           YouTubeConfig `mapstructure:"youtube"`
}

// DoubanConfig holds Douban suggest API configuration.
type DoubanConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// YouTubeConfig holds trailer scraping configuration.
type YouTubeConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

// CacheConfig holds response cache configuration.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	MaxItems int           `mapstructure:"max_items"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CastConfig holds casting configuration.
type CastConfig struct {
	ConnectDelay time.Duration `mapstructure:"connect_delay"`
	DevicesFile  string        `mapstructure:"devices_file"`
	RefreshCron  string        `mapstructure:"refresh_cron"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			RateLimit:      10,
			RateLimitBurst: 20,
		},
		Database: DatabaseConfig{
			Path: "./data/reelhouse.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Search: SearchConfig{
			ProviderTimeout: 5 * time.Second,
			LocalLimit:      500,
		},
		Providers: ProvidersConfig{
			UserAgent:         DefaultUserAgent,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Douban: DoubanConfig{
				Enabled: true,
				BaseURL: "https://movie.douban.com",
			},
			TMDB: TMDBConfig{
				APIKey:       EmbeddedTMDBKey,
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p",
			},
			OMDB: OMDBConfig{
				APIKey:  EmbeddedOMDBKey,
				BaseURL: "https://www.omdbapi.com/",
			},
			YouTube: YouTubeConfig{
				Enabled:    true,
				BaseURL:    "https://www.youtube.com",
				MaxResults: 5,
			},
		},
		Cache: CacheConfig{
			TTL:      time.Hour,
			MaxItems: 1000,
		},
		Cast: CastConfig{
			ConnectDelay: 2 * time.Second,
			RefreshCron:  "*/5 * * * *",
		},
	}
}

// DefaultUserAgent is sent to external sources unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// LoadDotEnv loads environment variables from .env files. Missing files are ignored
// and variables already present in the environment are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelhouse")
	}

	v.SetEnvPrefix("REELHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults mirrors Default() into viper so env-only keys resolve.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("search.provider_timeout", d.Search.ProviderTimeout)
	v.SetDefault("search.local_limit", d.Search.LocalLimit)

	v.SetDefault("providers.user_agent", d.Providers.UserAgent)
	v.SetDefault("providers.timeout", d.Providers.Timeout)
	v.SetDefault("providers.requests_per_second", d.Providers.RequestsPerSecond)
	v.SetDefault("providers.douban.enabled", d.Providers.Douban.Enabled)
	v.SetDefault("providers.douban.base_url", d.Providers.Douban.BaseURL)
	v.SetDefault("providers.tmdb.api_key", d.Providers.TMDB.APIKey)
	v.SetDefault("providers.tmdb.base_url", d.Providers.TMDB.BaseURL)
	v.SetDefault("providers.tmdb.image_base_url", d.Providers.TMDB.ImageBaseURL)
	v.SetDefault("providers.omdb.api_key", d.Providers.OMDB.APIKey)
	v.SetDefault("providers.omdb.base_url", d.Providers.OMDB.BaseURL)
	v.SetDefault("providers.youtube.enabled", d.Providers.YouTube.Enabled)
	v.SetDefault("providers.youtube.base_url", d.Providers.YouTube.BaseURL)
	v.SetDefault("providers.youtube.max_results", d.Providers.YouTube.MaxResults)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_items", d.Cache.MaxItems)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("cast.connect_delay", d.Cast.ConnectDelay)
	v.SetDefault("cast.devices_file", "")
	v.SetDefault("cast.refresh_cron", d.Cast.RefreshCron)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
