package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const envPrefix = "SALESDASH"

// Config holds all application configuration.
type Config struct {
	LogLevel string

	SampleRows        int
	MinPriceHits      int
	HeaderSentinel    string
	MarketplaceDomain string

	TopN           int
	CacheSize      int
	MaxConcurrency int

	Listen string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	SQLitePath string
}

// Load reads an optional .env file, then the YAML config at path (or
// $HOME/.salesdash.yaml when path is empty), then SALESDASH_* environment
// variables. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".salesdash")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read home config: %w", err)
			}
		}
	}

	cfg := decode(v)
	return cfg, cfg.Validate()
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return decode(v)
}

func decode(v *viper.Viper) *Config {
	return &Config{
		LogLevel: v.GetString("log_level"),

		SampleRows:        v.GetInt("sample_rows"),
		MinPriceHits:      v.GetInt("min_price_hits"),
		HeaderSentinel:    v.GetString("header_sentinel"),
		MarketplaceDomain: v.GetString("marketplace_domain"),

		TopN:           v.GetInt("top_n"),
		CacheSize:      v.GetInt("cache_size"),
		MaxConcurrency: v.GetInt("max_concurrency"),

		Listen: v.GetString("listen"),

		PostgresHost:     v.GetString("postgres.host"),
		PostgresPort:     v.GetString("postgres.port"),
		PostgresUser:     v.GetString("postgres.user"),
		PostgresPassword: v.GetString("postgres.password"),
		PostgresDB:       v.GetString("postgres.db"),
		PostgresSSLMode:  v.GetString("postgres.sslmode"),
		MaxRetries:       v.GetInt("postgres.max_retries"),

		SQLitePath: v.GetString("sqlite_path"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("sample_rows", 50)
	v.SetDefault("min_price_hits", 3)
	v.SetDefault("header_sentinel", "keyword")
	v.SetDefault("marketplace_domain", "ebay.com")

	v.SetDefault("top_n", 30)
	v.SetDefault("cache_size", 32)
	v.SetDefault("max_concurrency", 4)

	v.SetDefault("listen", ":8080")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "sales")
	v.SetDefault("postgres.password", "sales123")
	v.SetDefault("postgres.db", "sales_db")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_retries", 5)

	v.SetDefault("sqlite_path", "./output/sales.sqlite")
}

// Validate checks that numeric settings are in range.
func (c *Config) Validate() error {
	switch {
	case c.SampleRows <= 0:
		return fmt.Errorf("config: sample_rows must be > 0")
	case c.MinPriceHits <= 0:
		return fmt.Errorf("config: min_price_hits must be > 0")
	case c.MarketplaceDomain == "":
		return fmt.Errorf("config: marketplace_domain is required")
	case c.TopN <= 0:
		return fmt.Errorf("config: top_n must be > 0")
	case c.CacheSize <= 0:
		return fmt.Errorf("config: cache_size must be > 0")
	case c.MaxConcurrency <= 0:
		return fmt.Errorf("config: max_concurrency must be > 0")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
