package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	ExternalAPI ExternalAPIConfig `mapstructure:"external_api"`
	Fines       FinesConfig       `mapstructure:"fines"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CacheConfig struct {
	CooldownMinutes  int `mapstructure:"cooldown_minutes"`
	SweepIntervalMin int `mapstructure:"sweep_interval_minutes"`
}

type OCRConfig struct {
	ServiceURL    string  `mapstructure:"service_url"`
	ConfidenceMin float64 `mapstructure:"confidence_min"`
	// Minimum detection confidence required before a fine may be issued.
	FineConfidenceMin float64 `mapstructure:"fine_confidence_min"`
}

type ExternalAPIConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	SyntheticFallback bool   `mapstructure:"synthetic_fallback"`
}

type FinesConfig struct {
	RoadTaxAmount    float64 `mapstructure:"road_tax_amount"`
	InsuranceAmount  float64 `mapstructure:"insurance_amount"`
	ScanLogRetention int     `mapstructure:"scan_log_retention_days"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "platewatch")
	v.SetDefault("database.password", "platewatch")
	v.SetDefault("database.name", "platewatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("cache.cooldown_minutes", 5)
	v.SetDefault("cache.sweep_interval_minutes", 10)
	v.SetDefault("ocr.service_url", "http://localhost:8090")
	v.SetDefault("ocr.confidence_min", 0.7)
	v.SetDefault("ocr.fine_confidence_min", 0.9)
	v.SetDefault("external_api.base_url", "http://localhost:8001/api")
	v.SetDefault("external_api.timeout_seconds", 5)
	v.SetDefault("external_api.synthetic_fallback", true)
	v.SetDefault("fines.road_tax_amount", 150.00)
	v.SetDefault("fines.insurance_amount", 300.00)
	v.SetDefault("fines.scan_log_retention_days", 30)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PLATEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) CacheCooldown() time.Duration {
	return time.Duration(c.Cache.CooldownMinutes) * time.Minute
}

func (c *Config) ExternalAPITimeout() time.Duration {
	return time.Duration(c.ExternalAPI.TimeoutSeconds) * time.Second
}
