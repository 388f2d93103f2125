package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// PaymentRateLimit is POST /payments requests per user per minute; 0 disables it.
	PaymentRateLimit int `mapstructure:"payment_rate_limit"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects MySQL (the default) or a SQLite file for
// single-node installs.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite" || d.Driver == "sqlite3"
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig controls the access decision cache.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

func (c *CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// PaymentsConfig holds payment provider credentials and behaviour switches.
// Missing credentials do not prevent the server from starting.
type PaymentsConfig struct {
	Provider        string `mapstructure:"provider"`
	Mock            bool   `mapstructure:"mock"`
	KeyID           string `mapstructure:"key_id"`
	KeySecret       string `mapstructure:"key_secret"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	BaseURL         string `mapstructure:"base_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	Currency        string `mapstructure:"currency"`
	SignatureHeader string `mapstructure:"signature_header"`
	EventIDHeader   string `mapstructure:"event_id_header"`
}

func (p *PaymentsConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type CatalogConfig struct {
	FreeByDefault []string `mapstructure:"free_by_default"`
}

type TierConfig struct {
	Name       string `mapstructure:"name"`
	Price      int64  `mapstructure:"price"`
	Currency   string `mapstructure:"currency"`
	PeriodDays int    `mapstructure:"period_days"`
}

// PlansConfig lists tiers from lowest to highest rank.
type PlansConfig struct {
	Tiers   []TierConfig `mapstructure:"tiers"`
	Default string       `mapstructure:"default"`
}
