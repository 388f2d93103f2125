package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/plan"
	sharedConfig "github.com/secforge/billing/internal/shared/config"
)

const envPrefix = "BILLING"

type Config struct {
	Server   sharedConfig.ServerConfig   `mapstructure:"server"`
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
	Auth     sharedConfig.AuthConfig     `mapstructure:"auth"`
	Redis    sharedConfig.RedisConfig    `mapstructure:"redis"`
	Cache    sharedConfig.CacheConfig    `mapstructure:"cache"`
	Payments sharedConfig.PaymentsConfig `mapstructure:"payments"`
	Catalog  sharedConfig.CatalogConfig  `mapstructure:"catalog"`
	Plans    sharedConfig.PlansConfig    `mapstructure:"plans"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml from the usual locations and overlays
// BILLING_* environment variables.
func Load(env string) (*Config, error) {
	return LoadFile("", env)
}

// LoadFile reads the given file, or searches the default locations when path
// is empty.
func LoadFile(path, env string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := config.Ladder(); err != nil {
		return nil, fmt.Errorf("invalid plans configuration: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Ladder builds the tier ladder from plans.tiers.
func (c *Config) Ladder() (*plan.Ladder, error) {
	tiers := make([]plan.Tier, 0, len(c.Plans.Tiers))
	for _, t := range c.Plans.Tiers {
		currency := t.Currency
		if currency == "" {
			currency = c.Payments.Currency
		}
		tiers = append(tiers, plan.Tier{
			Name:       t.Name,
			Price:      t.Price,
			Currency:   strings.ToUpper(currency),
			PeriodDays: t.PeriodDays,
		})
	}
	return plan.NewLadder(tiers, c.Plans.Default)
}

// Policy builds the catalog default policy.
func (c *Config) Policy() catalog.Policy {
	return catalog.NewPolicy(c.Catalog.FreeByDefault)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.payment_rate_limit", 30)

	// Database defaults
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.path", "billing.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "billing_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Auth defaults
	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "billing")
	v.SetDefault("auth.jwt.access_exp_minutes", 15)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 60)

	// Payments: credentials are empty by default, the server boots without them
	v.SetDefault("payments.provider", "razorpay")
	v.SetDefault("payments.mock", false)
	v.SetDefault("payments.key_id", "")
	v.SetDefault("payments.key_secret", "")
	v.SetDefault("payments.webhook_secret", "")
	v.SetDefault("payments.base_url", "https://api.razorpay.com")
	v.SetDefault("payments.timeout_seconds", 10)
	v.SetDefault("payments.currency", "INR")
	v.SetDefault("payments.signature_header", "X-Razorpay-Signature")
	v.SetDefault("payments.event_id_header", "X-Razorpay-Event-Id")

	v.SetDefault("catalog.free_by_default", []string{"challenge"})

	v.SetDefault("plans.default", "free")
	v.SetDefault("plans.tiers", []map[string]any{
		{"name": "free", "price": 0, "period_days": 0},
		{"name": "basic", "price": 19900, "period_days": 30},
		{"name": "pro", "price": 49900, "period_days": 30},
	})
}
