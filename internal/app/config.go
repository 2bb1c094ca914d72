package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (ASIC_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ASIC_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `usage:"Redis URL for the sweep run lock (ASIC_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	Timezone     string `default:"UTC" usage:"IANA zone used to count order age in calendar days"`
	APIKeyPepper string `usage:"HMAC pepper for staff API keys (ASIC_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Delivery     DeliveryConfig
	Schedule     ScheduleConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// DeliveryConfig holds shipping and customs document prices.
type DeliveryConfig struct {
	AirRate   string `default:"50"  usage:"Air delivery cost"`
	SeaRate   string `default:"20"  usage:"Sea delivery cost"`
	GTDRBCost string `default:"15"  usage:"GTD RB customs document cost" flag:"gtd-rb-cost"`
	DTRFCost  string `default:"25"  usage:"DT RF customs document cost" flag:"dt-rf-cost"`
}

// Settings parses the configured prices.
func (c DeliveryConfig) Settings() (order.DeliverySettings, error) {
	var (
		s   order.DeliverySettings
		err error
	)
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"air rate", c.AirRate, &s.AirRate},
		{"sea rate", c.SeaRate, &s.SeaRate},
		{"GTD RB cost", c.GTDRBCost, &s.GTDRBCost},
		{"DT RF cost", c.DTRFCost, &s.DTRFCost},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return s, errors.Wrapf(err, "parse %s", f.name)
		}
		if f.dst.IsNegative() {
			return s, errors.Errorf("%s must not be negative", f.name)
		}
	}
	return s, nil
}

// ScheduleConfig controls the in-process status sweep.
type ScheduleConfig struct {
	// Interval of zero disables the in-process sweep; cmd/update-orders can
	// run it from cron instead.
	Interval time.Duration `default:"0s" usage:"In-process order status sweep interval (0 disables)" flag:"sweep-interval"`
	LockTTL  time.Duration `default:"10m" usage:"Run lock expiry" flag:"sweep-lock-ttl"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return loc, nil
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "ASIC",
		Files:     []string{"config.yaml", "/etc/asic/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ASIC_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.Delivery.Settings(); err != nil {
		return nil, errors.Wrap(err, "delivery")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's ASIC_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
