package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName         = "Banka"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultLoginRateLimit  = 5
	defaultAdminUsername   = "admin"
	defaultAdminPassword   = "admin"
	defaultInterestPeriod  = 30
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	developmentEnv         = "development"
)

// Products holds the default terms applied when an account is opened without
// explicit parameters.
type Products struct {
	SavingsInterestRate decimal.Decimal
	SavingsDailyLimit   decimal.Decimal
	StudentInterestRate decimal.Decimal
	StudentDailyLimit   decimal.Decimal
	StudentSingleLimit  decimal.Decimal
	CreditLimit         decimal.Decimal
	CreditInterestRate  decimal.Decimal
	CreditGraceDays     int
}

// DefaultProducts returns the standard account terms.
func DefaultProducts() Products {
	return Products{
		SavingsInterestRate: decimal.RequireFromString("0.03"),
		SavingsDailyLimit:   decimal.NewFromInt(1000),
		StudentInterestRate: decimal.RequireFromString("0.05"),
		StudentDailyLimit:   decimal.NewFromInt(500),
		StudentSingleLimit:  decimal.NewFromInt(200),
		CreditLimit:         decimal.NewFromInt(1000),
		CreditInterestRate:  decimal.RequireFromString("0.2"),
		CreditGraceDays:     30,
	}
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	LogFile            string
	DatabaseURL        string
	RedisURL           string
	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	JWTSecret          string
	RefreshSecret      string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	LoginRateLimit     int
	AdminUsername      string
	AdminPassword      string
	SimulatedTime      time.Time
	InterestPeriodDays int
	Products           Products
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFile:            os.Getenv("LOG_FILE"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		RefreshSecret:      os.Getenv("REFRESH_SECRET"),
		AdminUsername:      getEnv("ADMIN_USERNAME", defaultAdminUsername),
		AdminPassword:      getEnv("ADMIN_PASSWORD", defaultAdminPassword),
		LoginRateLimit:     defaultLoginRateLimit,
		InterestPeriodDays: defaultInterestPeriod,
		Products:           DefaultProducts(),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("", "ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("", "REFRESH_TOKEN_TTL", defaultRefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit, err = intEnv("LOGIN_RATE_LIMIT", cfg.LoginRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.InterestPeriodDays, err = intEnv("INTEREST_PERIOD_DAYS", cfg.InterestPeriodDays); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SIMULATED_TIME"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SIMULATED_TIME: %w", err)
		}
		cfg.SimulatedTime = t.UTC()
	}

	p := &cfg.Products
	for _, d := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"SAVINGS_INTEREST_RATE", &p.SavingsInterestRate},
		{"SAVINGS_DAILY_LIMIT", &p.SavingsDailyLimit},
		{"STUDENT_INTEREST_RATE", &p.StudentInterestRate},
		{"STUDENT_DAILY_LIMIT", &p.StudentDailyLimit},
		{"STUDENT_SINGLE_LIMIT", &p.StudentSingleLimit},
		{"CREDIT_LIMIT", &p.CreditLimit},
		{"CREDIT_INTEREST_RATE", &p.CreditInterestRate},
	} {
		if *d.dst, err = decimalEnv(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}
	if p.CreditGraceDays, err = intEnv("CREDIT_GRACE_DAYS", p.CreditGraceDays); err != nil {
		return Config{}, err
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "dev-refresh-secret"
	}

	return cfg, nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, developmentEnv)
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv prefers a whole-seconds variable over a Go duration string.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func decimalEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
