package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreGorm   = "gorm"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	WhitelistOrigins []string
	WhitelistAdmins  []string

	DatabaseURL string

	JWTAccessSecret    []byte
	JWTRefreshSecret   []byte
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	DefaultResLimit  int
	DefaultResOffset int
	RateLimit        int

	TokenStore    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
	MongoDB       string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

func (c *Config) IsProduction() bool  { return c.Env == "production" }
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// IsAdminEmail reports whether email may register with the admin role.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.WhitelistAdmins {
		if strings.ToLower(a) == email {
			return true
		}
	}
	return false
}

// Load reads .env (when present) and the process environment. Missing
// secrets, expiries or database settings are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:     EnvDefault("PORT", "3000"),
		Env:      EnvDefault("APP_ENV", "development"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		WhitelistOrigins: CSV(os.Getenv("WHITELIST_ORIGINS")),
		WhitelistAdmins:  CSV(os.Getenv("WHITELIST_ADMINS_MAIL")),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		DefaultResLimit:  EnvIntDefault("DEFAULT_RES_LIMIT", 20),
		DefaultResOffset: EnvIntDefault("DEFAULT_RES_OFFSET", 0),
		RateLimit:        EnvIntDefault("RATE_LIMIT", 60),

		TokenStore:    strings.ToLower(EnvDefault("TOKEN_STORE", StoreGorm)),
		RedisAddr:     EnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       EnvDefault("MONGO_DB", "blog-db"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "blogs"),
	}

	if len(cfg.JWTAccessSecret) == 0 {
		errs = append(errs, missing("JWT_ACCESS_SECRET"))
	}
	if len(cfg.JWTRefreshSecret) == 0 {
		errs = append(errs, missing("JWT_REFRESH_SECRET"))
	}

	var err error
	if cfg.AccessTokenExpiry, err = requiredDuration("ACCESS_TOKEN_EXPIRY"); err != nil {
		errs = append(errs, err)
	}
	if cfg.RefreshTokenExpiry, err = requiredDuration("REFRESH_TOKEN_EXPIRY"); err != nil {
		errs = append(errs, err)
	}

	switch cfg.TokenStore {
	case StoreGorm, StoreMemory, StoreRedis:
	case StoreMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, missing("MONGO_URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore))
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, missing("DATABASE_URL"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func missing(name string) error {
	return fmt.Errorf("missing required env %s", name)
}

func requiredDuration(name string) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, missing(name)
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
