package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultJWTSecret = "default_super_secret_key"

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Reports     ReportsConfig
	AWS         AWSConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	SeedAdmin   SeedAdminConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int
	IdleTimeout  int
	CookieSecure bool
}

type DatabaseConfig struct {
	Driver       string // postgres, mysql or sqlite
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	Path         string // sqlite file
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int // minutes
	LogLevel     string
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type ReportsConfig struct {
	Store string // file, s3 or memory
	Dir   string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	S3Bucket        string
	S3Prefix        string
}

type CORSConfig struct {
	AllowOrigins []string
}

type RateLimitConfig struct {
	AuthPerMinute int
	AuthBurst     int
}

type LogConfig struct {
	Level  string
	Format string
}

type SeedAdminConfig struct {
	Username string
	Email    string
	Password string
}

// Load reads configs/.env when present and builds the configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Debug("No configs/.env file found, using process environment")
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			CookieSecure: getEnvAsBool("COOKIE_SECURE", false),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "pos"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			Path:         getEnv("DB_PATH", "pos.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 30),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenTTL:  time.Duration(getEnvAsInt("JWT_ACCESS_TTL_MINUTES", 30)) * time.Minute,
			RefreshTokenTTL: time.Duration(getEnvAsInt("JWT_REFRESH_TTL_HOURS", 24*7)) * time.Hour,
		},
		Reports: ReportsConfig{
			Store: getEnv("REPORTS_STORE", "file"),
			Dir:   getEnv("REPORTS_DIR", "reports"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
			S3Prefix:        getEnv("AWS_S3_PREFIX", "reports/"),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: getEnvAsInt("AUTH_RATE_PER_MINUTE", 10),
			AuthBurst:     getEnvAsInt("AUTH_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		SeedAdmin: SeedAdminConfig{
			Username: getEnv("SEED_ADMIN_USERNAME", "admin"),
			Email:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
			Password: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Reports.Store {
	case "file", "memory":
	case "s3":
		if c.AWS.S3Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required when REPORTS_STORE=s3")
		}
	default:
		return fmt.Errorf("unsupported REPORTS_STORE %q", c.Reports.Store)
	}

	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

// DSN builds the driver-specific connection string.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Path + "?_busy_timeout=5000"
	default:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
