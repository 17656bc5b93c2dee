package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AlirezaEivazi/Manage-Works/internal/utils"
)

// ConfigPathEnv names the optional YAML file applied before the environment.
const ConfigPathEnv = "MANAGEWORKS_CONFIG"

// Development defaults, refused when APP_ENV is production.
const (
	devJWTSecret         = "manageworks-dev-secret"
	defaultAdminPassword = "admin"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Seed      SeedConfig      `yaml:"seed"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	RequestsPerMin int `yaml:"requests_per_min"`
	BurstSize      int `yaml:"burst_size"`
	// LoginPerMin applies to POST /api/auth/login only.
	LoginPerMin int `yaml:"login_per_min"`
	// UserPerMin limits authenticated routes per username.
	UserPerMin int `yaml:"user_per_min"`
}

// RedisConfig is optional. An empty Addr keeps the login limiter in memory.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type NotifierConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	Lookahead time.Duration `yaml:"lookahead"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SeedConfig describes the Admin created at boot. AdminPasswordHash, when
// set, is a bcrypt hash used instead of AdminPassword.
type SeedConfig struct {
	AdminUsername     string `yaml:"admin_username"`
	AdminPassword     string `yaml:"admin_password"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: devJWTSecret,
			Issuer:    "manageworks",
			TokenTTL:  time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMin: 600,
			BurstSize:      50,
			LoginPerMin:    10,
			UserPerMin:     300,
		},
		Redis: RedisConfig{
			DialTimeout: 5 * time.Second,
		},
		Notifier: NotifierConfig{
			Enabled:   true,
			Interval:  5 * time.Minute,
			Lookahead: 24 * time.Hour,
			Timeout:   10 * time.Second,
		},
		Seed: SeedConfig{
			AdminUsername: "admin",
			AdminPassword: defaultAdminPassword,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (or $MANAGEWORKS_CONFIG), then environment variables. A .env file in
// the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ Failed to load .env: %v", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = utils.GetEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = utils.GetEnvAsInt("PORT", c.Server.Port)
	c.Server.Environment = utils.GetEnv("APP_ENV", c.Server.Environment)
	c.Server.ReadTimeout = utils.GetEnvAsDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = utils.GetEnvAsDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = utils.GetEnvAsDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Auth.JWTSecret = utils.GetEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = utils.GetEnv("JWT_ISSUER", c.Auth.Issuer)
	c.Auth.TokenTTL = utils.GetEnvAsDuration("JWT_TTL", c.Auth.TokenTTL)

	c.RateLimit.RequestsPerMin = utils.GetEnvAsInt("RATE_LIMIT_PER_MIN", c.RateLimit.RequestsPerMin)
	c.RateLimit.BurstSize = utils.GetEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)
	c.RateLimit.LoginPerMin = utils.GetEnvAsInt("LOGIN_RATE_LIMIT_PER_MIN", c.RateLimit.LoginPerMin)
	c.RateLimit.UserPerMin = utils.GetEnvAsInt("USER_RATE_LIMIT_PER_MIN", c.RateLimit.UserPerMin)

	c.Redis.Addr = utils.GetEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = utils.GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = utils.GetEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Notifier.Enabled = utils.GetEnvAsBool("NOTIFY_ENABLED", c.Notifier.Enabled)
	c.Notifier.Interval = utils.GetEnvAsDuration("NOTIFY_INTERVAL", c.Notifier.Interval)
	c.Notifier.Lookahead = utils.GetEnvAsDuration("NOTIFY_LOOKAHEAD", c.Notifier.Lookahead)
	c.Notifier.Timeout = utils.GetEnvAsDuration("NOTIFY_TIMEOUT", c.Notifier.Timeout)

	c.Seed.AdminUsername = utils.GetEnv("ADMIN_USERNAME", c.Seed.AdminUsername)
	c.Seed.AdminPassword = utils.GetEnv("ADMIN_PASSWORD", c.Seed.AdminPassword)
	c.Seed.AdminPasswordHash = utils.GetEnv("ADMIN_PASSWORD_HASH", c.Seed.AdminPasswordHash)

	c.CORS.AllowOrigins = utils.GetEnvAsSlice("CORS_ALLOW_ORIGINS", c.CORS.AllowOrigins)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.RateLimit.RequestsPerMin <= 0 || c.RateLimit.BurstSize <= 0 || c.RateLimit.LoginPerMin <= 0 || c.RateLimit.UserPerMin <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.Notifier.Interval <= 0 || c.Notifier.Lookahead <= 0 || c.Notifier.Timeout <= 0 {
		return errors.New("notifier durations must be positive")
	}
	if strings.TrimSpace(c.Seed.AdminUsername) == "" || (c.Seed.AdminPassword == "" && c.Seed.AdminPasswordHash == "") {
		return errors.New("seed admin credentials are required")
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == devJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.Seed.AdminPasswordHash == "" && c.Seed.AdminPassword == defaultAdminPassword {
			return errors.New("default admin password is not allowed in production")
		}
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
