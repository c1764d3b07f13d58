package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"otp-gateway/pkg/utils"
)

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config is the process configuration, built once at startup
type Config struct {
	Env         string
	DebugRoutes bool

	Server   ServerConfig
	Database DatabaseConfig
	LiteLLM  LiteLLMConfig
	Stripe   StripeConfig
	Telegram TelegramConfig
	AuthKey  AuthKeyConfig
	CORS     CORSConfig
	Redis    RedisConfig
	OTP      OTPConfig
	Security SecurityConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port          string
	GinMode       string
	BackendOrigin string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Schema       string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns DATABASE_URL when set, otherwise a key=value DSN built from the parts
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LiteLLMConfig holds the upstream proxy admin API settings
type LiteLLMConfig struct {
	URL           string
	AdminKey      string
	Timeout       time.Duration
	HealthTimeout time.Duration
}

// StripeConfig holds billing provider credentials
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// MockMode reports whether checkout falls back to the development mock
func (c StripeConfig) MockMode() bool {
	return c.SecretKey == ""
}

// TelegramConfig holds the optional notification channel
type TelegramConfig struct {
	BotToken string
	ChatIDs  []string
}

// Enabled reports whether Telegram notifications are configured
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && len(c.ChatIDs) > 0
}

// AuthKeyConfig holds the optional AuthKey.io SMS channel
type AuthKeyConfig struct {
	URL         string
	APIKey      string
	TemplateID  string
	CountryCode string
	Company     string
}

// Enabled reports whether OTPs are sent by SMS
func (c AuthKeyConfig) Enabled() bool {
	return c.APIKey != "" && c.TemplateID != ""
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// RedisConfig holds the optional shared throttle store
type RedisConfig struct {
	URL string
}

// OTPConfig holds OTP lifetime and throttling
type OTPConfig struct {
	TTL        time.Duration
	SendLimit  int
	SendWindow time.Duration
}

// SecurityConfig holds at-rest encryption settings
type SecurityConfig struct {
	APIKeyEncryptionKey string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load builds a Config from the process environment
func Load() (*Config, error) {
	var errs []error

	env := utils.NormalizeEnvironment(os.Getenv("GO_ENV"))

	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			GinMode:       getEnv("GIN_MODE", "release"),
			BackendOrigin: strings.TrimRight(getEnv("BACKEND_ORIGINS", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "otp_gateway"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Schema:   getEnv("DB_SCHEMA", "login"),
		},
		LiteLLM: LiteLLMConfig{
			URL:      strings.TrimRight(getEnv("LITELLM_URL", "http://litellm:4000"), "/"),
			AdminKey: os.Getenv("ADMIN_KEY"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatIDs:  utils.SplitList(os.Getenv("TELEGRAM_CHAT_IDS")),
		},
		AuthKey: AuthKeyConfig{
			URL:         getEnv("AUTHKEY_URL", "https://api.authkey.io/request"),
			APIKey:      os.Getenv("AUTHKEY_API_KEY"),
			TemplateID:  os.Getenv("AUTHKEY_TEMPLATE_ID"),
			CountryCode: strings.TrimPrefix(getEnv("AUTHKEY_COUNTRY_CODE", "1"), "+"),
			Company:     getEnv("AUTHKEY_COMPANY", "LiteLLM"),
		},
		CORS: CORSConfig{
			AllowedOrigins: utils.SplitList(getEnv("FRONTEND_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Security: SecurityConfig{
			APIKeyEncryptionKey: os.Getenv("API_KEY_ENCRYPTION_KEY"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.LiteLLM.AdminKey == "" {
		errs = append(errs, errors.New("ADMIN_KEY environment variable is required"))
	}

	if !schemaPattern.MatchString(cfg.Database.Schema) {
		errs = append(errs, fmt.Errorf("DB_SCHEMA: invalid schema name %q", cfg.Database.Schema))
	}
	if cfg.Stripe.SecretKey != "" && cfg.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set"))
	}

	cfg.DebugRoutes = parseBool("DEBUG_ROUTES", !utils.IsProduction(env), &errs)
	cfg.Database.MaxOpenConns = parseInt("DB_MAX_OPEN_CONNS", 20, &errs)
	cfg.Database.MaxIdleConns = parseInt("DB_MAX_IDLE_CONNS", 5, &errs)
	cfg.LiteLLM.Timeout = parseDuration("LITELLM_TIMEOUT", 30*time.Second, &errs)
	cfg.LiteLLM.HealthTimeout = parseDuration("LITELLM_HEALTH_TIMEOUT", 10*time.Second, &errs)
	cfg.OTP.TTL = parseDuration("OTP_TTL", 5*time.Minute, &errs)
	cfg.OTP.SendLimit = parseInt("OTP_SEND_LIMIT", 5, &errs)
	cfg.OTP.SendWindow = parseDuration("OTP_SEND_WINDOW", 15*time.Minute, &errs)

	if cfg.OTP.SendLimit < 1 {
		errs = append(errs, errors.New("OTP_SEND_LIMIT must be at least 1"))
	}
	if k := len(cfg.Security.APIKeyEncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		errs = append(errs, errors.New("API_KEY_ENCRYPTION_KEY must be 16, 24, or 32 bytes long"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return defaultValue
	}
	return v
}

func parseDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return defaultValue
	}
	return v
}

func parseBool(key string, defaultValue bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return defaultValue
	}
	return v
}
