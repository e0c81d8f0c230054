package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend drivers and authentication modes.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"

	AuthModeRemote = "remote"
	AuthModeJWT    = "jwt"
)

// MisconfiguredMessage is reported to callers while the backend endpoint or
// service credential is missing.
const MisconfiguredMessage = "Server misconfiguration: missing SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY"

// ErrBackendMisconfigured is returned by BackendConfig.Check.
var ErrBackendMisconfigured = errors.New("backend url or service role key not configured")

// Config holds the application configuration with validation
type Config struct {
	// Application settings
	Port      int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`

	// Hosted database backend
	Backend BackendConfig

	// Direct database settings, used when Backend.Driver is postgres
	Database DatabaseConfig

	// External services
	NotificationService NotificationConfig

	// Security settings
	Security SecurityConfig

	// Performance settings
	Server ServerConfig
}

// BackendConfig holds the hosted database endpoint and credentials.
//
// URL and ServiceKey are not required at load time. A missing value is
// reported to each caller as a misconfiguration.
type BackendConfig struct {
	URL        string        `envconfig:"SUPABASE_URL" validate:"omitempty,url"`
	ServiceKey string        `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret  string        `envconfig:"SUPABASE_JWT_SECRET" validate:"required_if=AuthMode jwt"`
	AuthMode   string        `envconfig:"AUTH_MODE" default:"remote" validate:"oneof=remote jwt"`
	Driver     string        `envconfig:"BACKEND_DRIVER" default:"rest" validate:"oneof=rest postgres"`
	Timeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s" validate:"gt=0"`
}

// Check reports whether the endpoint and service credential are present.
func (b BackendConfig) Check() error {
	if strings.TrimSpace(b.URL) == "" || strings.TrimSpace(b.ServiceKey) == "" {
		return ErrBackendMisconfigured
	}
	return nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432" validate:"min=1,max=65535"`
	User            string        `envconfig:"DB_USER"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Name            string        `envconfig:"DB_NAME"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"require" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10" validate:"min=1"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5" validate:"min=1"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`
}

// NotificationConfig holds notification webhook configuration. An empty URL
// disables notifications.
type NotificationConfig struct {
	URL            string        `envconfig:"NOTIFIER_URL" validate:"omitempty,url"`
	Timeout        time.Duration `envconfig:"NOTIFIER_TIMEOUT" default:"10s"`
	RetryAttempts  int           `envconfig:"NOTIFIER_RETRY_ATTEMPTS" default:"3" validate:"min=0,max=10"`
	RetryDelay     time.Duration `envconfig:"NOTIFIER_RETRY_DELAY" default:"1s"`
	MaxPayloadSize int64         `envconfig:"NOTIFIER_MAX_PAYLOAD_SIZE" default:"1048576" validate:"min=1024"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimitRPS    int           `envconfig:"RATE_LIMIT_RPS" default:"20" validate:"min=1"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"40" validate:"min=1"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
	EnableCORS      bool          `envconfig:"ENABLE_CORS" default:"true"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	TrustedProxies  []string      `envconfig:"TRUSTED_PROXIES"`
}

// ServerConfig holds server performance configuration
type ServerConfig struct {
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s" validate:"gt=0"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"40s" validate:"gt=0"`
	IdleTimeout    time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s" validate:"gt=0"`
	MaxHeaderBytes int           `envconfig:"SERVER_MAX_HEADER_BYTES" default:"1048576" validate:"min=1024"`
	MaxBodyBytes   int64         `envconfig:"SERVER_MAX_BODY_BYTES" default:"1048576" validate:"min=1024"`
	EnableMetrics  bool          `envconfig:"ENABLE_METRICS" default:"true"`
}

// LoadConfig loads a .env file when one exists, then reads and validates the
// configuration from environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return FromEnv()
}

// FromEnv reads and validates the configuration from environment variables only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// validateConfig checks struct tags and the rules that span sections
func validateConfig(cfg *Config) error {
	var problems []string

	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	if cfg.Backend.Driver == DriverPostgres {
		if cfg.Database.User == "" {
			problems = append(problems, "database user is required for the postgres driver")
		}
		if cfg.Database.Name == "" {
			problems = append(problems, "database name is required for the postgres driver")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(problems, "; "))
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// String returns a log safe version of Config. Secrets are redacted.
func (c Config) String() string {
	redact := func(s *string) {
		if *s != "" {
			*s = "REDACTED_NOT_EMPTY"
		}
	}
	redact(&c.Backend.ServiceKey)
	redact(&c.Backend.JWTSecret)
	redact(&c.Database.Password)

	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(b)
}
