package config

import (
	"errors"  // Validation errors
	"fmt"     // Error formatting
	"net/url" // Origin validation
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"strings" // For list parsing
	"time"    // Durations for TTLs

	"github.com/joho/godotenv" // For loading .env files
)

// Supported database drivers
const (
	DriverPostgres = "postgres" // PostgreSQL via gorm
	DriverMySQL    = "mysql"    // MySQL via gorm
	DriverMemory   = "memory"   // In-process stores, development only
)

// Supported mail providers
const (
	MailSMTP     = "smtp"     // Plain SMTP relay
	MailSendGrid = "sendgrid" // SendGrid HTTP API
	MailLog      = "log"      // Write mails to the log instead of sending them
)

// Config holds the application configuration
type Config struct {
	AppPort  string // Application port
	IsProd   bool   // Is production environment
	LogLevel string // Logrus level name

	DBDriver   string // Database driver: postgres, mysql or memory
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBSSLMode  string // Postgres sslmode

	JWTSecret      string        // JWT secret key
	JWTAlgorithm   string        // HMAC signing algorithm
	AccessTokenTTL time.Duration // Session token lifetime
	OTPTTL         time.Duration // One-time code validity window
	OTPLength      int           // Number of digits in a one-time code
	BcryptCost     int           // Password hashing cost

	RedisAddr string        // Redis server address, empty disables cache and rate limiting
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	CacheTTL  time.Duration // Coupon listing cache lifetime

	MailProvider   string // smtp, sendgrid or log
	SMTPHost       string // SMTP server host
	SMTPPort       int    // SMTP server port
	SMTPUser       string // SMTP username
	SMTPPassword   string // SMTP password
	SMTPFromEmail  string // Sender address
	SMTPUseTLS     bool   // Require STARTTLS
	SendGridAPIKey string // SendGrid API key

	CORSOrigins []string // Allowed browser origins
	AMQPURL     string   // RabbitMQ URL, empty disables event publishing

	RateLimit RateLimitConfig // Auth endpoint rate limiting
}

// RateLimitConfig configures the redis token bucket on auth endpoints
type RateLimitConfig struct {
	Enabled        bool          // Turn limiter on/off
	Capacity       int           // Bucket size
	RefillTokens   int           // Tokens added per interval
	RefillInterval time.Duration // Refill interval
	TTL            time.Duration // Idle bucket expiry
	Prefix         string        // Redis key prefix
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{
		AppPort:  envStr("APP_PORT", "8000"),          // Application port
		IsProd:   envBool("IS_PROD", false),           // Is production environment
		LogLevel: envStr("LOG_LEVEL", "info"),         // Log level
		DBDriver: envStr("DB_DRIVER", DriverPostgres), // Database driver

		DBUser:     os.Getenv("DB_USER"),            // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),        // Database password
		DBHost:     envStr("DB_HOST", "localhost"),  // Database host
		DBPort:     os.Getenv("DB_PORT"),            // Database port
		DBName:     envStr("DB_NAME", "drs_app"),    // Database name
		DBSSLMode:  envStr("DB_SSLMODE", "disable"), // Postgres sslmode

		JWTSecret:      os.Getenv("JWT_SECRET"),                    // JWT secret key
		JWTAlgorithm:   envStr("JWT_ALGORITHM", "HS256"),           // Signing algorithm
		AccessTokenTTL: envDur("ACCESS_TOKEN_TTL", 7*24*time.Hour), // 7 days
		OTPTTL:         envDur("OTP_TTL", 10*time.Minute),          // 600 seconds
		OTPLength:      envInt("OTP_LENGTH", 6),                    // 6 digits
		BcryptCost:     envInt("BCRYPT_COST", 10),                  // bcrypt.DefaultCost

		RedisAddr: os.Getenv("REDIS_ADDR"),             // Redis server address
		RedisPass: os.Getenv("REDIS_PASS"),             // Redis password
		RedisDB:   envInt("REDIS_DB", 0),               // Redis database number
		CacheTTL:  envDur("CACHE_TTL", 60*time.Second), // Cache lifetime

		MailProvider:   envStr("MAIL_PROVIDER", MailSMTP),                // Mail provider
		SMTPHost:       envStr("SMTP_HOST", "smtp.example.com"),          // SMTP host
		SMTPPort:       envInt("SMTP_PORT", 587),                         // SMTP port
		SMTPUser:       os.Getenv("SMTP_USER"),                           // SMTP user
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),                       // SMTP password
		SMTPFromEmail:  envStr("SMTP_FROM_EMAIL", "noreply@example.com"), // Sender
		SMTPUseTLS:     envBool("SMTP_USE_TLS", true),                    // STARTTLS
		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),                    // SendGrid key

		CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		AMQPURL:     os.Getenv("AMQP_URL"), // RabbitMQ URL

		RateLimit: RateLimitConfig{
			Enabled:        envBool("RATE_LIMIT_ENABLED", true),
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
			RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
			TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		},
	}
	// Fill driver-specific default port
	if cfg.DBPort == "" {
		if cfg.DBDriver == DriverMySQL {
			cfg.DBPort = "3306"
		} else {
			cfg.DBPort = "5432"
		}
	}
	// Clamp limiter values to something usable
	if cfg.RateLimit.Capacity < 1 {
		cfg.RateLimit.Capacity = 1
	}
	if cfg.RateLimit.RefillTokens < 1 {
		cfg.RateLimit.RefillTokens = 1
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RateLimit.RefillInterval; cfg.RateLimit.TTL < minTTL {
		cfg.RateLimit.TTL = minTTL
	}
	return cfg
}

// Validate reports configuration that the server cannot run with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.MailProvider {
	case MailSMTP, MailLog:
	case MailSendGrid:
		if c.SendGridAPIKey == "" {
			return errors.New("SENDGRID_API_KEY is required for the sendgrid mail provider")
		}
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.MailProvider)
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWTAlgorithm)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.IsProd && c.DBDriver == DriverMemory {
		return errors.New("memory driver is not allowed in production")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	// Lifetimes must be positive
	for name, d := range map[string]time.Duration{
		"ACCESS_TOKEN_TTL": c.AccessTokenTTL,
		"OTP_TTL":          c.OTPTTL,
		"CACHE_TTL":        c.CacheTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	for _, origin := range c.CORSOrigins {
		if err := validOrigin(origin); err != nil {
			return err
		}
	}
	return nil
}

// validOrigin accepts "*" or an absolute http(s) origin
func validOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CORS_ORIGINS entry %q must be * or an http(s) origin", origin)
	}
	return nil
}

// DSN builds the Data Source Name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == DriverMySQL {
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

// envList splits a comma separated variable, dropping empty items
func envList(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return d
	}
	return out
}
