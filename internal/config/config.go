// Package config provides environment configuration for the inbox sync daemon.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Backend settings
	BackendURL          string
	BackendTimeout      time.Duration
	SessionCookieName   string
	SessionCookie       string
	BackendRateLimit    float64
	BreakerMaxFailures  uint32
	BreakerOpenTimeout  time.Duration
	ExplicitReadReceipt bool

	// Viewer identity
	UserID   int64
	LoggedIn bool

	// Polling and UI timings
	InboxPollInterval time.Duration
	BadgePollInterval time.Duration
	PollMaxBackoff    time.Duration
	ReadRefreshDelay  time.Duration
	SearchDebounce    time.Duration
	SearchMinChars    int
	NotificationTTL   time.Duration
	PageTitle         string

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings; empty secret disables auth on the view API
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// CORS; empty allows any http(s) origin
	CORSOrigins []string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables, after merging an
// optional .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8090"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),

		// Backend
		BackendURL:          getEnv("BACKEND_URL", "http://localhost:5000"),
		BackendTimeout:      getDurationEnv("BACKEND_TIMEOUT", 10*time.Second),
		SessionCookieName:   getEnv("BACKEND_SESSION_COOKIE_NAME", "session"),
		SessionCookie:       getEnv("BACKEND_SESSION_COOKIE", ""),
		BackendRateLimit:    getFloatEnv("BACKEND_RATE_LIMIT", 10),
		BreakerMaxFailures:  uint32(getIntEnv("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout:  getDurationEnv("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		ExplicitReadReceipt: getBoolEnv("EXPLICIT_READ_RECEIPTS", false),

		// Viewer
		UserID:   getInt64Env("USER_ID", 0),
		LoggedIn: getBoolEnv("LOGGED_IN", false),

		// Timings
		InboxPollInterval: getDurationEnv("INBOX_POLL_INTERVAL", 10*time.Second),
		BadgePollInterval: getDurationEnv("BADGE_POLL_INTERVAL", 30*time.Second),
		PollMaxBackoff:    getDurationEnv("POLL_MAX_BACKOFF", 2*time.Minute),
		ReadRefreshDelay:  getDurationEnv("READ_REFRESH_DELAY", time.Second),
		SearchDebounce:    getDurationEnv("SEARCH_DEBOUNCE", 300*time.Millisecond),
		SearchMinChars:    getIntEnv("SEARCH_MIN_CHARS", 2),
		NotificationTTL:   getDurationEnv("NOTIFICATION_TTL", 3*time.Second),
		PageTitle:         getEnv("PAGE_TITLE", "Raitha Mitra"),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// CORS
		CORSOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate reports configuration that would leave the daemon unusable.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.BackendURL))
	}
	if c.InboxPollInterval <= 0 {
		errs = append(errs, errors.New("INBOX_POLL_INTERVAL must be positive"))
	}
	if c.BadgePollInterval <= 0 {
		errs = append(errs, errors.New("BADGE_POLL_INTERVAL must be positive"))
	}
	if c.PollMaxBackoff < c.InboxPollInterval {
		errs = append(errs, errors.New("POLL_MAX_BACKOFF must not be shorter than INBOX_POLL_INTERVAL"))
	}
	if c.SearchMinChars < 1 {
		errs = append(errs, errors.New("SEARCH_MIN_CHARS must be at least 1"))
	}
	if c.BackendRateLimit <= 0 {
		errs = append(errs, errors.New("BACKEND_RATE_LIMIT must be positive"))
	}
	if c.LoggedIn && c.UserID <= 0 {
		errs = append(errs, errors.New("USER_ID is required when LOGGED_IN is set"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping blank entries.
func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
