// Package config loads process configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application settings. It is read once at startup.
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string
	Port      string

	// SIWE
	AppDomain string
	NonceTTL  time.Duration

	// Session
	JWTSecret          []byte
	JWTSecretGenerated bool // no JWT_SECRET was set, sessions die with the process
	JWTAlgorithm       string
	SessionTTL         time.Duration
	CookieSecure       bool
	RevokeOnLogout     bool

	// Storage
	DatabaseFile string // empty means an in-memory database
	RedisURL     string // empty means in-process nonce store and denylist

	// Chain
	DefaultNetwork string
	AnvilRPC       string
	InfuraKey      string
	ArtifactsDir   string // directory of precompiled <name>.json contract artifacts

	// HTTP
	CORSAllowedOrigin     string
	RateLimitAuthRequests int
	RateLimitAuthWindow   time.Duration
	TrustedProxies        []string // may set X-Forwarded-For; empty trusts none

	// Lifecycle
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

// Load reads Config from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnvString("ENV", "dev"),
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "json"),
		Port:      getEnvString("PORT", "8000"),

		AppDomain: getEnvString("APP_DOMAIN", "localhost:3000"),
		NonceTTL:  getEnvDuration("NONCE_TTL", 5*time.Minute),

		JWTAlgorithm:   strings.ToUpper(getEnvString("JWT_ALGORITHM", "HS256")),
		SessionTTL:     time.Duration(getEnvInt("JWT_EXP_MIN", 60)) * time.Minute,
		CookieSecure:   getEnvBool("SESSION_COOKIE_SECURE", false),
		RevokeOnLogout: getEnvBool("SESSION_REVOKE_ON_LOGOUT", true),

		RedisURL: os.Getenv("REDIS_URL"),

		DefaultNetwork: strings.ToLower(getEnvString("DEFAULT_NETWORK", "anvil")),
		AnvilRPC:       getEnvString("ANVIL_RPC", "http://127.0.0.1:8545"),
		InfuraKey:      os.Getenv("INFURA_KEY"),
		ArtifactsDir:   getEnvString("ARTIFACTS_DIR", "artifacts"),

		CORSAllowedOrigin:     getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		RateLimitAuthRequests: getEnvInt("RATELIMIT_AUTH_REQUESTS", 20),
		RateLimitAuthWindow:   getEnvDuration("RATELIMIT_AUTH_WINDOW", time.Minute),
		TrustedProxies:        getEnvList("TRUSTED_PROXIES"),

		ShutdownGracePeriod:  getEnvDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDuration("HOUSEKEEPING_INTERVAL", time.Minute),
	}

	// An explicitly empty DATABASE_FILE selects the in-memory database
	if v, ok := os.LookupEnv("DATABASE_FILE"); ok {
		cfg.DatabaseFile = v
	} else {
		cfg.DatabaseFile = "nocode.db"
	}

	if cfg.JWTAlgorithm != "HS256" {
		return nil, fmt.Errorf("unsupported JWT_ALGORITHM %q: only HS256 is supported", cfg.JWTAlgorithm)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("JWT_EXP_MIN must be positive")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = []byte(secret)
	} else {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		cfg.JWTSecretGenerated = true
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func randomSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	return []byte(hex.EncodeToString(buf)), nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
