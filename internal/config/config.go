package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage providers for the source registry.
const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Source registry
	Storage    string // "redis" | "memory"
	StorageKey string // the single key holding the serialized source list
	SeedFile   string // optional YAML imported when the registry is empty

	// Hosting API
	GitHubAPIURL  string        // ex: https://api.github.com
	GitHubWebURL  string        // ex: https://github.com
	GitHubTimeout time.Duration // per request, 0 = transport default
	GitHubRPS     float64       // outbound throttle, 0 = off

	// Catalog and suggestions
	DocumentExt   string        // target asset extension (default: .pdf)
	DateLayout    string        // Go layout of document date labels
	DebounceDelay time.Duration // quiet period of the suggestion inputs

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateBurst     int // per-IP burst on the API
	RatePerMinute int // per-IP sustained rate on the API
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SHELF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHELF_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SHELF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHELF_PRETTY_LOG", true),

		// Source registry
		Storage:    strings.ToLower(getenv("SHELF_STORAGE", StorageRedis)),
		StorageKey: getenv("SHELF_STORAGE_KEY", "sources"),
		SeedFile:   getenv("SHELF_SEED_FILE", ""),

		// Hosting API
		GitHubAPIURL:  getenv("SHELF_GITHUB_API_URL", "https://api.github.com"),
		GitHubWebURL:  getenv("SHELF_GITHUB_WEB_URL", "https://github.com"),
		GitHubTimeout: mustDuration("SHELF_GITHUB_TIMEOUT", 15*time.Second),
		GitHubRPS:     getenvFloat("SHELF_GITHUB_RPS", 0),

		// Catalog and suggestions
		DocumentExt:   getenv("SHELF_DOCUMENT_EXT", ".pdf"),
		DateLayout:    getenv("SHELF_DATE_LAYOUT", "2006-01-02"),
		DebounceDelay: mustDuration("SHELF_DEBOUNCE", 500*time.Millisecond),

		// Redis timings
		RedisDT:             mustDuration("SHELF_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("SHELF_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("SHELF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("SHELF_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("SHELF_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("SHELF_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("SHELF_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("SHELF_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("SHELF_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("SHELF_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("SHELF_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SHELF_TRUST_PROXY", false),

		RateBurst:     getenvInt("SHELF_RATE_BURST", 20),
		RatePerMinute: getenvInt("SHELF_RATE_PER_MIN", 120),
	}

	switch cfg.Storage {
	case StorageRedis:
		// Redis connection, only required when it backs the registry
		cfg.RedisAddr = requireEnv("SHELF_REDIS_ADDR")
		cfg.RedisUser = getenv("SHELF_REDIS_USERNAME", "default")
		cfg.RedisPasswordRequired = mustBool("SHELF_REDIS_PASSWORD_REQUIRED", true)
		cfg.RedisPassword = getenv("SHELF_REDIS_PASSWORD", "")
		cfg.RedisDB = getenvInt("SHELF_REDIS_DB", 0)

		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: SHELF_REDIS_PASSWORD is required when SHELF_REDIS_PASSWORD_REQUIRED=true")
		}
	case StorageMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: SHELF_STORAGE must be %q or %q, got %q", StorageRedis, StorageMemory, cfg.Storage))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
