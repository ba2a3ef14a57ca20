package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Services   ServicesConfig
	ShortCode  ShortCodeConfig
	QR         QRConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Cleanup    CleanupConfig
	Analytics  AnalyticsConfig
	Validation ValidationConfig
}

// DatabaseConfig selects and tunes the entity store. Driver is one of
// postgres, mysql, sqlite or memory.
type DatabaseConfig struct {
	Driver          string
	PrimaryDSN      string
	ReplicaDSNs     []string
	MySQLDSN        string
	SQLiteDSN       string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	StreamName string
	Enabled    bool
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	MaxConns int
}

type ServicesConfig struct {
	URLServiceAddr      string
	URLServicePort      string
	APIGatewayPort      string
	RedirectServicePort string
	MetricsPort         string
	BaseURL             string
	RequestTimeout      time.Duration
	RedirectDelay       time.Duration
	// TrustedProxies may set X-Forwarded-For. Empty means headers are ignored.
	TrustedProxies      []string
}

type ShortCodeConfig struct {
	Length      int
	MaxAttempts int
	StrictLen   bool
}

type QRConfig struct {
	Dir  string
	Size int
}

type CacheConfig struct {
	Enabled    bool
	L1Capacity int
	L1TTL      time.Duration
	L2TTL      time.Duration
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

type CleanupConfig struct {
	Schedule string
	Grace    time.Duration
	LockKey  string
	LockTTL  time.Duration
}

type AnalyticsConfig struct {
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int
	PollInterval  time.Duration
	BlockTime     time.Duration
	IPHashKey     string
}

type ValidationConfig struct {
	MaxClipBytes int
}

func Load() (*Config, error) {
	// Load .env if it exists (local dev), ignore if not (K8s uses ConfigMaps/Secrets)
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
			PrimaryDSN:      getEnv("DB_PRIMARY_DSN", ""),
			ReplicaDSNs:     getEnvAsList("DB_REPLICA_DSNS"),
			MySQLDSN:        getEnv("MYSQL_DSN", ""),
			SQLiteDSN:       getEnv("SQLITE_DSN", "file:shortbox.db?_pragma=foreign_keys(1)"),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			StreamName: getEnv("REDIS_STREAM_NAME", "resolutions:stream"),
			Enabled:    getEnvAsBool("REDIS_ENABLED", true),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "analytics"),
			Username: getEnv("CLICKHOUSE_USERNAME", "clickhouse"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			MaxConns: getEnvAsInt("CLICKHOUSE_MAX_CONNS", 10),
		},
		Services: ServicesConfig{
			URLServiceAddr:      getEnv("URL_SERVICE_ADDR", "localhost:50051"),
			URLServicePort:      getEnv("URL_SERVICE_PORT", "50051"),
			APIGatewayPort:      getEnv("API_GATEWAY_PORT", "8080"),
			RedirectServicePort: getEnv("REDIRECT_SERVICE_PORT", "8081"),
			MetricsPort:         getEnv("METRICS_PORT", "9090"),
			BaseURL:             strings.TrimRight(getEnv("BASE_URL", "http://localhost:8081"), "/"),
			RequestTimeout:      getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Second),
			RedirectDelay:       getEnvAsDuration("REDIRECT_DELAY", 0),
			TrustedProxies:      getEnvAsList("TRUSTED_PROXIES"),
		},
		ShortCode: ShortCodeConfig{
			Length:      getEnvAsInt("SHORT_CODE_LENGTH", 6),
			MaxAttempts: getEnvAsInt("SHORT_CODE_MAX_ATTEMPTS", 5),
			StrictLen:   getEnvAsBool("SHORT_CODE_STRICT_LENGTH", true),
		},
		QR: QRConfig{
			Dir:  getEnv("QR_DIR", "qr_codes"),
			Size: getEnvAsInt("QR_SIZE", 300),
		},
		Cache: CacheConfig{
			Enabled:    getEnvAsBool("CACHE_ENABLED", true),
			L1Capacity: getEnvAsInt("CACHE_L1_CAPACITY", 10000),
			L1TTL:      getEnvAsDuration("CACHE_L1_TTL", time.Minute),
			L2TTL:      getEnvAsDuration("CACHE_L2_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Cleanup: CleanupConfig{
			Schedule: getEnv("CLEANUP_SCHEDULE", "@daily"),
			Grace:    getEnvAsDuration("CLEANUP_GRACE", 30*24*time.Hour),
			LockKey:  getEnv("CLEANUP_LOCK_KEY", "lock:cleanup-worker"),
			LockTTL:  getEnvAsDuration("CLEANUP_LOCK_TTL", 10*time.Minute),
		},
		Analytics: AnalyticsConfig{
			ConsumerGroup: getEnv("ANALYTICS_CONSUMER_GROUP", "analytics-group"),
			ConsumerName:  getEnv("ANALYTICS_CONSUMER_NAME", "worker-1"),
			BatchSize:     getEnvAsInt("ANALYTICS_BATCH_SIZE", 100),
			PollInterval:  getEnvAsDuration("ANALYTICS_POLL_INTERVAL", time.Second),
			BlockTime:     getEnvAsDuration("ANALYTICS_BLOCK_TIME", 5*time.Second),
			IPHashKey:     getEnv("ANALYTICS_IP_HASH_KEY", ""),
		},
		Validation: ValidationConfig{
			MaxClipBytes: getEnvAsInt("MAX_CLIP_BYTES", 64*1024),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.PrimaryDSN == "" {
			return fmt.Errorf("DB_PRIMARY_DSN is required for the postgres driver")
		}
	case "mysql":
		if c.Database.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql driver")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Database.Driver)
	}

	if c.ShortCode.Length < 4 {
		return fmt.Errorf("SHORT_CODE_LENGTH must be at least 4, got %d", c.ShortCode.Length)
	}
	if c.ShortCode.MaxAttempts < 1 {
		return fmt.Errorf("SHORT_CODE_MAX_ATTEMPTS must be positive, got %d", c.ShortCode.MaxAttempts)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
