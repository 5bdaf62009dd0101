package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	AutoMigrate      bool
	DBMaxConns       int32
	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	GeoIPDBPath      string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
	SupportedLocales []string

	RateLimitJobsPerMin int

	WriterProvider string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OpenAIOrg      string
	WriterTimeout  time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisChannel      string
	ReferenceCacheTTL time.Duration

	MaxRetry          int
	BatchSize         int
	SingleItemTimeout time.Duration
	TotalTimeout      time.Duration
	RetryDelay        time.Duration
	BatchDelay        time.Duration
	CostPerItem       int64
	ErrorMaxLen       int
	MaxTargetCount    int

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerLease        time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AutoMigrate:      strings.EqualFold(os.Getenv("AUTO_MIGRATE"), "true"),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        os.Getenv("JWT_ISSUER"),
		JWTAudience:      os.Getenv("JWT_AUDIENCE"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS"),
		SupportedLocales: getEnvList("SUPPORTED_LOCALES"),

		RateLimitJobsPerMin: getEnvInt("RATE_LIMIT_JOBS_PER_MINUTE", 10),

		WriterProvider: strings.ToLower(getEnv("WRITER_PROVIDER", "openai")),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:      os.Getenv("OPENAI_ORG"),
		WriterTimeout:  time.Second * time.Duration(getEnvInt("WRITER_HTTP_TIMEOUT_SECONDS", 180)),

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisChannel:      getEnv("REDIS_CHANNEL", "contentgen.jobs"),
		ReferenceCacheTTL: time.Hour * time.Duration(getEnvInt("REFERENCE_CACHE_TTL_HOURS", 168)),

		MaxRetry:          getEnvInt("GEN_MAX_RETRY", 3),
		BatchSize:         getEnvInt("GEN_BATCH_SIZE", 1),
		SingleItemTimeout: time.Second * time.Duration(getEnvInt("GEN_SINGLE_ITEM_TIMEOUT_SECONDS", 120)),
		TotalTimeout:      time.Second * time.Duration(getEnvInt("GEN_TOTAL_TIMEOUT_SECONDS", 1800)),
		RetryDelay:        time.Millisecond * time.Duration(getEnvInt("GEN_RETRY_DELAY_MS", 2000)),
		BatchDelay:        time.Millisecond * time.Duration(getEnvInt("GEN_BATCH_DELAY_MS", 500)),
		CostPerItem:       int64(getEnvInt("GEN_COST_PER_ITEM", 1)),
		ErrorMaxLen:       getEnvInt("GEN_ERROR_MAX_LEN", 500),
		MaxTargetCount:    getEnvInt("GEN_MAX_TARGET_COUNT", 50),

		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: time.Millisecond * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_MS", 2000)),
	}
	// A lease shorter than the job deadline would let a second worker steal a
	// healthy run.
	defaultLease := cfg.TotalTimeout + 5*time.Minute
	cfg.WorkerLease = time.Second * time.Duration(getEnvInt("WORKER_LEASE_SECONDS", int(defaultLease/time.Second)))
	if cfg.WorkerLease < cfg.TotalTimeout {
		cfg.WorkerLease = defaultLease
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MaxRetry < 1 {
		return nil, fmt.Errorf("GEN_MAX_RETRY must be >= 1")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("GEN_BATCH_SIZE must be >= 1")
	}
	if cfg.CostPerItem < 0 {
		return nil, fmt.Errorf("GEN_COST_PER_ITEM must be >= 0")
	}

	return cfg, nil
}

// RequireJWT validates settings only the HTTP API depends on.
func (c *Config) RequireJWT() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
