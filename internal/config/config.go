package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	AppURL   string

	// Origins allowed by CORS; "*" allows any
	CORSAllowedOrigins []string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Sessions
	SessionCacheTTL time.Duration
	RedisURL        string // empty keeps sessions in process memory

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string // empty verifies tokens through GoTrue instead

	// Object storage (S3-compatible endpoint of Supabase Storage)
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string

	// Email
	ResendAPIKey string
	MailFrom     string

	// ERP integration: bcrypt hash of the key the ERP sends as bearer
	ERPKeyHash string

	// Public funnel rate limit, per client IP
	PublicRateLimitRPS   float64
	PublicRateLimitBurst int
	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP name the client.
	// Set only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	// KPI assumptions
	KPIChurnRatePct       float64
	KPIAvgRetentionMonths float64
	KPICAC                float64
	KPIProfitMarginPct    float64
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	supabaseURL := getEnv("SUPABASE_URL", "")

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppURL:   getEnv("APP_URL", "http://localhost:5173"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		SessionCacheTTL: getEnvDuration("SESSION_CACHE_TTL", time.Minute),
		RedisURL:        getEnv("REDIS_URL", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        supabaseURL,
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", storageEndpoint(supabaseURL)),
		StorageRegion:    getEnv("STORAGE_REGION", "us-east-1"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", "product-images"),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		MailFrom:     getEnv("MAIL_FROM", "ModCar <onboarding@resend.dev>"),

		ERPKeyHash: getEnv("ERP_API_KEY_HASH", ""),

		PublicRateLimitRPS:   getEnvFloat("PUBLIC_RATE_LIMIT_RPS", 2),
		PublicRateLimitBurst: getEnvInt("PUBLIC_RATE_LIMIT_BURST", 10),
		TrustProxyHeaders:    getEnvBool("TRUST_PROXY_HEADERS", false),

		KPIChurnRatePct:       getEnvFloat("KPI_CHURN_RATE_PCT", 5.2),
		KPIAvgRetentionMonths: getEnvFloat("KPI_AVG_RETENTION_MONTHS", 18),
		KPICAC:                getEnvFloat("KPI_CAC", 450),
		KPIProfitMarginPct:    getEnvFloat("KPI_PROFIT_MARGIN_PCT", 35),
	}
}

// storageEndpoint derives the S3 endpoint Supabase Storage exposes.
func storageEndpoint(supabaseURL string) string {
	if supabaseURL == "" {
		return ""
	}
	return supabaseURL + "/storage/v1/s3"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
