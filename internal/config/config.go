package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Cache driver constants
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// ID token signing (HS256)
	JWTSecret string

	// Token lifetimes
	AuthCodeExpiration          time.Duration // Authorization code TTL (default: 5m)
	AccessTokenExpiration       time.Duration // Access token TTL (default: 1h)
	RefreshTokenExpiration      time.Duration // Refresh token TTL (default: 720h = 30 days)
	IDTokenExpiration           time.Duration // ID token TTL (default: 1h)
	RegistrationTokenExpiration time.Duration // Registration access token TTL (default: 8760h)

	// Refresh behaviour
	EnableTokenRotation bool // Rotate refresh tokens and revoke prior access tokens (default: false)

	// Revocation policy (RFC 7009)
	AllowCrossClientRevocation  bool // Allow revoking another client's token when the caller holds the revoke_any scope
	AllowPublicClientRevocation bool // Accept unauthenticated revocation requests from public clients

	// Introspection (RFC 7662)
	IntrospectionScope string // Scope the caller's token must carry (default: "introspection")

	// UMA settings
	UmaTicketExpiration time.Duration // Permission ticket TTL (default: 2h)
	UmaProtectionScope  string        // PAT scope for the protection API (default: "uma_protection")

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Token lookup cache
	CacheDriver   string        // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TokenCacheTTL time.Duration // Upper bound; capped by each token's remaining lifetime

	// Expiry sweep
	SweepInterval  time.Duration
	SweepBatchSize int

	// Rate limiting (token endpoint)
	RateLimitEnabled    bool
	RateLimitPerMinute  int
	RateLimitStore      string // "memory" or "redis"

	// Observability
	MetricsEnabled bool
	SwaggerEnabled bool // Serve the Swagger UI at /swagger (disable in production)

	// Audit trail
	AuditEnabled    bool
	AuditBufferSize int
	AuditRetention  time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "grantgate.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),
		JWTSecret:  getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),

		AuthCodeExpiration:          getEnvDuration("AUTH_CODE_EXPIRATION", 5*time.Minute),
		AccessTokenExpiration:       getEnvDuration("ACCESS_TOKEN_EXPIRATION", time.Hour),
		RefreshTokenExpiration:      getEnvDuration("REFRESH_TOKEN_EXPIRATION", 720*time.Hour),
		IDTokenExpiration:           getEnvDuration("ID_TOKEN_EXPIRATION", time.Hour),
		RegistrationTokenExpiration: getEnvDuration("REGISTRATION_TOKEN_EXPIRATION", 8760*time.Hour),

		EnableTokenRotation: getEnvBool("ENABLE_TOKEN_ROTATION", false),

		AllowCrossClientRevocation:  getEnvBool("ALLOW_CROSS_CLIENT_REVOCATION", false),
		AllowPublicClientRevocation: getEnvBool("ALLOW_PUBLIC_CLIENT_REVOCATION", false),

		IntrospectionScope: getEnv("INTROSPECTION_SCOPE", "introspection"),

		UmaTicketExpiration: getEnvDuration("UMA_TICKET_EXPIRATION", 2*time.Hour),
		UmaProtectionScope:  getEnv("UMA_PROTECTION_SCOPE", "uma_protection"),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		CacheDriver:   getEnv("CACHE_DRIVER", CacheDriverMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		TokenCacheTTL: getEnvDuration("TOKEN_CACHE_TTL", 30*time.Second),

		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Minute),
		SweepBatchSize: getEnvInt("SWEEP_BATCH_SIZE", 200),

		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitStore:     getEnv("RATE_LIMIT_STORE", "memory"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		SwaggerEnabled: getEnvBool("SWAGGER_ENABLED", true),

		AuditEnabled:    getEnvBool("AUDIT_ENABLED", true),
		AuditBufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 1000),
		AuditRetention:  getEnvDuration("AUDIT_RETENTION", 2160*time.Hour), // 90 days
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
