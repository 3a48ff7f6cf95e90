// Package config provides environment configuration for the coaching engine.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings (escalation hand-off)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Redis settings (retrieval cache, optional)
	RedisURL      string
	RedisCacheTTL time.Duration

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Provider settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ProviderOrder   []string
	ProviderTimeout time.Duration
	ProviderRetries int
	ProviderBackoff time.Duration

	// Risk policy document (YAML); built-in defaults apply when empty.
	RiskPolicyFile string

	// Curriculum content service
	CurriculumURL     string
	CurriculumTimeout time.Duration

	// Conversation settings
	HistoryWindow     int
	RetrievalLimit    int
	SummarizeMessages int
	SummarizeTokens   int64
	MaxMessageBytes   int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisCacheTTL: getDurationEnv("REDIS_CACHE_TTL", 10*time.Minute),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// Providers
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		ProviderOrder:   getListEnv("PROVIDER_ORDER", []string{"anthropic", "openai"}),
		ProviderTimeout: getDurationEnv("PROVIDER_TIMEOUT", 20*time.Second),
		ProviderRetries: getIntEnv("PROVIDER_RETRIES", 2),
		ProviderBackoff: getDurationEnv("PROVIDER_BACKOFF", 500*time.Millisecond),

		// Risk policy
		RiskPolicyFile: getEnv("RISK_POLICY_FILE", ""),

		// Curriculum content service
		CurriculumURL:     getEnv("CURRICULUM_SEARCH_URL", "http://localhost:9090"),
		CurriculumTimeout: getDurationEnv("CURRICULUM_SEARCH_TIMEOUT", 5*time.Second),

		// Conversation
		HistoryWindow:     getIntEnv("HISTORY_WINDOW", 10),
		RetrievalLimit:    getIntEnv("RETRIEVAL_LIMIT", 5),
		SummarizeMessages: getIntEnv("SUMMARIZE_AFTER_MESSAGES", 40),
		SummarizeTokens:   int64(getIntEnv("SUMMARIZE_AFTER_TOKENS", 12000)),
		MaxMessageBytes:   getIntEnv("MAX_MESSAGE_BYTES", 8192),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
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

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
