package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultBackendURL = "http://localhost:8000"

type Config struct {
	Port          string
	AllowedOrigin string
	// TF-IDF search backend
	BackendURL string
	// Conversation
	ContextWindow int
	ResultLimit   int
	// Fixed user-facing copy; the file is optional
	MessagesFile  string
	MessagesWatch bool
	// Idle sessions are evicted after this long
	SessionTTL time.Duration
	// Database (optional exchange log)
	DatabaseURL   string
	MigrationsDir string
	// Logging
	LogLevel string
	AppEnv   string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:          getEnvDefault("PORT", "8080"),
		AllowedOrigin: getEnvDefault("ALLOWED_ORIGIN", "*"),
		BackendURL:    getEnvDefault("TFIDF_BACKEND_URL", getEnvDefault("VITE_BACKEND_URL", DefaultBackendURL)),
		ContextWindow: getEnvIntDefault("CHAT_CONTEXT_WINDOW", 2),
		ResultLimit:   getEnvIntDefault("CHAT_RESULT_LIMIT", 3),
		MessagesFile:  getEnvDefault("MESSAGES_FILE", "prompts/messages.yaml"),
		MessagesWatch: getEnvBoolDefault("MESSAGES_WATCH", true),
		SessionTTL:    getEnvDurationDefault("SESSION_TTL", 30*time.Minute),
		DatabaseURL:   os.Getenv("DB_URL"),
		MigrationsDir: getEnvDefault("MIGRATIONS_DIR", "migrations"),
		LogLevel:      getEnvDefault("LOG_LEVEL", "info"),
		AppEnv:        getEnvDefault("APP_ENV", "dev"),
	}
	if cfg.ResultLimit <= 0 {
		log.Println("warning: CHAT_RESULT_LIMIT must be positive; using 3")
		cfg.ResultLimit = 3
	}
	if cfg.ContextWindow < 0 {
		cfg.ContextWindow = 0
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not an integer; using %d", key, v, def)
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("warning: %s=%q is not a positive duration; using %s", key, v, def)
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
