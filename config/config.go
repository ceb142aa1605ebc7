package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port              int
	NATSPort          int
	StoragePath       string
	AllowedOrigins    []string
	UploadMaxBytes    int64
	HistorySize       int
	QueryTimeout      time.Duration
	ShutdownTimeout   time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	SendBuffer        int
	LogLevel          string
}

// Load reads configuration, first loading a .env file when one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:              getEnvInt("PORT", 3000),
		NATSPort:          getEnvInt("NATS_PORT", 4222),
		StoragePath:       getEnv("STORAGE_PATH", "/tmp/collab-room-server"),
		AllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		UploadMaxBytes:    getEnvInt64("UPLOAD_MAX_BYTES", 50*1024*1024),
		HistorySize:       getEnvInt("CHAT_HISTORY_SIZE", 100),
		QueryTimeout:      getEnvDuration("QUERY_TIMEOUT", 3*time.Second),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		MessagesPerSecond: getEnvFloat("WS_MESSAGES_PER_SECOND", 50),
		MessageBurst:      getEnvInt("WS_BURST", 100),
		SendBuffer:        getEnvInt("WS_SEND_BUFFER", 256),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
