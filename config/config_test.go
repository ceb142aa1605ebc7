package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var configKeys = []string{
	"PORT", "NATS_PORT", "STORAGE_PATH", "CORS_ALLOWED_ORIGINS", "UPLOAD_MAX_BYTES",
	"CHAT_HISTORY_SIZE", "QUERY_TIMEOUT", "SHUTDOWN_TIMEOUT", "WS_MESSAGES_PER_SECOND",
	"WS_BURST", "WS_SEND_BUFFER", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 4222, cfg.NATSPort)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(50*1024*1024), cfg.UploadMaxBytes)
	assert.Equal(t, 100, cfg.HistorySize)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50.0, cfg.MessagesPerSecond)
	assert.Equal(t, 100, cfg.MessageBurst)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("UPLOAD_MAX_BYTES", "1048576")
	t.Setenv("CHAT_HISTORY_SIZE", "20")
	t.Setenv("QUERY_TIMEOUT", "500ms")
	t.Setenv("WS_MESSAGES_PER_SECOND", "2.5")
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1048576), cfg.UploadMaxBytes)
	assert.Equal(t, 20, cfg.HistorySize)
	assert.Equal(t, 500*time.Millisecond, cfg.QueryTimeout)
	assert.Equal(t, 2.5, cfg.MessagesPerSecond)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")
	t.Setenv("QUERY_TIMEOUT", "soon")
	t.Setenv("WS_MESSAGES_PER_SECOND", "fast")
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")

	cfg := Load()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 50.0, cfg.MessagesPerSecond)
	assert.Len(t, cfg.AllowedOrigins, 2)
}
