package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MaxInlineBytes is the hard ceiling the Gemini API imposes on inline
// (base64-in-request) payloads. The configured inline limit is clamped to it.
const MaxInlineBytes = 20 * 1024 * 1024

type Config struct {
	// Gemini API Configuration
	APIKey      string
	FileAPIBase string // base URL for the Files API (overridable for testing)

	// Per-operation model overrides
	ImageModel         string
	VideoModel         string
	UnderstandingModel string
	SearchModel        string

	// Server Configuration
	Port      string
	Transport string
	OutputDir string

	// Authentication Configuration
	ServiceTokens []string // Comma-separated list of valid Bearer tokens
	AuthEnabled   bool     // Whether authentication is required for HTTP transport

	// Transfer / upload behaviour
	RequestTimeout  time.Duration // ordinary HTTP request timeout
	UploadTimeout   time.Duration // extended timeout for multi-gigabyte uploads
	InlineLimit     int64         // max byte size sent inline, clamped to MaxInlineBytes
	PollInterval    time.Duration // delay between remote file status polls
	PollMaxAttempts int           // attempt ceiling for the polling loop

	// Notification channels
	WebhookURL     string // generic HTTP bot endpoint, empty disables the channel
	WebhookToken   string // optional bearer token for the webhook endpoint
	TelegramToken  string // Telegram bot token, empty disables the channel
	TelegramChatID int64  // Telegram chat to deliver notifications to

	// S3 Storage Configuration (HTTP mode only)
	S3Endpoint        string        // S3/MinIO endpoint (e.g., "minio:9000" or "s3.amazonaws.com")
	S3Bucket          string        // Bucket name for storing generated files
	S3Region          string        // AWS region (default: us-east-1)
	S3AccessKeyID     string        // Access key ID
	S3SecretAccessKey string        // Secret access key
	S3UseSSL          bool          // Use SSL/TLS for S3 connection (default: true)
	S3PresignTTL      time.Duration // TTL for presigned URLs (default: 24h)
	S3ObjectTTL       time.Duration // TTL for objects before auto-deletion (default: 24h)
	S3CleanupInterval time.Duration // Cleanup task interval (default: 1h)
	S3Enabled         bool          // Auto-enabled when S3 is configured in HTTP mode
}

func LoadConfig() *Config {
	config := &Config{
		APIKey:      getEnvOrDefault("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
		FileAPIBase: getEnvOrDefault("GEMINI_FILE_API_BASE", "https://generativelanguage.googleapis.com"),

		ImageModel:         getEnvOrDefault("IMAGE_MODEL", "gemini-2.5-flash-image"),
		VideoModel:         getEnvOrDefault("VIDEO_MODEL", "veo-3.1-generate-preview"),
		UnderstandingModel: getEnvOrDefault("UNDERSTANDING_MODEL", "gemini-2.5-flash"),
		SearchModel:        getEnvOrDefault("SEARCH_MODEL", "gemini-2.5-flash"),

		Port:          getEnvOrDefault("PORT", "8080"),
		Transport:     getEnvOrDefault("TRANSPORT", "stdio"),
		OutputDir:     getEnvOrDefault("OUTPUT_DIR", "/tmp/gemini-media-mcp"),
		ServiceTokens: parseServiceTokens(os.Getenv("SERVICE_TOKENS")),

		RequestTimeout:  getEnvOrDefaultDuration("REQUEST_TIMEOUT", 30*time.Second),
		UploadTimeout:   getEnvOrDefaultDuration("UPLOAD_TIMEOUT", 30*time.Minute),
		InlineLimit:     getEnvOrDefaultInt64("INLINE_LIMIT_BYTES", MaxInlineBytes),
		PollInterval:    getEnvOrDefaultDuration("POLL_INTERVAL", 10*time.Second),
		PollMaxAttempts: getEnvOrDefaultInt("POLL_MAX_ATTEMPTS", 60),

		WebhookURL:     os.Getenv("NOTIFY_WEBHOOK_URL"),
		WebhookToken:   os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: getEnvOrDefaultInt64("TELEGRAM_CHAT_ID", 0),

		// S3 configuration
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Bucket:          getEnvOrDefault("S3_BUCKET", "gemini-media"),
		S3Region:          getEnvOrDefault("S3_REGION", "us-east-1"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UseSSL:          getEnvOrDefaultBool("S3_USE_SSL", true),
		S3PresignTTL:      getEnvOrDefaultDuration("S3_PRESIGN_TTL", 24*time.Hour),
		S3ObjectTTL:       getEnvOrDefaultDuration("S3_OBJECT_TTL", 24*time.Hour),
		S3CleanupInterval: getEnvOrDefaultDuration("S3_CLEANUP_INTERVAL", 1*time.Hour),
	}

	// The API rejects inline payloads above the hard ceiling regardless of
	// what was configured.
	if config.InlineLimit <= 0 || config.InlineLimit > MaxInlineBytes {
		config.InlineLimit = MaxInlineBytes
	}

	// Enable auth if tokens are configured
	config.AuthEnabled = len(config.ServiceTokens) > 0

	// Enable S3 if endpoint is configured and transport is HTTP
	config.S3Enabled = config.S3Endpoint != "" &&
		config.S3AccessKeyID != "" &&
		config.S3SecretAccessKey != "" &&
		(config.Transport == "http" || config.Transport == "sse")

	// Create output directory if it doesn't exist (for stdio mode or S3 disabled)
	if config.OutputDir != "" && !config.S3Enabled {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			fmt.Printf("Warning: Failed to create output directory: %v\n", err)
		}
	}

	return config
}

// TempDir is where downloaded intermediates live before cleanup.
func (c *Config) TempDir() string {
	return filepath.Join(c.OutputDir, "tmp")
}

// parseServiceTokens parses a comma-separated list of tokens
func parseServiceTokens(tokensStr string) []string {
	if tokensStr == "" {
		return nil
	}
	tokens := strings.Split(tokensStr, ",")
	var result []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY environment variable is required")
	}
	return nil
}
