package common

import (
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_API_KEY", "GEMINI_API_KEY", "GEMINI_FILE_API_BASE",
		"IMAGE_MODEL", "VIDEO_MODEL", "UNDERSTANDING_MODEL", "SEARCH_MODEL",
		"PORT", "TRANSPORT", "OUTPUT_DIR", "SERVICE_TOKENS",
		"REQUEST_TIMEOUT", "UPLOAD_TIMEOUT", "INLINE_LIMIT_BYTES",
		"POLL_INTERVAL", "POLL_MAX_ATTEMPTS",
		"NOTIFY_WEBHOOK_URL", "NOTIFY_WEBHOOK_TOKEN",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
	} {
		t.Setenv(key, "")
	}
	// Keep the default output dir out of the real filesystem during tests.
	t.Setenv("OUTPUT_DIR", t.TempDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	config := LoadConfig()

	if config.FileAPIBase != "https://generativelanguage.googleapis.com" {
		t.Fatalf("FileAPIBase = %q", config.FileAPIBase)
	}
	if config.Transport != "stdio" {
		t.Fatalf("Transport = %q, want stdio", config.Transport)
	}
	if config.InlineLimit != MaxInlineBytes {
		t.Fatalf("InlineLimit = %d, want %d", config.InlineLimit, MaxInlineBytes)
	}
	if config.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %v, want 10s", config.PollInterval)
	}
	if config.PollMaxAttempts != 60 {
		t.Fatalf("PollMaxAttempts = %d, want 60", config.PollMaxAttempts)
	}
	if config.AuthEnabled {
		t.Fatal("AuthEnabled with no tokens configured")
	}
	if config.S3Enabled {
		t.Fatal("S3Enabled with no S3 configuration")
	}
}

func TestInlineLimitClamped(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("INLINE_LIMIT_BYTES", "999999999999")
	if got := LoadConfig().InlineLimit; got != MaxInlineBytes {
		t.Fatalf("oversized InlineLimit = %d, want clamped to %d", got, MaxInlineBytes)
	}

	t.Setenv("INLINE_LIMIT_BYTES", "-5")
	if got := LoadConfig().InlineLimit; got != MaxInlineBytes {
		t.Fatalf("negative InlineLimit = %d, want %d", got, MaxInlineBytes)
	}

	t.Setenv("INLINE_LIMIT_BYTES", "1048576")
	if got := LoadConfig().InlineLimit; got != 1048576 {
		t.Fatalf("InlineLimit = %d, want 1048576", got)
	}
}

func TestServiceTokens(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVICE_TOKENS", " tok1, tok2 ,,tok3")

	config := LoadConfig()
	if len(config.ServiceTokens) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(config.ServiceTokens), config.ServiceTokens)
	}
	if config.ServiceTokens[1] != "tok2" {
		t.Fatalf("token[1] = %q, want tok2", config.ServiceTokens[1])
	}
	if !config.AuthEnabled {
		t.Fatal("AuthEnabled false with tokens configured")
	}
}

func TestS3EnabledRequiresHTTPTransport(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("S3_ACCESS_KEY_ID", "access")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")

	if LoadConfig().S3Enabled {
		t.Fatal("S3Enabled on stdio transport")
	}

	t.Setenv("TRANSPORT", "http")
	if !LoadConfig().S3Enabled {
		t.Fatal("S3Enabled false with full S3 config on http transport")
	}
}

func TestAPIKeyFallback(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GEMINI_API_KEY", "fallback-key")

	config := LoadConfig()
	if config.APIKey != "fallback-key" {
		t.Fatalf("APIKey = %q, want fallback-key", config.APIKey)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate failed with API key set: %v", err)
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	clearConfigEnv(t)
	if err := LoadConfig().Validate(); err == nil {
		t.Fatal("Validate succeeded without an API key")
	}
}

func TestTempDir(t *testing.T) {
	config := &Config{OutputDir: "/data/out"}
	if got := config.TempDir(); got != filepath.Join("/data/out", "tmp") {
		t.Fatalf("TempDir = %q", got)
	}
}
