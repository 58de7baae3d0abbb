package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"

	"gemini-media-mcp/internal/common"
	"gemini-media-mcp/internal/filestore"
	"gemini-media-mcp/internal/media"
	"gemini-media-mcp/internal/middleware"
	"gemini-media-mcp/internal/notify"
	"gemini-media-mcp/internal/storage"
)

var (
	transport   = flag.String("transport", "", "Transport type (stdio, http, or sse)")
	showVersion = flag.Bool("version", false, "Show version information")
)

// Version information - these will be set during build
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const (
	serviceName = "gemini-media-mcp"
)

type Server struct {
	config      *common.Config
	client      *genai.Client
	storage     storage.Storage
	files       *filestore.Client
	coordinator *media.Coordinator
	notifier    *notify.Dispatcher
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", serviceName, version)
		fmt.Println("A Model Context Protocol server for Google Gemini media generation and understanding")
		fmt.Printf("Built: %s\n", buildTime)
		fmt.Printf("Commit: %s\n", gitCommit)
		return
	}

	// Load configuration (.env first so plain env vars win)
	_ = godotenv.Load()
	config := common.LoadConfig()
	if err := config.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Override transport if specified via flag
	if *transport != "" {
		config.Transport = *transport
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}

	stor, err := storage.NewStorage(config)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer stor.Close()

	files := filestore.NewClient(config.FileAPIBase, config.APIKey, config.RequestTimeout, config.UploadTimeout)
	notifier := buildNotifier(config)
	coordinator := media.New(media.Options{
		Store:           files,
		Notifier:        notifier,
		HTTPClient:      &http.Client{},
		TempDir:         config.TempDir(),
		InlineLimit:     config.InlineLimit,
		RequestTimeout:  config.RequestTimeout,
		PollInterval:    config.PollInterval,
		PollMaxAttempts: config.PollMaxAttempts,
	})

	server := &Server{
		config:      config,
		client:      client,
		storage:     stor,
		files:       files,
		coordinator: coordinator,
		notifier:    notifier,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serviceName,
		Version: version,
	}, nil)

	server.registerTools(mcpServer)

	log.Printf("Starting %s v%s (Transport: %s)", serviceName, version, config.Transport)
	if notifier.IsConfigured() {
		log.Printf("Notification channels: %s", notifier.Describe())
	}
	if config.S3Enabled {
		log.Printf("S3 storage enabled (bucket: %s, TTL: %v)", config.S3Bucket, config.S3ObjectTTL)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, cleaning up...")
		cancel()
	}()

	switch config.Transport {
	case "http", "sse":
		if err := runHTTPServer(ctx, mcpServer, config); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case "stdio":
		fallthrough
	default:
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}

// buildNotifier assembles the dispatcher from whichever notification
// channels have their settings present. A bad Telegram token is logged and
// the channel skipped; notifications are never worth failing startup over.
func buildNotifier(config *common.Config) *notify.Dispatcher {
	var channels []notify.Channel
	if config.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel(config.WebhookURL, config.WebhookToken, config.RequestTimeout))
	}
	if config.TelegramToken != "" && config.TelegramChatID != 0 {
		tg, err := notify.NewTelegramChannel(config.TelegramToken, config.TelegramChatID)
		if err != nil {
			log.Printf("Telegram channel disabled: %v", err)
		} else {
			channels = append(channels, tg)
		}
	}
	return notify.NewDispatcher(channels...)
}

// runHTTPServer starts the MCP server with HTTP transport
func runHTTPServer(ctx context.Context, mcpServer *mcp.Server, config *common.Config) error {
	handler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	var httpHandler http.Handler = handler
	if config.AuthEnabled && len(config.ServiceTokens) > 0 {
		log.Printf("Authentication enabled with %d configured tokens", len(config.ServiceTokens))
		httpHandler = middleware.AuthMiddleware(config.ServiceTokens, handler)
	} else {
		log.Printf("WARNING: Authentication disabled - server is publicly accessible")
	}

	addr := ":" + config.Port
	server := &http.Server{
		Addr:    addr,
		Handler: httpHandler,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// resolveInputPath resolves an input path to a local file path.
// Absolute paths are used directly; anything else is treated as a storage
// object key and retrieved (downloading from S3 when storage is remote).
// Returns the local path and a cleanup function (may be nil for local files).
func (s *Server) resolveInputPath(ctx context.Context, inputPath string) (localPath string, cleanup func(), err error) {
	if strings.HasPrefix(inputPath, "/") {
		if _, err := os.Stat(inputPath); err == nil {
			return inputPath, nil, nil
		}
		return "", nil, fmt.Errorf("local file not found: %s", inputPath)
	}

	localPath, cleanup, err = s.storage.Retrieve(ctx, inputPath)
	if err != nil {
		// Not in storage: last chance as a path relative to the working dir.
		if _, statErr := os.Stat(inputPath); statErr == nil {
			return inputPath, nil, nil
		}
		return "", nil, fmt.Errorf("file not found: %s", inputPath)
	}
	return localPath, cleanup, nil
}

// errorResult wraps a failure into the standard tool response shape: the
// envelope stays successful, the content carries the error text.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
