package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"gemini-media-mcp/internal/filestore"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// UploadResult is printed as JSON on success
type UploadResult struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	MIMEType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	State      string `json:"state"`
	UploadedAt string `json:"uploaded_at"`
}

// ErrorResult is printed as JSON on failure
type ErrorResult struct {
	Error string `json:"error"`
}

func main() {
	apiKey := flag.String("api-key", "", "Gemini API key (defaults to GOOGLE_API_KEY or GEMINI_API_KEY)")
	baseURL := flag.String("base-url", "https://generativelanguage.googleapis.com", "Gemini API base URL")
	pollInterval := flag.Duration("poll-interval", 10*time.Second, "Delay between processing-status checks")
	pollAttempts := flag.Int("poll-attempts", 60, "Maximum number of status checks before giving up")
	uploadTimeout := flag.Duration("timeout", 30*time.Minute, "Timeout for the byte transfer")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help")

	flag.Parse()

	if *showVersion {
		fmt.Printf("upload_media version %s\n", version)
		fmt.Printf("Build time: %s\n", buildTime)
		fmt.Printf("Git commit: %s\n", gitCommit)
		os.Exit(0)
	}
	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}
	filePath := args[0]

	key := *apiKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		outputError("an API key is required (--api-key, GOOGLE_API_KEY, or GEMINI_API_KEY)")
		os.Exit(1)
	}

	if !filepath.IsAbs(filePath) {
		outputError("File path must be absolute: " + filePath)
		os.Exit(1)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			outputError("File not found: " + filePath)
		} else {
			outputError(fmt.Sprintf("Cannot access file: %v", err))
		}
		os.Exit(1)
	}
	if info.IsDir() {
		outputError("Path is a directory, not a file: " + filePath)
		os.Exit(1)
	}

	detected, err := mimetype.DetectFile(filePath)
	if err != nil {
		outputError(fmt.Sprintf("Cannot determine MIME type: %v", err))
		os.Exit(1)
	}
	mimeType := detected.String()

	data, err := os.ReadFile(filePath)
	if err != nil {
		outputError(fmt.Sprintf("Failed to read file: %v", err))
		os.Exit(1)
	}

	client := filestore.NewClient(*baseURL, key, 30*time.Second, *uploadTimeout)
	ctx := context.Background()

	sessionURL, err := client.BeginUpload(ctx, filepath.Base(filePath), mimeType, info.Size())
	if err != nil {
		outputError(fmt.Sprintf("Failed to start upload: %v", err))
		os.Exit(1)
	}

	remote, err := client.SendBytes(ctx, sessionURL, data, mimeType)
	if err != nil {
		outputError(fmt.Sprintf("Failed to upload file: %v", err))
		os.Exit(1)
	}

	// Wait for the remote side to finish processing
	for attempt := 1; remote.State == filestore.StateProcessing && attempt <= *pollAttempts; attempt++ {
		fmt.Fprintf(os.Stderr, "Waiting for processing... (attempt %d/%d)\n", attempt, *pollAttempts)
		time.Sleep(*pollInterval)
		remote, err = client.GetStatus(ctx, remote.Name)
		if err != nil {
			outputError(fmt.Sprintf("Failed to check file status: %v", err))
			os.Exit(1)
		}
	}

	switch remote.State {
	case filestore.StateActive:
	case filestore.StateFailed:
		outputError(fmt.Sprintf("Remote processing failed for %s", remote.Name))
		os.Exit(1)
	default:
		outputError(fmt.Sprintf("File %s still processing after %d attempts", remote.Name, *pollAttempts))
		os.Exit(1)
	}

	result := UploadResult{
		Name:       remote.Name,
		URI:        remote.URI,
		MIMEType:   remote.MIMEType,
		Size:       info.Size(),
		State:      remote.State,
		UploadedAt: time.Now().Format(time.RFC3339),
	}
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(jsonBytes))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `upload_media - Upload a local file to the Gemini Files API

Usage:
  upload_media [flags] <file_path>
  upload_media -version
  upload_media -help

Flags:
  --api-key         Gemini API key (defaults to GOOGLE_API_KEY or GEMINI_API_KEY)
  --base-url        Gemini API base URL
  --poll-interval   Delay between processing-status checks (default 10s)
  --poll-attempts   Maximum status checks before giving up (default 60)
  --timeout         Timeout for the byte transfer (default 30m)

Arguments:
  <file_path>    Absolute path to the file to upload

Examples:
  upload_media /home/example/lecture.mp4

Output:
  JSON object with name, uri, mime_type, size, and state.
  Pass the uri (with its mime_type) to gemini_media_understanding as file_uri.
`)
}

func outputError(msg string) {
	result := ErrorResult{Error: msg}
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(os.Stderr, string(jsonBytes))
}
