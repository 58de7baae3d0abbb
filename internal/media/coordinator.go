package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"gemini-media-mcp/internal/filestore"
	"gemini-media-mcp/internal/transfer"
)

// Store is the slice of the file-store client the coordinator needs.
// *filestore.Client satisfies it.
type Store interface {
	BeginUpload(ctx context.Context, displayName, mimeType string, size int64) (string, error)
	SendBytes(ctx context.Context, sessionURL string, data []byte, mimeType string) (*filestore.RemoteObject, error)
	GetStatus(ctx context.Context, name string) (*filestore.RemoteObject, error)
}

// Notifier delivers terminal-outcome messages. *notify.Dispatcher satisfies it.
type Notifier interface {
	IsConfigured() bool
	Describe() string
	Notify(ctx context.Context, text string)
}

// Options configures a Coordinator.
type Options struct {
	Store           Store
	Notifier        Notifier
	HTTPClient      *http.Client
	TempDir         string
	InlineLimit     int64
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Coordinator resolves media sources into transfer plans and drives the
// upload-and-poll lifecycle for large files.
type Coordinator struct {
	store           Store
	notifier        Notifier
	httpClient      *http.Client
	tempDir         string
	inlineLimit     int64
	requestTimeout  time.Duration
	pollInterval    time.Duration
	pollMaxAttempts int
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		store:           opts.Store,
		notifier:        opts.Notifier,
		httpClient:      opts.HTTPClient,
		tempDir:         opts.TempDir,
		inlineLimit:     opts.InlineLimit,
		requestTimeout:  opts.RequestTimeout,
		pollInterval:    opts.PollInterval,
		pollMaxAttempts: opts.PollMaxAttempts,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.pollMaxAttempts <= 0 {
		c.pollMaxAttempts = 1
	}
	return c
}

// Notifier exposes the dispatcher so tool handlers can describe the
// configured channels in their confirmation messages.
func (c *Coordinator) Notifier() Notifier { return c.notifier }

// supportedMIME is the allow-list for content sent to the generation API.
func supportedMIME(mimeType string) bool {
	for _, prefix := range []string{"image/", "video/", "audio/", "text/"} {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return mimeType == "application/pdf"
}

// Resolve turns a Source into a Plan for the ordinary per-request flow,
// where anything above the inline limit is rejected rather than uploaded.
// Temporary downloads are removed before returning, success or not.
func (c *Coordinator) Resolve(ctx context.Context, src Source) (Plan, error) {
	switch src.Kind() {
	case SourceRemote:
		return DirectReference{URI: src.remoteHandle, MIMEType: src.remoteMIME}, nil

	case SourceURL:
		if isPassthroughURL(src.url) {
			return DirectReference{URI: src.url}, nil
		}
		return c.resolveURL(ctx, src.url)

	case SourceLocalPath:
		return c.resolveLocal(src.localPath)

	default:
		return nil, &ValidationError{Reason: "media source has no populated variant"}
	}
}

func (c *Coordinator) resolveURL(ctx context.Context, rawURL string) (Plan, error) {
	// Cheap size probe first: oversized sources are rejected without
	// transferring a single body byte when the server declares a length.
	size, err := transfer.ProbeSize(ctx, c.httpClient, rawURL, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	if size >= 0 && size > c.inlineLimit {
		return nil, &SizeLimitError{Size: size, Limit: c.inlineLimit}
	}

	// Inconclusive probe or acceptable size: transfer and re-check, since
	// some servers omit Content-Length.
	result, err := transfer.Download(ctx, c.httpClient, rawURL, c.tempDir, "dl", c.requestTimeout)
	if err != nil {
		return nil, err
	}
	defer transfer.Remove(result.Path)

	if result.Size > c.inlineLimit {
		return nil, &SizeLimitError{Size: result.Size, Limit: c.inlineLimit}
	}

	mimeType := result.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		detected, err := mimetype.DetectFile(result.Path)
		if err != nil {
			return nil, &ValidationError{Reason: "could not determine MIME type of " + rawURL}
		}
		mimeType = detected.String()
	}
	return c.inlinePlan(result.Path, mimeType)
}

func (c *Coordinator) resolveLocal(path string) (Plan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Reason: "local file not found: " + path}
	}
	if info.IsDir() {
		return nil, &ValidationError{Reason: "path is a directory: " + path}
	}
	if info.Size() > c.inlineLimit {
		return nil, &SizeLimitError{Size: info.Size(), Limit: c.inlineLimit}
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, &ValidationError{Reason: "could not determine MIME type of " + path}
	}
	return c.inlinePlan(path, detected.String())
}

func (c *Coordinator) inlinePlan(path, mimeType string) (Plan, error) {
	mimeType = strings.Split(mimeType, ";")[0]
	if !supportedMIME(mimeType) {
		return nil, &ValidationError{Reason: "unsupported MIME type: " + mimeType}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &transfer.PersistenceError{Path: path, Err: err}
	}
	return Inline{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}, nil
}

// ResolveAll resolves every source concurrently and succeeds only if all of
// them do. Each resolution cleans up its own temp files, so a failing
// sibling never leaves another source's download behind.
func (c *Coordinator) ResolveAll(ctx context.Context, srcs []Source) ([]Plan, error) {
	plans := make([]Plan, len(srcs))
	errs := make([]error, len(srcs))

	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			plans[i], errs[i] = c.Resolve(ctx, src)
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return plans, nil
}
