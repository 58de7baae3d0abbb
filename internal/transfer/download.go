package transfer

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const fallbackExtension = ".bin"

// extensionForMIME maps trustworthy Content-Type values to file extensions.
// Generic application/* types (other than pdf) say nothing useful about the
// payload and are deliberately absent.
var extensionForMIME = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/heic":      ".heic",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
	"audio/ogg":       ".ogg",
	"text/plain":      ".txt",
	"text/html":       ".html",
	"application/pdf": ".pdf",
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	Path        string
	ContentType string
	Size        int64
}

// Download fetches rawURL as a stream into destDir under a uniquely generated
// filename. The extension is taken from the response Content-Type when the
// table recognizes it, else from the URL path, else a fixed fallback. A
// non-2xx status or stream error yields a *TransferError and any partially
// written file is removed.
func Download(ctx context.Context, client *http.Client, rawURL, destDir, prefix string, timeout time.Duration) (*DownloadResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransferError{URL: rawURL, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransferError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransferError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	ext := extensionFor(contentType, rawURL)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, &PersistenceError{Path: destDir, Err: err}
	}
	dest := filepath.Join(destDir, UniqueName(prefix, ext))

	out, err := os.Create(dest)
	if err != nil {
		return nil, &PersistenceError{Path: dest, Err: err}
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		Remove(dest)
		return nil, &TransferError{URL: rawURL, Err: err}
	}

	log.Printf("Downloaded %d bytes from %s to %s", written, rawURL, dest)
	return &DownloadResult{Path: dest, ContentType: contentType, Size: written}, nil
}

func extensionFor(contentType, rawURL string) string {
	if ext, ok := extensionForMIME[contentType]; ok {
		return ext
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(parsed.Path); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return fallbackExtension
}

// ProbeSize issues a HEAD request and reports the declared Content-Length.
// A negative size means the probe was inconclusive (no header, HEAD not
// supported); the caller is expected to fall back to a full transfer.
func ProbeSize(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) (int64, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return -1, &TransferError{URL: rawURL, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return -1, &TransferError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return -1, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return -1, &TransferError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength < 0 {
		return -1, nil
	}
	return resp.ContentLength, nil
}
