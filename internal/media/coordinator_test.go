package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// pngBytes returns a payload the MIME detector identifies as image/png.
func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	return data
}

func newTestCoordinator(t *testing.T, opts Options) *Coordinator {
	t.Helper()
	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	if opts.InlineLimit == 0 {
		opts.InlineLimit = 1 << 20
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	return New(opts)
}

func TestResolveRemoteSource(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	src, err := NewSource("", "", "files/abc123", "video/mp4")
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}

	plan, err := c.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	ref, ok := plan.(DirectReference)
	if !ok {
		t.Fatalf("plan = %T, want DirectReference", plan)
	}
	if ref.URI != "files/abc123" || ref.MIMEType != "video/mp4" {
		t.Fatalf("unexpected reference: %+v", ref)
	}
}

func TestResolveYouTubeURLPassesThrough(t *testing.T) {
	var requests atomic.Int64
	c := newTestCoordinator(t, Options{
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				requests.Add(1)
				return nil, fmt.Errorf("unexpected request to %s", r.URL)
			}),
		},
	})

	src, err := NewSource("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", "", "")
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	plan, err := c.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	ref, ok := plan.(DirectReference)
	if !ok {
		t.Fatalf("plan = %T, want DirectReference", plan)
	}
	if ref.URI != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected URI: %s", ref.URI)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("pass-through URL triggered %d HTTP requests", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestResolveLocalFileInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	payload := pngBytes(256)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := newTestCoordinator(t, Options{})
	src, err := NewSource("", path, "", "")
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}

	plan, err := c.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	inline, ok := plan.(Inline)
	if !ok {
		t.Fatalf("plan = %T, want Inline", plan)
	}
	if inline.MIMEType != "image/png" {
		t.Fatalf("MIMEType = %q, want image/png", inline.MIMEType)
	}
	decoded, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		t.Fatalf("inline data is not valid base64: %v", err)
	}
	if len(decoded) != len(payload) {
		t.Fatalf("decoded %d bytes, want %d", len(decoded), len(payload))
	}
}

func TestResolveLocalFileOverLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	if err := os.WriteFile(path, pngBytes(2048), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := newTestCoordinator(t, Options{InlineLimit: 1024})
	src, _ := NewSource("", path, "", "")

	_, err := c.Resolve(context.Background(), src)
	var sle *SizeLimitError
	if !errors.As(err, &sle) {
		t.Fatalf("Resolve error = %v, want *SizeLimitError", err)
	}
	if sle.Size != 2048 || sle.Limit != 1024 {
		t.Fatalf("unexpected size error: %+v", sle)
	}
}

func TestResolveLocalFileErrors(t *testing.T) {
	c := newTestCoordinator(t, Options{})

	t.Run("missing file", func(t *testing.T) {
		src, _ := NewSource("", filepath.Join(t.TempDir(), "nope.png"), "", "")
		_, err := c.Resolve(context.Background(), src)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Resolve error = %v, want *ValidationError", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		src, _ := NewSource("", t.TempDir(), "", "")
		_, err := c.Resolve(context.Background(), src)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Resolve error = %v, want *ValidationError", err)
		}
	})

	t.Run("unsupported mime", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.zip")
		if err := os.WriteFile(path, []byte("PK\x03\x04payload"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		src, _ := NewSource("", path, "", "")
		_, err := c.Resolve(context.Background(), src)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Resolve error = %v, want *ValidationError", err)
		}
	})
}

func TestResolveURLOversizedProbeSkipsDownload(t *testing.T) {
	var gets atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Content-Type", "video/mp4")
			w.Header().Set("Content-Length", "5000000")
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			gets.Add(1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	c := newTestCoordinator(t, Options{InlineLimit: 1024, HTTPClient: server.Client()})
	src, _ := NewSource(server.URL+"/big.mp4", "", "", "")

	_, err := c.Resolve(context.Background(), src)
	var sle *SizeLimitError
	if !errors.As(err, &sle) {
		t.Fatalf("Resolve error = %v, want *SizeLimitError", err)
	}
	if got := gets.Load(); got != 0 {
		t.Fatalf("oversized URL was downloaded anyway (%d GET requests)", got)
	}
}

func TestResolveURLDownloadsWhenProbeInconclusive(t *testing.T) {
	payload := pngBytes(512)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	tempDir := t.TempDir()
	c := newTestCoordinator(t, Options{TempDir: tempDir, HTTPClient: server.Client()})
	src, _ := NewSource(server.URL+"/cat.png", "", "", "")

	plan, err := c.Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	inline, ok := plan.(Inline)
	if !ok {
		t.Fatalf("plan = %T, want Inline", plan)
	}
	if inline.MIMEType != "image/png" {
		t.Fatalf("MIMEType = %q, want image/png", inline.MIMEType)
	}

	// The temporary download must be gone once the plan is built.
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir not cleaned up: %d entries left", len(entries))
	}
}

func TestResolveURLDownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := newTestCoordinator(t, Options{HTTPClient: server.Client()})
	src, _ := NewSource(server.URL+"/gone.png", "", "", "")

	if _, err := c.Resolve(context.Background(), src); err == nil {
		t.Fatal("Resolve succeeded, want transfer error")
	}
}

func TestResolveAll(t *testing.T) {
	dir := t.TempDir()
	good1 := filepath.Join(dir, "a.png")
	good2 := filepath.Join(dir, "b.png")
	for _, p := range []string{good1, good2} {
		if err := os.WriteFile(p, pngBytes(128), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	c := newTestCoordinator(t, Options{})

	t.Run("all succeed", func(t *testing.T) {
		srcA, _ := NewSource("", good1, "", "")
		srcB, _ := NewSource("", good2, "", "")
		plans, err := c.ResolveAll(context.Background(), []Source{srcA, srcB})
		if err != nil {
			t.Fatalf("ResolveAll failed: %v", err)
		}
		if len(plans) != 2 {
			t.Fatalf("got %d plans, want 2", len(plans))
		}
		for i, plan := range plans {
			if _, ok := plan.(Inline); !ok {
				t.Fatalf("plan %d = %T, want Inline", i, plan)
			}
		}
	})

	t.Run("one failure fails the batch", func(t *testing.T) {
		srcA, _ := NewSource("", good1, "", "")
		srcBad, _ := NewSource("", filepath.Join(dir, "missing.png"), "", "")
		plans, err := c.ResolveAll(context.Background(), []Source{srcA, srcBad})
		if err == nil {
			t.Fatal("ResolveAll succeeded, want error")
		}
		if plans != nil {
			t.Fatalf("got partial plans on failure: %v", plans)
		}
	})
}
