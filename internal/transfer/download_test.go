package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDownload(t *testing.T) {
	payload := []byte("fake image bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	result, err := Download(context.Background(), server.Client(), server.URL+"/pic", dir, "dl", 5*time.Second)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if result.ContentType != "image/png" {
		t.Fatalf("ContentType = %q, want image/png", result.ContentType)
	}
	if result.Size != int64(len(payload)) {
		t.Fatalf("Size = %d, want %d", result.Size, len(payload))
	}
	if filepath.Ext(result.Path) != ".png" {
		t.Fatalf("extension = %q, want .png", filepath.Ext(result.Path))
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("downloaded content differs from served content")
	}
}

func TestDownloadExtensionFallbacks(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		urlPath     string
		wantExt     string
	}{
		{
			name:        "generic content type falls back to url extension",
			contentType: "application/octet-stream",
			urlPath:     "/media/clip.mov",
			wantExt:     ".mov",
		},
		{
			name:        "nothing usable falls back to bin",
			contentType: "application/octet-stream",
			urlPath:     "/media/clip",
			wantExt:     ".bin",
		},
		{
			name:        "pdf is trusted",
			contentType: "application/pdf",
			urlPath:     "/doc",
			wantExt:     ".pdf",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.Write([]byte("data"))
			}))
			defer server.Close()

			result, err := Download(context.Background(), server.Client(), server.URL+tc.urlPath, t.TempDir(), "dl", 5*time.Second)
			if err != nil {
				t.Fatalf("Download failed: %v", err)
			}
			if got := filepath.Ext(result.Path); got != tc.wantExt {
				t.Fatalf("extension = %q, want %q", got, tc.wantExt)
			}
		})
	}
}

func TestDownloadHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dir := t.TempDir()
	_, err := Download(context.Background(), server.Client(), server.URL+"/gone", dir, "dl", 5*time.Second)

	var te *TransferError
	if !errors.As(err, &te) {
		t.Fatalf("Download error = %v, want *TransferError", err)
	}
	if te.StatusCode != http.StatusNotFound {
		t.Fatalf("StatusCode = %d, want 404", te.StatusCode)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed download left %d files behind", len(entries))
	}
}

func TestProbeSize(t *testing.T) {
	t.Run("declared length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "123456")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		size, err := ProbeSize(context.Background(), server.Client(), server.URL, 5*time.Second)
		if err != nil {
			t.Fatalf("ProbeSize failed: %v", err)
		}
		if size != 123456 {
			t.Fatalf("size = %d, want 123456", size)
		}
	})

	t.Run("head not supported is inconclusive", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}))
		defer server.Close()

		size, err := ProbeSize(context.Background(), server.Client(), server.URL, 5*time.Second)
		if err != nil {
			t.Fatalf("ProbeSize failed: %v", err)
		}
		if size != -1 {
			t.Fatalf("size = %d, want -1", size)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := ProbeSize(context.Background(), server.Client(), server.URL, 5*time.Second)
		var te *TransferError
		if !errors.As(err, &te) {
			t.Fatalf("ProbeSize error = %v, want *TransferError", err)
		}
	})
}
