// Package transfer moves bytes between local disk and arbitrary HTTP
// sources. It carries no business logic; size limits and upload decisions
// live in the media package.
package transfer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransferError reports a download or upload transport failure. StatusCode is
// zero when the failure happened before an HTTP status was received.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer failed for %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transfer failed for %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// PersistenceError reports a local write failure.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UniqueName builds a collision-free filename from a timestamp and a random
// suffix. The extension should include its leading dot.
func UniqueName(prefix, ext string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s_%s_%s%s", prefix, time.Now().Format("20060102_150405"), suffix, ext)
}

// Save writes data under dir/subfolder/filename, creating directories as
// needed, and returns the full path.
func Save(dir, subfolder, filename string, data []byte) (string, error) {
	target := filepath.Join(dir, subfolder)
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", &PersistenceError{Path: target, Err: err}
	}
	path := filepath.Join(target, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	return path, nil
}

// Remove deletes a file best-effort. A path that is already gone counts as
// success; other errors are logged and swallowed since deletion is cleanup,
// never the critical path.
func Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove %s: %v", path, err)
	}
}
